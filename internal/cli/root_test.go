package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psdwatch/internal/layered/layeredtest"
)

// executeCommand is a test helper that runs the CLI with the given args and
// captures both stdout and stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
}

// ---------------------------------------------------------------------------
// Help output
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	require.NoError(t, err)

	for _, sub := range []string{"version", "completion"} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}

	for _, flag := range []string{
		"--once", "--format", "--quality", "--debounce", "--workers", "--source-ext", "--report",
		"--config", "--log-level", "--log-format", "--no-color", "--quiet",
	} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

// ---------------------------------------------------------------------------
// Usage errors: exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, err := executeCommand("--nonexistent")
	requireExitCode(t, err, 2)
}

func TestRootCommand_SilenceErrors(t *testing.T) {
	_, stderr, err := executeCommand("--nonexistent")
	require.Error(t, err)
	assert.Empty(t, stderr, "cobra should not print errors to stderr (SilenceErrors)")
}

func TestRootCommand_MissingPath(t *testing.T) {
	_, _, err := executeCommand()
	requireExitCode(t, err, 2)
}

func TestRootCommand_TooManyPaths(t *testing.T) {
	_, _, err := executeCommand("a", "b")
	requireExitCode(t, err, 2)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("--config", "/nonexistent/path.yaml", t.TempDir())
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand("--log-level", "trace", t.TempDir())
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := executeCommand("--once", "-f", "gif", t.TempDir())
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRootCommand_InvalidQuality(t *testing.T) {
	_, _, err := executeCommand("--once", "--quality", "0", t.TempDir())
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid quality")
}

// ---------------------------------------------------------------------------
// Invalid target: exit code 1
// ---------------------------------------------------------------------------

func TestRootCommand_NonexistentPath(t *testing.T) {
	_, _, err := executeCommand("--once", filepath.Join(t.TempDir(), "missing"))
	requireExitCode(t, err, 1)
	assert.Contains(t, err.Error(), "invalid target")
}

func TestRootCommand_NonSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, _, err := executeCommand(path)
	requireExitCode(t, err, 1)
}

// ---------------------------------------------------------------------------
// One-shot conversion
// ---------------------------------------------------------------------------

func TestRootCommand_OnceDirectory(t *testing.T) {
	dir := t.TempDir()
	layeredtest.WriteFlat(t, filepath.Join(dir, "a.psd"), layeredtest.Gradient(2, 2))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.psd"), []byte("broken"), 0o644))

	_, stderr, err := executeCommand("--once", "-q", "-f", "webp", dir)
	require.NoError(t, err, "per-file failures must not fail a one-shot run")

	assert.FileExists(t, filepath.Join(dir, "a.webp"))
	assert.NoFileExists(t, filepath.Join(dir, "b.webp"))
	assert.Contains(t, stderr, "converted 1 of 2 files (1 failed)")
}

func TestRootCommand_OnceWithReportFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.psd")
	layeredtest.WriteFlat(t, src, layeredtest.Gradient(2, 2))

	report := filepath.Join(dir, "summary.yaml")
	cfg := filepath.Join(dir, "psdwatch.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format: jpg\nreport: "+report+"\n"), 0o644))

	_, _, err := executeCommand("--config", cfg, "--once", "-q", src)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "cover.jpg"))
	assert.FileExists(t, report)
}

// ---------------------------------------------------------------------------
// exitCode
// ---------------------------------------------------------------------------

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, 0, exitCode(&buf, nil))
	assert.Empty(t, buf.String())

	assert.Equal(t, 2, exitCode(&buf, &ExitError{Code: 2, Err: errors.New("bad flag")}))
	assert.Contains(t, buf.String(), "Error: bad flag")

	assert.Equal(t, 1, exitCode(&buf, errors.New("plain")))
}

// ---------------------------------------------------------------------------
// ExitError
// ---------------------------------------------------------------------------

func TestExitError_ErrorWithMessage(t *testing.T) {
	err := &ExitError{Code: 1, Err: assert.AnError}
	assert.Contains(t, err.Error(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExitError_ErrorWithoutMessage(t *testing.T) {
	err := &ExitError{Code: 42}
	assert.Equal(t, "exit code 42", err.Error())
	assert.Nil(t, err.Unwrap())
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompletion_Shells(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := executeCommand("completion", shell)
			require.NoError(t, err)
			assert.Contains(t, stdout, "psdwatch")
		})
	}
}

func TestCompletion_InvalidShell(t *testing.T) {
	_, _, err := executeCommand("completion", "tcsh")
	require.Error(t, err)
}
