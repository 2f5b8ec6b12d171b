// Package version reports psdwatch build metadata. Version, GitCommit and
// BuildDate are injected with -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/hupe1980/psdwatch/internal/output"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string   `json:"version"`
	GitCommit string   `json:"gitCommit"`
	BuildDate string   `json:"buildDate"`
	GoVersion string   `json:"goVersion"`
	Platform  string   `json:"platform"`
	Formats   []string `json:"formats"`
}

// GetInfo returns the current build information, including the output
// formats compiled into this binary.
func GetInfo() Info {
	return Info{
		Version:   version,
		GitCommit: shortCommit(gitCommit),
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Formats:   output.DefaultRegistry().Formats(),
	}
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("psdwatch %s (commit: %s, built: %s, %s %s, formats: %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform, strings.Join(i.Formats, ","))
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
