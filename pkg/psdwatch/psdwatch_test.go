package psdwatch_test

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/psdwatch/internal/layered/layeredtest"
	"github.com/hupe1980/psdwatch/pkg/psdwatch"
)

func TestConvert_EmptySource(t *testing.T) {
	_, err := psdwatch.Convert(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source path must not be empty")
}

func TestConvert_MissingSource(t *testing.T) {
	_, err := psdwatch.Convert(context.Background(), "/nonexistent/cover.psd")
	assert.ErrorIs(t, err, psdwatch.ErrIO)
}

func TestConvert_Garbage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "cover.psd")
	require.NoError(t, os.WriteFile(src, []byte("nope"), 0o644))

	_, err := psdwatch.Convert(context.Background(), src)
	assert.ErrorIs(t, err, psdwatch.ErrDecode)
}

func TestConvert_DefaultsToPNG(t *testing.T) {
	src := filepath.Join(t.TempDir(), "cover.psd")
	layeredtest.WriteFlat(t, src, layeredtest.Gradient(4, 3))

	res, err := psdwatch.Convert(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "png", res.Format)
	assert.Equal(t, "png", res.Ext)

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
	assert.Equal(t, img.Bounds(), res.Image.Bounds())
}

func TestConvert_UnknownFormat(t *testing.T) {
	src := filepath.Join(t.TempDir(), "cover.psd")
	layeredtest.WriteFlat(t, src, layeredtest.Gradient(1, 1))

	_, err := psdwatch.Convert(context.Background(), src, psdwatch.WithFormat("tiff"))
	assert.ErrorIs(t, err, psdwatch.ErrEncode)
}

func TestExport_WritesBesideSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Cover.PSD")
	layeredtest.WriteFlat(t, src, layeredtest.Gradient(2, 2))

	out, err := psdwatch.Export(context.Background(), src, psdwatch.WithFormat("jpeg"), psdwatch.WithQuality(70))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Cover.jpg"), out)
	assert.FileExists(t, out)
}

func TestWatch_InvalidTarget(t *testing.T) {
	err := psdwatch.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, psdwatch.ErrInvalidTarget)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := psdwatch.Watch(ctx, t.TempDir(), psdwatch.WithDebounce(20*time.Millisecond))
	assert.NoError(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"jpg", "png", "webp"}, psdwatch.Formats())
}
