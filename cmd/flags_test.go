package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    *resize.Size
		wantErr bool
	}{
		{in: "800x600", want: &resize.Size{Width: 800, Height: 600}},
		{in: "1.5X2", want: &resize.Size{Width: 1.5, Height: 2}},
		{in: "800", wantErr: true},
		{in: "ax1", wantErr: true},
		{in: "-1x1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newFlagCommand(t *testing.T, args ...string) *renderFlags {
	t.Helper()
	f := &renderFlags{}
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return f
}

func TestRenderFlagsDefaults(t *testing.T) {
	cfg, err := newFlagCommand(t).config()
	require.NoError(t, err)

	want := config.Default()
	want.Format = config.FormatANSI
	assert.Equal(t, want, cfg)
}

func TestRenderFlagsOverride(t *testing.T) {
	f := newFlagCommand(t, "--mode", "blocks", "-c", "grayscale", "--dither=false", "-W", "40", "--container", "320x200")
	cfg, err := f.config()
	require.NoError(t, err)
	assert.Equal(t, charset.ModeBlocks, cfg.Mode)
	assert.Equal(t, config.ColorGrayscale, cfg.ColorMode)
	assert.False(t, cfg.Dithering)
	assert.Equal(t, 40, cfg.Width)

	size, err := f.containerSize()
	require.NoError(t, err)
	assert.Equal(t, &resize.Size{Width: 320, Height: 200}, size)
}

func TestRenderFlagsInvalid(t *testing.T) {
	_, err := newFlagCommand(t, "--mode", "braille").config()
	assert.Error(t, err)

	_, err = newFlagCommand(t, "--gamma", "0").config()
	assert.ErrorIs(t, err, config.ErrInvalidGamma)
}

func TestRenderCommand(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(0, 0, color.Black)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"render", path, "--mode", "numbers", "--fit=false", "-W", "4", "-H", "2", "--dither=false", "--filter", "nearest"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, " 999\n9999\n", out.String())
}

func TestServeLoaderRefusesLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	svc := config.LoadService()

	_, err := newServeLoader(svc, logging.Discard()).Load(context.Background(), path, fetch.Anonymous)
	var le *fetch.LoadError
	assert.ErrorAs(t, err, &le)

	img, err := newLoader(svc, logging.Discard()).Load(context.Background(), path, fetch.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
}
