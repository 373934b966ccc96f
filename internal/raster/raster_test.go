package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

type taintedImage struct{ image.Image }

func (taintedImage) Tainted() bool { return true }

func TestSampleUniform(t *testing.T) {
	filters := []config.Filter{
		config.FilterNearest,
		config.FilterBilinear,
		config.FilterCatmullRom,
		config.FilterBicubic,
		config.FilterMitchell,
		config.FilterLanczos3,
	}
	for _, f := range filters {
		t.Run(string(f), func(t *testing.T) {
			s := NewSampler()
			got, err := s.Sample(uniform(40, 20, color.NRGBA{200, 100, 50, 255}), resize.Grid{Cols: 4, Rows: 2}, f)
			require.NoError(t, err)
			require.Len(t, got.Pix, 8)
			for _, p := range got.Pix {
				assert.Equal(t, Pixel{200, 100, 50, 255}, p)
			}
		})
	}
}

func TestSampleTransparentIsBlack(t *testing.T) {
	got, err := NewSampler().Sample(uniform(3, 3, color.NRGBA{255, 255, 255, 0}), resize.Grid{Cols: 1, Rows: 1}, config.FilterNearest)
	require.NoError(t, err)
	assert.Equal(t, Pixel{0, 0, 0, 0}, got.At(0, 0))
}

func TestSampleStraightAlpha(t *testing.T) {
	got, err := NewSampler().Sample(uniform(2, 2, color.NRGBA{200, 40, 0, 128}), resize.Grid{Cols: 1, Rows: 1}, config.FilterNearest)
	require.NoError(t, err)
	p := got.At(0, 0)
	assert.EqualValues(t, 128, p.A)
	assert.InDelta(t, 200, int(p.R), 1)
	assert.InDelta(t, 40, int(p.G), 1)
}

func TestSampleTainted(t *testing.T) {
	_, err := NewSampler().Sample(taintedImage{uniform(2, 2, color.White)}, resize.Grid{Cols: 2, Rows: 2}, config.FilterBilinear)
	assert.ErrorIs(t, err, ErrTainted)
}

func TestSampleReusesRaster(t *testing.T) {
	s := NewSampler()
	_, err := s.Sample(uniform(8, 8, color.White), resize.Grid{Cols: 8, Rows: 8}, config.FilterNearest)
	require.NoError(t, err)
	backing := &s.buf.Pix[0]

	got, err := s.Sample(uniform(8, 8, color.Black), resize.Grid{Cols: 2, Rows: 3}, config.FilterNearest)
	require.NoError(t, err)
	assert.Same(t, backing, &s.buf.Pix[0])
	assert.Equal(t, image.Rect(0, 0, 2, 3), s.buf.Bounds())
	for _, p := range got.Pix {
		assert.Equal(t, Pixel{0, 0, 0, 255}, p)
	}
}

func TestSampleErrors(t *testing.T) {
	s := NewSampler()
	_, err := s.Sample(uniform(1, 1, color.White), resize.Grid{}, config.FilterNearest)
	assert.Error(t, err)

	_, err = s.Sample(uniform(1, 1, color.White), resize.Grid{Cols: 1, Rows: 1}, "box")
	assert.Error(t, err)

	require.NoError(t, s.Close())
	_, err = s.Sample(uniform(1, 1, color.White), resize.Grid{Cols: 1, Rows: 1}, config.FilterNearest)
	assert.ErrorIs(t, err, ErrClosed)
}
