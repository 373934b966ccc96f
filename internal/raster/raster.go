// Package raster draws a source image into a reusable off-screen buffer of
// exactly one pixel per output cell and reads the pixels back.
package raster

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/lucasb-eyer/go-colorful"
	nfnt "github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

var (
	// ErrTainted is the security error raised when reading back a raster
	// that holds cross-origin pixels.
	ErrTainted = errors.New("security error: raster tainted by cross-origin image data")
	ErrClosed  = errors.New("raster released")
)

// Pixel is a straight (non-premultiplied) RGBA sample.
type Pixel struct {
	R, G, B, A uint8
}

// Samples holds one pixel per output cell in row-major order.
type Samples struct {
	Cols int
	Rows int
	Pix  []Pixel
}

func (s Samples) At(x, y int) Pixel {
	return s.Pix[y*s.Cols+x]
}

type taintable interface {
	Tainted() bool
}

// Scaler draws src scaled to the full bounds of dst.
type Scaler interface {
	Scale(dst *image.RGBA, src image.Image)
}

type interpolatorScaler struct {
	interp draw.Interpolator
}

func (s interpolatorScaler) Scale(dst *image.RGBA, src image.Image) {
	s.interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

type nfntScaler struct {
	fn nfnt.InterpolationFunction
}

func (s nfntScaler) Scale(dst *image.RGBA, src image.Image) {
	b := dst.Bounds()
	scaled := nfnt.Resize(uint(b.Dx()), uint(b.Dy()), src, s.fn)
	draw.Draw(dst, b, scaled, scaled.Bounds().Min, draw.Src)
}

// ScalerFor maps a filter name to its resampling implementation.
func ScalerFor(f config.Filter) (Scaler, error) {
	switch f {
	case config.FilterNearest:
		return interpolatorScaler{draw.NearestNeighbor}, nil
	case config.FilterBilinear, "":
		return interpolatorScaler{draw.BiLinear}, nil
	case config.FilterCatmullRom:
		return interpolatorScaler{draw.CatmullRom}, nil
	case config.FilterBicubic:
		return nfntScaler{nfnt.Bicubic}, nil
	case config.FilterMitchell:
		return nfntScaler{nfnt.MitchellNetravali}, nil
	case config.FilterLanczos3:
		return nfntScaler{nfnt.Lanczos3}, nil
	}
	return nil, fmt.Errorf("unknown filter %q", f)
}

// Sampler owns one off-screen raster. Sample calls are serialized.
type Sampler struct {
	mu     sync.Mutex
	buf    *image.RGBA
	closed bool
}

func NewSampler() *Sampler {
	return &Sampler{}
}

// Sample scales src to grid and returns its pixels. Tainted sources are
// drawn but refuse readback with ErrTainted.
func (s *Sampler) Sample(src image.Image, grid resize.Grid, filter config.Filter) (Samples, error) {
	if grid.Cols < 1 || grid.Rows < 1 {
		return Samples{}, fmt.Errorf("invalid grid %s", grid)
	}
	scaler, err := ScalerFor(filter)
	if err != nil {
		return Samples{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Samples{}, ErrClosed
	}

	buf := s.resizeBuffer(grid)
	scaler.Scale(buf, src)

	if t, ok := src.(taintable); ok && t.Tainted() {
		return Samples{}, ErrTainted
	}

	out := Samples{Cols: grid.Cols, Rows: grid.Rows, Pix: make([]Pixel, grid.Cols*grid.Rows)}
	for y := 0; y < grid.Rows; y++ {
		for x := 0; x < grid.Cols; x++ {
			c := buf.RGBAAt(x, y)
			p := Pixel{A: c.A}
			if straight, ok := colorful.MakeColor(c); ok {
				p.R, p.G, p.B = straight.RGB255()
			}
			out.Pix[y*grid.Cols+x] = p
		}
	}
	return out, nil
}

// resizeBuffer sizes the raster to grid and clears it, reusing the backing
// array when it is large enough.
func (s *Sampler) resizeBuffer(grid resize.Grid) *image.RGBA {
	rect := image.Rect(0, 0, grid.Cols, grid.Rows)
	n := 4 * grid.Cols * grid.Rows

	if s.buf != nil && cap(s.buf.Pix) >= n {
		s.buf = &image.RGBA{Pix: s.buf.Pix[:n], Stride: 4 * grid.Cols, Rect: rect}
		clear(s.buf.Pix)
	} else {
		s.buf = image.NewRGBA(rect)
	}
	return s.buf
}

// Close releases the raster. Later Sample calls fail with ErrClosed.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = nil
	s.closed = true
	return nil
}
