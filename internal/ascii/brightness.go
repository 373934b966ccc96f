package ascii

import (
	"math"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/raster"
)

// Luminance is the perceptual weighting of an 8-bit RGB triple, 0..255.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// BrightnessMap is a rows x cols matrix of brightness in [0,1].
type BrightnessMap [][]float64

// NewBrightnessMap converts samples to normalized, gamma corrected brightness.
func NewBrightnessMap(s raster.Samples, d charset.Descriptor, gamma float64) BrightnessMap {
	g := d.Gamma(gamma)

	m := make(BrightnessMap, s.Rows)
	for y := 0; y < s.Rows; y++ {
		row := make([]float64, s.Cols)
		for x := 0; x < s.Cols; x++ {
			p := s.At(x, y)
			row[x] = math.Pow(Luminance(p.R, p.G, p.B)/255, g)
		}
		m[y] = row
	}
	return m
}

// Clone returns a deep copy.
func (m BrightnessMap) Clone() BrightnessMap {
	c := make(BrightnessMap, len(m))
	for y, row := range m {
		c[y] = append([]float64(nil), row...)
	}
	return c
}

// Sum totals every cell.
func (m BrightnessMap) Sum() float64 {
	var total float64
	for _, row := range m {
		for _, v := range row {
			total += v
		}
	}
	return total
}
