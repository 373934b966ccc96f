package ascii

import (
	"fmt"
	"strings"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/raster"
	"github.com/koki-develop/asciimage/internal/resize"
)

// Output is the finished text of one conversion pass.
type Output struct {
	Text string
	// Markup is set when Text carries color annotations.
	Markup bool
	Grid   resize.Grid
}

// Lines splits the output into rows without trailing newlines.
func (o Output) Lines() []string {
	if o.Text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(o.Text, "\n"), "\n")
}

type Converter struct{}

func NewConverter() *Converter {
	return &Converter{}
}

// Convert turns sampled pixels into text: luminance and gamma, optional
// dithering, glyph lookup, then compositing.
func (c *Converter) Convert(s raster.Samples, cfg config.Render) (Output, error) {
	d, err := cfg.Descriptor()
	if err != nil {
		return Output{}, err
	}
	comp, err := compositorFor(cfg.ColorMode, cfg.Format)
	if err != nil {
		return Output{}, err
	}
	if len(s.Pix) != s.Cols*s.Rows {
		return Output{}, fmt.Errorf("sample buffer holds %d pixels, want %d", len(s.Pix), s.Cols*s.Rows)
	}

	m := c.Brightness(s, d, cfg)

	b := new(strings.Builder)
	b.Grow(s.Rows * (s.Cols*comp.bytesPerCell() + 1))
	for y := 0; y < s.Rows; y++ {
		for x := 0; x < s.Cols; x++ {
			comp.writeCell(b, d.Glyph(m[y][x]), s.At(x, y))
		}
		b.WriteString("\n")
	}

	_, plain := comp.(plain)
	return Output{
		Text:   b.String(),
		Markup: !plain,
		Grid:   resize.Grid{Cols: s.Cols, Rows: s.Rows},
	}, nil
}

// Brightness is the map glyphs are chosen from: gamma corrected and, when
// enabled, dithered to the glyph set's levels.
func (c *Converter) Brightness(s raster.Samples, d charset.Descriptor, cfg config.Render) BrightnessMap {
	m := NewBrightnessMap(s, d, cfg.Gamma)
	if cfg.Dithering {
		m = FloydSteinberg(m, d.Levels())
	}
	return m
}
