package ascii

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/raster"
)

// compositor writes one cell of output.
type compositor interface {
	writeCell(b *strings.Builder, glyph rune, p raster.Pixel)
	// bytesPerCell estimates output size for preallocation.
	bytesPerCell() int
}

func compositorFor(mode config.ColorMode, format config.Format) (compositor, error) {
	switch mode {
	case config.ColorNone, "":
		return plain{}, nil
	case config.ColorFull, config.ColorGrayscale:
	default:
		return nil, fmt.Errorf("unknown color mode %q", mode)
	}

	gray := mode == config.ColorGrayscale
	switch format {
	case config.FormatHTML, "":
		return htmlSpan{gray: gray}, nil
	case config.FormatANSI:
		return &ansi{gray: gray, cache: map[[3]uint8]*color.Color{}}, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

type plain struct{}

func (plain) writeCell(b *strings.Builder, glyph rune, _ raster.Pixel) {
	b.WriteRune(glyph)
}

func (plain) bytesPerCell() int { return 2 }

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

type htmlSpan struct {
	gray bool
}

func (h htmlSpan) writeCell(b *strings.Builder, glyph rune, p raster.Pixel) {
	r, g, bl := rgb(p, h.gray)
	fmt.Fprintf(b, `<span style="color:rgb(%d,%d,%d)">`, r, g, bl)
	htmlEscaper.WriteString(b, string(glyph))
	b.WriteString("</span>")
}

func (htmlSpan) bytesPerCell() int { return 48 }

// ansi renders 24-bit foreground escapes for terminals.
type ansi struct {
	gray  bool
	cache map[[3]uint8]*color.Color
}

func (a *ansi) writeCell(b *strings.Builder, glyph rune, p raster.Pixel) {
	r, g, bl := rgb(p, a.gray)
	key := [3]uint8{r, g, bl}
	c, ok := a.cache[key]
	if !ok {
		c = color.RGB(int(r), int(g), int(bl))
		c.EnableColor()
		a.cache[key] = c
	}
	b.WriteString(c.Sprint(string(glyph)))
}

func (*ansi) bytesPerCell() int { return 24 }

func rgb(p raster.Pixel, gray bool) (uint8, uint8, uint8) {
	if !gray {
		return p.R, p.G, p.B
	}
	l := uint8(math.Floor(Luminance(p.R, p.G, p.B)))
	return l, l, l
}
