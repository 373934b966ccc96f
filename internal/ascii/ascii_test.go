package ascii

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformSamples(cols, rows int, p raster.Pixel) raster.Samples {
	s := raster.Samples{Cols: cols, Rows: rows, Pix: make([]raster.Pixel, cols*rows)}
	for i := range s.Pix {
		s.Pix[i] = p
	}
	return s
}

// grayRamp holds every 8-bit gray level once, 16 per row.
func grayRamp() raster.Samples {
	s := raster.Samples{Cols: 16, Rows: 16, Pix: make([]raster.Pixel, 256)}
	for i := range s.Pix {
		s.Pix[i] = raster.Pixel{R: uint8(i), G: uint8(i), B: uint8(i), A: 255}
	}
	return s
}

func renderConfig(mode charset.Mode, colorMode config.ColorMode, dithering bool) config.Render {
	cfg := config.Default()
	cfg.Mode = mode
	cfg.ColorMode = colorMode
	cfg.Dithering = dithering
	return cfg
}

var (
	white = raster.Pixel{R: 255, G: 255, B: 255, A: 255}
	black = raster.Pixel{A: 255}
)

func TestConvertNumbersWhite(t *testing.T) {
	out, err := NewConverter().Convert(uniformSamples(2, 1, white), renderConfig(charset.ModeNumbers, config.ColorNone, false))
	require.NoError(t, err)
	assert.Equal(t, "99\n", out.Text)
	assert.False(t, out.Markup)
	assert.Equal(t, 2, out.Grid.Cols)
	assert.Equal(t, 1, out.Grid.Rows)
}

func TestConvertNumbersBlack(t *testing.T) {
	out, err := NewConverter().Convert(uniformSamples(2, 1, black), renderConfig(charset.ModeNumbers, config.ColorNone, false))
	require.NoError(t, err)
	assert.Equal(t, "  \n", out.Text)
}

func TestConvertBlocksSingleCell(t *testing.T) {
	out, err := NewConverter().Convert(uniformSamples(1, 1, raster.Pixel{}), renderConfig(charset.ModeBlocks, config.ColorNone, true))
	require.NoError(t, err)
	assert.Equal(t, " \n", out.Text)
	assert.Equal(t, []string{" "}, out.Lines())
}

func TestConvertDeterministic(t *testing.T) {
	c := NewConverter()
	for _, m := range charset.Modes() {
		cfg := renderConfig(m, config.ColorFull, true)
		a, err := c.Convert(grayRamp(), cfg)
		require.NoError(t, err)
		b, err := c.Convert(grayRamp(), cfg)
		require.NoError(t, err)
		assert.Equal(t, a.Text, b.Text, m)
	}
}

func TestConvertRowsEndWithNewline(t *testing.T) {
	out, err := NewConverter().Convert(grayRamp(), renderConfig(charset.ModeClassic, config.ColorNone, true))
	require.NoError(t, err)
	lines := out.Lines()
	require.Len(t, lines, 16)
	for _, l := range lines {
		assert.Equal(t, 16, len([]rune(l)))
	}
	assert.True(t, strings.HasSuffix(out.Text, "\n"))
}

func TestMonotonicContrast(t *testing.T) {
	for _, m := range []charset.Mode{charset.ModeClassic, charset.ModeDetailed} {
		d, err := charset.Lookup(m)
		require.NoError(t, err)

		base := NewBrightnessMap(grayRamp(), d, 1)
		for _, gamma := range []float64{1.2, 1.5, 2.2, 4} {
			boosted := NewBrightnessMap(grayRamp(), d, gamma)
			for y := range base {
				for x := range base[y] {
					assert.GreaterOrEqual(t, d.Index(boosted[y][x]), d.Index(base[y][x]), "%s gamma=%v (%d,%d)", m, gamma, x, y)
				}
			}
		}
	}
}

func TestBrightnessGamma(t *testing.T) {
	s := uniformSamples(1, 1, raster.Pixel{R: 128, G: 128, B: 128, A: 255})
	classic, _ := charset.Lookup(charset.ModeClassic)
	blocks, _ := charset.Lookup(charset.ModeBlocks)

	v := Luminance(128, 128, 128) / 255
	assert.InDelta(t, math.Pow(v, 2), NewBrightnessMap(s, classic, 2)[0][0], 1e-12)
	assert.InDelta(t, math.Pow(v, 1.6), NewBrightnessMap(s, blocks, 2)[0][0], 1e-12)
}

func TestDitheringConservation(t *testing.T) {
	const cols, rows, levels = 40, 30, 11

	m := make(BrightnessMap, rows)
	for y := range m {
		m[y] = make([]float64, cols)
		for x := range m[y] {
			m[y][x] = math.Mod(float64(x*7+y*13)/97, 1)
		}
	}
	before := m.Sum()
	snapshot := m.Clone()

	out := FloydSteinberg(m, levels)

	assert.Equal(t, snapshot, m, "input must not be modified")

	// only error pushed past the grid edges is lost; each cell errs by at
	// most half a step
	bound := 0.5 / (levels - 1) * float64(cols+rows)
	assert.InDelta(t, before, out.Sum(), bound)

	for _, row := range out {
		for _, v := range row {
			q := v * (levels - 1)
			assert.InDelta(t, math.Round(q), q, 1e-9, "value %v is not on the quantization grid", v)
		}
	}
}

func TestFloydSteinbergPropagation(t *testing.T) {
	m := BrightnessMap{
		{0.3, 0, 0},
		{0, 0, 0},
	}
	out := FloydSteinberg(m, 2)

	// 0.3 quantizes to 0, error 0.3 spreads to the right and below
	assert.Equal(t, 0.0, out[0][0])
	assert.Equal(t, 0.0, out[0][1])
	assert.InDelta(t, 0.0, out[1][0], 1e-12)

	single := FloydSteinberg(BrightnessMap{{0.6}}, 2)
	assert.Equal(t, 1.0, single[0][0])
}

func TestIndexBounds(t *testing.T) {
	c := NewConverter()
	for _, m := range charset.Modes() {
		d, _ := charset.Lookup(m)
		cfg := renderConfig(m, config.ColorNone, true)
		cfg.Gamma = 0.3
		bm := c.Brightness(grayRamp(), d, cfg)
		for _, row := range bm {
			for _, v := range row {
				idx := d.Index(v)
				assert.GreaterOrEqual(t, idx, 0)
				assert.LessOrEqual(t, idx, d.Levels()-1)
			}
		}
		_, err := c.Convert(grayRamp(), cfg)
		assert.NoError(t, err)
	}
}

var (
	spanTag  = regexp.MustCompile(`<span style="color:rgb\(\d+,\d+,\d+\)">|</span>`)
	entities = regexp.MustCompile(`&lt;|&gt;|&amp;`)
)

func TestHTMLEscaping(t *testing.T) {
	for _, cm := range []config.ColorMode{config.ColorFull, config.ColorGrayscale} {
		out, err := NewConverter().Convert(grayRamp(), renderConfig(charset.ModeClassic, cm, false))
		require.NoError(t, err)
		assert.True(t, out.Markup)

		for _, e := range []string{"&lt;", "&gt;", "&amp;"} {
			assert.Contains(t, out.Text, e, cm)
		}
		bare := entities.ReplaceAllString(spanTag.ReplaceAllString(out.Text, ""), "")
		assert.NotContains(t, bare, "<")
		assert.NotContains(t, bare, ">")
		assert.NotContains(t, bare, "&")
	}

	plain, err := NewConverter().Convert(grayRamp(), renderConfig(charset.ModeClassic, config.ColorNone, false))
	require.NoError(t, err)
	assert.Contains(t, plain.Text, "<")
	assert.NotContains(t, plain.Text, "&lt;")
}

func TestColorAnnotations(t *testing.T) {
	px := raster.Pixel{R: 200, G: 100, B: 50, A: 255}

	out, err := NewConverter().Convert(uniformSamples(1, 1, px), renderConfig(charset.ModeDetailed, config.ColorFull, false))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Text, `<span style="color:rgb(200,100,50)">`))
	assert.True(t, strings.HasSuffix(out.Text, "</span>\n"))

	// floor(0.299*200 + 0.587*100 + 0.114*50) = 124
	out, err = NewConverter().Convert(uniformSamples(1, 1, px), renderConfig(charset.ModeDetailed, config.ColorGrayscale, false))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Text, `<span style="color:rgb(124,124,124)">`))
}

func TestANSIFormat(t *testing.T) {
	cfg := renderConfig(charset.ModeBlocks, config.ColorFull, false)
	cfg.Format = config.FormatANSI

	out, err := NewConverter().Convert(uniformSamples(2, 1, raster.Pixel{R: 200, G: 100, B: 50, A: 255}), cfg)
	require.NoError(t, err)
	assert.True(t, out.Markup)
	assert.Equal(t, 2, strings.Count(out.Text, "38;2;200;100;50"))
	assert.NotContains(t, out.Text, "<span")
}

func TestConvertErrors(t *testing.T) {
	c := NewConverter()

	cfg := config.Default()
	cfg.Mode = "bogus"
	_, err := c.Convert(grayRamp(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.ColorMode = "sepia"
	_, err = c.Convert(grayRamp(), cfg)
	assert.Error(t, err)

	_, err = c.Convert(raster.Samples{Cols: 2, Rows: 2}, config.Default())
	assert.Error(t, err)
}
