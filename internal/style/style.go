// Package style computes how a rendered grid is laid out inside its
// container: font size, line height and letter spacing, plus theme colors.
package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/resize"
)

const (
	defaultFontSize = 8.0
	minFontSize     = 4.0
	// advance of a monospace glyph, in em
	charWidthEm = 0.6

	fontFamily = `'Courier New', Consolas, 'Lucida Console', Monaco, monospace`
)

// Palette is the set of theme colors used around the output.
type Palette struct {
	Foreground string
	Background string
	Border     string
	Error      string
	Muted      string
}

var (
	Light = Palette{Foreground: "#000000", Background: "#ffffff", Border: "#ccc", Error: "#dc3545", Muted: "#666"}
	Dark  = Palette{Foreground: "#ffffff", Background: "#1a1a1a", Border: "#333", Error: "#ff6b6b", Muted: "#888"}
)

// Style is the typography of one rendered output.
type Style struct {
	FontSize      float64 `json:"fontSize"`
	LineHeight    float64 `json:"lineHeight"`
	LetterSpacing float64 `json:"letterSpacing"`
	Fill          bool    `json:"fill"`
}

// Compute sizes the font so grid fits container when fitting; otherwise the
// defaults apply.
func Compute(container resize.Size, grid resize.Grid, cfg config.Render) Style {
	st := Style{FontSize: defaultFontSize, LineHeight: 1.0, Fill: cfg.FitToContainer}

	if !cfg.FitToContainer || container.Width <= 0 || container.Height <= 0 || grid.Cols <= 0 || grid.Rows <= 0 {
		return st
	}

	fromWidth := container.Width / (float64(grid.Cols) * charWidthEm)
	fromHeight := container.Height / float64(grid.Rows)
	st.FontSize = math.Max(minFontSize, math.Min(fromWidth, fromHeight))

	if cfg.Mode == charset.ModeBlocks {
		st.LineHeight = 0.9
	}

	used := st.FontSize * charWidthEm * float64(grid.Cols)
	if leftover := container.Width - used; leftover > 0 && grid.Cols > 1 {
		st.LetterSpacing = leftover / float64(grid.Cols-1)
	}
	return st
}

// CSS renders the declarations for the <pre> holding the output.
func (s Style) CSS() string {
	size := "auto"
	if s.Fill {
		size = "100%"
	}
	decls := []string{
		"font-family: " + fontFamily,
		"font-size: " + px(s.FontSize),
		"line-height: " + strconv.FormatFloat(s.LineHeight, 'f', -1, 64),
		"letter-spacing: " + px(s.LetterSpacing),
		"white-space: pre",
		"margin: 0",
		"padding: 0",
		"width: " + size,
		"height: " + size,
		"overflow: hidden",
		"display: block",
		"box-sizing: border-box",
	}
	return strings.Join(decls, "; ") + ";"
}

// ThemeCSS renders color rules for the container selector. Plain output
// takes the theme foreground; colored output keeps its own colors. Auto
// follows the viewer's color scheme.
func ThemeCSS(selector string, theme config.Theme, colored bool) string {
	switch theme {
	case config.ThemeDark:
		return themeRules(selector, Dark, colored)
	case config.ThemeLight:
		return themeRules(selector, Light, colored)
	}
	return themeRules(selector, Light, colored) +
		"\n@media (prefers-color-scheme: dark) {\n" + themeRules(selector, Dark, colored) + "\n}"
}

func themeRules(selector string, p Palette, colored bool) string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "%s { background-color: %s; border: 1px solid %s; }", selector, p.Background, p.Border)
	if !colored {
		fmt.Fprintf(b, "\n%s pre { color: %s; background-color: transparent; }", selector, p.Foreground)
	}
	fmt.Fprintf(b, "\n%s .status { color: %s; }", selector, p.Muted)
	fmt.Fprintf(b, "\n%s .error { color: %s; }", selector, p.Error)
	return b.String()
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// Placeholder texts shown instead of output.
const (
	LoadingText = "Loading..."
	EmptyText   = "No ASCII generated"
)

func ErrorText(err error) string {
	return "Error: " + err.Error()
}
