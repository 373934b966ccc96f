// Package charset holds the glyph sets used to render brightness and the
// per-mode traits that go with them.
package charset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type Mode string

const (
	ModeClassic      Mode = "classic"
	ModeBlocks       Mode = "blocks"
	ModeShades       Mode = "shades"
	ModeNumbers      Mode = "numbers"
	ModeAlphanumeric Mode = "alphanumeric"
	ModeMinimal      Mode = "minimal"
	ModeDetailed     Mode = "detailed"
	ModePixel        Mode = "pixel"
)

// blockAspectRatio compensates for block glyphs filling the whole cell.
const blockAspectRatio = 0.5

// Descriptor is the set of mode specific traits selected once per pass.
type Descriptor struct {
	Mode   Mode
	Glyphs []rune

	// FixedAspect overrides the caller's aspect-ratio hint when non-zero.
	FixedAspect float64
	// GammaScale multiplies the configured gamma.
	GammaScale float64
	// ContrastExponent is applied to brightness before glyph lookup.
	ContrastExponent float64
}

var descriptors = map[Mode]Descriptor{
	ModeClassic:      newDescriptor(ModeClassic, "@$B%8&WM#*oahkbdpqwmZO0QLCJUYXzcvunxrjft/|()1{}[]?-_+~<>i!lI;:,\"^`'. "),
	ModeBlocks:       newDescriptor(ModeBlocks, "██▓▒░ ", withFixedAspect(blockAspectRatio), withGammaScale(0.8), withContrast(0.7)),
	ModeShades:       newDescriptor(ModeShades, "██▓▒░  ", withFixedAspect(blockAspectRatio)),
	ModeNumbers:      newDescriptor(ModeNumbers, "9876543210 "),
	ModeAlphanumeric: newDescriptor(ModeAlphanumeric, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "),
	ModeMinimal:      newDescriptor(ModeMinimal, "█▌ "),
	ModeDetailed:     newDescriptor(ModeDetailed, "@%#*+=-:. "),
	ModePixel:        newDescriptor(ModePixel, "██▀▄ ", withFixedAspect(blockAspectRatio)),
}

type descriptorOption func(*Descriptor)

func withFixedAspect(r float64) descriptorOption {
	return func(d *Descriptor) { d.FixedAspect = r }
}

func withGammaScale(s float64) descriptorOption {
	return func(d *Descriptor) { d.GammaScale = s }
}

func withContrast(e float64) descriptorOption {
	return func(d *Descriptor) { d.ContrastExponent = e }
}

func newDescriptor(mode Mode, glyphs string, opts ...descriptorOption) Descriptor {
	d := Descriptor{
		Mode:             mode,
		Glyphs:           []rune(glyphs),
		GammaScale:       1,
		ContrastExponent: 1,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Lookup returns the descriptor for mode.
func Lookup(mode Mode) (Descriptor, error) {
	d, ok := descriptors[mode]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown mode %q (want one of %s)", mode, strings.Join(Names(), ", "))
	}
	return d, nil
}

// ParseMode is Lookup for user input.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, err := Lookup(m); err != nil {
		return "", err
	}
	return m, nil
}

// Modes lists every mode in a stable order.
func Modes() []Mode {
	return []Mode{
		ModeClassic,
		ModeBlocks,
		ModeShades,
		ModeNumbers,
		ModeAlphanumeric,
		ModeMinimal,
		ModeDetailed,
		ModePixel,
	}
}

func Names() []string {
	names := make([]string, 0, len(descriptors))
	for m := range descriptors {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}

// Next cycles through Modes.
func Next(mode Mode) Mode {
	all := Modes()
	for i, m := range all {
		if m == mode {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// Levels is the number of quantization steps the glyph set can express.
func (d Descriptor) Levels() int {
	return len(d.Glyphs)
}

// AspectRatio resolves the cell aspect ratio given the caller's hint.
func (d Descriptor) AspectRatio(hint float64) float64 {
	if d.FixedAspect > 0 {
		return d.FixedAspect
	}
	return hint
}

// Gamma returns the effective gamma exponent for this mode.
func (d Descriptor) Gamma(gamma float64) float64 {
	return gamma * d.GammaScale
}

// Contrast applies the mode's contrast curve to a brightness in [0,1].
func (d Descriptor) Contrast(v float64) float64 {
	if d.ContrastExponent == 1 {
		return v
	}
	// dithered values can dip below zero; a fractional power of those is NaN
	if v < 0 {
		v = 0
	}
	return math.Pow(v, d.ContrastExponent)
}

// Index maps brightness to a glyph index, darkest first. Out of range
// values clamp.
func (d Descriptor) Index(v float64) int {
	n := len(d.Glyphs)
	idx := int(math.Floor(float64(n-1) * (1 - d.Contrast(v))))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}

// Glyph returns the glyph for brightness v.
func (d Descriptor) Glyph(v float64) rune {
	if len(d.Glyphs) == 0 {
		return ' '
	}
	g := d.Glyphs[d.Index(v)]
	if g == 0 {
		return ' '
	}
	return g
}
