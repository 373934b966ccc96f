// Package config holds the render options of a conversion pass and the
// service settings of the HTTP surface.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koki-develop/asciimage/internal/charset"
)

type ColorMode string

const (
	ColorNone      ColorMode = "none"
	ColorFull      ColorMode = "color"
	ColorGrayscale ColorMode = "grayscale"
)

// Format selects the markup flavour used when ColorMode is not none.
type Format string

const (
	FormatHTML Format = "html"
	FormatANSI Format = "ansi"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Filter names the resampling kernel used by the sampler.
type Filter string

const (
	FilterNearest    Filter = "nearest"
	FilterBilinear   Filter = "bilinear"
	FilterCatmullRom Filter = "catmullrom"
	FilterBicubic    Filter = "bicubic"
	FilterMitchell   Filter = "mitchell"
	FilterLanczos3   Filter = "lanczos3"
)

var (
	ErrInvalidGamma  = errors.New("gamma must be positive")
	ErrInvalidAspect = errors.New("aspect ratio must be positive")
	ErrNegativeSize  = errors.New("width, height and caps must not be negative")
)

// Render is one immutable bundle of conversion inputs. Zero Width, Height,
// MaxWidth and MaxHeight mean "not set".
type Render struct {
	Mode           charset.Mode
	ColorMode      ColorMode
	Format         Format
	Filter         Filter
	Theme          Theme
	Gamma          float64
	Dithering      bool
	AspectRatio    float64
	FitToContainer bool
	Width          int
	Height         int
	MaxWidth       int
	MaxHeight      int
}

func Default() Render {
	return Render{
		Mode:           charset.ModeClassic,
		ColorMode:      ColorNone,
		Format:         FormatHTML,
		Filter:         FilterBilinear,
		Theme:          ThemeAuto,
		Gamma:          1.0,
		Dithering:      true,
		AspectRatio:    0.5,
		FitToContainer: true,
	}
}

// Validate reports the first invalid field.
func (r Render) Validate() error {
	if _, err := charset.Lookup(r.Mode); err != nil {
		return err
	}
	if _, err := ParseColorMode(string(r.ColorMode)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(r.Format)); err != nil {
		return err
	}
	if _, err := ParseFilter(string(r.Filter)); err != nil {
		return err
	}
	if _, err := ParseTheme(string(r.Theme)); err != nil {
		return err
	}
	if !(r.Gamma > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidGamma, r.Gamma)
	}
	if !(r.AspectRatio > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAspect, r.AspectRatio)
	}
	if r.Width < 0 || r.Height < 0 || r.MaxWidth < 0 || r.MaxHeight < 0 {
		return ErrNegativeSize
	}
	return nil
}

// Descriptor resolves the mode's trait record.
func (r Render) Descriptor() (charset.Descriptor, error) {
	return charset.Lookup(r.Mode)
}

func ParseColorMode(s string) (ColorMode, error) {
	switch c := ColorMode(strings.ToLower(s)); c {
	case ColorNone, ColorFull, ColorGrayscale:
		return c, nil
	}
	return "", fmt.Errorf("unknown color mode %q (want none, color or grayscale)", s)
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHTML, FormatANSI:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want html or ansi)", s)
}

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(s)); t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark or auto)", s)
}

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(s)); f {
	case FilterNearest, FilterBilinear, FilterCatmullRom, FilterBicubic, FilterMitchell, FilterLanczos3:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// NextColorMode cycles none -> color -> grayscale.
func NextColorMode(c ColorMode) ColorMode {
	switch c {
	case ColorNone:
		return ColorFull
	case ColorFull:
		return ColorGrayscale
	}
	return ColorNone
}
