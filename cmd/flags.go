package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/spf13/cobra"
)

// renderFlags mirrors config.Render on the command line.
type renderFlags struct {
	mode      string
	colorMode string
	format    string
	filter    string
	theme     string
	gamma     float64
	dithering bool
	aspect    float64
	fit       bool
	width     int
	height    int
	maxWidth  int
	maxHeight int
	container string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	def := config.Default()
	fs := cmd.Flags()

	fs.StringVarP(&f.mode, "mode", "m", string(def.Mode), "character set ("+strings.Join(charset.Names(), ", ")+")")
	fs.StringVarP(&f.colorMode, "color", "c", string(def.ColorMode), "color mode (none, color, grayscale)")
	fs.StringVar(&f.format, "format", string(config.FormatANSI), "markup for colored output (ansi, html)")
	fs.StringVar(&f.filter, "filter", string(def.Filter), "resampling filter (nearest, bilinear, catmullrom, bicubic, mitchell, lanczos3)")
	fs.StringVar(&f.theme, "theme", string(def.Theme), "theme for html output (light, dark, auto)")
	fs.Float64VarP(&f.gamma, "gamma", "g", def.Gamma, "gamma correction exponent")
	fs.BoolVarP(&f.dithering, "dither", "d", def.Dithering, "apply Floyd-Steinberg dithering")
	fs.Float64Var(&f.aspect, "aspect", def.AspectRatio, "character aspect ratio")
	fs.BoolVar(&f.fit, "fit", def.FitToContainer, "fit the grid to the container")
	fs.IntVarP(&f.width, "width", "W", def.Width, "columns (0 derives from height or the image)")
	fs.IntVarP(&f.height, "height", "H", def.Height, "rows (0 derives from width or the image)")
	fs.IntVar(&f.maxWidth, "max-width", def.MaxWidth, "upper bound on columns when fitting")
	fs.IntVar(&f.maxHeight, "max-height", def.MaxHeight, "upper bound on rows when fitting")
	fs.StringVar(&f.container, "container", "", "container size in pixels, WxH")
}

func (f *renderFlags) config() (config.Render, error) {
	cfg := config.Default()

	mode, err := charset.ParseMode(f.mode)
	if err != nil {
		return cfg, err
	}
	colorMode, err := config.ParseColorMode(f.colorMode)
	if err != nil {
		return cfg, err
	}
	format, err := config.ParseFormat(f.format)
	if err != nil {
		return cfg, err
	}
	filter, err := config.ParseFilter(f.filter)
	if err != nil {
		return cfg, err
	}
	theme, err := config.ParseTheme(f.theme)
	if err != nil {
		return cfg, err
	}

	cfg.Mode = mode
	cfg.ColorMode = colorMode
	cfg.Format = format
	cfg.Filter = filter
	cfg.Theme = theme
	cfg.Gamma = f.gamma
	cfg.Dithering = f.dithering
	cfg.AspectRatio = f.aspect
	cfg.FitToContainer = f.fit
	cfg.Width = f.width
	cfg.Height = f.height
	cfg.MaxWidth = f.maxWidth
	cfg.MaxHeight = f.maxHeight

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// containerSize parses --container. An empty value means unknown.
func (f *renderFlags) containerSize() (*resize.Size, error) {
	if f.container == "" {
		return nil, nil
	}
	return parseSize(f.container)
}

func parseSize(s string) (*resize.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return nil, fmt.Errorf("invalid size %q: want WxH", s)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size %q: %w", s, err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid size %q: must not be negative", s)
	}
	return &resize.Size{Width: width, Height: height}, nil
}

func newLoader(svc config.Service, logger *slog.Logger, extra ...fetch.Option) *fetch.HTTPLoader {
	opts := []fetch.Option{
		fetch.WithClient(&http.Client{Timeout: svc.FetchTimeout}),
		fetch.WithOrigin(svc.Origin),
		fetch.WithMaxBytes(svc.MaxImageBytes),
		fetch.WithLogger(logger),
	}
	return fetch.NewLoader(append(opts, extra...)...)
}

// newServeLoader never reads the server's own disk on behalf of a client.
func newServeLoader(svc config.Service, logger *slog.Logger) *fetch.HTTPLoader {
	return newLoader(svc, logger, fetch.WithLocalFiles(false))
}
