package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/koki-develop/asciimage/internal/ascii"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/raster"
	"github.com/koki-develop/asciimage/internal/resize"
)

// maxCells bounds the raster of a single pass.
const maxCells = 1 << 22

var errGridTooLarge = errors.New("resolved grid is too large")

type pipeline struct {
	loader    fetch.Loader
	resolver  *resize.Resolver
	sampler   *raster.Sampler
	converter *ascii.Converter
	logger    *slog.Logger
}

func newPipeline(loader fetch.Loader, sampler *raster.Sampler, logger *slog.Logger) *pipeline {
	return &pipeline{
		loader:    loader,
		resolver:  resize.NewResolver(),
		sampler:   sampler,
		converter: ascii.NewConverter(),
		logger:    logger,
	}
}

func (p *pipeline) grid(img *fetch.Image, cfg config.Render, container resize.Size) (resize.Grid, error) {
	if img == nil {
		return resize.Grid{}, resize.ErrNotReady
	}
	d, err := cfg.Descriptor()
	if err != nil {
		return resize.Grid{}, &ProcessingError{Err: err}
	}

	g, err := p.resolver.Resolve(img.Width, img.Height, cfg, d.AspectRatio(cfg.AspectRatio), container)
	if err != nil {
		if errors.Is(err, resize.ErrNotReady) {
			return resize.Grid{}, err
		}
		return resize.Grid{}, &ProcessingError{Err: err}
	}
	if g.Cols*g.Rows > maxCells {
		return resize.Grid{}, &ProcessingError{Err: fmt.Errorf("%w: %s", errGridTooLarge, g)}
	}
	return g, nil
}

// run samples img at grid and converts it. A tainted raster triggers one
// anonymous reload of the same source; the image actually sampled is
// returned so callers can keep it.
func (p *pipeline) run(ctx context.Context, img *fetch.Image, cfg config.Render, grid resize.Grid) (ascii.Output, *fetch.Image, error) {
	samples, err := p.sampler.Sample(img, grid, cfg.Filter)
	if errors.Is(err, raster.ErrTainted) {
		p.logger.Warn("raster tainted, reloading without cross-origin mode", "src", img.URL)

		fallback, lerr := p.loader.Load(ctx, img.URL, fetch.Anonymous)
		if lerr != nil {
			return ascii.Output{}, img, &ProcessingError{Err: fmt.Errorf("failed to load image without CORS: %w", lerr)}
		}
		samples, err = p.sampler.Sample(fallback, grid, cfg.Filter)
		if err != nil {
			return ascii.Output{}, img, &ProcessingError{Err: fmt.Errorf("failed to process image after fallback: %w", err)}
		}
		img = fallback
	} else if err != nil {
		return ascii.Output{}, img, &ProcessingError{Err: fmt.Errorf("failed to process image: %w", err)}
	}

	out, err := p.converter.Convert(samples, cfg)
	if err != nil {
		return ascii.Output{}, img, &ProcessingError{Err: fmt.Errorf("failed to process image: %w", err)}
	}
	return out, img, nil
}

// Convert is the one-shot form of a widget: load src, resolve the grid
// against container (nil when unknown), sample and convert.
func Convert(ctx context.Context, loader fetch.Loader, src string, cfg config.Render, container *resize.Size) (ascii.Output, error) {
	if err := cfg.Validate(); err != nil {
		return ascii.Output{}, err
	}

	img, err := loader.Load(ctx, src, fetch.CrossOrigin)
	if err != nil {
		return ascii.Output{}, err
	}

	sampler := raster.NewSampler()
	defer sampler.Close()
	p := newPipeline(loader, sampler, logging.For(nil, logging.ChannelRender))

	var size resize.Size
	if container != nil {
		size = *container
	}
	grid, err := p.grid(img, cfg, size)
	if err != nil {
		return ascii.Output{}, err
	}

	out, _, err := p.run(ctx, img, cfg, grid)
	return out, err
}
