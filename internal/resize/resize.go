package resize

import (
	"errors"
	"fmt"
	"math"

	"github.com/koki-develop/asciimage/internal/config"
)

const (
	// pixels of container width per output column
	cellWidth = 8
	// containers at or below this size in either axis are ignored
	minContainer = 10

	minFitCols = 20
	maxFitCols = 120
	minFitRows = 15

	provisionalCols = 100
	provisionalRows = 60

	boundCols = 120
	boundRows = 80
)

// ErrNotReady means the image has no natural size yet; the pass is skipped.
var ErrNotReady = errors.New("image dimensions not available")

// Size is a pixel size, e.g. of the hosting container.
type Size struct {
	Width  float64
	Height float64
}

// Valid reports whether the size is large enough to lay out into.
func (s Size) Valid() bool {
	return s.Width > minContainer && s.Height > minContainer
}

// Grid is an output size in character cells.
type Grid struct {
	Cols int
	Rows int
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Cols, g.Rows)
}

type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve computes the grid for an image of imgW x imgH pixels. modeAspect
// is the resolved cell aspect ratio of the active mode.
func (r *Resolver) Resolve(imgW, imgH int, cfg config.Render, modeAspect float64, container Size) (Grid, error) {
	if imgW <= 0 || imgH <= 0 {
		return Grid{}, ErrNotReady
	}
	if !(modeAspect > 0) {
		return Grid{}, fmt.Errorf("invalid aspect ratio %v", modeAspect)
	}

	imageAspect := float64(imgW) / float64(imgH)

	if cfg.FitToContainer {
		return r.fit(imageAspect, modeAspect, cfg, container), nil
	}

	var g Grid
	switch {
	case cfg.Width > 0 && cfg.Height > 0:
		g = Grid{Cols: cfg.Width, Rows: cfg.Height}
	case cfg.Width > 0:
		g = Grid{
			Cols: cfg.Width,
			Rows: floor(float64(cfg.Width) / (imageAspect * modeAspect)),
		}
	case cfg.Height > 0:
		g = Grid{
			Cols: floor(float64(cfg.Height) * imageAspect * modeAspect),
			Rows: cfg.Height,
		}
	default:
		scale := math.Min(boundCols/float64(imgW), boundRows/float64(imgH))
		g = Grid{
			Cols: floor(float64(imgW) * scale),
			Rows: floor(float64(imgH) * scale / modeAspect),
		}
	}
	return g.atLeastOne(), nil
}

func (r *Resolver) fit(imageAspect, modeAspect float64, cfg config.Render, container Size) Grid {
	if !container.Valid() {
		return Grid{Cols: provisionalCols, Rows: provisionalRows}
	}

	cols := clamp(floor(container.Width/cellWidth), minFitCols, maxFitCols)
	rows := max(floor(float64(cols)/(imageAspect*modeAspect)), minFitRows)

	if cfg.MaxWidth > 0 {
		cols = min(cols, cfg.MaxWidth)
	}
	if cfg.MaxHeight > 0 {
		rows = min(rows, cfg.MaxHeight)
	}
	return Grid{Cols: cols, Rows: rows}.atLeastOne()
}

func (g Grid) atLeastOne() Grid {
	return Grid{Cols: max(g.Cols, 1), Rows: max(g.Rows, 1)}
}

func floor(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(v))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
