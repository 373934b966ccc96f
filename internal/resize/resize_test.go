package resize

import (
	"testing"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(w, h int) config.Render {
	cfg := config.Default()
	cfg.FitToContainer = false
	cfg.Width = w
	cfg.Height = h
	return cfg
}

func TestResolveNotReady(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve(0, 10, config.Default(), 0.5, Size{})
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = r.Resolve(10, 0, config.Default(), 0.5, Size{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestResolveFitProvisional(t *testing.T) {
	r := NewResolver()
	for _, s := range []Size{{}, {Width: 10, Height: 500}, {Width: 500, Height: 9}} {
		g, err := r.Resolve(640, 480, config.Default(), 0.5, s)
		require.NoError(t, err)
		assert.Equal(t, Grid{Cols: 100, Rows: 60}, g)
	}
}

func TestResolveFit(t *testing.T) {
	r := NewResolver()
	cfg := config.Default()

	// 800/8 = 100 cols, 100 / (2 * 0.5) = 100 rows
	g, err := r.Resolve(200, 100, cfg, 0.5, Size{Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 100, Rows: 100}, g)

	// narrow container clamps to 20 columns
	g, err = r.Resolve(200, 100, cfg, 0.5, Size{Width: 40, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, 20, g.Cols)

	// wide container clamps to 120 columns, very wide image floors rows at 15
	g, err = r.Resolve(10000, 10, cfg, 0.5, Size{Width: 4000, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 120, Rows: 15}, g)
}

func TestResolveFitCaps(t *testing.T) {
	cfg := config.Default()
	cfg.MaxWidth = 30
	cfg.MaxHeight = 10

	g, err := NewResolver().Resolve(100, 100, cfg, 0.5, Size{Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 30, Rows: 10}, g)
}

func TestResolveFitBounds(t *testing.T) {
	r := NewResolver()
	cfg := config.Default()
	aspects := [][2]int{{1, 1}, {1, 50}, {50, 1}, {640, 480}, {3, 7}}
	for cw := 11.0; cw < 3000; cw += 97 {
		for _, a := range aspects {
			g, err := r.Resolve(a[0], a[1], cfg, 0.5, Size{Width: cw, Height: 11})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, g.Cols, 20)
			assert.LessOrEqual(t, g.Cols, 120)
			assert.GreaterOrEqual(t, g.Rows, 15)
		}
	}
}

func TestResolveExplicit(t *testing.T) {
	r := NewResolver()

	g, err := r.Resolve(640, 480, fixed(33, 7), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 33, Rows: 7}, g)

	// width only: 80 / (2 * 0.5) = 80
	g, err = r.Resolve(200, 100, fixed(80, 0), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 80, Rows: 80}, g)

	// height only: 40 * 2 * 0.5 = 40
	g, err = r.Resolve(200, 100, fixed(0, 40), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 40, Rows: 40}, g)

	// container is ignored when not fitting
	g, err = r.Resolve(200, 100, fixed(12, 6), 0.5, Size{Width: 800, Height: 800})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 12, Rows: 6}, g)
}

func TestResolveDefaultBound(t *testing.T) {
	r := NewResolver()

	// scale = min(120/240, 80/80) = 0.5 -> 120 cols, 40/0.5 = 80 rows
	g, err := r.Resolve(240, 80, fixed(0, 0), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 120, Rows: 80}, g)

	// scale = min(120/10, 80/10) = 8 -> 80 cols, 80 rows with aspect 1
	g, err = r.Resolve(10, 10, fixed(0, 0), 1, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 80, Rows: 80}, g)
}

func TestResolveNeverZero(t *testing.T) {
	g, err := NewResolver().Resolve(1000, 1, fixed(0, 1), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, 500, g.Cols)

	g, err = NewResolver().Resolve(1, 1000, fixed(0, 1), 0.5, Size{})
	require.NoError(t, err)
	assert.Equal(t, Grid{Cols: 1, Rows: 1}, g)
}

func TestResolveRejectsBadAspect(t *testing.T) {
	_, err := NewResolver().Resolve(10, 10, config.Default(), 0, Size{})
	assert.Error(t, err)
}
