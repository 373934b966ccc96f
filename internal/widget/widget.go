// Package widget is a self-contained conversion context: it owns the
// current source image, render options, container size and output of one
// embedding instance and drives the load and render passes between them.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/koki-develop/asciimage/internal/ascii"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/raster"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/oklog/ulid/v2"
)

// DefaultFrameInterval is one animation frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

var ErrClosed = errors.New("widget closed")

type Option func(*Widget)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Widget) { w.logger = logging.For(logger, logging.ChannelRender) }
}

// WithFrameInterval sets the container update coalescing window. Zero or
// less applies every update immediately.
func WithFrameInterval(d time.Duration) Option {
	return func(w *Widget) { w.frameInterval = d }
}

func WithContainerSize(s resize.Size) Option {
	return func(w *Widget) { w.container = s }
}

// OnLoad is called once for every successful image acquisition.
func OnLoad(fn func()) Option {
	return func(w *Widget) { w.onLoad = fn }
}

// OnError is called once for every failed acquisition and for every pass
// that ends in a processing failure.
func OnError(fn func(error)) Option {
	return func(w *Widget) { w.onError = fn }
}

// OnRender is called with a fresh frame after every state change. Frames
// arrive in the order they were taken; one overtaken by a newer frame is
// never delivered. fn must not call back into the widget.
func OnRender(fn func(Frame)) Option {
	return func(w *Widget) { w.onRender = fn }
}

type Widget struct {
	id            string
	loader        fetch.Loader
	sampler       *raster.Sampler
	pipe          *pipeline
	throttle      *throttle
	frameInterval time.Duration
	logger        *slog.Logger

	onLoad   func()
	onError  func(error)
	onRender func(Frame)

	emitMu    sync.Mutex
	delivered uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	src       string
	srcGen    uint64
	img       *fetch.Image
	cfg       config.Render
	container resize.Size
	grid      resize.Grid
	state     State
	out       ascii.Output
	err       error
	token     uint64
	rendered  uint64
	seq       uint64
}

func New(loader fetch.Loader, cfg config.Render, opts ...Option) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Widget{
		id:            ulid.Make().String(),
		loader:        loader,
		sampler:       raster.NewSampler(),
		frameInterval: DefaultFrameInterval,
		logger:        logging.For(nil, logging.ChannelRender),
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("widget", w.id)
	w.pipe = newPipeline(loader, w.sampler, w.logger)
	w.throttle = newThrottle(w.frameInterval, w.applyContainer)
	return w, nil
}

func (w *Widget) ID() string { return w.id }

// SetSource starts acquiring src. Results of earlier acquisitions and
// passes still in flight are discarded.
func (w *Widget) SetSource(src string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.src = src
	w.srcGen++
	gen := w.srcGen
	w.token++
	w.img = nil
	w.grid = resize.Grid{}
	w.out = ascii.Output{}
	w.err = nil
	w.state = StateLoading
	frame := w.frameLocked()
	w.wg.Add(1)
	w.mu.Unlock()

	w.logger.Debug("loading source", "src", src)
	w.emit(frame)
	go w.load(gen, src)
}

func (w *Widget) load(gen uint64, src string) {
	defer w.wg.Done()

	img, err := w.loader.Load(w.ctx, src, fetch.CrossOrigin)

	w.mu.Lock()
	if w.closed || gen != w.srcGen {
		w.mu.Unlock()
		w.logger.Debug("discarding stale load", "src", src)
		return
	}
	if err != nil {
		w.state = StateLoadFailure
		w.err = err
		frame := w.frameLocked()
		w.mu.Unlock()

		w.logger.Warn("load failed", "src", src, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		w.emit(frame)
		return
	}
	w.img = img
	w.state = StateReady
	frame := w.frameLocked()
	w.mu.Unlock()

	if w.onLoad != nil {
		w.onLoad()
	}
	w.emit(frame)
	w.schedule(true)
}

// SetConfig replaces the render options and re-renders.
func (w *Widget) SetConfig(cfg config.Render) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.cfg = cfg
	w.mu.Unlock()

	w.schedule(true)
	return nil
}

// SetContainerSize records a new container size. Bursts are coalesced per
// frame and only a changed grid triggers a pass. Sizes of 10px or less on
// either axis are not a layout yet and are ignored.
func (w *Widget) SetContainerSize(s resize.Size) {
	if !s.Valid() {
		w.logger.Debug("ignoring container size", "width", s.Width, "height", s.Height)
		return
	}
	w.throttle.trigger(s)
}

func (w *Widget) applyContainer(s resize.Size) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.container = s
	w.mu.Unlock()

	w.schedule(false)
}

// schedule starts a pass for the current inputs. Unless force is set, a
// pass whose grid equals the rendered one is skipped.
func (w *Widget) schedule(force bool) {
	w.mu.Lock()
	if w.closed || w.img == nil {
		w.mu.Unlock()
		return
	}

	grid, err := w.pipe.grid(w.img, w.cfg, w.container)
	if errors.Is(err, resize.ErrNotReady) {
		w.mu.Unlock()
		return
	}
	if err != nil {
		w.token++
		w.fail(err)
		return
	}
	if !force && grid == w.grid && w.state == StateRendered {
		w.mu.Unlock()
		return
	}

	w.token++
	token := w.token
	img, cfg := w.img, w.cfg
	w.grid = grid
	w.state = StateProcessing
	w.wg.Add(1)
	w.mu.Unlock()

	go w.pass(token, img, cfg, grid)
}

func (w *Widget) pass(token uint64, img *fetch.Image, cfg config.Render, grid resize.Grid) {
	defer w.wg.Done()

	start := time.Now()
	out, used, err := w.pipe.run(w.ctx, img, cfg, grid)

	w.mu.Lock()
	if w.closed || token != w.token {
		w.mu.Unlock()
		w.logger.Debug("discarding stale pass", "pass", token)
		return
	}
	if used != img && w.img == img {
		w.img = used
	}
	if err != nil {
		w.fail(err)
		return
	}
	w.state = StateRendered
	w.out = out
	w.err = nil
	w.rendered = token
	frame := w.frameLocked()
	w.mu.Unlock()

	w.logger.Debug("pass rendered",
		"pass", token,
		"grid", grid.String(),
		"mode", cfg.Mode,
		"elapsed", time.Since(start),
	)
	w.emit(frame)
}

// fail records a processing failure. Called with mu held; releases it.
func (w *Widget) fail(err error) {
	var pe *ProcessingError
	if !errors.As(err, &pe) {
		err = &ProcessingError{Err: err}
	}
	w.state = StateProcessingFailure
	w.out = ascii.Output{}
	w.err = err
	frame := w.frameLocked()
	w.mu.Unlock()

	w.logger.Warn("pass failed", "error", err)
	if w.onError != nil {
		w.onError(err)
	}
	w.emit(frame)
}

// emit delivers f unless a newer frame already went out.
func (w *Widget) emit(f Frame) {
	if w.onRender == nil {
		return
	}
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	if f.Seq <= w.delivered {
		w.logger.Debug("dropping overtaken frame", "seq", f.Seq, "delivered", w.delivered)
		return
	}
	w.delivered = f.Seq
	w.onRender(f)
}

// Frame returns the current snapshot.
func (w *Widget) Frame() Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameLocked()
}

func (w *Widget) frameLocked() Frame {
	w.seq++
	f := Frame{
		Seq:       w.seq,
		State:     w.state,
		Output:    w.out,
		Err:       w.err,
		Grid:      w.grid,
		Container: w.container,
		Config:    w.cfg,
		Pass:      w.rendered,
	}
	if w.img != nil {
		f.ImageWidth, f.ImageHeight = w.img.Width, w.img.Height
	}
	return f
}

// Wait blocks until pending container updates, loads and passes settle.
func (w *Widget) Wait() {
	w.throttle.flush()
	w.wg.Wait()
}

// Close cancels in-flight loads, waits for passes to finish and releases
// the raster.
func (w *Widget) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.throttle.stop()
	w.wg.Wait()
	return w.sampler.Close()
}
