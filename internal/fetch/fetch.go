// Package fetch resolves an image reference into a decoded image.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/koki-develop/asciimage/internal/logging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Mode is the request mode of a load.
type Mode int

const (
	// CrossOrigin requests the image on behalf of a page origin. The result is
	// tainted unless the remote explicitly grants that origin access.
	CrossOrigin Mode = iota
	// Anonymous fetches the bytes directly; the result is never tainted.
	Anonymous
)

func (m Mode) String() string {
	if m == Anonymous {
		return "anonymous"
	}
	return "cross-origin"
}

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 20 << 20
)

var (
	errEmptyImage = errors.New("image has no pixels")
	errTooLarge   = errors.New("image exceeds size limit")
	errLocalFiles = errors.New("local files are not allowed")
)

// LoadError reports that a source could not be turned into an image.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to load image: %s", e.URL)
	}
	return fmt.Sprintf("failed to load image: %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Image is a decoded source together with the way it was obtained.
type Image struct {
	image.Image

	URL    string
	Width  int
	Height int
	Mode   Mode

	tainted bool
}

// Tainted reports whether pixel readback must be refused.
func (i *Image) Tainted() bool { return i.tainted }

// NewImage wraps an already decoded image.
func NewImage(src string, img image.Image) *Image {
	b := img.Bounds()
	return &Image{Image: img, URL: src, Width: b.Dx(), Height: b.Dy(), Mode: Anonymous}
}

type Loader interface {
	Load(ctx context.Context, src string, mode Mode) (*Image, error)
}

var _ Loader = &HTTPLoader{}

// HTTPLoader loads http(s) URLs, file URLs, local paths and base64 data URIs.
type HTTPLoader struct {
	client     *http.Client
	origin     *url.URL
	maxBytes   int64
	localFiles bool
	logger     *slog.Logger

	group singleflight.Group
}

type Option func(*HTTPLoader)

func WithClient(c *http.Client) Option {
	return func(l *HTTPLoader) { l.client = c }
}

// WithOrigin sets the page origin used to decide whether a cross-origin
// load is tainted. An empty origin disables tainting.
func WithOrigin(origin string) Option {
	return func(l *HTTPLoader) {
		if origin == "" {
			l.origin = nil
			return
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			l.origin = u
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(l *HTTPLoader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithLocalFiles controls whether file URLs and bare paths are read from
// disk. When disabled such sources fail without touching the filesystem.
func WithLocalFiles(allow bool) Option {
	return func(l *HTTPLoader) { l.localFiles = allow }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *HTTPLoader) { l.logger = logging.For(logger, logging.ChannelFetch) }
}

func NewLoader(opts ...Option) *HTTPLoader {
	l := &HTTPLoader{
		client:     &http.Client{Timeout: defaultTimeout},
		maxBytes:   defaultMaxBytes,
		localFiles: true,
		logger:     logging.For(nil, logging.ChannelFetch),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves src exactly once per call. Concurrent loads of the same
// source and mode share one request. The shared request is bounded by the
// client timeout rather than by any single caller, so a caller giving up
// only abandons its own wait.
func (l *HTTPLoader) Load(ctx context.Context, src string, mode Mode) (*Image, error) {
	key := mode.String() + "|" + src
	ch := l.group.DoChan(key, func() (interface{}, error) {
		return l.load(context.WithoutCancel(ctx), src, mode)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			l.logger.Debug("load shared", "src", src, "mode", mode)
		}
		return res.Val.(*Image), nil
	case <-ctx.Done():
		l.logger.Debug("load abandoned", "src", src, "mode", mode, "error", ctx.Err())
		return nil, &LoadError{URL: src, Err: ctx.Err()}
	}
}

func (l *HTTPLoader) load(ctx context.Context, src string, mode Mode) (*Image, error) {
	start := time.Now()

	var (
		data    []byte
		tainted bool
		err     error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err = decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, tainted, err = l.fetchHTTP(ctx, src, mode)
	case !l.localFiles:
		err = errLocalFiles
	default:
		data, err = l.readFile(src)
	}
	if err != nil {
		l.logger.Warn("load failed", "src", src, "mode", mode, "error", err)
		return nil, &LoadError{URL: src, Err: err}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		l.logger.Warn("decode failed", "src", src, "error", err)
		return nil, &LoadError{URL: src, Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &LoadError{URL: src, Err: errEmptyImage}
	}

	l.logger.Debug("image loaded",
		"src", src,
		"mode", mode,
		"width", b.Dx(),
		"height", b.Dy(),
		"tainted", tainted,
		"elapsed", time.Since(start),
	)

	return &Image{
		Image:   img,
		URL:     src,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Mode:    mode,
		tainted: tainted,
	}, nil
}

func (l *HTTPLoader) fetchHTTP(ctx context.Context, src string, mode Mode) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	if mode == CrossOrigin && l.origin != nil {
		req.Header.Set("Origin", originOf(l.origin))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	data, err := l.readLimited(resp.Body)
	if err != nil {
		return nil, false, err
	}

	return data, l.isTainted(req.URL, mode, resp.Header.Get("Access-Control-Allow-Origin")), nil
}

func (l *HTTPLoader) isTainted(target *url.URL, mode Mode, allowOrigin string) bool {
	if mode != CrossOrigin || l.origin == nil {
		return false
	}
	origin := originOf(l.origin)
	if originOf(target) == origin {
		return false
	}
	allowOrigin = strings.TrimSpace(allowOrigin)
	return allowOrigin != "*" && !strings.EqualFold(allowOrigin, origin)
}

func (l *HTTPLoader) readFile(src string) ([]byte, error) {
	path := src
	if strings.HasPrefix(src, "file://") {
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("invalid file url: %w", err)
		}
		path = u.Path
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return l.readLimited(f)
}

func (l *HTTPLoader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, l.maxBytes)
	}
	return data, nil
}

func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if !strings.HasPrefix(meta, "image/") {
		return nil, fmt.Errorf("unsupported data uri type %q", meta)
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("data uri must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}

func originOf(u *url.URL) string {
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
