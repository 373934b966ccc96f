// Package logging configures the structured loggers used across asciimage.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Channel names a logical component; it is attached to every record as
// the "component" attribute.
type Channel string

const (
	ChannelFetch  Channel = "fetch"
	ChannelRender Channel = "render"
	ChannelHTTP   Channel = "http"
	ChannelLive   Channel = "live"
	ChannelUI     Channel = "ui"
)

type Options struct {
	Level  string
	Format string // "text" or "json"
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// For returns a child logger scoped to ch. A nil logger yields a discarding one.
func For(logger *slog.Logger, ch Channel) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("component", string(ch))
}

func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
