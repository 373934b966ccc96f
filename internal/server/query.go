package server

import (
	"fmt"

	"github.com/koki-develop/asciimage/internal/charset"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/resize"
)

// renderParams are the render options a client may override. Unset fields
// keep the base value, so the same type serves query strings and live
// config messages.
type renderParams struct {
	Mode      string   `form:"mode" json:"mode"`
	Color     string   `form:"color" json:"color"`
	Format    string   `form:"format" json:"format"`
	Filter    string   `form:"filter" json:"filter"`
	Theme     string   `form:"theme" json:"theme"`
	Gamma     *float64 `form:"gamma" json:"gamma" binding:"omitempty,gt=0"`
	Dithering *bool    `form:"dithering" json:"dithering"`
	Aspect    *float64 `form:"aspect" json:"aspect" binding:"omitempty,gt=0"`
	Fit       *bool    `form:"fit" json:"fit"`
	Width     *int     `form:"width" json:"width" binding:"omitempty,gte=0"`
	Height    *int     `form:"height" json:"height" binding:"omitempty,gte=0"`
	MaxWidth  *int     `form:"maxWidth" json:"maxWidth" binding:"omitempty,gte=0"`
	MaxHeight *int     `form:"maxHeight" json:"maxHeight" binding:"omitempty,gte=0"`
}

// renderQuery is the query string of the one-shot endpoints.
type renderQuery struct {
	renderParams
	Src string  `form:"src" binding:"required"`
	CW  float64 `form:"cw" binding:"gte=0"`
	CH  float64 `form:"ch" binding:"gte=0"`
}

// container is nil when the client did not report its size.
func (q renderQuery) container() *resize.Size {
	if q.CW == 0 && q.CH == 0 {
		return nil
	}
	return &resize.Size{Width: q.CW, Height: q.CH}
}

func (p renderParams) apply(base config.Render) (config.Render, error) {
	cfg := base

	if p.Mode != "" {
		m, err := charset.ParseMode(p.Mode)
		if err != nil {
			return base, err
		}
		cfg.Mode = m
	}
	if p.Color != "" {
		c, err := config.ParseColorMode(p.Color)
		if err != nil {
			return base, err
		}
		cfg.ColorMode = c
	}
	if p.Format != "" {
		f, err := config.ParseFormat(p.Format)
		if err != nil {
			return base, err
		}
		cfg.Format = f
	}
	if p.Filter != "" {
		f, err := config.ParseFilter(p.Filter)
		if err != nil {
			return base, err
		}
		cfg.Filter = f
	}
	if p.Theme != "" {
		t, err := config.ParseTheme(p.Theme)
		if err != nil {
			return base, err
		}
		cfg.Theme = t
	}

	if p.Gamma != nil {
		cfg.Gamma = *p.Gamma
	}
	if p.Dithering != nil {
		cfg.Dithering = *p.Dithering
	}
	if p.Aspect != nil {
		cfg.AspectRatio = *p.Aspect
	}
	if p.Fit != nil {
		cfg.FitToContainer = *p.Fit
	}
	if p.Width != nil {
		cfg.Width = *p.Width
	}
	if p.Height != nil {
		cfg.Height = *p.Height
	}
	if p.MaxWidth != nil {
		cfg.MaxWidth = *p.MaxWidth
	}
	if p.MaxHeight != nil {
		cfg.MaxHeight = *p.MaxHeight
	}

	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("invalid render options: %w", err)
	}
	return cfg, nil
}
