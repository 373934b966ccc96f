package server

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/koki-develop/asciimage/internal/ascii"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/koki-develop/asciimage/internal/style"
	"github.com/koki-develop/asciimage/internal/widget"
)

func (s *Server) routes(logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(corsMiddleware(s.svc.AllowedOrigins))

	r.GET("/healthz", s.handleHealth)
	r.GET("/ascii", s.handlePage)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ascii", s.handleASCII)
		v1.GET("/ascii/live", s.handleLive(logger))
	}

	return r
}

type asciiResponse struct {
	Text   string      `json:"text"`
	Markup bool        `json:"markup"`
	Cols   int         `json:"cols"`
	Rows   int         `json:"rows"`
	Style  style.Style `json:"style"`
}

type errorResponse struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`

	err error
}

func newErrorResponse(err error, state string) *errorResponse {
	return &errorResponse{Error: err.Error(), State: state, err: err}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// render runs a one-shot conversion for the request on top of base. On
// failure it returns the status and body to answer with.
func (s *Server) render(c *gin.Context, base config.Render) (ascii.Output, config.Render, *resize.Size, int, *errorResponse) {
	var q renderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return ascii.Output{}, base, nil, http.StatusBadRequest, newErrorResponse(err, "")
	}
	cfg, err := q.apply(base)
	if err != nil {
		return ascii.Output{}, base, nil, http.StatusBadRequest, newErrorResponse(err, "")
	}

	container := q.container()
	out, err := widget.Convert(c.Request.Context(), s.loader, q.Src, cfg, container)
	if err != nil {
		_ = c.Error(err)
		status, state := classify(err)
		return ascii.Output{}, cfg, container, status, newErrorResponse(err, state.String())
	}
	return out, cfg, container, http.StatusOK, nil
}

func classify(err error) (int, widget.State) {
	var le *fetch.LoadError
	if errors.As(err, &le) {
		return http.StatusBadGateway, widget.StateLoadFailure
	}
	return http.StatusUnprocessableEntity, widget.StateProcessingFailure
}

func (s *Server) handleASCII(c *gin.Context) {
	out, cfg, container, status, errResp := s.render(c, config.Default())
	if errResp != nil {
		c.JSON(status, errResp)
		return
	}

	c.JSON(http.StatusOK, asciiResponse{
		Text:   out.Text,
		Markup: out.Markup,
		Cols:   out.Grid.Cols,
		Rows:   out.Grid.Rows,
		Style:  style.Compute(sizeOrZero(container), out.Grid, cfg),
	})
}

func sizeOrZero(s *resize.Size) resize.Size {
	if s == nil {
		return resize.Size{}
	}
	return *s
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>asciimage</title>
<style>
{{.ThemeCSS}}
</style>
</head>
<body>
<div class="asciimage">
{{- if .Error}}
<div class="error">{{.Error}}</div>
{{- else if .Markup}}
<pre style="{{.CSS}}">{{.Markup}}</pre>
{{- else if .Text}}
<pre style="{{.CSS}}">{{.Text}}</pre>
{{- else}}
<div class="status">{{.Empty}}</div>
{{- end}}
</div>
</body>
</html>
`))

type pageData struct {
	ThemeCSS template.CSS
	CSS      template.CSS
	Markup   template.HTML
	Text     string
	Error    string
	Empty    string
}

func (s *Server) handlePage(c *gin.Context) {
	out, cfg, container, status, errResp := s.render(c, config.Default())

	data := pageData{
		ThemeCSS: template.CSS(style.ThemeCSS(".asciimage", cfg.Theme, out.Markup)),
		Empty:    style.EmptyText,
	}
	if errResp != nil {
		data.Error = style.ErrorText(errResp.err)
	} else {
		data.CSS = template.CSS(style.Compute(sizeOrZero(container), out.Grid, cfg).CSS())
		if out.Markup && cfg.Format == config.FormatHTML {
			// markup is built from escaped glyphs and fixed span tags
			data.Markup = template.HTML(out.Text)
		} else {
			data.Text = out.Text
		}
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(c.Writer, data); err != nil {
		_ = c.Error(err)
	}
}
