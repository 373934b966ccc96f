package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/resize"
	"github.com/koki-develop/asciimage/internal/style"
	"github.com/koki-develop/asciimage/internal/widget"
	"github.com/oklog/ulid/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// liveQuery is the handshake query of a live session. The source is
// optional and may arrive later as a message.
type liveQuery struct {
	renderParams
	Src string  `form:"src"`
	CW  float64 `form:"cw" binding:"gte=0"`
	CH  float64 `form:"ch" binding:"gte=0"`
}

// clientMessage is sent by the browser. Type is one of resize, config or
// source.
type clientMessage struct {
	Type   string        `json:"type"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Src    string        `json:"src"`
	Config *renderParams `json:"config"`
}

type frameMessage struct {
	Session string       `json:"session"`
	State   string       `json:"state"`
	Text    string       `json:"text,omitempty"`
	Markup  bool         `json:"markup"`
	Cols    int          `json:"cols"`
	Rows    int          `json:"rows"`
	Style   *style.Style `json:"style,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type session struct {
	id     string
	conn   *websocket.Conn
	widget *widget.Widget
	frames chan widget.Frame
	done   chan struct{}
	logger *slog.Logger
}

func (s *Server) upgrader() *websocket.Upgrader {
	allowed := make(map[string]bool, len(s.svc.AllowedOrigins))
	for _, o := range s.svc.AllowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

func (s *Server) handleLive(logger *slog.Logger) gin.HandlerFunc {
	up := s.upgrader()
	liveLogger := logging.For(logger, logging.ChannelLive)

	return func(c *gin.Context) {
		var q liveQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		cfg, err := q.apply(config.Default())
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		conn, err := up.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader already answered
			_ = c.Error(err)
			return
		}

		sess := &session{
			id:     ulid.Make().String(),
			conn:   conn,
			frames: make(chan widget.Frame, 1),
			done:   make(chan struct{}),
		}
		sess.logger = liveLogger.With("session", sess.id)

		opts := []widget.Option{
			widget.WithLogger(logger),
			widget.WithFrameInterval(s.svc.FrameInterval),
			widget.OnRender(sess.publish),
		}
		if q.CW > 0 || q.CH > 0 {
			opts = append(opts, widget.WithContainerSize(resize.Size{Width: q.CW, Height: q.CH}))
		}
		w, err := widget.New(s.loader, cfg, opts...)
		if err != nil {
			sess.logger.Error("failed to create widget", "error", err)
			conn.Close()
			return
		}
		sess.widget = w

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			sess.run(s, q.Src)
		}()
	}
}

// publish keeps only the newest frame for the writer.
func (sess *session) publish(f widget.Frame) {
	for {
		select {
		case sess.frames <- f:
			return
		default:
		}
		select {
		case <-sess.frames:
		default:
		}
	}
}

func (sess *session) run(s *Server, src string) {
	sess.logger.Info("live session opened")
	defer sess.logger.Info("live session closed")

	go sess.readLoop()
	if src != "" {
		sess.widget.SetSource(src)
	}

	sess.writeLoop(s)
	sess.widget.Close()
	sess.conn.Close()
}

func (sess *session) writeLoop(s *Server) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-sess.frames:
			if err := sess.write(newFrameMessage(sess.id, f)); err != nil {
				sess.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.done:
			return
		case <-s.ctx.Done():
			sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (sess *session) write(v any) error {
	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteJSON(v)
}

func (sess *session) readLoop() {
	defer close(sess.done)

	sess.conn.SetReadLimit(maxMessage)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Warn("read failed", "error", err)
			}
			return
		}
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.logger.Debug("ignoring malformed message", "error", err)
			continue
		}
		sess.handle(msg)
	}
}

func (sess *session) handle(msg clientMessage) {
	switch msg.Type {
	case "resize":
		sess.widget.SetContainerSize(resize.Size{Width: msg.Width, Height: msg.Height})
	case "source":
		sess.widget.SetSource(msg.Src)
	case "config":
		if msg.Config == nil {
			return
		}
		cfg, err := msg.Config.apply(sess.widget.Frame().Config)
		if err == nil {
			err = sess.widget.SetConfig(cfg)
		}
		if err != nil {
			sess.logger.Debug("rejecting config", "error", err)
			sess.publish(widget.Frame{State: widget.StateProcessingFailure, Err: err})
		}
	default:
		sess.logger.Debug("ignoring unknown message", "type", msg.Type)
	}
}

func newFrameMessage(id string, f widget.Frame) frameMessage {
	msg := frameMessage{
		Session: id,
		State:   f.State.String(),
		Cols:    f.Grid.Cols,
		Rows:    f.Grid.Rows,
	}
	if f.Err != nil {
		msg.Error = style.ErrorText(f.Err)
	}
	if f.State == widget.StateRendered {
		st := style.Compute(f.Container, f.Grid, f.Config)
		msg.Text = f.Output.Text
		msg.Markup = f.Output.Markup
		msg.Style = &st
	}
	return msg
}
