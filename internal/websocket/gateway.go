// Package websocket serves the chat widget. Each connection owns exactly one
// chat.Session, created when the socket opens and dropped when it closes.
package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"valles-rodes/internal/chat"
	"valles-rodes/internal/metrics"
	"valles-rodes/internal/models"
)

// Frame types exchanged with the widget.
const (
	FrameOpen             = "open"
	FrameMessage          = "message"
	FrameSession          = "session"
	FrameTranscriptUpdate = "transcript_update"
	FrameError            = "error"
)

const (
	maxFrameBytes = 16 << 10
	writeWait     = 10 * time.Second
	outboxSize    = 64
)

// Origin checking is left to the upgrader default, which requires the
// Origin header to match the host.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Config struct {
	Credential        *chat.Credential
	Persona           models.ChatMessage
	MessagesPerMinute int
}

type Gateway struct {
	cfg      Config
	provider chat.Provider
	logger   *zap.Logger
}

func NewGateway(cfg Config, provider chat.Provider, logger *zap.Logger) *Gateway {
	return &Gateway{cfg: cfg, provider: provider, logger: logger}
}

func (g *Gateway) limiter() *rate.Limiter {
	if g.cfg.MessagesPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.cfg.MessagesPerMinute)), 3)
}

func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	c := &client{
		conn:    conn,
		logger:  g.logger.With(zap.String("request_id", r.Header.Get("X-Request-ID"))),
		limiter: g.limiter(),
		outbox:  make(chan models.WSMessage, outboxSize),
		done:    make(chan struct{}),
	}
	c.session = chat.NewSession(chat.Config{
		Credential: g.cfg.Credential,
		Persona:    g.cfg.Persona,
		Logger:     c.logger,
	}, g.provider)
	c.session.OnChange(c.forward)

	c.logger.Debug("chat connection opened")
	c.serve()
	c.logger.Debug("chat connection closed")
}

type client struct {
	conn    *websocket.Conn
	session *chat.Session
	logger  *zap.Logger
	limiter *rate.Limiter

	outbox chan models.WSMessage
	done   chan struct{}
	wg     sync.WaitGroup
}

func (c *client) serve() {
	ctx, cancel := context.WithCancel(context.Background())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.readLoop(ctx)

	// In-flight exchanges stop streaming once ctx is cancelled; done keeps
	// their final events from blocking on a dead writer.
	cancel()
	close(c.done)
	c.wg.Wait()
	close(c.outbox)
	<-writerDone
	c.conn.Close()
}

func (c *client) readLoop(ctx context.Context) {
	for {
		var frame models.ChatClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("chat connection read failed", zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case FrameOpen:
			c.session.Open()
		case FrameMessage:
			c.submit(ctx, frame.Content)
		default:
			c.send(models.WSMessage{Type: FrameError, Payload: models.APIError{
				Code:    "UNKNOWN_FRAME",
				Message: "Unknown frame type",
			}})
		}
	}
}

func (c *client) submit(ctx context.Context, text string) {
	if !c.limiter.Allow() {
		metrics.ChatRejectedTotal.WithLabelValues("rate_limited").Inc()
		c.send(models.WSMessage{Type: FrameError, Payload: models.APIError{
			Code:    "RATE_LIMITED",
			Message: "Estás enviando mensajes muy rápido. Espera un momento.",
		}})
		return
	}

	ex, err := c.session.Submit(text)
	if err != nil {
		code := rejectionCode(err)
		metrics.ChatRejectedTotal.WithLabelValues(code).Inc()
		c.send(models.WSMessage{Type: FrameError, Payload: models.APIError{Code: code, Message: err.Error()}})
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// the session already recorded the failure in the transcript
		_ = ex.Run(ctx)
	}()
}

func rejectionCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrBusy):
		return "BUSY"
	case errors.Is(err, chat.ErrEmptyMessage):
		return "EMPTY_MESSAGE"
	case errors.Is(err, chat.ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, chat.ErrNotOpen):
		return "NOT_OPEN"
	default:
		return "REJECTED"
	}
}

// forward runs under the session lock.
func (c *client) forward(ev chat.Event) {
	switch ev.Kind {
	case chat.EventState:
		c.send(models.WSMessage{Type: FrameSession, Payload: ev.View})
	case chat.EventTrailing:
		c.send(models.WSMessage{Type: FrameTranscriptUpdate, Payload: ev.Update})
	}
}

func (c *client) send(msg models.WSMessage) {
	select {
	case c.outbox <- msg:
	case <-c.done:
	}
}

func (c *client) writeLoop() {
	broken := false
	for msg := range c.outbox {
		if broken {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Debug("chat connection write failed", zap.Error(err))
			broken = true
			// unblocks the read loop
			c.conn.Close()
		}
	}
}
