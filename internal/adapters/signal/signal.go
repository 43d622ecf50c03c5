package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ikarobotics/signaling/internal/app"
	"github.com/ikarobotics/signaling/internal/config"
	"github.com/ikarobotics/signaling/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	Close() error
}

type SignalWSController struct {
	Orch    *app.Orchestrator
	Limiter *JoinRateLimiter
	cfg     *config.Config
}

func NewSignalWSController(cfg *config.Config, orch *app.Orchestrator) *SignalWSController {
	return &SignalWSController{
		Orch:    orch,
		Limiter: NewJoinRateLimiter(cfg.JoinRate, cfg.JoinWindow),
		cfg:     cfg,
	}
}

// WsSignalConn implements core.SignalConnection over a WebSocket. The
// write pump is the only goroutine touching the socket's write side.
type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	if f == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until the
// socket closes for any reason. The read pump owns disconnect
// reconciliation, so it fires exactly once per connection.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	id := ctl.Orch.Registry.Register(conn)
	log.Info().Str("module", "signal").Str("peer", string(id)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	_ = c.TrySend(core.Encode(v))
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, reason string) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{core.EventError, reason})
}

var _ core.SignalConnection = (*WsSignalConn)(nil)
