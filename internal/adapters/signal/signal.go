package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MarcMroz/open-voice-chat/internal/adapters/rtc"
	"github.com/MarcMroz/open-voice-chat/internal/app/orch"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Context keys set by the HTTP middleware.
const (
	ClientTokenKey = "client_token"
	ClientIPKey    = "client_ip"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Settings struct {
	SendBuffer int
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	ICEServers []string
}

func (s Settings) withDefaults() Settings {
	if s.SendBuffer <= 0 {
		s.SendBuffer = 32
	}
	if s.ReadLimit <= 0 {
		s.ReadLimit = 32768
	}
	if s.PingPeriod <= 0 {
		s.PingPeriod = 54 * time.Second
	}
	if s.WriteWait <= 0 {
		s.WriteWait = 5 * time.Second
	}
	return s
}

// pongWait is how long a peer may stay silent before it is dropped.
func (s Settings) pongWait() time.Duration { return s.PingPeriod * 10 / 9 }

// MediaFactory opens a media connection for a session.
type MediaFactory func(sid core.SessionID) (core.MediaConnection, error)

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Limiter  *RateLimiter
	NewMedia MediaFactory
	settings Settings
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RateLimiter, settings Settings) *SignalWSController {
	settings = settings.withDefaults()
	ice := rtc.Config(settings.ICEServers)
	return &SignalWSController{
		Orch:    o,
		Limiter: limiter,
		NewMedia: func(sid core.SessionID) (core.MediaConnection, error) {
			return rtc.NewWebRTCConnection(ice, sid)
		},
		settings: settings,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsSignalConn is the core.SignalConnection of one websocket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
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
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleSignal upgrades the request and serves one signalling session until
// the socket closes or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(uuid.NewString())
	ip := c.GetString(ClientIPKey)
	if ip == "" {
		ip = c.ClientIP()
	}
	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Str("ip", ip).Logger()
	logger.Info().Msg("new WS connection")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.settings.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	sess := core.Session{ID: sid, IP: ip, Client: c.GetString(ClientTokenKey), Signal: conn}

	go ctl.writePump(ctx, conn)
	if err := ctl.Orch.Connect(sess, cancel); err != nil {
		// Rejected: the notice is queued and the orchestrator closes the socket.
		logger.Warn().Err(err).Msg("connection rejected")
		return
	}
	go ctl.readPump(ctx, sid, conn, cancel)
}
