package server

import (
	"errors"
	"net/http"
	"time"

	"option-guide/src/interfaces"
	"option-guide/src/stream"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 4 * 1024
)

var errShuttingDown = errors.New("server is shutting down")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------
// Session factory
// -----------------------------------------------------------------------------

// priceSource returns a fresh generator per session, or the shared
// reference price when sessions follow the upstream feed.
func (s *Server) priceSource() interfaces.IPriceSource {
	cfg := s.Config.Stream
	if cfg.PriceSource == "upstream" {
		return stream.NewReferenceSource(s.Reference)
	}
	return stream.NewGenerator(cfg.StartPrice, cfg.MaxDelta, cfg.FloorPrice, nil)
}

func (s *Server) newSession(transport interfaces.ITransport, label string) *stream.Session {
	return stream.NewSession(s.priceSource(), transport, stream.Options{
		TickInterval:      time.Duration(s.Config.Stream.TickIntervalMs) * time.Millisecond,
		HeartbeatInterval: time.Duration(s.Config.Stream.HeartbeatIntervalMs) * time.Millisecond,
		Label:             label,
		NewTicker:         s.NewTicker,
		Logger:            s.Logger,
	})
}

func (s *Server) writeTimeout() time.Duration {
	return time.Duration(s.Config.Stream.WriteTimeoutMs) * time.Millisecond
}

// -----------------------------------------------------------------------------
// SSE
// -----------------------------------------------------------------------------

// handleSSE holds the response open until the session closes. A client
// disconnect cancels the session; server shutdown ends it through baseCtx.
func (s *Server) handleSSE(c *gin.Context) {
	sess := s.newSession(stream.NewSSETransport(c.Writer, s.writeTimeout()), "sse")
	if !s.register(sess) {
		c.JSON(http.StatusServiceUnavailable, errorBody(errShuttingDown))
		return
	}
	defer s.unregister(sess)

	stream.SetSSEHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	if err := sess.Start(s.baseCtx); err != nil {
		s.Logger.Error("Failed to start session: %v", err)
		return
	}
	s.Logger.Debug("SSE session %s opened from %s", sess.ID(), c.ClientIP())

	select {
	case <-c.Request.Context().Done():
		sess.Cancel()
	case <-sess.Done():
	}
	<-sess.Done()
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	if !s.accepting() {
		c.JSON(http.StatusServiceUnavailable, errorBody(errShuttingDown))
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	sess := s.newSession(stream.NewWSTransport(conn, s.writeTimeout()), "ws")
	if !s.register(sess) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, errShuttingDown.Error()),
			time.Now().Add(s.writeTimeout()))
		conn.Close()
		return
	}
	defer s.unregister(sess)

	if err := sess.Start(s.baseCtx); err != nil {
		s.Logger.Error("Failed to start session: %v", err)
		conn.Close()
		return
	}
	s.Logger.Debug("WebSocket session %s opened from %s", sess.ID(), c.ClientIP())

	s.readPump(conn)
	sess.Cancel()
	<-sess.Done()
}

// readPump drains client frames so pongs and close frames are processed.
// It returns when the peer goes away or the session closes the socket.
func (s *Server) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
	}
}
