package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"option-guide/src/chart"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/models"
	"option-guide/src/pricing"
	"option-guide/src/stream"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server exposes the stream endpoints, the content/series/chart API and
// the metrics scrape endpoint.
type Server struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Content   interfaces.IContentProvider
	Reference *pricing.ReferencePrice
	Builder   *pricing.SeriesBuilder
	Charts    *chart.Renderer

	engine     *gin.Engine
	httpServer *http.Server

	// sessions share baseCtx; cancelling it ends every stream on shutdown
	baseCtx    context.Context
	cancelBase context.CancelFunc
	sessionsMu   sync.Mutex
	sessions     map[string]*stream.Session
	sessionsWg   sync.WaitGroup
	shuttingDown bool

	// NewTicker is overridable in tests
	NewTicker stream.TickerFactory
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, content interfaces.IContentProvider, ref *pricing.ReferencePrice, l *logger.Logger) *Server {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}
	if l == nil {
		l = logger.Nop()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Config:     cfg,
		Logger:     l,
		Content:    content,
		Reference:  ref,
		Builder:    pricing.NewSeriesBuilder(pricing.NewCurrencyParser(cfg.Pricing.CurrencyGlyphs)),
		Charts:     chart.NewRenderer(cfg.Chart),
		engine:     gin.New(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		sessions:   make(map[string]*stream.Session),
		NewTicker:  stream.NewTicker,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware)
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

// corsMiddleware lets the page and the viewer call the API from any origin.
func corsMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Cache-Control, Last-Event-ID, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/stream", s.handleSSE)
	api.GET("/teaching", s.getTeaching)
	api.GET("/series/:tab", s.getSeries)
	api.GET("/chart/:tab/:file", s.getChart)
	api.GET("/quote", s.getQuote)
	api.GET("/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.Logger.Info("Starting server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Shutdown closes every stream session, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessionsMu.Lock()
	s.shuttingDown = true
	s.sessionsMu.Unlock()
	s.cancelBase()

	drained := make(chan struct{})
	go func() {
		s.sessionsWg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.Logger.Warning("Timed out waiting for %d sessions to close", s.ActiveSessions())
	}

	return s.httpServer.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Session registry
// -----------------------------------------------------------------------------

// ActiveSessions counts sessions that have not reached Closed.
func (s *Server) ActiveSessions() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

// register tracks sess until unregister. It refuses once Shutdown has
// begun, so the wait group never grows while Shutdown waits on it.
func (s *Server) register(sess *stream.Session) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.sessions[sess.ID()] = sess
	s.sessionsWg.Add(1)
	return true
}

func (s *Server) accepting() bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return !s.shuttingDown
}

func (s *Server) unregister(sess *stream.Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, sess.ID())
	s.sessionsMu.Unlock()
	s.sessionsWg.Done()
}
