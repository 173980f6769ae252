package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/models"

	"github.com/google/uuid"
)

// State of a Session. Closed is terminal.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	default:
		return "closed"
	}
}

// Reasons a session reaches Closed.
const (
	ReasonCancel       = "cancel"
	ReasonWriteFailure = "write_failure"
	ReasonShutdown     = "shutdown"
)

// Options configures a Session.
type Options struct {
	TickInterval      time.Duration
	HeartbeatInterval time.Duration
	// Label tags metrics with the transport kind ("sse", "ws").
	Label     string
	NewTicker TickerFactory
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

// Session pushes ticks and heartbeats to one subscriber.
//
// A single goroutine owns both timers and every transport write, so
// callbacks never overlap. Every path to Closed (Cancel, a failed write,
// ctx cancellation) goes through close, which runs its body once.
type Session struct {
	id        string
	opts      Options
	source    interfaces.IPriceSource
	transport interfaces.ITransport
	logger    *logger.Logger

	mu            sync.Mutex
	state         State
	stopRequested bool
	reason        string
	tick          Ticker
	heartbeat     Ticker

	stop chan struct{}
	done chan struct{}
}

// NewSession creates an Idle session.
func NewSession(source interfaces.IPriceSource, transport interfaces.ITransport, opts Options) *Session {
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Label == "" {
		opts.Label = "sse"
	}
	return &Session{
		id:        uuid.NewString(),
		opts:      opts,
		source:    source,
		transport: transport,
		logger:    opts.Logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

func (s *Session) ID() string { return s.id }

// Done is closed once the session has reached Closed and will not touch
// the transport again.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason reports why the session closed, or "" while it is open.
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// -----------------------------------------------------------------------------

// Start arms the tick and heartbeat timers and begins streaming until ctx
// ends, Cancel is called, or a write fails.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session %s cannot start from state %s", s.id, state)
	}
	s.tick = s.opts.NewTicker(s.opts.TickInterval)
	s.heartbeat = s.opts.NewTicker(s.opts.HeartbeatInterval)
	s.state = StateStreaming
	s.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(s.opts.Label).Inc()
	s.logger.Debug("Session %s streaming (tick=%s heartbeat=%s)", s.id, s.opts.TickInterval, s.opts.HeartbeatInterval)

	go s.run(ctx)
	return nil
}

// -----------------------------------------------------------------------------

// Cancel requests the transition to Closed. Repeated calls are no-ops.
func (s *Session) Cancel() {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		s.close(ReasonCancel)
		return
	case StateStreaming:
		if !s.stopRequested {
			s.stopRequested = true
			close(s.stop)
		}
	}
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *Session) run(ctx context.Context) {
	tickC := s.tick.C()
	heartbeatC := s.heartbeat.C()

	for {
		select {
		case <-ctx.Done():
			s.close(ReasonShutdown)
			return
		case <-s.stop:
			s.close(ReasonCancel)
			return
		case <-tickC:
			if !s.emit(s.sendTick) {
				return
			}
		case <-heartbeatC:
			if !s.emit(s.sendHeartbeat) {
				return
			}
		}
	}
}

// emit is the safe-enqueue step: skip when closing, write, close on failure.
func (s *Session) emit(write func() error) bool {
	s.mu.Lock()
	open := s.state == StateStreaming && !s.stopRequested
	s.mu.Unlock()
	if !open {
		s.close(ReasonCancel)
		return false
	}

	if err := write(); err != nil {
		metrics.WriteFailuresTotal.WithLabelValues(s.opts.Label).Inc()
		s.logger.Debug("Session %s write failed: %v", s.id, err)
		s.close(ReasonWriteFailure)
		return false
	}
	return true
}

func (s *Session) sendTick() error {
	msg := models.MTickMessage{Type: "tick", S0: s.source.Next()}
	if err := s.transport.SendTick(msg); err != nil {
		return err
	}
	metrics.TicksTotal.WithLabelValues(s.opts.Label).Inc()
	return nil
}

func (s *Session) sendHeartbeat() error {
	if err := s.transport.SendHeartbeat(); err != nil {
		return err
	}
	metrics.HeartbeatsTotal.WithLabelValues(s.opts.Label).Inc()
	return nil
}

// -----------------------------------------------------------------------------

// close is the single transition into Closed.
func (s *Session) close(reason string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasStreaming := s.state == StateStreaming
	s.state = StateClosed
	s.reason = reason
	tick, heartbeat := s.tick, s.heartbeat
	s.mu.Unlock()

	if tick != nil {
		tick.Stop()
	}
	if heartbeat != nil {
		heartbeat.Stop()
	}
	s.closeTransport()

	if wasStreaming {
		metrics.ActiveSessions.WithLabelValues(s.opts.Label).Dec()
	}
	metrics.SessionsClosedTotal.WithLabelValues(reason).Inc()
	s.logger.Debug("Session %s closed (%s)", s.id, reason)
	close(s.done)
}

// closeTransport never lets a failing Close keep the session open.
func (s *Session) closeTransport() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warning("Session %s transport close panicked: %v", s.id, r)
		}
	}()
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("Session %s transport close: %v", s.id, err)
	}
}
