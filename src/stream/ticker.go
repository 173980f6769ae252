package stream

import "time"

// Ticker is the part of time.Ticker a session needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory arms a periodic timer.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}
