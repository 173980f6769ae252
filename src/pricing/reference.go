package pricing

import (
	"sync"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/models"
)

// Known observation sources.
const (
	SourceSeed     = "seed"
	SourceUpstream = "upstream"
	SourceManual   = "manual"
	SourceJournal  = "journal"
)

// ReferencePrice is the shared "current underlying price". Writers are the
// upstream poller and the control plane; readers are handlers and sessions.
type ReferencePrice struct {
	mu    sync.RWMutex
	quote models.MQuote
	now   func() time.Time
}

// NewReferencePrice seeds the holder with an initial value.
func NewReferencePrice(initial float64) *ReferencePrice {
	rp := &ReferencePrice{now: time.Now}
	if initial < 0 || !finite(initial) {
		initial = 0
	}
	rp.quote = models.MQuote{Source: SourceSeed, Price: initial, ObservedAt: rp.now()}
	return rp
}

// -----------------------------------------------------------------------------

// Set replaces the current value. Negative or non-finite prices are
// rejected and the previous value is kept.
func (rp *ReferencePrice) Set(price float64, source string) (models.MQuote, error) {
	if !finite(price) || price < 0 {
		return models.MQuote{}, helpers.NewValidationError("invalid reference price %v from %s", price, source)
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.quote = models.MQuote{Source: source, Price: price, ObservedAt: rp.now()}
	return rp.quote, nil
}

// Observe adopts q as-is, keeping its source and timestamp.
func (rp *ReferencePrice) Observe(q models.MQuote) error {
	if !finite(q.Price) || q.Price < 0 {
		return helpers.NewValidationError("invalid reference price %v from %s", q.Price, q.Source)
	}
	if q.ObservedAt.IsZero() {
		q.ObservedAt = rp.now()
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.quote = q
	return nil
}

// -----------------------------------------------------------------------------

func (rp *ReferencePrice) Quote() models.MQuote {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	return rp.quote
}

func (rp *ReferencePrice) Value() float64 {
	return rp.Quote().Price
}
