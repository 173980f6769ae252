package interfaces

import (
	"context"
	"sync"

	"option-guide/src/models"
)

// -----------------------------------------------------------------------------
// IPriceSource yields the reference price for each tick of a session.
// -----------------------------------------------------------------------------

type IPriceSource interface {
	// Next returns the price to publish on the next tick.
	Next() float64
}

// -----------------------------------------------------------------------------
// IQuoteSource fetches spot quotes from an upstream market feed.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchLatest retrieves a single spot quote.
	FetchLatest(ctx context.Context) (models.MQuote, error)

	// -----------------------------------------------------------------------------

	// Start begins pushing quotes until ctx is cancelled.
	// out: channel to push quotes to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, out chan<- models.MQuote, wg *sync.WaitGroup) error
}

// -----------------------------------------------------------------------------
// IContentProvider returns the teaching document.
// -----------------------------------------------------------------------------

type IContentProvider interface {
	// Load returns the current document, re-reading it when it changed.
	Load() (*models.MTeachingData, error)

	// Reload forces a re-read.
	Reload() (*models.MTeachingData, error)
}
