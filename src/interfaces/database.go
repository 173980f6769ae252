package interfaces

import (
	"time"

	"option-guide/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the quote journal.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveQuote appends one reference price observation.
	SaveQuote(q models.MQuote) error

	// -----------------------------------------------------------------------------

	// LatestQuote returns the most recent observation; ok is false when empty.
	LatestQuote() (q models.MQuote, ok bool, err error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes quotes older than retention.
	CleanupOldData(retention time.Duration) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
