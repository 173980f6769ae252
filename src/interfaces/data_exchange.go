package interfaces

import "option-guide/src/models"

// -----------------------------------------------------------------------------
// ITransport is the subscriber side of a stream session (SSE response,
// websocket connection, test double).
// -----------------------------------------------------------------------------

type ITransport interface {
	// -----------------------------------------------------------------------------
	// SendTick writes one tick event. An error means the subscriber is gone.
	SendTick(msg models.MTickMessage) error

	// -----------------------------------------------------------------------------
	// SendHeartbeat writes a payload-free keep-alive.
	SendHeartbeat() error

	// -----------------------------------------------------------------------------
	// Close releases the underlying connection.
	Close() error
}
