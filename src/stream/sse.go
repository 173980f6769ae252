package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"option-guide/src/models"
)

// ErrTransportClosed is returned by writes after Close.
var ErrTransportClosed = errors.New("transport closed")

var heartbeatFrame = []byte(": ping\n\n")

// SetSSEHeaders writes the response headers of the push stream.
func SetSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
}

// TickFrame encodes msg as one SSE data event.
func TickFrame(msg models.MTickMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// -----------------------------------------------------------------------------

// SSETransport writes event-stream frames to an HTTP response and flushes
// each one. The response itself ends when the handler returns.
type SSETransport struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewSSETransport wraps w. A positive writeTimeout bounds each write so a
// stalled subscriber fails the write instead of blocking the session.
func NewSSETransport(w http.ResponseWriter, writeTimeout time.Duration) *SSETransport {
	return &SSETransport{w: w, rc: http.NewResponseController(w), writeTimeout: writeTimeout}
}

func (t *SSETransport) SendTick(msg models.MTickMessage) error {
	frame, err := TickFrame(msg)
	if err != nil {
		return err
	}
	return t.write(frame)
}

func (t *SSETransport) SendHeartbeat() error {
	return t.write(heartbeatFrame)
}

func (t *SSETransport) write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if t.writeTimeout > 0 {
		// not every ResponseWriter supports deadlines; the write still proceeds
		_ = t.rc.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if _, err := t.w.Write(frame); err != nil {
		return err
	}
	return t.rc.Flush()
}

// Close stops further writes.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.writeTimeout > 0 {
		_ = t.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}
