package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"option-guide/src/models"
)

// ParseTick validates one data payload against the tick schema: an object
// with "type" equal to "tick" and a finite numeric "S0".
func ParseTick(data []byte) (models.MTickMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.MTickMessage{}, fmt.Errorf("not a JSON object: %w", err)
	}

	var typ string
	if err := json.Unmarshal(raw["type"], &typ); err != nil || typ != "tick" {
		return models.MTickMessage{}, fmt.Errorf("unexpected message type")
	}

	s0Raw := bytes.TrimSpace(raw["S0"])
	if len(s0Raw) == 0 || s0Raw[0] == '"' {
		return models.MTickMessage{}, fmt.Errorf("S0 must be a number")
	}
	var s0 float64
	if err := json.Unmarshal(s0Raw, &s0); err != nil || math.IsNaN(s0) || math.IsInf(s0, 0) {
		return models.MTickMessage{}, fmt.Errorf("S0 must be a number")
	}
	return models.MTickMessage{Type: typ, S0: s0}, nil
}

// -----------------------------------------------------------------------------

// Consume reads an event stream from r and calls onTick for every valid
// tick. Comment lines and payloads of any other shape are ignored. It
// returns nil at end of stream and the read error otherwise; it never
// reconnects.
func Consume(ctx context.Context, r io.Reader, onTick func(models.MTickMessage)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var data []string
	dispatch := func() {
		if len(data) == 0 {
			return
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		if msg, err := ParseTick([]byte(payload)); err == nil {
			onTick(msg)
		}
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, ":"):
			// comment / heartbeat
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	// an event without its terminating blank line is incomplete and dropped
	return scanner.Err()
}

// -----------------------------------------------------------------------------

// Subscribe opens url as an event stream and consumes it until the server
// ends the stream, the connection fails, or ctx is cancelled.
func Subscribe(ctx context.Context, client *http.Client, url string, onTick func(models.MTickMessage)) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream %s returned status %d", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return fmt.Errorf("stream %s returned content type %q", url, ct)
	}
	return Consume(ctx, resp.Body, onTick)
}
