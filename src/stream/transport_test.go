package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"option-guide/src/models"

	"github.com/gorilla/websocket"
)

func TestTickFrame(t *testing.T) {
	frame, err := TickFrame(models.MTickMessage{Type: "tick", S0: 60012})
	if err != nil {
		t.Fatal(err)
	}
	if string(frame) != "data: {\"type\":\"tick\",\"S0\":60012}\n\n" {
		t.Fatalf("unexpected frame %q", frame)
	}
}

func TestSSETransportWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	tr := NewSSETransport(rec, time.Second)

	if err := tr.SendTick(models.MTickMessage{Type: "tick", S0: 100}); err != nil {
		t.Fatalf("SendTick returned error: %v", err)
	}
	if err := tr.SendHeartbeat(); err != nil {
		t.Fatalf("SendHeartbeat returned error: %v", err)
	}
	want := "data: {\"type\":\"tick\",\"S0\":100}\n\n: ping\n\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q, want %q", rec.Body.String(), want)
	}
	if !rec.Flushed {
		t.Fatalf("frames must be flushed")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := tr.SendHeartbeat(); !errors.Is(err, ErrTransportClosed) {
		t.Fatalf("expected ErrTransportClosed, got %v", err)
	}
}

type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header       { return b.header }
func (b *brokenWriter) WriteHeader(int)           {}
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSSETransportWriteFailureEndsSession(t *testing.T) {
	tr := NewSSETransport(&brokenWriter{header: http.Header{}}, 0)
	tickers := &fakeTickers{tick: newFakeTicker(), heartbeat: newFakeTicker()}
	s := NewSession(constSource(1), tr, Options{TickInterval: time.Second, HeartbeatInterval: time.Second, NewTicker: tickers.factory})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tickers.heartbeat.c <- time.Now()
	waitDone(t, s)
	if s.Reason() != ReasonWriteFailure {
		t.Fatalf("expected write failure, got %s", s.Reason())
	}
}

func TestSetSSEHeaders(t *testing.T) {
	h := http.Header{}
	SetSSEHeaders(h)
	if h.Get("Content-Type") != "text/event-stream; charset=utf-8" ||
		h.Get("Cache-Control") != "no-cache, no-transform" ||
		h.Get("Connection") != "keep-alive" ||
		h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected headers %v", h)
	}
}

// -----------------------------------------------------------------------------

func TestParseTick(t *testing.T) {
	if msg, err := ParseTick([]byte(`{"type":"tick","S0":60000.5}`)); err != nil || msg.S0 != 60000.5 {
		t.Fatalf("valid tick rejected: %+v %v", msg, err)
	}
	bad := []string{
		`{"type":"tick","S0":"60000"}`,
		`{"type":"tick"}`,
		`{"type":"quote","S0":1}`,
		`{"S0":1}`,
		`[1,2]`,
		`null`,
		`not json`,
	}
	for _, in := range bad {
		if _, err := ParseTick([]byte(in)); err == nil {
			t.Errorf("ParseTick(%s) should fail", in)
		}
	}
}

func TestConsumeIgnoresNoise(t *testing.T) {
	body := strings.Join([]string{
		": ping",
		"",
		"data: {\"type\":\"tick\",\"S0\":60012}",
		"",
		"event: other",
		"data: {\"type\":\"other\"}",
		"",
		"data: {\"type\":\"tick\",\"S0\":\"oops\"}",
		"",
		"data: garbage",
		"",
		"data:{\"type\":\"tick\",\"S0\":59990}",
		"",
		"data: {\"type\":\"tick\",\"S0\":1}",
	}, "\n")

	var got []float64
	err := Consume(context.Background(), strings.NewReader(body), func(m models.MTickMessage) {
		got = append(got, m.S0)
	})
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if len(got) != 2 || got[0] != 60012 || got[1] != 59990 {
		t.Fatalf("unexpected ticks %v", got)
	}
}

type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, "data: {\"type\":\"tick\",\"S0\":5}\n\n"), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestConsumeStopsOnTransportError(t *testing.T) {
	count := 0
	err := Consume(context.Background(), &failingReader{}, func(models.MTickMessage) { count++ })
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected read error, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the tick before the failure, got %d", count)
	}
}

// -----------------------------------------------------------------------------

func TestWSTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverDone := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			serverDone <- err
			return
		}
		tr := NewWSTransport(conn, time.Second)
		if err := tr.SendTick(models.MTickMessage{Type: "tick", S0: 42}); err != nil {
			serverDone <- err
			return
		}
		if err := tr.SendHeartbeat(); err != nil {
			serverDone <- err
			return
		}
		serverDone <- tr.Close()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		pinged <- struct{}{}
		return nil
	})

	var msg models.MTickMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if msg.Type != "tick" || msg.S0 != 42 {
		t.Fatalf("unexpected message %+v", msg)
	}
	// the next read processes the ping and then sees the close frame
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
	select {
	case <-pinged:
	default:
		t.Fatalf("heartbeat ping not received")
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server side failed: %v", err)
	}
}
