package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"option-guide/src/content"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/pricing"
	"option-guide/src/stream"

	"github.com/gorilla/websocket"
)

const testDoc = `{
  "meta": {"title": "t"},
  "tabs": [
    {"id": "basic", "name": "Basic", "icon": "x", "strategies": [
      {"name": "Long Call", "pnl_table": {"S0_reference": "60,000", "rows": [
        {"S": "S0×0.8", "PnL": "-￥1,525"},
        {"S": "S0", "PnL": "+975"},
        {"S": "S0×1.2", "PnL": "n/a"}
      ]}}
    ]}
  ]
}`

type fakeContent struct {
	mu  sync.Mutex
	doc *models.MTeachingData
	err error
}

func (f *fakeContent) Load() (*models.MTeachingData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc, f.err
}

func (f *fakeContent) Reload() (*models.MTeachingData, error) { return f.Load() }

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "option-guide",
		Host:     "127.0.0.1",
		Port:     8000,
		LogLevel: "ERROR",
		Stream: models.MStreamConfig{
			TickIntervalMs:      20,
			HeartbeatIntervalMs: 1000,
			PriceSource:         "synthetic",
			StartPrice:          60000,
			MaxDelta:            200,
			FloorPrice:          100,
			WriteTimeoutMs:      1000,
		},
		Pricing: models.MPricingConfig{
			CurrencyGlyphs: []string{",", "+", "￥", "¥", "$", "元", "€", "£"},
			StrikeStep:     1000,
			PremiumRate:    0.025,
		},
		Chart: models.MChartConfig{
			Width: 480, Height: 200, Padding: 40, TickStep: 5000,
			XCaption: "price", YCaption: "pnl",
			LineColor: "69b1ff", AxisColor: "1f2430", ZeroColor: "3a3a3a", LabelColor: "cfd3dc", Background: "12151c",
		},
	}
}

func newTestServer(t *testing.T) (*Server, *fakeContent) {
	t.Helper()
	doc, err := content.Parse([]byte(testDoc))
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeContent{doc: doc}
	s := NewServer(testConfig(), fc, pricing.NewReferencePrice(60123.45), logger.Nop())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, fc
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// -----------------------------------------------------------------------------

func TestTeachingServesDocument(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/teaching")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing no-store header")
	}
	var doc models.MTeachingData
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Tabs) != 1 || doc.Tabs[0].ID != "basic" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestTeachingMalformedContentIsEmptyState(t *testing.T) {
	s, fc := newTestServer(t)
	fc.doc, fc.err = nil, errors.New("content is not valid JSON")

	rec := get(t, s, "/api/teaching")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"meta":{},"tabs":[]}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing no-store header")
	}
}

func TestSeries(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/series/basic?s0=60000")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Tab        string                   `json:"tab"`
		S0         float64                  `json:"S0"`
		Strategies []models.MStrategySeries `json:"strategies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Tab != "basic" || body.S0 != 60000 || len(body.Strategies) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	st := body.Strategies[0]
	if len(st.Series.Xs) != 2 || st.Series.Xs[0] != 48000 || st.Series.Xs[1] != 60000 {
		t.Fatalf("unexpected xs %v", st.Series.Xs)
	}
	if st.Series.Ys[0] != -1525 || st.Series.Ys[1] != 975 || st.Excluded != 1 {
		t.Fatalf("unexpected ys %v excluded %d", st.Series.Ys, st.Excluded)
	}
}

func TestSeriesDefaultsToReferencePrice(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/series/basic")
	if !strings.Contains(rec.Body.String(), `"S0":60123.45`) {
		t.Fatalf("expected shared reference price, got %s", rec.Body.String())
	}
}

func TestSeriesErrors(t *testing.T) {
	s, fc := newTestServer(t)
	if rec := get(t, s, "/api/series/basic?s0=abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad s0: status = %d", rec.Code)
	}
	if rec := get(t, s, "/api/series/basic?s0=-5"); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative s0: status = %d", rec.Code)
	}
	if rec := get(t, s, "/api/series/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown tab: status = %d", rec.Code)
	}
	fc.err = errors.New("gone")
	if rec := get(t, s, "/api/series/basic"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("missing content: status = %d", rec.Code)
	}
}

// -----------------------------------------------------------------------------

func TestChartPNGAndSVG(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/chart/basic/0.png?s0=60000")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("png: status %d type %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("png body lacks signature")
	}

	rec = get(t, s, "/api/chart/basic/0.svg")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("svg: status %d type %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<svg") {
		t.Fatal("svg body lacks <svg")
	}
}

func TestChartErrors(t *testing.T) {
	s, _ := newTestServer(t)
	cases := map[string]int{
		"/api/chart/basic/0.gif": http.StatusBadRequest,
		"/api/chart/basic/x.png": http.StatusBadRequest,
		"/api/chart/basic/0":     http.StatusBadRequest,
		"/api/chart/basic/3.png": http.StatusNotFound,
		"/api/chart/none/0.png":  http.StatusNotFound,
	}
	for target, want := range cases {
		if rec := get(t, s, target); rec.Code != want {
			t.Errorf("%s: status %d, want %d", target, rec.Code, want)
		}
	}
}

func TestParseChartFile(t *testing.T) {
	idx, format, err := parseChartFile("12.SVG")
	if err != nil || idx != 12 || format != "svg" {
		t.Fatalf("unexpected parse %d %s %v", idx, format, err)
	}
	if _, _, err := parseChartFile("-1.png"); err == nil {
		t.Fatal("negative index should fail")
	}
}

// -----------------------------------------------------------------------------

func TestQuote(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/quote")
	var body struct {
		Quote   models.MQuote        `json:"quote"`
		Strikes models.MStrikeHints `json:"strikes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Quote.Price != 60123.45 || body.Quote.Source != pricing.SourceSeed {
		t.Fatalf("unexpected quote %+v", body.Quote)
	}
	if body.Strikes.CallStrike != 61000 || body.Strikes.PutStrike != 60000 {
		t.Fatalf("unexpected strikes %+v", body.Strikes)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/api/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"content_ok":true`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, s, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "option_guide_reference_price") {
		t.Fatalf("metrics endpoint missing gauges: %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stream", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight %d %v", rec.Code, rec.Header())
	}
}

// -----------------------------------------------------------------------------

func TestSSERoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ticks []float64
	err := stream.Subscribe(ctx, srv.Client(), srv.URL+"/api/stream", func(m models.MTickMessage) {
		ticks = append(ticks, m.S0)
		if len(ticks) == 3 {
			cancel()
		}
	})
	// after cancel the read error is transport specific
	if err != nil && ctx.Err() == nil {
		t.Fatalf("Subscribe returned %v", err)
	}
	if len(ticks) < 3 {
		t.Fatalf("expected 3 ticks, got %v", ticks)
	}
	for _, v := range ticks {
		if v != math.Round(v) || v < 100 || math.Abs(v-60000) > 1000 {
			t.Fatalf("tick %v outside the synthetic walk", v)
		}
	}
	waitFor(t, "session teardown", func() bool { return s.ActiveSessions() == 0 })
}

func TestSSEHeaders(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	h := resp.Header
	if h.Get("Content-Type") != "text/event-stream; charset=utf-8" ||
		h.Get("Cache-Control") != "no-cache, no-transform" ||
		h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected headers %v", h)
	}
}

func TestShutdownEndsStreams(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	got := make(chan struct{}, 1)
	result := make(chan error, 1)
	go func() {
		result <- stream.Subscribe(context.Background(), srv.Client(), srv.URL+"/api/stream", func(models.MTickMessage) {
			select {
			case got <- struct{}{}:
			default:
			}
		})
	}()

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("no tick before shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned %v", err)
	}

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("stream should end cleanly on shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
	if s.ActiveSessions() != 0 {
		t.Fatalf("sessions left: %d", s.ActiveSessions())
	}
}

func TestUpstreamPriceSource(t *testing.T) {
	s, _ := newTestServer(t)
	s.Config.Stream.PriceSource = "upstream"
	if _, err := s.Reference.Set(61000, pricing.SourceManual); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var first float64
	_ = stream.Subscribe(ctx, srv.Client(), srv.URL+"/api/stream", func(m models.MTickMessage) {
		first = m.S0
		cancel()
	})
	if first != 61000 {
		t.Fatalf("expected the shared reference price, got %v", first)
	}
}

// -----------------------------------------------------------------------------

func TestWebSocketStream(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg models.MTickMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if msg.Type != "tick" || msg.S0 <= 0 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if s.ActiveSessions() != 1 {
		t.Fatalf("expected one active session, got %d", s.ActiveSessions())
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitFor(t, "websocket session teardown", func() bool { return s.ActiveSessions() == 0 })
}

func TestStreamsRefusedDuringShutdown(t *testing.T) {
	s, _ := newTestServer(t)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned %v", err)
	}

	rec := get(t, s, "/api/stream")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after shutdown, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("refused stream must not send event-stream headers")
	}
	if rec := get(t, s, "/ws"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for websocket after shutdown, got %d", rec.Code)
	}

	sess := s.newSession(stream.NewSSETransport(httptest.NewRecorder(), time.Second), "sse")
	if s.register(sess) {
		t.Fatalf("register should refuse sessions once shutdown began")
	}
	if s.ActiveSessions() != 0 {
		t.Fatalf("refused session was tracked")
	}
}
