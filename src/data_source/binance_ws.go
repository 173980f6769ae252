package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/models"
	"option-guide/src/trace"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

const (
	wsReadTimeout = 30 * time.Second
	wsPingEvery   = 15 * time.Second
	wsMaxBackoff  = 30 * time.Second
)

// BinanceWSSource follows the public trade stream of one symbol and emits
// at most one quote per MinEmit.
type BinanceWSSource struct {
	Symbol    string
	StreamURL string
	MinEmit   time.Duration
	Gate      *MarketGate
	Logger    *logger.Logger
	dialer    websocket.Dialer
}

// -----------------------------------------------------------------------------

func NewBinanceWSSource(cfg models.MDataSourceConfig, gate *MarketGate, l *logger.Logger) *BinanceWSSource {
	if l == nil {
		l = logger.Nop()
	}
	return &BinanceWSSource{
		Symbol:    strings.ToUpper(cfg.Symbol),
		StreamURL: strings.TrimSuffix(cfg.StreamURL, "/"),
		MinEmit:   time.Second,
		Gate:      gate,
		Logger:    l,
		dialer:    websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (s *BinanceWSSource) Name() string {
	return ProviderBinanceWS
}

func (s *BinanceWSSource) url() string {
	return fmt.Sprintf("%s/stream?streams=%s@trade", s.StreamURL, strings.ToLower(s.Symbol))
}

// -----------------------------------------------------------------------------

// FetchLatest connects, waits for one trade and disconnects.
func (s *BinanceWSSource) FetchLatest(ctx context.Context) (models.MQuote, error) {
	ctx, span := trace.StartSpan(ctx, "binance.trade_stream", attribute.String("symbol", s.Symbol))
	defer span.End()

	conn, _, err := s.dialer.DialContext(ctx, s.url(), nil)
	if err != nil {
		trace.RecordError(span, err)
		return models.MQuote{}, helpers.NewNetworkError("dial trade stream", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(wsReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			trace.RecordError(span, err)
			return models.MQuote{}, helpers.NewDataSourceError("read trade stream", err)
		}
		if q, err := parseTrade(message); err == nil {
			return q, nil
		}
	}
}

func parseTrade(message []byte) (models.MQuote, error) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return models.MQuote{}, helpers.NewDataSourceError("decode trade", err)
	}
	price, err := parsePrice(env.Data.Price)
	if err != nil {
		return models.MQuote{}, err
	}
	observed := time.Now()
	if env.Data.TradeTime > 0 {
		observed = time.UnixMilli(env.Data.TradeTime)
	}
	return models.MQuote{Source: ProviderBinanceWS, Price: price, ObservedAt: observed}, nil
}

// -----------------------------------------------------------------------------

// Start streams until ctx is done, reconnecting with capped backoff.
func (s *BinanceWSSource) Start(ctx context.Context, out chan<- models.MQuote, wg *sync.WaitGroup) error {
	go func() {
		defer wg.Done()
		s.run(ctx, out)
	}()
	return nil
}

func (s *BinanceWSSource) run(ctx context.Context, out chan<- models.MQuote) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.consume(ctx, out)
		if ctx.Err() != nil {
			s.Logger.Info("Binance trade stream stopped")
			return
		}
		metrics.UpstreamFetchesTotal.WithLabelValues(ProviderBinanceWS, "error").Inc()
		s.Logger.Warning("Binance trade stream disconnected, retrying in %s: %v", backoff, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = time.Duration(math.Min(float64(wsMaxBackoff), float64(backoff)*1.8))
	}
}

func (s *BinanceWSSource) consume(ctx context.Context, out chan<- models.MQuote) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.Logger.Info("Connected to Binance trade stream for %s", s.Symbol)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-pingCtx.Done():
				// unblock ReadMessage on shutdown
				_ = conn.Close()
				return
			}
		}
	}()

	var lastEmit time.Time
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		q, err := parseTrade(message)
		if err != nil {
			s.Logger.Debug("Ignoring trade message: %v", err)
			continue
		}
		if time.Since(lastEmit) < s.MinEmit || !s.Gate.IsOpen(q.ObservedAt) {
			continue
		}
		lastEmit = time.Now()
		metrics.UpstreamFetchesTotal.WithLabelValues(ProviderBinanceWS, "ok").Inc()

		select {
		case out <- q:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
