package datasource

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"option-guide/src/helpers"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/models"
	"option-guide/src/trace"

	"go.opentelemetry.io/otel/attribute"
)

const (
	ProviderBinanceREST = "binance_rest"
	ProviderBinanceWS   = "binance_ws"

	tickerPricePath = "/api/v3/ticker/price"
)

// binanceTickerPrice is the body of GET /api/v3/ticker/price?symbol=...
type binanceTickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// BinanceRESTSource polls the public ticker price endpoint.
type BinanceRESTSource struct {
	Symbol   string
	BaseURL  string
	Interval time.Duration
	Network  interfaces.INetworkManager
	Gate     *MarketGate
	Logger   *logger.Logger
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewBinanceRESTSource(cfg models.MDataSourceConfig, netMgr interfaces.INetworkManager, gate *MarketGate, l *logger.Logger) *BinanceRESTSource {
	if l == nil {
		l = logger.Nop()
	}
	return &BinanceRESTSource{
		Symbol:   strings.ToUpper(cfg.Symbol),
		BaseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		Interval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		Network:  netMgr,
		Gate:     gate,
		Logger:   l,
		now:      time.Now,
	}
}

func (s *BinanceRESTSource) Name() string {
	return ProviderBinanceREST
}

// -----------------------------------------------------------------------------

// FetchLatest performs one ticker request.
func (s *BinanceRESTSource) FetchLatest(ctx context.Context) (models.MQuote, error) {
	ctx, span := trace.StartSpan(ctx, "binance.ticker_price", attribute.String("symbol", s.Symbol))
	defer span.End()

	body, err := s.Network.Get(ctx, s.BaseURL+tickerPricePath, map[string]string{"symbol": s.Symbol})
	if err != nil {
		trace.RecordError(span, err)
		return models.MQuote{}, helpers.NewDataSourceError("fetch ticker price", err)
	}

	q, err := parseTickerPrice(body, s.Symbol)
	if err != nil {
		trace.RecordError(span, err)
		return models.MQuote{}, err
	}
	q.ObservedAt = s.now()
	span.SetAttributes(attribute.Float64("price", q.Price))
	return q, nil
}

func parseTickerPrice(body []byte, symbol string) (models.MQuote, error) {
	var payload binanceTickerPrice
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.MQuote{}, helpers.NewDataSourceError("decode ticker price", err)
	}
	if payload.Symbol != "" && !strings.EqualFold(payload.Symbol, symbol) {
		return models.MQuote{}, helpers.NewDataSourceError("unexpected symbol "+payload.Symbol, nil)
	}
	price, err := parsePrice(payload.Price)
	if err != nil {
		return models.MQuote{}, err
	}
	return models.MQuote{Source: ProviderBinanceREST, Price: price}, nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, helpers.NewDataSourceError("invalid price '"+raw+"'", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, helpers.NewDataSourceError("invalid price '"+raw+"'", nil)
	}
	return price, nil
}

// -----------------------------------------------------------------------------

// Start polls immediately and then every Interval until ctx is done.
// The caller has already added this source to wg.
func (s *BinanceRESTSource) Start(ctx context.Context, out chan<- models.MQuote, wg *sync.WaitGroup) error {
	if s.Interval <= 0 {
		wg.Done()
		return helpers.NewValidationError("poll interval must be positive")
	}
	go s.runLoop(ctx, out, wg)
	return nil
}

func (s *BinanceRESTSource) runLoop(ctx context.Context, out chan<- models.MQuote, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("Polling %s every %s", s.Symbol, s.Interval)
	for {
		s.poll(ctx, out)
		select {
		case <-ctx.Done():
			s.Logger.Info("Binance REST source stopped")
			return
		case <-ticker.C:
		}
	}
}

// poll fetches once. Failures only log; the shared price keeps its value.
func (s *BinanceRESTSource) poll(ctx context.Context, out chan<- models.MQuote) {
	if !s.Gate.IsOpen(s.now()) {
		metrics.UpstreamFetchesTotal.WithLabelValues(ProviderBinanceREST, "skipped").Inc()
		s.Logger.Debug("Market %s closed, skipping poll", s.Gate.MIC)
		return
	}

	q, err := s.FetchLatest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.UpstreamFetchesTotal.WithLabelValues(ProviderBinanceREST, "error").Inc()
		s.Logger.Warning("Upstream price fetch failed: %v", err)
		return
	}
	metrics.UpstreamFetchesTotal.WithLabelValues(ProviderBinanceREST, "ok").Inc()

	select {
	case out <- q:
	case <-ctx.Done():
	}
}
