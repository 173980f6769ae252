package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/metrics"
	"option-guide/src/models"
	"option-guide/src/pricing"
)

// cleanupEvery throttles journal retention purges.
const cleanupEvery = time.Minute

// NewQuoteSource builds the upstream source named by cfg.Provider.
func NewQuoteSource(cfg models.MDataSourceConfig, netMgr interfaces.INetworkManager, l *logger.Logger) (interfaces.IQuoteSource, error) {
	gate := NewMarketGate(cfg.Calendar, l)
	switch cfg.Provider {
	case ProviderBinanceREST, "":
		return NewBinanceRESTSource(cfg, netMgr, gate, l), nil
	case ProviderBinanceWS:
		return NewBinanceWSSource(cfg, gate, l), nil
	default:
		return nil, fmt.Errorf("unknown data source provider '%s'", cfg.Provider)
	}
}

// -----------------------------------------------------------------------------

// MultiSourceManager runs the upstream sources and applies every quote they
// emit to the shared reference price and the journal.
type MultiSourceManager struct {
	Sources   map[string]interfaces.IQuoteSource
	Reference *pricing.ReferencePrice
	Database  interfaces.IDatabase // optional
	Retention time.Duration
	Logger    *logger.Logger

	mu          sync.RWMutex
	ctx         context.Context
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup
	lastCleanup time.Time
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IQuoteSource, ref *pricing.ReferencePrice, db interfaces.IDatabase, retention time.Duration, log *logger.Logger) *MultiSourceManager {
	if log == nil {
		log = logger.Nop()
	}
	m := &MultiSourceManager{
		Sources:   make(map[string]interfaces.IQuoteSource),
		Reference: ref,
		Database:  db,
		Retention: retention,
		Logger:    log,
	}
	for _, s := range sources {
		m.Sources[s.Name()] = s
	}
	return m
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IQuoteSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// SourceNames lists configured sources.
func (m *MultiSourceManager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	return names
}

// -----------------------------------------------------------------------------

// Seed restores the last journaled quote, if any, into the reference price.
func (m *MultiSourceManager) Seed() error {
	if m.Database == nil {
		return nil
	}
	q, ok, err := m.Database.LatestQuote()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	q.Source = pricing.SourceJournal
	if err := m.Reference.Observe(q); err != nil {
		return err
	}
	metrics.ReferencePrice.Set(q.Price)
	m.Logger.Info("Reference price seeded from journal: %.2f (observed %s)", q.Price, q.ObservedAt.Format(time.RFC3339))
	return nil
}

// -----------------------------------------------------------------------------

// Start starts all sources and the consumer of their quotes.
func (m *MultiSourceManager) Start(parentCtx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel

	out := make(chan models.MQuote, 16)
	var sources sync.WaitGroup
	for _, src := range m.Sources {
		sources.Add(1)
		if err := src.Start(ctx, out, &sources); err != nil {
			m.Logger.Error("Failed to start source %s: %v", src.Name(), err)
			cancel()
			m.ctx = nil
			return err
		}
		m.Logger.Info("Started source: %s", src.Name())
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.consume(out)
	}()
	go func() {
		sources.Wait()
		close(out)
	}()
	return nil
}

// Stop cancels all sources and waits for the consumer to drain.
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	if m.ctx == nil {
		m.mu.Unlock()
		return nil // Already stopped
	}
	m.Logger.Info("Stopping MultiSourceManager...")
	m.cancelFunc()
	m.cancelFunc = nil
	m.ctx = nil
	m.mu.Unlock()

	m.wg.Wait()
	m.Logger.Info("MultiSourceManager Stopped.")
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) consume(in <-chan models.MQuote) {
	for q := range in {
		if err := m.Apply(q); err != nil {
			m.Logger.Warning("Discarding quote from %s: %v", q.Source, err)
		}
	}
}

// Apply makes q the current reference price and journals it.
func (m *MultiSourceManager) Apply(q models.MQuote) error {
	if err := m.Reference.Observe(q); err != nil {
		return err
	}
	metrics.ReferencePrice.Set(q.Price)
	m.journal(q)
	return nil
}

// SetManual overrides the reference price (control plane).
func (m *MultiSourceManager) SetManual(price float64) (models.MQuote, error) {
	q, err := m.Reference.Set(price, pricing.SourceManual)
	if err != nil {
		return models.MQuote{}, err
	}
	metrics.ReferencePrice.Set(q.Price)
	m.journal(q)
	return q, nil
}

// journal is best effort; storage trouble never blocks price updates.
func (m *MultiSourceManager) journal(q models.MQuote) {
	if m.Database == nil {
		return
	}
	if err := m.Database.SaveQuote(q); err != nil {
		m.Logger.Error("Failed to journal quote: %v", err)
		return
	}

	if m.Retention <= 0 {
		return
	}
	m.mu.Lock()
	due := time.Since(m.lastCleanup) >= cleanupEvery
	if due {
		m.lastCleanup = time.Now()
	}
	m.mu.Unlock()
	if due {
		if err := m.Database.CleanupOldData(m.Retention); err != nil {
			m.Logger.Error("Failed to purge old quotes: %v", err)
		}
	}
}
