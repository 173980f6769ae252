package main

import (
	"context"
	"os"

	"option-guide/src/chart"
	"option-guide/src/content"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/pricing"
)

// -----------------------------------------------------------------------------

// loadDocument reads the teaching document from path, or from the server
// when no path is given.
func loadDocument(ctx context.Context, path, teachingURL string, netMgr interfaces.INetworkManager) (*models.MTeachingData, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return content.Parse(data)
	}
	data, err := netMgr.Get(ctx, teachingURL, nil)
	if err != nil {
		return nil, err
	}
	return content.Parse(data)
}

// -----------------------------------------------------------------------------

// viewer redraws every strategy chart whenever the streamed price moves.
type viewer struct {
	doc      *models.MTeachingData
	ref      *pricing.ReferencePrice
	builder  *pricing.SeriesBuilder
	renderer *chart.Renderer
	outDir   string
	format   chart.Format
	logger   *logger.Logger

	renders int
}

func newViewer(cfg *models.MConfig, doc *models.MTeachingData, outDir string, format chart.Format, l *logger.Logger) *viewer {
	return &viewer{
		doc:      doc,
		ref:      pricing.NewReferencePrice(cfg.Stream.StartPrice),
		builder:  pricing.NewSeriesBuilder(pricing.NewCurrencyParser(cfg.Pricing.CurrencyGlyphs)),
		renderer: chart.NewRenderer(cfg.Chart),
		outDir:   outDir,
		format:   format,
		logger:   l,
	}
}

// onTick is called from the stream consumer; ticks arrive one at a time.
func (v *viewer) onTick(msg models.MTickMessage) {
	if v.renders > 0 && msg.S0 == v.ref.Value() {
		return
	}
	if _, err := v.ref.Set(msg.S0, pricing.SourceUpstream); err != nil {
		v.logger.Warning("Ignoring tick: %v", err)
		return
	}
	v.render()
}

func (v *viewer) render() {
	s0 := v.ref.Value()
	written := 0
	for _, tab := range v.doc.Tabs {
		series := v.builder.BuildStrategies(tab.Strategies, s0)
		paths, err := v.renderer.ExportTab(v.outDir, tab.ID, series, v.format)
		written += len(paths)
		if err != nil {
			v.logger.Error("Failed to render tab %s: %v", tab.ID, err)
		}
	}
	v.renders++
	v.logger.Debug("Rendered %d charts at S0=%.0f", written, s0)
}
