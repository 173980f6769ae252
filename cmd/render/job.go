package main

import (
	"math"

	"option-guide/src/chart"
	"option-guide/src/content"
	"option-guide/src/helpers"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/pricing"
)

type renderJob struct {
	ContentPath string
	TabID       string
	S0          float64
	OutDir      string
	Format      chart.Format
}

// run renders every strategy of the selected tabs and returns the written files.
func (j renderJob) run(cfg *models.MConfig, l *logger.Logger) ([]string, error) {
	if j.S0 < 0 || math.IsNaN(j.S0) || math.IsInf(j.S0, 0) {
		return nil, helpers.NewValidationError("invalid reference price %v", j.S0)
	}
	doc, err := content.NewFileProvider(j.ContentPath, l.Named("Content")).Load()
	if err != nil {
		return nil, err
	}

	tabs := doc.Tabs
	if j.TabID != "" {
		tab, err := content.FindTab(doc, j.TabID)
		if err != nil {
			return nil, err
		}
		tabs = []models.MTab{*tab}
	}

	builder := pricing.NewSeriesBuilder(pricing.NewCurrencyParser(cfg.Pricing.CurrencyGlyphs))
	renderer := chart.NewRenderer(cfg.Chart)
	var written []string
	for _, tab := range tabs {
		series := builder.BuildStrategies(tab.Strategies, j.S0)
		for _, s := range series {
			if s.Excluded > 0 {
				l.Warning("%s/%s: %d rows without a numeric PnL were skipped", tab.ID, s.Name, s.Excluded)
			}
		}
		paths, err := renderer.ExportTab(j.OutDir, tab.ID, series, j.Format)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}
	l.Info("Rendered %d charts at S0=%.0f into %s", len(written), j.S0, j.OutDir)
	return written, nil
}
