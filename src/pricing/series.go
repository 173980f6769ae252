package pricing

import (
	"option-guide/src/models"
)

// SeriesBuilder resolves a payoff table into plot coordinates.
type SeriesBuilder struct {
	currency *CurrencyParser
}

func NewSeriesBuilder(currency *CurrencyParser) *SeriesBuilder {
	return &SeriesBuilder{currency: currency}
}

// -----------------------------------------------------------------------------

// Build keeps row order. Rows whose PnL does not parse to a finite number
// are left out of both coordinate slices and counted in excluded.
func (b *SeriesBuilder) Build(rows []models.MPayoffRow, ref float64) (series models.MSeries, excluded int) {
	series.Xs = make([]float64, 0, len(rows))
	series.Ys = make([]float64, 0, len(rows))

	for _, row := range rows {
		y, ok := b.currency.Parse(row.PnL)
		if !ok {
			excluded++
			continue
		}
		series.Xs = append(series.Xs, Resolve(row.S, ref))
		series.Ys = append(series.Ys, y)
	}
	return series, excluded
}

// -----------------------------------------------------------------------------

// BuildStrategies builds one MStrategySeries per strategy of a tab.
func (b *SeriesBuilder) BuildStrategies(strategies []models.MStrategy, ref float64) []models.MStrategySeries {
	out := make([]models.MStrategySeries, 0, len(strategies))
	for i, s := range strategies {
		series, excluded := b.Build(s.PnLTable.Rows, ref)
		out = append(out, models.MStrategySeries{
			Index:    i,
			Name:     s.Name,
			S0:       ref,
			Series:   series,
			Excluded: excluded,
		})
	}
	return out
}
