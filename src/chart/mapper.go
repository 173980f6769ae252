package chart

import (
	"option-guide/src/models"
)

// Mapper converts data coordinates to canvas pixels. The Y axis is
// inverted so larger values sit higher on screen.
type Mapper struct {
	Padding                float64
	InnerWidth             float64
	InnerHeight            float64
	XMin, XMax, YMin, YMax float64
}

// NewMapper fits the series bounds into a width x height canvas.
func NewMapper(series models.MSeries, width, height, padding int) Mapper {
	m := Mapper{
		Padding:     float64(padding),
		InnerWidth:  float64(width - 2*padding),
		InnerHeight: float64(height - 2*padding),
	}
	m.XMin, m.XMax = bounds(series.Xs)
	m.YMin, m.YMax = bounds(series.Ys)
	return m
}

// -----------------------------------------------------------------------------

func (m Mapper) PixelX(x float64) float64 {
	return m.Padding + (x-m.XMin)/span(m.XMin, m.XMax)*m.InnerWidth
}

func (m Mapper) PixelY(y float64) float64 {
	return m.Padding + m.InnerHeight - (y-m.YMin)/span(m.YMin, m.YMax)*m.InnerHeight
}

// ShowsZeroLine reports whether the PnL range straddles zero.
func (m Mapper) ShowsZeroLine() bool {
	return m.YMin < 0 && 0 < m.YMax
}

// -----------------------------------------------------------------------------

// span is max-min, or 1 when the range is flat.
func span(min, max float64) float64 {
	if d := max - min; d != 0 {
		return d
	}
	return 1
}

func bounds(vs []float64) (min, max float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	min, max = vs[0], vs[0]
	for _, v := range vs[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
