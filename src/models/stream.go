package models

import "time"

// MTickMessage is the only payload shape carried on the push stream.
type MTickMessage struct {
	Type string  `json:"type"` // always "tick"
	S0   float64 `json:"S0"`
}

// MQuote is one observation of the reference price.
type MQuote struct {
	Source     string    `json:"source"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// MSeries holds plot coordinates in row order.
type MSeries struct {
	Xs []float64 `json:"xs"`
	Ys []float64 `json:"ys"`
}

// MStrikeHints mirrors the teaching page's rule-of-thumb strikes for a spot.
type MStrikeHints struct {
	Spot        float64  `json:"spot"`
	CallStrike  float64  `json:"call_strike"`
	PutStrike   float64  `json:"put_strike"`
	CallPremium float64  `json:"call_premium"`
	PutPremium  float64  `json:"put_premium"`
	SpreadOdds  *float64 `json:"spread_odds,omitempty"`
}

// MStrategySeries is the per-strategy payload of /api/series.
type MStrategySeries struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	S0     float64 `json:"S0"`
	Series MSeries `json:"series"`
	// Excluded counts rows whose PnL could not be parsed.
	Excluded int `json:"excluded"`
}
