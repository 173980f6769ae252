package pricing

import (
	"math"

	"option-guide/src/models"

	"github.com/shopspring/decimal"
)

// StrikeHints derives the rule-of-thumb strikes shown next to each strategy:
// the call strike rounds the spot up to step, the put strike rounds it
// down, each premium is rate times its strike. SpreadOdds is only set when
// the premium difference is non-zero.
func StrikeHints(spot, step, rate float64) models.MStrikeHints {
	hints := models.MStrikeHints{Spot: spot}
	if !finite(spot) || step <= 0 {
		return hints
	}

	whole := math.Floor(spot)
	hints.CallStrike = math.Ceil(whole/step) * step
	hints.PutStrike = math.Floor(whole/step) * step

	r := decimal.NewFromFloat(rate)
	callPrem := decimal.NewFromFloat(hints.CallStrike).Mul(r).Round(2)
	putPrem := decimal.NewFromFloat(hints.PutStrike).Mul(r).Round(2)
	hints.CallPremium, _ = callPrem.Float64()
	hints.PutPremium, _ = putPrem.Float64()

	denom := callPrem.Sub(putPrem)
	if !denom.IsZero() {
		odds, _ := decimal.NewFromFloat(hints.CallStrike - hints.PutStrike).Div(denom).Round(2).Float64()
		hints.SpreadOdds = &odds
	}
	return hints
}
