package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// -----------------------------------------------------------------------------
// Content document served by the content provider
// -----------------------------------------------------------------------------

type MTeachingData struct {
	Meta MContentMeta `json:"meta"`
	Tabs []MTab       `json:"tabs"`
}

type MContentMeta struct {
	Title          string `json:"title,omitempty"`
	Subtitle       string `json:"subtitle,omitempty"`
	SpotAssumption string `json:"spot_assumption,omitempty"`
}

type MTab struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Icon       string      `json:"icon"`
	Strategies []MStrategy `json:"strategies"`
}

type MStrategy struct {
	Name            string    `json:"name"`
	Summary         string    `json:"summary"`
	LegsRule        string    `json:"legs_rule"`
	PremiumBehavior []string  `json:"premium_behavior"`
	Payoff          MPayoff   `json:"payoff"`
	Risks           []string  `json:"risks"`
	PnLTable        MPnLTable `json:"pnl_table"`
}

type MPayoff struct {
	MaxProfit string `json:"max_profit"`
	MaxLoss   string `json:"max_loss"`
	Breakeven string `json:"breakeven,omitempty"`
}

type MPnLTable struct {
	S0Reference string        `json:"S0_reference"`
	Rows        []MPayoffRow `json:"rows"`
}

// MPayoffRow is one (price position, PnL) pair. Both fields accept a JSON
// string or a JSON number.
type MPayoffRow struct {
	S   string `json:"S"`
	PnL string `json:"PnL"`
}

func (r *MPayoffRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		S   json.RawMessage `json:"S"`
		PnL json.RawMessage `json:"PnL"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, err := scalarString(raw.S)
	if err != nil {
		return fmt.Errorf("row S: %w", err)
	}
	pnl, err := scalarString(raw.PnL)
	if err != nil {
		return fmt.Errorf("row PnL: %w", err)
	}
	r.S = s
	r.PnL = pnl
	return nil
}

// scalarString accepts a JSON string or number and returns its text form.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("missing value")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", string(raw))
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", err
	}
	return n.String(), nil
}
