package pricing

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const unicodeMinus = "−"

// CurrencyParser turns decorated PnL strings ("+1,200 元", "−500") into
// numbers. The glyph set is owned by the content format, so it is injected.
type CurrencyParser struct {
	replacer *strings.Replacer
}

// NewCurrencyParser builds a parser stripping every entry of glyphs.
func NewCurrencyParser(glyphs []string) *CurrencyParser {
	pairs := make([]string, 0, len(glyphs)*2+2)
	// minus normalisation must win over a glyph list that happens to contain it
	pairs = append(pairs, unicodeMinus, "-")
	for _, g := range glyphs {
		if g == "" || g == unicodeMinus {
			continue
		}
		pairs = append(pairs, g, "")
	}
	return &CurrencyParser{replacer: strings.NewReplacer(pairs...)}
}

// Parse reports the numeric value of s and whether it is usable.
func (p *CurrencyParser) Parse(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, p.replacer.Replace(s))
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	v, _ := d.Float64()
	if !finite(v) {
		return 0, false
	}
	return v, true
}
