package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Expression patterns
// -----------------------------------------------------------------------------

// ExprKind tags which price-position pattern an expression matched.
// Patterns are tried in declaration order.
type ExprKind int

const (
	ExprFactor    ExprKind = iota // S0 x 0.8, S0×1.2, s0*2
	ExprReference                 // S0
	ExprLiteral                   // 1000, -2.5
	ExprFallback                  // anything else
)

func (k ExprKind) String() string {
	switch k {
	case ExprFactor:
		return "factor"
	case ExprReference:
		return "reference"
	case ExprLiteral:
		return "literal"
	default:
		return "fallback"
	}
}

var (
	factorPattern  = regexp.MustCompile(`(?i)^S0\s*[x×*]\s*([0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)
	literalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)
)

// Expr is a classified price expression.
type Expr struct {
	Kind  ExprKind
	Value float64 // factor for ExprFactor, number for ExprLiteral
}

// Classify assigns expr to exactly one pattern. It never fails.
func Classify(expr string) Expr {
	s := strings.TrimSpace(expr)

	if m := factorPattern.FindStringSubmatch(s); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return Expr{Kind: ExprFactor, Value: f}
		}
	}
	if strings.EqualFold(s, "S0") {
		return Expr{Kind: ExprReference}
	}
	if literalPattern.MatchString(s) {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return Expr{Kind: ExprLiteral, Value: n}
		}
	}
	return Expr{Kind: ExprFallback}
}

// -----------------------------------------------------------------------------

// Eval resolves the classified expression against ref.
func (e Expr) Eval(ref float64) float64 {
	switch e.Kind {
	case ExprFactor:
		if !finite(ref) {
			return ref
		}
		v, _ := decimal.NewFromFloat(ref).Mul(decimal.NewFromFloat(e.Value)).Round(2).Float64()
		return v
	case ExprReference:
		return round2(ref)
	case ExprLiteral:
		return e.Value
	default:
		return ref
	}
}

// -----------------------------------------------------------------------------

// Resolve maps a symbolic price position to a number using ref as S0.
// Factor and bare-reference results are rounded to two decimals; literals
// are returned as written; anything unrecognised resolves to ref.
func Resolve(expr string, ref float64) float64 {
	return Classify(expr).Eval(ref)
}

// -----------------------------------------------------------------------------

func round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
