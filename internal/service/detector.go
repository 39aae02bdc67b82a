package service

import (
	"github.com/shopspring/decimal"

	"yieldhub/internal/models"
	"yieldhub/internal/normalize"
)

// ChangeDetector decides whether an incoming record differs enough from the
// stored row to justify a write. Only the tracked numeric fields drive the
// decision: sub-epsilon drift is provider rounding noise, and opaque payload
// churn alone is not an economically meaningful change.
type ChangeDetector struct {
	// APYEpsilon is in percentage points; TVLEpsilon in USD. A delta must be
	// strictly greater than the epsilon to count.
	APYEpsilon decimal.Decimal
	TVLEpsilon decimal.Decimal
}

func NewChangeDetector(apyEpsilon, tvlEpsilonUSD float64) ChangeDetector {
	return ChangeDetector{
		APYEpsilon: decimal.NewFromFloat(apyEpsilon),
		TVLEpsilon: decimal.NewFromFloat(tvlEpsilonUSD),
	}
}

func DefaultChangeDetector() ChangeDetector {
	return NewChangeDetector(0.001, 1000)
}

func (d ChangeDetector) Compare(existing *models.Pool, incoming normalize.CanonicalPool) bool {
	if existing == nil {
		return true
	}
	if incoming.APY.Sub(existing.APY).Abs().GreaterThan(d.APYEpsilon) {
		return true
	}
	if incoming.TVLUSD.Sub(existing.TVLUSD).Abs().GreaterThan(d.TVLEpsilon) {
		return true
	}
	return false
}
