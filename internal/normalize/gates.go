package normalize

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Gates are the quality thresholds a record must clear before it reaches
// reconciliation. Rejections are skip reasons, not errors.
type Gates struct {
	MinTVLUSD decimal.Decimal
	MaxAPY    decimal.Decimal
}

func DefaultGates() Gates {
	return Gates{
		MinTVLUSD: decimal.NewFromInt(10_000),
		MaxAPY:    decimal.NewFromInt(1_000),
	}
}

// Reject returns a reason when the record fails a gate.
func (g Gates) Reject(p CanonicalPool) (string, bool) {
	if p.ExternalID == "" {
		return "missing external id", true
	}
	if p.TVLUSD.LessThan(g.MinTVLUSD) {
		return fmt.Sprintf("tvl %s below minimum %s", p.TVLUSD, g.MinTVLUSD), true
	}
	if p.APY.IsNegative() {
		return "negative apy", true
	}
	if !g.MaxAPY.IsZero() && p.APY.GreaterThan(g.MaxAPY) {
		return fmt.Sprintf("apy %s above maximum %s", p.APY, g.MaxAPY), true
	}
	return "", false
}
