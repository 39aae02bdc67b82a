package normalize

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/defillama"
)

// FromDefiLlama maps one DefiLlama pool to the canonical shape.
// Risk heuristic: stablecoin pairs are low risk; an explicit impermanent-loss
// flag is high; everything else is medium.
func FromDefiLlama(p defillama.Pool) CanonicalPool {
	risk := RiskMedium
	switch {
	case p.StableCoin:
		risk = RiskLow
	case p.ILRisk == "yes":
		risk = RiskHigh
	}
	raw, _ := json.Marshal(p)
	return CanonicalPool{
		Provider:   "defillama",
		ExternalID: p.Pool,
		Platform:   p.Project,
		Chain:      p.Chain,
		TokenPair:  p.Symbol,
		APY:        decimal.NewFromFloat(p.APY),
		TVLUSD:     decimal.NewFromFloat(p.TVLUsd),
		RiskLevel:  risk,
		Raw:        raw,
	}
}

// RejectDefiLlama applies gates plus the provider's own outlier flag.
func RejectDefiLlama(p defillama.Pool, g Gates) (string, bool) {
	if p.Outlier {
		return "flagged outlier by provider", true
	}
	return g.Reject(FromDefiLlama(p))
}
