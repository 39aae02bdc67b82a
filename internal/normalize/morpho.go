package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/morpho"
)

// Morpho reports APY as a fraction; canonical pools use percent units.
var hundred = decimal.NewFromInt(100)

// FromMorphoVault maps one Morpho vault to the canonical shape. The vault
// address is the external identifier. Risk scales with net APY: lending
// vaults paying far above base rates carry proportionally more risk.
func FromMorphoVault(v morpho.Vault) CanonicalPool {
	netAPY := decimal.NewFromFloat(v.State.NetAPY).Mul(hundred)
	risk := RiskLow
	switch {
	case netAPY.GreaterThan(decimal.NewFromInt(15)):
		risk = RiskHigh
	case netAPY.GreaterThan(decimal.NewFromInt(5)):
		risk = RiskMedium
	}
	pair := v.Asset.Symbol
	if pair == "" {
		pair = v.Symbol
	}
	chain := v.Chain.Network
	if chain == "" {
		chain = chainName(v.Chain.ID)
	}
	raw, _ := json.Marshal(v)
	return CanonicalPool{
		Provider:    "morpho",
		ExternalID:  strings.ToLower(v.Address),
		Platform:    "morpho",
		Chain:       chain,
		TokenPair:   pair,
		APY:         netAPY,
		TVLUSD:      decimal.NewFromFloat(v.State.TotalAssetsUSD),
		RiskLevel:   risk,
		PoolAddress: strings.ToLower(v.Address),
		Raw:         raw,
	}
}

func chainName(id int) string {
	switch id {
	case 1:
		return "ethereum"
	case 8453:
		return "base"
	}
	return "unknown"
}
