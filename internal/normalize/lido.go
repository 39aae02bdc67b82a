package normalize

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"yieldhub/internal/client/lido"
)

// The Lido API reports protocol-level APR only, so the mapper synthesizes a
// single stETH record under a fixed external id. Liquid staking on mainnet
// is treated as low risk. TVL is not part of the APR response; the caller
// passes the last stored TVL as tvlUSD so the value carries forward.
const (
	LidoExternalID   = "lido-steth"
	lidoStETHAddress = "0xae7ab96520de3a18e5e111b5eaab095312d7fe84"
)

func FromLidoApr(a lido.SmaApr, tvlUSD decimal.Decimal) CanonicalPool {
	raw, _ := json.Marshal(a)
	return CanonicalPool{
		Provider:    "lido",
		ExternalID:  LidoExternalID,
		Platform:    "lido",
		Chain:       "ethereum",
		TokenPair:   "stETH",
		APY:         decimal.NewFromFloat(a.SmaApr),
		TVLUSD:      tvlUSD,
		RiskLevel:   RiskLow,
		PoolAddress: lidoStETHAddress,
		Raw:         raw,
	}
}
