package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldhub/internal/client/defillama"
	"yieldhub/internal/client/lido"
	"yieldhub/internal/client/morpho"
)

func TestFromDefiLlama_RiskHeuristics(t *testing.T) {
	base := defillama.Pool{
		Pool:    "p1",
		Chain:   "Ethereum",
		Project: "aave-v3",
		Symbol:  "USDC",
		TVLUsd:  1_000_000,
		APY:     4.2,
	}

	stable := base
	stable.StableCoin = true
	assert.Equal(t, RiskLow, FromDefiLlama(stable).RiskLevel)

	il := base
	il.ILRisk = "yes"
	assert.Equal(t, RiskHigh, FromDefiLlama(il).RiskLevel)

	assert.Equal(t, RiskMedium, FromDefiLlama(base).RiskLevel)
}

func TestFromDefiLlama_MapsFields(t *testing.T) {
	p := defillama.Pool{
		Pool:    "abc-123",
		Chain:   "Ethereum",
		Project: "curve-dex",
		Symbol:  "DAI-USDC",
		TVLUsd:  2_500_000,
		APY:     3.75,
	}
	cp := FromDefiLlama(p)
	assert.Equal(t, "defillama", cp.Provider)
	assert.Equal(t, "abc-123", cp.ExternalID)
	assert.Equal(t, "curve-dex", cp.Platform)
	assert.True(t, cp.APY.Equal(decimal.NewFromFloat(3.75)))
	assert.True(t, cp.TVLUSD.Equal(decimal.NewFromFloat(2_500_000)))
	assert.NotEmpty(t, cp.Raw)
}

func TestRejectDefiLlama_OutlierFlag(t *testing.T) {
	p := defillama.Pool{Pool: "p1", TVLUsd: 1_000_000, APY: 5, Outlier: true}
	reason, rejected := RejectDefiLlama(p, DefaultGates())
	require.True(t, rejected)
	assert.Contains(t, reason, "outlier")
}

func TestFromMorphoVault_APYUnitsAndRisk(t *testing.T) {
	v := morpho.Vault{Address: "0xAbC0000000000000000000000000000000000001", Symbol: "mUSDC"}
	v.Asset.Symbol = "USDC"
	v.Chain.ID = 8453
	v.State.NetAPY = 0.042 // fraction on the wire
	v.State.TotalAssetsUSD = 750_000

	cp := FromMorphoVault(v)
	assert.True(t, cp.APY.Equal(decimal.NewFromFloat(4.2)), "apy=%s", cp.APY)
	assert.Equal(t, RiskLow, cp.RiskLevel)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", cp.ExternalID)
	assert.Equal(t, "base", cp.Chain)

	v.State.NetAPY = 0.08
	assert.Equal(t, RiskMedium, FromMorphoVault(v).RiskLevel)
	v.State.NetAPY = 0.20
	assert.Equal(t, RiskHigh, FromMorphoVault(v).RiskLevel)
}

func TestFromLidoApr_SyntheticRecord(t *testing.T) {
	cp := FromLidoApr(lido.SmaApr{SmaApr: 3.4}, decimal.NewFromInt(20_000_000))
	assert.Equal(t, "lido", cp.Provider)
	assert.Equal(t, LidoExternalID, cp.ExternalID)
	assert.Equal(t, RiskLow, cp.RiskLevel)
	assert.True(t, cp.APY.Equal(decimal.NewFromFloat(3.4)))
	assert.True(t, cp.TVLUSD.Equal(decimal.NewFromInt(20_000_000)))
	assert.NotEmpty(t, cp.PoolAddress)
}

func TestGates_Reject(t *testing.T) {
	g := DefaultGates()

	ok := CanonicalPool{ExternalID: "p", APY: decimal.NewFromInt(5), TVLUSD: decimal.NewFromInt(50_000)}
	_, rejected := g.Reject(ok)
	assert.False(t, rejected)

	noID := ok
	noID.ExternalID = ""
	reason, rejected := g.Reject(noID)
	require.True(t, rejected)
	assert.Contains(t, reason, "external id")

	dust := ok
	dust.TVLUSD = decimal.NewFromInt(500)
	_, rejected = g.Reject(dust)
	assert.True(t, rejected)

	negative := ok
	negative.APY = decimal.NewFromInt(-1)
	_, rejected = g.Reject(negative)
	assert.True(t, rejected)

	absurd := ok
	absurd.APY = decimal.NewFromInt(5_000)
	_, rejected = g.Reject(absurd)
	assert.True(t, rejected)
}
