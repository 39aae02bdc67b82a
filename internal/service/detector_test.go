package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"yieldhub/internal/models"
	"yieldhub/internal/normalize"
)

func basePool(apy, tvl string) *models.Pool {
	return &models.Pool{
		TokenPair: "USDC",
		APY:       decimal.RequireFromString(apy),
		TVLUSD:    decimal.RequireFromString(tvl),
		RiskLevel: "medium",
	}
}

func baseCanonical(apy, tvl string) normalize.CanonicalPool {
	return normalize.CanonicalPool{
		TokenPair: "USDC",
		APY:       decimal.RequireFromString(apy),
		TVLUSD:    decimal.RequireFromString(tvl),
		RiskLevel: normalize.RiskMedium,
	}
}

func TestCompare_SubEpsilonAPYIsUnchanged(t *testing.T) {
	d := DefaultChangeDetector()
	existing := basePool("5.000", "100000")
	incoming := baseCanonical("5.0005", "100000")
	if d.Compare(existing, incoming) {
		t.Fatalf("0.0005 APY drift should be below the 0.001 epsilon")
	}
}

func TestCompare_APYAboveEpsilonIsChanged(t *testing.T) {
	d := DefaultChangeDetector()
	existing := basePool("5.000", "100000")
	incoming := baseCanonical("5.002", "100000")
	if !d.Compare(existing, incoming) {
		t.Fatalf("0.002 APY delta should exceed the 0.001 epsilon")
	}
}

func TestCompare_APYExactlyEpsilonIsUnchanged(t *testing.T) {
	d := DefaultChangeDetector()
	existing := basePool("5.000", "100000")
	incoming := baseCanonical("5.001", "100000")
	if d.Compare(existing, incoming) {
		t.Fatalf("delta equal to epsilon must not count as a change")
	}
}

func TestCompare_TVLEpsilon(t *testing.T) {
	d := DefaultChangeDetector()
	existing := basePool("5.000", "100000")

	if d.Compare(existing, baseCanonical("5.000", "100999")) {
		t.Fatalf("$999 TVL drift should be below the $1000 epsilon")
	}
	if !d.Compare(existing, baseCanonical("5.000", "101001")) {
		t.Fatalf("$1001 TVL delta should exceed the $1000 epsilon")
	}
}

func TestCompare_OpaquePayloadChurnIsNotAChange(t *testing.T) {
	d := DefaultChangeDetector()
	existing := basePool("5.000", "100000")

	incoming := baseCanonical("5.000", "100000")
	incoming.TokenPair = "USDT"
	incoming.RiskLevel = normalize.RiskHigh
	incoming.Raw = []byte(`{"reshuffled":"payload"}`)
	if d.Compare(existing, incoming) {
		t.Fatalf("only the tracked numeric fields drive the decision")
	}
}

func TestCompare_NilExistingIsChanged(t *testing.T) {
	d := DefaultChangeDetector()
	if !d.Compare(nil, baseCanonical("5", "100000")) {
		t.Fatalf("nil existing pool means the record is new")
	}
}
