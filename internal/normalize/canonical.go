// Package normalize maps provider-native records into the canonical pool
// representation. Mappers are pure so the change detector can diff their
// output reliably; no provider wire format leaks past this package.
package normalize

import "github.com/shopspring/decimal"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// CanonicalPool is the provider-independent shape every sync pipeline feeds
// to the reconciler. Raw retains the provider payload verbatim for audit.
type CanonicalPool struct {
	Provider    string
	ExternalID  string
	Platform    string
	Chain       string
	TokenPair   string
	APY         decimal.Decimal // percent units
	TVLUSD      decimal.Decimal
	RiskLevel   RiskLevel
	PoolAddress string
	Raw         []byte
}
