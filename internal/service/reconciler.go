package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhub/internal/models"
	"yieldhub/internal/normalize"
	"yieldhub/internal/repository"
)

// Outcome classifies what the reconciler did with one incoming record.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeUpdated
	OutcomeSkippedInactive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkippedInactive:
		return "skipped_inactive"
	default:
		return "unchanged"
	}
}

// Reconciler merges canonical records into stored pools. New pools enter
// hidden pending review; updates touch only the sync-owned columns, so
// is_visible, categories and notes survive every sync. Pools an operator
// retired (is_active=false) are never resurrected by incoming data.
type Reconciler struct {
	Repo     repository.Repository
	Detector ChangeDetector
	Logger   *zap.Logger
}

func (r *Reconciler) Upsert(ctx context.Context, cp normalize.CanonicalPool) (*models.Pool, Outcome, error) {
	existing, err := r.Repo.GetPoolByExternalID(ctx, cp.Provider, cp.ExternalID)
	if err != nil {
		return nil, OutcomeUnchanged, err
	}
	now := time.Now().UTC()

	if existing == nil {
		pool, err := r.insert(ctx, cp, now)
		if err != nil {
			return nil, OutcomeUnchanged, err
		}
		return pool, OutcomeInserted, nil
	}

	if !existing.IsActive {
		return existing, OutcomeSkippedInactive, nil
	}

	if !r.Detector.Compare(existing, cp) {
		// No write at all: re-running the same upsert must be a no-op.
		// Job-level freshness lives in SyncState, not on the pool row.
		return existing, OutcomeUnchanged, nil
	}

	// Allow-list write: sync-owned columns plus the stored visibility and
	// active flags re-asserted verbatim, so a sync landing after a
	// concurrent admin toggle can never push stale values for them.
	updates := map[string]any{
		"apy":            cp.APY,
		"tvl_usd":        cp.TVLUSD,
		"raw_json":       datatypes.JSON(cp.Raw),
		"last_synced_at": now,
		"is_visible":     existing.IsVisible,
		"is_active":      existing.IsActive,
	}
	if err := r.Repo.UpdatePoolSyncFields(ctx, existing.ID, updates); err != nil {
		return existing, OutcomeUnchanged, err
	}

	existing.APY = cp.APY
	existing.TVLUSD = cp.TVLUSD
	existing.RawJSON = datatypes.JSON(cp.Raw)
	existing.LastSyncedAt = now
	return existing, OutcomeUpdated, nil
}

func (r *Reconciler) insert(ctx context.Context, cp normalize.CanonicalPool, now time.Time) (*models.Pool, error) {
	platform, err := r.Repo.GetOrCreatePlatform(ctx, cp.Platform, displayName(cp.Platform))
	if err != nil {
		return nil, err
	}
	chain, err := r.Repo.GetOrCreateChain(ctx, cp.Chain, displayName(cp.Chain))
	if err != nil {
		return nil, err
	}

	pool := &models.Pool{
		Provider:     cp.Provider,
		ExternalID:   cp.ExternalID,
		PlatformID:   platform.ID,
		ChainID:      chain.ID,
		TokenPair:    cp.TokenPair,
		APY:          cp.APY,
		TVLUSD:       cp.TVLUSD,
		RiskLevel:    string(cp.RiskLevel),
		RawJSON:      datatypes.JSON(cp.Raw),
		IsVisible:    false,
		IsActive:     true,
		LastSyncedAt: now,
	}
	if addr := strings.TrimSpace(cp.PoolAddress); addr != "" {
		pool.PoolAddress = &addr
	}
	if err := r.Repo.InsertPool(ctx, pool); err != nil {
		return nil, err
	}
	if r.Logger != nil {
		r.Logger.Info("new pool discovered, hidden pending review",
			zap.String("provider", cp.Provider),
			zap.String("external_id", cp.ExternalID),
			zap.String("pair", cp.TokenPair))
	}
	return pool, nil
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
