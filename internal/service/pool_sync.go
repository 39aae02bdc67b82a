package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhub/internal/client/defillama"
	"yieldhub/internal/client/lido"
	"yieldhub/internal/client/morpho"
	"yieldhub/internal/models"
	"yieldhub/internal/normalize"
	"yieldhub/internal/repository"
)

// Job names double as sync_state and service_config keys.
const (
	JobDefiLlamaSync  = "defillama_sync"
	JobMorphoSync     = "morpho_sync"
	JobLidoSync       = "lido_sync"
	JobHolderSync     = "holder_sync"
	JobOutlookRefresh = "outlook_refresh"
)

// SyncReport summarizes one sync pass; it is persisted as the sync state's
// stats payload.
type SyncReport struct {
	Fetched   int `json:"fetched"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// PoolSyncService runs the fetch -> normalize -> gate -> reconcile pipeline
// for each provider. One record failing never aborts the batch.
type PoolSyncService struct {
	Repo       repository.Repository
	Reconciler *Reconciler
	Logger     *zap.Logger
	Gates      normalize.Gates

	DefiLlama *defillama.Client
	Morpho    *morpho.Client
	Lido      *lido.Client

	// DefiLlamaProjects restricts which projects are ingested; empty means all.
	DefiLlamaProjects []string
	MorphoChainIDs    []int
	MorphoPageSize    int
}

func (s *PoolSyncService) SyncDefiLlama(ctx context.Context) error {
	pools, err := s.DefiLlama.GetPools(ctx)
	if err != nil {
		s.writeSyncError(ctx, JobDefiLlamaSync, err)
		return err
	}

	allowed := make(map[string]bool, len(s.DefiLlamaProjects))
	for _, p := range s.DefiLlamaProjects {
		allowed[p] = true
	}

	report := SyncReport{Fetched: len(pools)}
	for _, p := range pools {
		if len(allowed) > 0 && !allowed[p.Project] {
			report.Skipped++
			continue
		}
		if reason, rejected := normalize.RejectDefiLlama(p, s.Gates); rejected {
			report.Skipped++
			s.debugSkip(JobDefiLlamaSync, p.Pool, reason)
			continue
		}
		s.reconcileOne(ctx, JobDefiLlamaSync, normalize.FromDefiLlama(p), &report)
	}
	return s.writeSyncSuccess(ctx, JobDefiLlamaSync, report)
}

func (s *PoolSyncService) SyncMorpho(ctx context.Context) error {
	vaults, fetchErr := s.Morpho.GetAllVaults(ctx, s.MorphoChainIDs, s.MorphoPageSize)
	if fetchErr != nil && len(vaults) == 0 {
		s.writeSyncError(ctx, JobMorphoSync, fetchErr)
		return fetchErr
	}

	report := SyncReport{Fetched: len(vaults)}
	for _, v := range vaults {
		cp := normalize.FromMorphoVault(v)
		if reason, rejected := s.Gates.Reject(cp); rejected {
			report.Skipped++
			s.debugSkip(JobMorphoSync, cp.ExternalID, reason)
			continue
		}
		s.reconcileOne(ctx, JobMorphoSync, cp, &report)
	}

	if fetchErr != nil {
		// Some chains synced; record the partial result and surface the error.
		if err := s.writeSyncPartial(ctx, JobMorphoSync, report, fetchErr); err != nil {
			return err
		}
		return fetchErr
	}
	return s.writeSyncSuccess(ctx, JobMorphoSync, report)
}

func (s *PoolSyncService) SyncLido(ctx context.Context) error {
	apr, err := s.Lido.GetSmaApr(ctx)
	if err != nil {
		s.writeSyncError(ctx, JobLidoSync, err)
		return err
	}

	// The APR endpoint carries no TVL; keep whatever the pool last held and
	// waive the TVL floor for this provider.
	prevTVL := decimal.Zero
	if existing, err := s.Repo.GetPoolByExternalID(ctx, "lido", normalize.LidoExternalID); err == nil && existing != nil {
		prevTVL = existing.TVLUSD
	}

	cp := normalize.FromLidoApr(*apr, prevTVL)
	gates := normalize.Gates{MinTVLUSD: decimal.Zero, MaxAPY: s.Gates.MaxAPY}
	report := SyncReport{Fetched: 1}
	if reason, rejected := gates.Reject(cp); rejected {
		report.Skipped++
		s.debugSkip(JobLidoSync, cp.ExternalID, reason)
		return s.writeSyncSuccess(ctx, JobLidoSync, report)
	}
	s.reconcileOne(ctx, JobLidoSync, cp, &report)
	return s.writeSyncSuccess(ctx, JobLidoSync, report)
}

func (s *PoolSyncService) reconcileOne(ctx context.Context, job string, cp normalize.CanonicalPool, report *SyncReport) {
	_, outcome, err := s.Reconciler.Upsert(ctx, cp)
	if err != nil {
		report.Failed++
		if s.Logger != nil {
			s.Logger.Warn("reconcile failed",
				zap.String("job", job),
				zap.String("external_id", cp.ExternalID),
				zap.Error(err))
		}
		return
	}
	switch outcome {
	case OutcomeInserted:
		report.Inserted++
	case OutcomeUpdated:
		report.Updated++
	case OutcomeSkippedInactive:
		report.Skipped++
	default:
		report.Unchanged++
	}
}

func (s *PoolSyncService) debugSkip(job, id, reason string) {
	if s.Logger != nil {
		s.Logger.Debug("record gated out",
			zap.String("job", job),
			zap.String("external_id", id),
			zap.String("reason", reason))
	}
}

func (s *PoolSyncService) writeSyncSuccess(ctx context.Context, job string, report SyncReport) error {
	now := time.Now().UTC()
	stats, _ := json.Marshal(report)
	state := &models.SyncState{
		Job:           job,
		LastSuccessAt: &now,
		LastAttemptAt: &now,
		StatsJSON:     datatypes.JSON(stats),
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("failed to persist sync state", zap.String("job", job), zap.Error(err))
		}
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("sync completed",
			zap.String("job", job),
			zap.Int("fetched", report.Fetched),
			zap.Int("inserted", report.Inserted),
			zap.Int("updated", report.Updated),
			zap.Int("unchanged", report.Unchanged),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}
	return nil
}

// writeSyncPartial records progress without advancing LastSuccessAt, so
// staleness monitoring still sees the degradation.
func (s *PoolSyncService) writeSyncPartial(ctx context.Context, job string, report SyncReport, cause error) error {
	now := time.Now().UTC()
	stats, _ := json.Marshal(report)
	msg := fmt.Sprintf("partial: %v", cause)
	state := &models.SyncState{
		Job:           job,
		LastAttemptAt: &now,
		LastError:     &msg,
		StatsJSON:     datatypes.JSON(stats),
	}
	if prev, err := s.Repo.GetSyncState(ctx, job); err == nil && prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
		state.Cursor = prev.Cursor
	}
	return s.Repo.SaveSyncState(ctx, state)
}

func (s *PoolSyncService) writeSyncError(ctx context.Context, job string, cause error) {
	now := time.Now().UTC()
	msg := cause.Error()
	state := &models.SyncState{
		Job:           job,
		LastAttemptAt: &now,
		LastError:     &msg,
	}
	if prev, err := s.Repo.GetSyncState(ctx, job); err == nil && prev != nil {
		state.LastSuccessAt = prev.LastSuccessAt
		state.Cursor = prev.Cursor
		state.StatsJSON = prev.StatsJSON
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to persist sync error", zap.String("job", job), zap.Error(err))
	}
}
