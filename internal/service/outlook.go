package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhub/internal/models"
	"yieldhub/internal/repository"
)

// Outlook is a short generated commentary for one pool.
type Outlook struct {
	Text       string
	Sentiment  string
	Confidence float64
}

// OutlookGenerator produces commentary for a pool. Implementations may call
// external services; the refresh loop treats them as opaque.
type OutlookGenerator interface {
	Generate(ctx context.Context, pool *models.Pool) (*Outlook, error)
}

// RuleBasedGenerator derives an outlook from the pool's own numbers. It is
// the default generator when no external one is wired.
type RuleBasedGenerator struct{}

func (RuleBasedGenerator) Generate(_ context.Context, pool *models.Pool) (*Outlook, error) {
	if pool == nil {
		return nil, fmt.Errorf("nil pool")
	}
	sentiment := "neutral"
	confidence := 0.5
	switch {
	case pool.RiskLevel == "low" && pool.APY.GreaterThan(decimal.NewFromInt(3)):
		sentiment = "positive"
		confidence = 0.7
	case pool.RiskLevel == "high":
		sentiment = "cautious"
		confidence = 0.6
	case pool.APY.LessThan(decimal.NewFromInt(1)):
		sentiment = "negative"
		confidence = 0.55
	}
	text := fmt.Sprintf("%s on %s is yielding %s%% APY with $%s TVL at %s risk.",
		pool.TokenPair,
		pool.Provider,
		pool.APY.Round(2),
		pool.TVLUSD.Round(0),
		pool.RiskLevel)
	return &Outlook{Text: text, Sentiment: sentiment, Confidence: confidence}, nil
}

// OutlookService regenerates expired pool outlooks in batches.
type OutlookService struct {
	Repo      repository.Repository
	Generator OutlookGenerator
	Logger    *zap.Logger
	Expiry    time.Duration
	BatchSize int
}

func (s *OutlookService) Run(ctx context.Context) error {
	expiry := s.Expiry
	if expiry <= 0 {
		expiry = 2 * time.Hour
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = 50
	}

	now := time.Now().UTC()
	pools, err := s.Repo.ListPoolsNeedingOutlook(ctx, now, batch)
	if err != nil {
		s.writeState(ctx, 0, 0, err)
		return err
	}

	generated, failed := 0, 0
	var firstErr error
	for i := range pools {
		pool := &pools[i]
		outlook, err := s.Generator.Generate(ctx, pool)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			if s.Logger != nil {
				s.Logger.Warn("outlook generation failed",
					zap.Uint64("pool_id", pool.ID), zap.Error(err))
			}
			continue
		}
		row := &models.PoolOutlook{
			PoolID:      pool.ID,
			Text:        outlook.Text,
			Sentiment:   outlook.Sentiment,
			Confidence:  outlook.Confidence,
			GeneratedAt: now,
			ExpiresAt:   now.Add(expiry),
		}
		if err := s.Repo.UpsertPoolOutlook(ctx, row); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		generated++
	}

	s.writeState(ctx, generated, failed, firstErr)
	return firstErr
}

func (s *OutlookService) writeState(ctx context.Context, generated, failed int, cause error) {
	now := time.Now().UTC()
	stats, _ := json.Marshal(map[string]int{"generated": generated, "failed": failed})
	state := &models.SyncState{
		Job:           JobOutlookRefresh,
		LastAttemptAt: &now,
		StatsJSON:     datatypes.JSON(stats),
	}
	if cause != nil {
		msg := cause.Error()
		state.LastError = &msg
		if prev, err := s.Repo.GetSyncState(ctx, JobOutlookRefresh); err == nil && prev != nil {
			state.LastSuccessAt = prev.LastSuccessAt
		}
	} else {
		state.LastSuccessAt = &now
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil && s.Logger != nil {
		s.Logger.Warn("failed to persist outlook state", zap.Error(err))
	}
}
