package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"yieldhub/internal/models"
	"yieldhub/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	pools          map[string]*models.Pool // provider|external_id
	poolsByID      map[uint64]*models.Pool
	nextPoolID     uint64
	updateCalls    []map[string]any
	platforms      map[string]*models.Platform
	chains         map[string]*models.Chain
	holdersByPool  map[uint64][]models.HolderRecord
	replaceCalls   int
	history        map[string][]models.HolderHistoryPoint
	serviceConfigs map[string]models.ServiceConfig
	syncStates     map[string]models.SyncState
	outlooks       map[uint64]models.PoolOutlook

	failUpdates   bool
	failInsertFor map[string]bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		pools:          map[string]*models.Pool{},
		poolsByID:      map[uint64]*models.Pool{},
		platforms:      map[string]*models.Platform{},
		chains:         map[string]*models.Chain{},
		holdersByPool:  map[uint64][]models.HolderRecord{},
		history:        map[string][]models.HolderHistoryPoint{},
		serviceConfigs: map[string]models.ServiceConfig{},
		syncStates:     map[string]models.SyncState{},
		outlooks:       map[uint64]models.PoolOutlook{},
	}
}

func poolKey(provider, externalID string) string { return provider + "|" + externalID }

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetPoolByExternalID(ctx context.Context, provider, externalID string) (*models.Pool, error) {
	p, ok := s.pools[poolKey(provider, externalID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) GetPoolByID(ctx context.Context, id uint64) (*models.Pool, error) {
	p, ok := s.poolsByID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) InsertPool(ctx context.Context, item *models.Pool) error {
	if s.failInsertFor[item.ExternalID] {
		return fmt.Errorf("insert refused for %s", item.ExternalID)
	}
	s.nextPoolID++
	item.ID = s.nextPoolID
	cp := *item
	s.pools[poolKey(item.Provider, item.ExternalID)] = &cp
	s.poolsByID[item.ID] = &cp
	return nil
}

func (s *stubRepo) UpdatePoolSyncFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s.failUpdates {
		return fmt.Errorf("update failed")
	}
	p, ok := s.poolsByID[id]
	if !ok {
		return fmt.Errorf("pool %d not found", id)
	}
	s.updateCalls = append(s.updateCalls, updates)
	for col, val := range updates {
		switch col {
		case "is_visible":
			p.IsVisible = val.(bool)
		case "is_active":
			p.IsActive = val.(bool)
		case "token_pair":
			p.TokenPair = val.(string)
		case "apy":
			p.APY = val.(decimal.Decimal)
		case "tvl_usd":
			p.TVLUSD = val.(decimal.Decimal)
		case "risk_level":
			p.RiskLevel = val.(string)
		case "raw_json":
			p.RawJSON = val.(datatypes.JSON)
		case "pool_address":
			addr := val.(string)
			p.PoolAddress = &addr
		case "last_synced_at":
			p.LastSyncedAt = val.(time.Time)
		}
	}
	return nil
}

func (s *stubRepo) SetPoolVisibility(ctx context.Context, id uint64, visible bool) error {
	p, ok := s.poolsByID[id]
	if !ok {
		return fmt.Errorf("pool %d not found", id)
	}
	p.IsVisible = visible
	return nil
}

func (s *stubRepo) ListPools(ctx context.Context, params repository.ListPoolsParams) ([]models.Pool, error) {
	var out []models.Pool
	for _, p := range s.poolsByID {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubRepo) CountPools(ctx context.Context, params repository.ListPoolsParams) (int64, error) {
	return int64(len(s.poolsByID)), nil
}

func (s *stubRepo) ListActivePoolsWithAddress(ctx context.Context, limit int) ([]models.Pool, error) {
	var out []models.Pool
	for _, p := range s.poolsByID {
		if p.IsActive && p.PoolAddress != nil && *p.PoolAddress != "" {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubRepo) GetOrCreatePlatform(ctx context.Context, name, displayName string) (*models.Platform, error) {
	if p, ok := s.platforms[name]; ok {
		return p, nil
	}
	p := &models.Platform{ID: uint64(len(s.platforms) + 1), Name: name, DisplayName: displayName}
	s.platforms[name] = p
	return p, nil
}

func (s *stubRepo) GetOrCreateChain(ctx context.Context, name, displayName string) (*models.Chain, error) {
	if c, ok := s.chains[name]; ok {
		return c, nil
	}
	c := &models.Chain{ID: uint64(len(s.chains) + 1), Name: name, DisplayName: displayName}
	s.chains[name] = c
	return c, nil
}

func (s *stubRepo) ReplacePoolHolders(ctx context.Context, poolID uint64, records []models.HolderRecord) error {
	s.replaceCalls++
	s.holdersByPool[poolID] = records
	return nil
}

func (s *stubRepo) ListPoolHolders(ctx context.Context, poolID uint64) ([]models.HolderRecord, error) {
	return s.holdersByPool[poolID], nil
}

func (s *stubRepo) LatestHolderHistory(ctx context.Context, tokenAddress string) (*models.HolderHistoryPoint, error) {
	points := s.history[tokenAddress]
	if len(points) == 0 {
		return nil, nil
	}
	latest := points[len(points)-1]
	return &latest, nil
}

func (s *stubRepo) InsertHolderHistory(ctx context.Context, item *models.HolderHistoryPoint) error {
	s.history[item.TokenAddress] = append(s.history[item.TokenAddress], *item)
	return nil
}

func (s *stubRepo) GetServiceConfig(ctx context.Context, name string) (*models.ServiceConfig, error) {
	c, ok := s.serviceConfigs[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *stubRepo) ListServiceConfigs(ctx context.Context) ([]models.ServiceConfig, error) {
	var out []models.ServiceConfig
	for _, c := range s.serviceConfigs {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubRepo) SaveServiceConfig(ctx context.Context, item *models.ServiceConfig) error {
	s.serviceConfigs[item.Name] = *item
	return nil
}

func (s *stubRepo) GetSyncState(ctx context.Context, job string) (*models.SyncState, error) {
	st, ok := s.syncStates[job]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *stubRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	s.syncStates[state.Job] = *state
	return nil
}

func (s *stubRepo) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	var out []models.SyncState
	for _, st := range s.syncStates {
		out = append(out, st)
	}
	return out, nil
}

func (s *stubRepo) GetPoolOutlook(ctx context.Context, poolID uint64) (*models.PoolOutlook, error) {
	o, ok := s.outlooks[poolID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *stubRepo) UpsertPoolOutlook(ctx context.Context, item *models.PoolOutlook) error {
	s.outlooks[item.PoolID] = *item
	return nil
}

func (s *stubRepo) ListPoolsNeedingOutlook(ctx context.Context, now time.Time, limit int) ([]models.Pool, error) {
	var out []models.Pool
	for _, p := range s.poolsByID {
		if !p.IsVisible || !p.IsActive {
			continue
		}
		o, ok := s.outlooks[p.ID]
		if !ok || o.ExpiresAt.Before(now) {
			out = append(out, *p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ repository.Repository = (*stubRepo)(nil)
