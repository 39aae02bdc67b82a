package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yieldhub/internal/models"
	"yieldhub/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Pools -------------------------------------------------------------

func (s *Store) GetPoolByExternalID(ctx context.Context, provider, externalID string) (*models.Pool, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Pool
	err := s.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetPoolByID(ctx context.Context, id uint64) (*models.Pool, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Pool
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertPool(ctx context.Context, item *models.Pool) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdatePoolSyncFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Pool{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

func (s *Store) SetPoolVisibility(ctx context.Context, id uint64, visible bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Pool{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_visible": visible, "updated_at": time.Now().UTC()}).
		Error
}

func (s *Store) ListPools(ctx context.Context, params repository.ListPoolsParams) ([]models.Pool, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.poolQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "tvl_usd")
	var items []models.Pool
	if err := query.Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPools(ctx context.Context, params repository.ListPoolsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.poolQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) poolQuery(ctx context.Context, params repository.ListPoolsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Pool{})
	if params.Provider != nil && strings.TrimSpace(*params.Provider) != "" {
		query = query.Where("provider = ?", strings.TrimSpace(*params.Provider))
	}
	if params.ChainID != nil {
		query = query.Where("chain_id = ?", *params.ChainID)
	}
	if params.Visible != nil {
		query = query.Where("is_visible = ?", *params.Visible)
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.RiskLevel != nil && strings.TrimSpace(*params.RiskLevel) != "" {
		query = query.Where("risk_level = ?", strings.TrimSpace(*params.RiskLevel))
	}
	return query
}

func (s *Store) ListActivePoolsWithAddress(ctx context.Context, limit int) ([]models.Pool, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Pool
	if err := s.db.WithContext(ctx).
		Model(&models.Pool{}).
		Where("is_active = ?", true).
		Where("pool_address IS NOT NULL AND pool_address <> ''").
		Order("tvl_usd desc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Dictionaries ------------------------------------------------------

// Unique-constraint races between concurrent syncs are benign: on conflict
// the insert is a no-op and the existing row is re-fetched.
func (s *Store) GetOrCreatePlatform(ctx context.Context, name, displayName string) (*models.Platform, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	name = normalizeName(name)
	if name == "" {
		return nil, errors.New("empty platform name")
	}
	var item models.Platform
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := models.Platform{Name: name, DisplayName: displayName}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOrCreateChain(ctx context.Context, name, displayName string) (*models.Chain, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	name = normalizeName(name)
	if name == "" {
		return nil, errors.New("empty chain name")
	}
	var item models.Chain
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := models.Chain{Name: name, DisplayName: displayName}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&created).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Holders -----------------------------------------------------------

// ReplacePoolHolders swaps the whole holder set in one transaction. Ranks
// and percentages are only meaningful relative to a complete snapshot.
func (s *Store) ReplacePoolHolders(ctx context.Context, poolID uint64, records []models.HolderRecord) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("pool_id = ?", poolID).Delete(&models.HolderRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
}

func (s *Store) ListPoolHolders(ctx context.Context, poolID uint64) ([]models.HolderRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.HolderRecord
	if err := s.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("rank asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestHolderHistory(ctx context.Context, tokenAddress string) (*models.HolderHistoryPoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.HolderHistoryPoint
	err := s.db.WithContext(ctx).
		Where("token_address = ?", strings.ToLower(tokenAddress)).
		Order("captured_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertHolderHistory(ctx context.Context, item *models.HolderHistoryPoint) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.TokenAddress = strings.ToLower(item.TokenAddress)
	return s.db.WithContext(ctx).Create(item).Error
}

// --- Service configs ---------------------------------------------------

func (s *Store) GetServiceConfig(ctx context.Context, name string) (*models.ServiceConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ServiceConfig
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListServiceConfigs(ctx context.Context) ([]models.ServiceConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ServiceConfig
	if err := s.db.WithContext(ctx).Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveServiceConfig(ctx context.Context, item *models.ServiceConfig) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"interval_minutes",
			"enabled",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- Sync state ----------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, job string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SyncState
	err := s.db.WithContext(ctx).Where("job = ?", job).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SyncState
	if err := s.db.WithContext(ctx).Order("job asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Outlooks ------------------------------------------------------------

func (s *Store) GetPoolOutlook(ctx context.Context, poolID uint64) (*models.PoolOutlook, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PoolOutlook
	err := s.db.WithContext(ctx).Where("pool_id = ?", poolID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertPoolOutlook(ctx context.Context, item *models.PoolOutlook) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pool_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"text",
			"sentiment",
			"confidence",
			"generated_at",
			"expires_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListPoolsNeedingOutlook(ctx context.Context, now time.Time, limit int) ([]models.Pool, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Pool
	err := s.db.WithContext(ctx).
		Model(&models.Pool{}).
		Joins("LEFT JOIN pool_outlooks ON pool_outlooks.pool_id = pools.id").
		Where("pools.is_visible = ? AND pools.is_active = ?", true, true).
		Where("pool_outlooks.id IS NULL OR pool_outlooks.expires_at < ?", now).
		Order("pools.tvl_usd desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
