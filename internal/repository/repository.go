package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"yieldhub/internal/models"
)

// Repository is the one shared store behind every sync pipeline and the
// admin API. Writes from sync paths are narrow (field allow-lists) so
// overlapping ticks cannot clobber admin-owned fields.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Pools
	GetPoolByExternalID(ctx context.Context, provider, externalID string) (*models.Pool, error)
	GetPoolByID(ctx context.Context, id uint64) (*models.Pool, error)
	InsertPool(ctx context.Context, item *models.Pool) error
	// UpdatePoolSyncFields applies a column allow-list; callers must only
	// pass sync-owned columns plus the re-asserted visibility/active flags.
	UpdatePoolSyncFields(ctx context.Context, id uint64, updates map[string]any) error
	SetPoolVisibility(ctx context.Context, id uint64, visible bool) error
	ListPools(ctx context.Context, params ListPoolsParams) ([]models.Pool, error)
	CountPools(ctx context.Context, params ListPoolsParams) (int64, error)
	ListActivePoolsWithAddress(ctx context.Context, limit int) ([]models.Pool, error)

	// Dictionaries: get-or-create tolerant of unique-constraint races.
	GetOrCreatePlatform(ctx context.Context, name, displayName string) (*models.Platform, error)
	GetOrCreateChain(ctx context.Context, name, displayName string) (*models.Chain, error)

	// Holders
	ReplacePoolHolders(ctx context.Context, poolID uint64, records []models.HolderRecord) error
	ListPoolHolders(ctx context.Context, poolID uint64) ([]models.HolderRecord, error)
	LatestHolderHistory(ctx context.Context, tokenAddress string) (*models.HolderHistoryPoint, error)
	InsertHolderHistory(ctx context.Context, item *models.HolderHistoryPoint) error

	// Service configs
	GetServiceConfig(ctx context.Context, name string) (*models.ServiceConfig, error)
	ListServiceConfigs(ctx context.Context) ([]models.ServiceConfig, error)
	SaveServiceConfig(ctx context.Context, item *models.ServiceConfig) error

	// Sync state
	GetSyncState(ctx context.Context, job string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)

	// Outlooks
	GetPoolOutlook(ctx context.Context, poolID uint64) (*models.PoolOutlook, error)
	UpsertPoolOutlook(ctx context.Context, item *models.PoolOutlook) error
	ListPoolsNeedingOutlook(ctx context.Context, now time.Time, limit int) ([]models.Pool, error)
}

type ListPoolsParams struct {
	Limit     int
	Offset    int
	Provider  *string
	ChainID   *uint64
	Visible   *bool
	Active    *bool
	RiskLevel *string
	OrderBy   string
	Asc       *bool
}
