package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Pool is a canonical yield opportunity. The (provider, external_id) pair is
// the upsert key used by the reconciler; everything a sync is allowed to
// overwrite is limited to the allow-list in the reconciler.
//
// IsVisible, Categories and Notes are admin-owned: no sync path may write
// them after insert.
type Pool struct {
	ID           uint64           `gorm:"primaryKey;autoIncrement"`
	Provider     string           `gorm:"type:varchar(40);not null;uniqueIndex:idx_pools_provider_external,priority:1"`
	ExternalID   string           `gorm:"type:text;not null;uniqueIndex:idx_pools_provider_external,priority:2"`
	PlatformID   uint64           `gorm:"index;not null"`
	ChainID      uint64           `gorm:"index;not null"`
	TokenPair    string           `gorm:"type:text;not null"`
	APY          decimal.Decimal  `gorm:"type:numeric(20,6);not null"`
	TVLUSD       decimal.Decimal  `gorm:"type:numeric(30,2);not null"`
	RiskLevel    string           `gorm:"type:varchar(10);not null;default:'medium'"`
	PoolAddress  *string          `gorm:"type:text;index"`
	RawJSON      datatypes.JSON   `gorm:"type:jsonb;not null"`
	IsVisible    bool             `gorm:"not null;default:false"`
	IsActive     bool             `gorm:"not null;default:true"`
	Categories   datatypes.JSON   `gorm:"type:jsonb"`
	Notes        *string          `gorm:"type:text"`
	LastSyncedAt time.Time        `gorm:"type:timestamptz;not null;index"`
	CreatedAt    time.Time        `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Pool) TableName() string {
	return "pools"
}
