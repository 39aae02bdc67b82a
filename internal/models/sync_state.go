package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState is per-job bookkeeping written after every attempt. The health
// monitor derives job staleness from LastSuccessAt.
type SyncState struct {
	Job           string         `gorm:"primaryKey;type:varchar(60)"`
	Cursor        *string        `gorm:"type:text"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
