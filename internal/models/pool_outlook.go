package models

import "time"

// PoolOutlook is the persisted output of the outlook generator collaborator.
// Rows expire and are regenerated; the generator itself is opaque to sync.
type PoolOutlook struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	PoolID      uint64    `gorm:"uniqueIndex;not null"`
	Text        string    `gorm:"type:text;not null"`
	Sentiment   string    `gorm:"type:varchar(10);not null"`
	Confidence  float64   `gorm:"not null"`
	GeneratedAt time.Time `gorm:"type:timestamptz;not null"`
	ExpiresAt   time.Time `gorm:"type:timestamptz;not null;index"`
}

func (PoolOutlook) TableName() string {
	return "pool_outlooks"
}
