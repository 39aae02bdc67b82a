package models

import "time"

// Platform and Chain are append-only lookup dictionaries, created lazily the
// first time a sync encounters an unknown name.
type Platform struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"type:varchar(80);not null;uniqueIndex"`
	DisplayName string    `gorm:"type:text;not null"`
	LogoURL     *string   `gorm:"type:text"`
	Color       *string   `gorm:"type:varchar(16)"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Platform) TableName() string {
	return "platforms"
}

type Chain struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"type:varchar(80);not null;uniqueIndex"`
	DisplayName string    `gorm:"type:text;not null"`
	LogoURL     *string   `gorm:"type:text"`
	Color       *string   `gorm:"type:varchar(16)"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Chain) TableName() string {
	return "chains"
}
