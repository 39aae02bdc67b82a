package models

import "time"

// ServiceConfig is the per-job runtime schedule. Admin updates are applied to
// the live scheduler without a restart.
type ServiceConfig struct {
	Name            string    `gorm:"primaryKey;type:varchar(60)"`
	IntervalMinutes int       `gorm:"not null"`
	Enabled         bool      `gorm:"not null;default:true"`
	Description     string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ServiceConfig) TableName() string {
	return "service_configs"
}
