package db

import (
	"yieldhub/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Platform{},
		&models.Chain{},
		&models.Pool{},
		&models.HolderRecord{},
		&models.HolderHistoryPoint{},
		&models.ServiceConfig{},
		&models.SyncState{},
		&models.PoolOutlook{},
	)
}
