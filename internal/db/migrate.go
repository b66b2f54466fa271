package db

import (
	"edgescout/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Competition{},
		&models.Event{},
		&models.Market{},
		&models.Runner{},
		&models.SyncState{},
		&models.MarketSnapshot{},
		&models.MarketProfile{},
		&models.ExploitabilityScore{},
		&models.TradingHypothesis{},
		&models.ShadowDecision{},
		&models.MarketResult{},
		&models.CompetitionStats{},
	)
}
