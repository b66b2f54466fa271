package models

import (
	"time"

	"gorm.io/datatypes"
)

// MarketResult is one settlement-feed observation per market. Void is an
// exchange-reported void; forced timeouts never create a result row.
type MarketResult struct {
	MarketID        string `gorm:"primaryKey;type:varchar(50)"`
	WinningRunnerID *int64
	Void            bool           `gorm:"not null;default:false"`
	SettledAt       time.Time      `gorm:"type:timestamptz;not null;index"`
	Raw             datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (MarketResult) TableName() string {
	return "market_results"
}
