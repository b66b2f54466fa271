package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MarketSnapshot is one immutable order-book observation. BestBack/BestLay
// hold the top ladder levels of the current favourite as
// [{"price":..,"size":..}, ...]; Runners holds the per-selection best
// prices for the whole market.
type MarketSnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	MarketID   string    `gorm:"type:varchar(50);not null;index:idx_snapshot_market_time"`
	CapturedAt time.Time `gorm:"type:timestamptz;not null;index:idx_snapshot_market_time"`

	InPlay            bool            `gorm:"not null;default:false"`
	FavouriteRunnerID int64           `gorm:"not null;default:0"`
	TotalMatched      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	TotalAvailable    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	BestBack datatypes.JSON `gorm:"type:jsonb;not null"`
	BestLay  datatypes.JSON `gorm:"type:jsonb;not null"`
	Runners  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (MarketSnapshot) TableName() string {
	return "market_snapshots"
}
