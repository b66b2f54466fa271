package models

import (
	"time"
)

// MarketProfile is the per-(market, date, time-bucket) metric aggregate the
// scoring engine consumes. Recomputation upserts on the triple, so the row
// always reflects the latest full fold over that partition's snapshots.
type MarketProfile struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	MarketID   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_profile_partition"`
	ProfileDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_profile_partition"`
	TimeBucket string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_profile_partition"`

	AvgSpreadTicks      float64 `gorm:"not null"`
	SpreadVolatility    float64 `gorm:"not null"`
	AvgDepthBest        float64 `gorm:"not null"`
	TotalMatchedVolume  float64 `gorm:"not null"`
	UpdateRatePerMinute float64 `gorm:"not null"`
	PriceVolatility     float64 `gorm:"not null"`
	MeanPrice           float64 `gorm:"not null"`
	SnapshotCount       int     `gorm:"not null"`

	FavouriteRunnerID int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MarketProfile) TableName() string {
	return "market_profiles"
}
