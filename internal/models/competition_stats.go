package models

import (
	"time"
)

// CompetitionStats is one row per (competition, day), fully recomputed by
// the aggregator; late-arriving scores are absorbed by the next recompute.
type CompetitionStats struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	CompetitionID string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_competition_daily"`
	StatsDate     time.Time `gorm:"type:date;not null;uniqueIndex:idx_competition_daily"`

	MarketsScored int     `gorm:"not null;default:0"`
	AvgScore      float64 `gorm:"not null;default:0"`
	MaxScore      float64 `gorm:"not null;default:0"`
	MinScore      float64 `gorm:"not null;default:0"`
	StddevScore   float64 `gorm:"not null;default:0"`

	CountAboveT1 int `gorm:"not null;default:0"`
	CountAboveT2 int `gorm:"not null;default:0"`
	CountAboveT3 int `gorm:"not null;default:0"`

	Rolling30dAvg float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CompetitionStats) TableName() string {
	return "competition_stats"
}
