package models

import (
	"time"
)

// Competition is a long-lived reference entity (league/tournament).
// ExclusionTier > 0 marks hard-excluded competitions that are never
// profiled or scored regardless of their metrics.
type Competition struct {
	ID      string `gorm:"primaryKey;type:varchar(50)"`
	Name    string `gorm:"type:text;not null;index"`
	Country string `gorm:"type:varchar(10)"`

	Enabled       bool `gorm:"not null;default:true"`
	ExclusionTier int  `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Competition) TableName() string {
	return "competitions"
}
