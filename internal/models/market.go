package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Market struct {
	ID            string  `gorm:"primaryKey;type:varchar(50)"`
	EventID       string  `gorm:"type:varchar(50);index;not null"`
	CompetitionID *string `gorm:"type:varchar(50);index"`
	Name          string  `gorm:"type:text;not null"`
	MarketType    string  `gorm:"type:varchar(50);index;not null"`

	Status       string     `gorm:"type:varchar(20);index;not null;default:'OPEN'"`
	InPlay       bool       `gorm:"not null;default:false"`
	ScheduledOff *time.Time `gorm:"type:timestamptz;index"`

	TotalMatched   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	LastSnapshotAt *time.Time      `gorm:"type:timestamptz;index"`
	LastSeenAt     time.Time       `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "markets"
}

const (
	MarketStatusOpen      = "OPEN"
	MarketStatusSuspended = "SUSPENDED"
	MarketStatusClosed    = "CLOSED"
)
