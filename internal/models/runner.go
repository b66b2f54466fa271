package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Runner is one selection within a market. Status becomes WINNER/LOSER/
// REMOVED once the settlement feed reports the market result.
type Runner struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID    string `gorm:"type:varchar(50);not null;uniqueIndex:idx_market_selection"`
	SelectionID int64  `gorm:"not null;uniqueIndex:idx_market_selection"`

	Name         string `gorm:"type:text;not null"`
	SortPriority int    `gorm:"not null;default:0"`
	Status       string `gorm:"type:varchar(20);not null;default:'ACTIVE'"`

	LastBackPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`
	LastLayPrice  *decimal.Decimal `gorm:"type:numeric(20,10)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Runner) TableName() string {
	return "runners"
}
