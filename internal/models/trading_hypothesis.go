package models

import (
	"time"

	"gorm.io/datatypes"
)

// TradingHypothesis mirrors the configured strategy set into the database
// so operators can inspect and toggle hypotheses without a redeploy. The
// engine treats rows as read-only during an evaluation pass.
type TradingHypothesis struct {
	Name      string `gorm:"primaryKey;type:varchar(50)"`
	Enabled   bool   `gorm:"not null;default:true"`
	Side      string `gorm:"type:varchar(10);not null"`
	Selection string `gorm:"type:varchar(30);not null"`

	StakeUSD float64        `gorm:"not null;default:0"`
	Criteria datatypes.JSON `gorm:"type:jsonb;not null"`

	Promoted  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradingHypothesis) TableName() string {
	return "trading_hypotheses"
}
