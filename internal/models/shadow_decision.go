package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShadowDecision is a recorded hypothetical trade. At most one row exists
// per (market, hypothesis); the unique index backs the insert-if-absent
// creation contract.
//
// Entry fields are fixed at creation. Closing fields are written once when
// a closing price is observed. Settlement fields are written exactly once
// on the transition out of PENDING.
type ShadowDecision struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	Ref            string `gorm:"type:varchar(40);not null;uniqueIndex"`
	MarketID       string `gorm:"type:varchar(50);not null;uniqueIndex:idx_decision_market_hypothesis"`
	HypothesisName string `gorm:"type:varchar(50);not null;uniqueIndex:idx_decision_market_hypothesis;index"`

	RunnerID   int64  `gorm:"not null"`
	RunnerName string `gorm:"type:text"`
	Side       string `gorm:"type:varchar(10);not null"`

	EntryPrice     decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	EntrySpreadPct float64         `gorm:"not null;default:0"`
	EntryMatched   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Stake          decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	Score             float64 `gorm:"not null;default:0"`
	MomentumWindow    string  `gorm:"type:varchar(10)"`
	MomentumPctChange float64 `gorm:"not null;default:0"`
	Reason            string  `gorm:"type:text"`

	ClosingBackPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`
	ClosingLayPrice  *decimal.Decimal `gorm:"type:numeric(20,10)"`
	CLV              *decimal.Decimal `gorm:"column:clv;type:numeric(20,10)"`
	ClosingAt        *time.Time       `gorm:"type:timestamptz"`

	Outcome    string           `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	GrossPnL   *decimal.Decimal `gorm:"column:gross_pnl;type:numeric(20,10)"`
	Commission *decimal.Decimal `gorm:"type:numeric(20,10)"`
	NetPnL     *decimal.Decimal `gorm:"column:net_pnl;type:numeric(20,10)"`
	SettledAt  *time.Time       `gorm:"type:timestamptz"`

	// TimedOut marks a forced VOID after the settlement grace period, as
	// opposed to a void reported by the exchange.
	TimedOut bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ShadowDecision) TableName() string {
	return "shadow_decisions"
}

const (
	OutcomePending = "PENDING"
	OutcomeWin     = "WIN"
	OutcomeLose    = "LOSE"
	OutcomeVoid    = "VOID"
)

const (
	SideBack = "BACK"
	SideLay  = "LAY"
)
