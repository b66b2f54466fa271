package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExploitabilityScore is append-only: every scoring run inserts a new
// timestamped row, never updating prior ones. Score history over time is
// itself a signal; read paths that want "current" dedupe to the latest row
// per market.
//
// Sub-scores and TotalScore are all in [0,100]. A row produced by a failed
// guard has TotalScore 0 and the reasons in GuardReasons.
type ExploitabilityScore struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:varchar(50);not null;index:idx_score_market_time"`
	RunnerID int64  `gorm:"not null;default:0"`

	TimeBucket string `gorm:"type:varchar(20);not null;index"`
	OddsBand   string `gorm:"type:varchar(20);not null;index"`

	SpreadScore   float64 `gorm:"not null"`
	VolatilityScore float64 `gorm:"not null"`
	UpdateScore   float64 `gorm:"not null"`
	DepthScore    float64 `gorm:"not null"`
	VolumePenalty float64 `gorm:"not null"`
	TotalScore    float64 `gorm:"not null;index"`

	// EstimatedEdgePct is a cost-adjusted heuristic margin, not a
	// probability delta; it must never feed Kelly-style sizing.
	EstimatedEdgePct float64 `gorm:"not null;default:0"`

	GuardReasons  datatypes.JSON `gorm:"type:jsonb"`
	ConfigVersion string         `gorm:"type:varchar(40);not null"`

	ScoredAt  time.Time `gorm:"type:timestamptz;not null;index:idx_score_market_time"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ExploitabilityScore) TableName() string {
	return "exploitability_scores"
}
