package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"edgescout/internal/models"
)

type ListMarketsParams struct {
	Limit         int
	Offset        int
	Status        *string
	CompetitionID *string
	MarketType    *string
	OffAfter      *time.Time
	OffBefore     *time.Time
	OrderBy       string
	Asc           *bool
}

type ListScoresParams struct {
	Limit      int
	Offset     int
	MarketID   *string
	TimeBucket *string
	MinTotal   float64
	Since      *time.Time
}

type ListDecisionsParams struct {
	Limit      int
	Offset     int
	Hypothesis *string
	Outcome    *string
	MarketID   *string
	OrderBy    string
	Asc        *bool
}

type ListCompetitionsParams struct {
	Limit       int
	Offset      int
	EnabledOnly bool
	Country     *string
}

// DailyMarketScore is the latest score per market for one day, joined to
// the market's competition; input to the competition aggregator.
type DailyMarketScore struct {
	MarketID      string
	CompetitionID string
	TotalScore    float64
}

type CompetitionRanking struct {
	CompetitionID string
	Name          string
	AvgScore      float64
	MarketsScored int
}

// HypothesisStats is the aggregate read model exposed per hypothesis.
type HypothesisStats struct {
	Decisions   int64
	Settled     int64
	Wins        int64
	Losses      int64
	Voids       int64
	TimedOut    int64
	TotalStaked decimal.Decimal
	NetPnL      decimal.Decimal
	AvgCLV      float64
	WinRate     float64
	ROIPct      float64
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Catalog.
	UpsertCompetitions(ctx context.Context, items []models.Competition) error
	ListCompetitions(ctx context.Context, params ListCompetitionsParams) ([]models.Competition, error)
	UpsertEvents(ctx context.Context, items []models.Event) error
	UpsertMarkets(ctx context.Context, items []models.Market) error
	UpsertRunners(ctx context.Context, items []models.Runner) error
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	ListMarketsByIDs(ctx context.Context, ids []string) ([]models.Market, error)
	ListRunnersByMarketID(ctx context.Context, marketID string) ([]models.Runner, error)
	MarkMarketStatus(ctx context.Context, marketID string, status string) error
	ApplyRunnerResult(ctx context.Context, marketID string, winningRunnerID *int64) error

	// Snapshots (append-only, bounded retention).
	InsertSnapshot(ctx context.Context, item *models.MarketSnapshot) error
	ListSnapshots(ctx context.Context, marketID string, from, to time.Time) ([]models.MarketSnapshot, error)
	LatestSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error)
	ListMarketIDsWithSnapshotsSince(ctx context.Context, since time.Time, limit int) ([]string, error)
	DeleteSnapshotsBefore(ctx context.Context, before time.Time) (int64, error)

	// Profiles (idempotent upsert on market+date+bucket).
	UpsertProfile(ctx context.Context, item *models.MarketProfile) error
	GetProfile(ctx context.Context, marketID string, date time.Time, bucket string) (*models.MarketProfile, error)
	ListProfilesUpdatedSince(ctx context.Context, since time.Time, limit int) ([]models.MarketProfile, error)
	ListProfilesByMarketID(ctx context.Context, marketID string, limit int) ([]models.MarketProfile, error)

	// Scores (append-only; reads dedupe to latest per market).
	InsertScore(ctx context.Context, item *models.ExploitabilityScore) error
	ListLatestScores(ctx context.Context, params ListScoresParams) ([]models.ExploitabilityScore, error)
	LatestScoreForMarket(ctx context.Context, marketID string) (*models.ExploitabilityScore, error)
	ListDailyMarketScores(ctx context.Context, day time.Time) ([]DailyMarketScore, error)

	// Hypotheses.
	UpsertHypothesis(ctx context.Context, item *models.TradingHypothesis) error
	ListHypotheses(ctx context.Context, enabledOnly bool) ([]models.TradingHypothesis, error)
	SetHypothesisEnabled(ctx context.Context, name string, enabled bool) error

	// Shadow decisions. InsertShadowDecisionIfAbsent reports whether this
	// call created the row; losing a creation race is not an error.
	InsertShadowDecisionIfAbsent(ctx context.Context, item *models.ShadowDecision) (bool, error)
	GetShadowDecision(ctx context.Context, marketID, hypothesisName string) (*models.ShadowDecision, error)
	ListShadowDecisions(ctx context.Context, params ListDecisionsParams) ([]models.ShadowDecision, error)
	CountShadowDecisions(ctx context.Context, params ListDecisionsParams) (int64, error)
	ListDecisionsAwaitingClosing(ctx context.Context, limit int) ([]models.ShadowDecision, error)
	ListPendingDecisions(ctx context.Context, limit int) ([]models.ShadowDecision, error)
	SetDecisionClosing(ctx context.Context, id uint64, back, lay, clv decimal.Decimal, at time.Time) error
	SettleDecision(ctx context.Context, id uint64, outcome string, gross, commission, net decimal.Decimal, settledAt time.Time, timedOut bool) (bool, error)
	ListSettledDecisions(ctx context.Context, hypothesisName string) ([]models.ShadowDecision, error)
	HypothesisStats(ctx context.Context, hypothesisName string) (HypothesisStats, error)

	// Settlement feed.
	UpsertMarketResult(ctx context.Context, item *models.MarketResult) error
	GetMarketResult(ctx context.Context, marketID string) (*models.MarketResult, error)
	ListMarketResultsByIDs(ctx context.Context, marketIDs []string) ([]models.MarketResult, error)

	// Competition stats.
	UpsertCompetitionStats(ctx context.Context, item *models.CompetitionStats) error
	ListCompetitionStats(ctx context.Context, competitionID string, since time.Time) ([]models.CompetitionStats, error)
	ListCompetitionRankings(ctx context.Context, since time.Time, minMarkets int, limit int) ([]CompetitionRanking, error)

	// Ingest watermarks.
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
}
