package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edgescout/internal/models"
	"edgescout/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Catalog ----------------------------------------------------------------

func (s *Store) UpsertCompetitions(ctx context.Context, items []models.Competition) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "country", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) ListCompetitions(ctx context.Context, params repository.ListCompetitionsParams) ([]models.Competition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Competition{})
	if params.EnabledOnly {
		query = query.Where("enabled = true AND exclusion_tier = 0")
	}
	if params.Country != nil && strings.TrimSpace(*params.Country) != "" {
		query = query.Where("country = ?", strings.TrimSpace(*params.Country))
	}
	limit := normalizeLimit(params.Limit, 500)
	var items []models.Competition
	if err := query.Order("name asc").Limit(limit).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertEvents(ctx context.Context, items []models.Event) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"competition_id", "name", "country", "open_date", "last_seen_at", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) UpsertMarkets(ctx context.Context, items []models.Market) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"event_id", "competition_id", "name", "market_type", "status", "in_play",
			"scheduled_off", "total_matched", "last_snapshot_at", "last_seen_at", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) UpsertRunners(ctx context.Context, items []models.Runner) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}, {Name: "selection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "sort_priority", "last_back_price", "last_lay_price", "updated_at",
		}),
	}).Create(&items).Error
}

func (s *Store) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.CompetitionID != nil && strings.TrimSpace(*params.CompetitionID) != "" {
		query = query.Where("competition_id = ?", strings.TrimSpace(*params.CompetitionID))
	}
	if params.MarketType != nil && strings.TrimSpace(*params.MarketType) != "" {
		query = query.Where("market_type = ?", strings.TrimSpace(*params.MarketType))
	}
	if params.OffAfter != nil && !params.OffAfter.IsZero() {
		query = query.Where("scheduled_off >= ?", *params.OffAfter)
	}
	if params.OffBefore != nil && !params.OffBefore.IsZero() {
		query = query.Where("scheduled_off < ?", *params.OffBefore)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "scheduled_off")
	var items []models.Market
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMarketsByIDs(ctx context.Context, ids []string) ([]models.Market, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Market
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRunnersByMarketID(ctx context.Context, marketID string) ([]models.Runner, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Runner
	if err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("sort_priority asc, selection_id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkMarketStatus(ctx context.Context, marketID string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", marketID).
		Update("status", status).Error
}

// ApplyRunnerResult flips runner statuses once a settlement result lands:
// the winner becomes WINNER, the rest LOSER. A nil winner (void) marks all
// runners REMOVED.
func (s *Store) ApplyRunnerResult(ctx context.Context, marketID string, winningRunnerID *int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	if winningRunnerID == nil {
		return s.db.WithContext(ctx).Model(&models.Runner{}).
			Where("market_id = ?", marketID).
			Update("status", "REMOVED").Error
	}
	if err := s.db.WithContext(ctx).Model(&models.Runner{}).
		Where("market_id = ? AND selection_id = ?", marketID, *winningRunnerID).
		Update("status", "WINNER").Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Runner{}).
		Where("market_id = ? AND selection_id <> ? AND status = 'ACTIVE'", marketID, *winningRunnerID).
		Update("status", "LOSER").Error
}

// --- Snapshots --------------------------------------------------------------

func (s *Store) InsertSnapshot(ctx context.Context, item *models.MarketSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSnapshots(ctx context.Context, marketID string, from, to time.Time) ([]models.MarketSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("market_id = ?", marketID)
	if !from.IsZero() {
		query = query.Where("captured_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("captured_at < ?", to)
	}
	var items []models.MarketSnapshot
	if err := query.Order("captured_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.MarketSnapshot
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("captured_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarketIDsWithSnapshotsSince(ctx context.Context, since time.Time, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.MarketSnapshot{}).
		Distinct("market_id").
		Where("captured_at >= ?", since).
		Limit(normalizeLimit(limit, 1000)).
		Pluck("market_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) DeleteSnapshotsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("captured_at < ?", before).
		Delete(&models.MarketSnapshot{})
	return res.RowsAffected, res.Error
}

// --- Profiles ---------------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, item *models.MarketProfile) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}, {Name: "profile_date"}, {Name: "time_bucket"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_spread_ticks", "spread_volatility", "avg_depth_best",
			"total_matched_volume", "update_rate_per_minute", "price_volatility",
			"mean_price", "snapshot_count", "favourite_runner_id", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetProfile(ctx context.Context, marketID string, date time.Time, bucket string) (*models.MarketProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.MarketProfile
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND profile_date = ? AND time_bucket = ?", marketID, date.Format("2006-01-02"), bucket).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListProfilesUpdatedSince(ctx context.Context, since time.Time, limit int) ([]models.MarketProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.MarketProfile
	err := s.db.WithContext(ctx).
		Where("updated_at >= ?", since).
		Order("updated_at asc").
		Limit(normalizeLimit(limit, 1000)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListProfilesByMarketID(ctx context.Context, marketID string, limit int) ([]models.MarketProfile, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.MarketProfile
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("profile_date desc, time_bucket asc").
		Limit(normalizeLimit(limit, 500)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Scores -----------------------------------------------------------------

func (s *Store) InsertScore(ctx context.Context, item *models.ExploitabilityScore) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// ListLatestScores dedupes the append-only score history to the most
// recent row per market (DISTINCT ON), then filters and orders.
func (s *Store) ListLatestScores(ctx context.Context, params repository.ListScoresParams) ([]models.ExploitabilityScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	sub := s.db.WithContext(ctx).Model(&models.ExploitabilityScore{}).
		Select("DISTINCT ON (market_id) *").
		Order("market_id, scored_at DESC")
	if params.Since != nil && !params.Since.IsZero() {
		sub = sub.Where("scored_at >= ?", *params.Since)
	}
	if params.TimeBucket != nil && strings.TrimSpace(*params.TimeBucket) != "" {
		sub = sub.Where("time_bucket = ?", strings.TrimSpace(*params.TimeBucket))
	}
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		sub = sub.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	query := s.db.WithContext(ctx).
		Table("(?) AS latest", sub).
		Where("total_score >= ?", params.MinTotal).
		Order("total_score DESC").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset))
	var items []models.ExploitabilityScore
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestScoreForMarket(ctx context.Context, marketID string) (*models.ExploitabilityScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ExploitabilityScore
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("scored_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDailyMarketScores(ctx context.Context, day time.Time) ([]repository.DailyMarketScore, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	sub := s.db.WithContext(ctx).Model(&models.ExploitabilityScore{}).
		Select("DISTINCT ON (market_id) market_id, total_score").
		Where("scored_at >= ? AND scored_at < ?", start, end).
		Order("market_id, scored_at DESC")
	var rows []repository.DailyMarketScore
	err := s.db.WithContext(ctx).
		Table("(?) AS latest", sub).
		Select("latest.market_id, latest.total_score, markets.competition_id").
		Joins("JOIN markets ON markets.id = latest.market_id").
		Where("markets.competition_id IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Hypotheses -------------------------------------------------------------

func (s *Store) UpsertHypothesis(ctx context.Context, item *models.TradingHypothesis) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"side", "selection", "stake_usd", "criteria", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListHypotheses(ctx context.Context, enabledOnly bool) ([]models.TradingHypothesis, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingHypothesis{})
	if enabledOnly {
		query = query.Where("enabled = true")
	}
	var items []models.TradingHypothesis
	if err := query.Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetHypothesisEnabled(ctx context.Context, name string, enabled bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.TradingHypothesis{}).
		Where("name = ?", name).
		Update("enabled", enabled).Error
}

// --- Shadow decisions -------------------------------------------------------

// InsertShadowDecisionIfAbsent is the single concurrency-sensitive write:
// the unique (market_id, hypothesis_name) index plus ON CONFLICT DO
// NOTHING makes concurrent evaluation passes race-safe. The returned bool
// reports whether this call created the row.
func (s *Store) InsertShadowDecisionIfAbsent(ctx context.Context, item *models.ShadowDecision) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "hypothesis_name"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) GetShadowDecision(ctx context.Context, marketID, hypothesisName string) (*models.ShadowDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ShadowDecision
	err := s.db.WithContext(ctx).
		Where("market_id = ? AND hypothesis_name = ?", marketID, hypothesisName).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func decisionQuery(db *gorm.DB, params repository.ListDecisionsParams) *gorm.DB {
	query := db.Model(&models.ShadowDecision{})
	if params.Hypothesis != nil && strings.TrimSpace(*params.Hypothesis) != "" {
		query = query.Where("hypothesis_name = ?", strings.TrimSpace(*params.Hypothesis))
	}
	if params.Outcome != nil && strings.TrimSpace(*params.Outcome) != "" {
		query = query.Where("outcome = ?", strings.TrimSpace(*params.Outcome))
	}
	if params.MarketID != nil && strings.TrimSpace(*params.MarketID) != "" {
		query = query.Where("market_id = ?", strings.TrimSpace(*params.MarketID))
	}
	return query
}

func (s *Store) ListShadowDecisions(ctx context.Context, params repository.ListDecisionsParams) ([]models.ShadowDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := decisionQuery(s.db.WithContext(ctx), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.ShadowDecision
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountShadowDecisions(ctx context.Context, params repository.ListDecisionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	if err := decisionQuery(s.db.WithContext(ctx), params).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListDecisionsAwaitingClosing(ctx context.Context, limit int) ([]models.ShadowDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ShadowDecision
	err := s.db.WithContext(ctx).
		Where("outcome = ? AND clv IS NULL", models.OutcomePending).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 500)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPendingDecisions(ctx context.Context, limit int) ([]models.ShadowDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ShadowDecision
	err := s.db.WithContext(ctx).
		Where("outcome = ?", models.OutcomePending).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 500)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetDecisionClosing writes closing fields at most once: the clv IS NULL
// predicate makes a repeated capture a no-op.
func (s *Store) SetDecisionClosing(ctx context.Context, id uint64, back, lay, clv decimal.Decimal, at time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.ShadowDecision{}).
		Where("id = ? AND clv IS NULL", id).
		Updates(map[string]any{
			"closing_back_price": back,
			"closing_lay_price":  lay,
			"clv":                clv,
			"closing_at":         at,
		}).Error
}

// SettleDecision performs the terminal transition; the outcome = PENDING
// predicate guarantees it happens exactly once. Returns whether this call
// performed the transition.
func (s *Store) SettleDecision(ctx context.Context, id uint64, outcome string, gross, commission, net decimal.Decimal, settledAt time.Time, timedOut bool) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.ShadowDecision{}).
		Where("id = ? AND outcome = ?", id, models.OutcomePending).
		Updates(map[string]any{
			"outcome":    outcome,
			"gross_pnl":  gross,
			"commission": commission,
			"net_pnl":    net,
			"settled_at": settledAt,
			"timed_out":  timedOut,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ListSettledDecisions(ctx context.Context, hypothesisName string) ([]models.ShadowDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ShadowDecision
	err := s.db.WithContext(ctx).
		Where("hypothesis_name = ? AND outcome IN ?", hypothesisName,
			[]string{models.OutcomeWin, models.OutcomeLose, models.OutcomeVoid}).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) HypothesisStats(ctx context.Context, hypothesisName string) (repository.HypothesisStats, error) {
	var out repository.HypothesisStats
	if s == nil || s.db == nil {
		return out, nil
	}
	row := struct {
		Decisions   int64
		Settled     int64
		Wins        int64
		Losses      int64
		Voids       int64
		TimedOut    int64
		TotalStaked decimal.Decimal
		NetPnL      decimal.Decimal
		AvgCLV      *float64
	}{}
	err := s.db.WithContext(ctx).Model(&models.ShadowDecision{}).
		Select(`COUNT(*) AS decisions,
			COUNT(*) FILTER (WHERE outcome <> 'PENDING') AS settled,
			COUNT(*) FILTER (WHERE outcome = 'WIN') AS wins,
			COUNT(*) FILTER (WHERE outcome = 'LOSE') AS losses,
			COUNT(*) FILTER (WHERE outcome = 'VOID') AS voids,
			COUNT(*) FILTER (WHERE timed_out) AS timed_out,
			COALESCE(SUM(stake) FILTER (WHERE outcome IN ('WIN','LOSE')), 0) AS total_staked,
			COALESCE(SUM(net_pnl), 0) AS net_pn_l,
			AVG(clv) AS avg_clv`).
		Where("hypothesis_name = ?", hypothesisName).
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.Decisions = row.Decisions
	out.Settled = row.Settled
	out.Wins = row.Wins
	out.Losses = row.Losses
	out.Voids = row.Voids
	out.TimedOut = row.TimedOut
	out.TotalStaked = row.TotalStaked
	out.NetPnL = row.NetPnL
	if row.AvgCLV != nil {
		out.AvgCLV = *row.AvgCLV
	}
	if counted := row.Wins + row.Losses; counted > 0 {
		out.WinRate = float64(row.Wins) / float64(counted)
	}
	if row.TotalStaked.IsPositive() {
		roi, _ := row.NetPnL.Div(row.TotalStaked).Mul(decimal.NewFromInt(100)).Float64()
		out.ROIPct = roi
	}
	return out, nil
}

// --- Settlement feed --------------------------------------------------------

func (s *Store) UpsertMarketResult(ctx context.Context, item *models.MarketResult) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "market_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"winning_runner_id", "void", "settled_at", "raw",
		}),
	}).Create(item).Error
}

func (s *Store) GetMarketResult(ctx context.Context, marketID string) (*models.MarketResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.MarketResult
	err := s.db.WithContext(ctx).First(&item, "market_id = ?", marketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarketResultsByIDs(ctx context.Context, marketIDs []string) ([]models.MarketResult, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	var items []models.MarketResult
	if err := s.db.WithContext(ctx).Where("market_id IN ?", marketIDs).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Competition stats ------------------------------------------------------

func (s *Store) UpsertCompetitionStats(ctx context.Context, item *models.CompetitionStats) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "competition_id"}, {Name: "stats_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"markets_scored", "avg_score", "max_score", "min_score", "stddev_score",
			"count_above_t1", "count_above_t2", "count_above_t3", "rolling30d_avg", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListCompetitionStats(ctx context.Context, competitionID string, since time.Time) ([]models.CompetitionStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("competition_id = ?", competitionID)
	if !since.IsZero() {
		query = query.Where("stats_date >= ?", since.Format("2006-01-02"))
	}
	var items []models.CompetitionStats
	if err := query.Order("stats_date asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListCompetitionRankings(ctx context.Context, since time.Time, minMarkets int, limit int) ([]repository.CompetitionRanking, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.CompetitionRanking
	err := s.db.WithContext(ctx).Model(&models.CompetitionStats{}).
		Select(`competition_stats.competition_id,
			competitions.name,
			AVG(competition_stats.avg_score) AS avg_score,
			SUM(competition_stats.markets_scored) AS markets_scored`).
		Joins("JOIN competitions ON competitions.id = competition_stats.competition_id").
		Where("competition_stats.stats_date >= ?", since.Format("2006-01-02")).
		Group("competition_stats.competition_id, competitions.name").
		Having("SUM(competition_stats.markets_scored) >= ?", minMarkets).
		Order("avg_score DESC").
		Limit(normalizeLimit(limit, 100)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Sync state -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SyncState
	err := s.db.WithContext(ctx).First(&item, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watermark_ts", "last_success_at", "last_attempt_at", "last_error", "stats_json",
		}),
	}).Create(state).Error
}

// --- helpers ----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 5000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(orderBy)
	if col == "" {
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}
