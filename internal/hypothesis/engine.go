package hypothesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/momentum"
	"edgescout/internal/repository"
)

// Prices outside this band are not tradeable paper positions either:
// sub-1.10 backs pay nothing, 50+ is lottery territory.
const (
	minTradeablePrice = 1.10
	maxTradeablePrice = 50.0
)

// Engine evaluates every enabled hypothesis against every open market in
// its entry window and records shadow decisions. Creation is idempotent
// per (market, hypothesis): a concurrent or retried pass that loses the
// insert race counts the decision as already present, not as a failure.
type Engine struct {
	Repo      repository.Repository
	Detector  *momentum.Detector
	Logger    *zap.Logger
	BaseStake float64
	Horizon   time.Duration
}

type RunStats struct {
	Hypotheses      int
	MarketsScanned  int
	Matched         int
	Created         int
	SkippedExisting int
}

// SyncFromConfig mirrors the configured hypothesis set into the database.
// Only the definition is pushed; the enabled flag of an existing row wins
// so operator toggles survive restarts.
func (e *Engine) SyncFromConfig(ctx context.Context, hyps []config.HypothesisConfig) error {
	if e == nil || e.Repo == nil {
		return nil
	}
	existing, err := e.Repo.ListHypotheses(ctx, false)
	if err != nil {
		return err
	}
	enabledByName := map[string]bool{}
	for _, row := range existing {
		enabledByName[row.Name] = row.Enabled
	}
	for _, h := range hyps {
		raw, err := json.Marshal(CriteriaFromConfig(h.Criteria))
		if err != nil {
			return fmt.Errorf("marshal criteria for %s: %w", h.Name, err)
		}
		enabled := h.Enabled
		if v, ok := enabledByName[h.Name]; ok {
			enabled = v
		}
		row := &models.TradingHypothesis{
			Name:      h.Name,
			Enabled:   enabled,
			Side:      h.Side,
			Selection: h.Selection,
			StakeUSD:  h.StakeUSD,
			Criteria:  datatypes.JSON(raw),
		}
		if err := e.Repo.UpsertHypothesis(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type compiled struct {
	row      models.TradingHypothesis
	criteria Criteria
}

// RunOnce is one evaluation pass over all enabled hypotheses.
func (e *Engine) RunOnce(ctx context.Context, now time.Time) (RunStats, error) {
	var stats RunStats
	if e == nil || e.Repo == nil {
		return stats, nil
	}

	rows, err := e.Repo.ListHypotheses(ctx, true)
	if err != nil {
		return stats, err
	}
	if len(rows) == 0 {
		return stats, nil
	}

	var hyps []compiled
	maxMinutes := 0
	for _, row := range rows {
		criteria, err := ParseCriteria(row.Criteria)
		if err != nil {
			e.logWarn("skipping hypothesis with bad criteria", err, zap.String("hypothesis", row.Name))
			continue
		}
		hyps = append(hyps, compiled{row: row, criteria: criteria})
		m := criteria.MaxMinutesToOff
		if m <= 0 {
			m = 1440
		}
		if m > maxMinutes {
			maxMinutes = m
		}
	}
	stats.Hypotheses = len(hyps)
	if len(hyps) == 0 {
		return stats, nil
	}

	horizon := e.Horizon
	if horizon <= 0 {
		horizon = time.Duration(maxMinutes) * time.Minute
	}
	status := models.MarketStatusOpen
	offBefore := now.Add(horizon)
	asc := true
	markets, err := e.Repo.ListMarkets(ctx, repository.ListMarketsParams{
		Status:    &status,
		OffAfter:  &now,
		OffBefore: &offBefore,
		OrderBy:   "scheduled_off",
		Asc:       &asc,
		Limit:     2000,
	})
	if err != nil {
		return stats, err
	}

	for _, market := range markets {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if market.InPlay || market.ScheduledOff == nil {
			continue
		}
		stats.MarketsScanned++
		if err := e.evaluateMarket(ctx, market, hyps, now, &stats); err != nil {
			e.logWarn("evaluate market failed", err, zap.String("market_id", market.ID))
		}
	}
	return stats, nil
}

func (e *Engine) evaluateMarket(ctx context.Context, market models.Market, hyps []compiled, now time.Time, stats *RunStats) error {
	snap, err := e.Repo.LatestSnapshot(ctx, market.ID)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	quotes, err := e.buildQuotes(ctx, market.ID, snap)
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		return nil
	}

	cand := Candidate{
		MarketID:     market.ID,
		MarketType:   market.MarketType,
		MinutesToOff: int(market.ScheduledOff.Sub(now).Minutes()),
	}
	cand.TotalMatched, _ = snap.TotalMatched.Float64()

	if latest, err := e.Repo.LatestScoreForMarket(ctx, market.ID); err != nil {
		return err
	} else if latest != nil {
		score := latest.TotalScore
		cand.Score = &score
	}

	if e.Detector != nil {
		signals, err := e.Detector.Detect(ctx, market.ID, now)
		if err != nil {
			return err
		}
		cand.Signals = signals
	}

	for _, h := range hyps {
		match := h.criteria.Match(cand)
		if match == nil {
			continue
		}
		quote := SelectRunner(h.row.Selection, market.MarketType, quotes, match)
		if quote == nil {
			continue
		}
		if h.criteria.MaxSpreadPct > 0 && quote.SpreadPct > h.criteria.MaxSpreadPct {
			continue
		}
		stats.Matched++

		created, err := e.Repo.InsertShadowDecisionIfAbsent(ctx, e.buildDecision(h, cand, match, quote))
		if err != nil {
			e.logWarn("create decision failed", err,
				zap.String("market_id", market.ID), zap.String("hypothesis", h.row.Name))
			continue
		}
		if !created {
			stats.SkippedExisting++
			continue
		}
		stats.Created++
		if e.Logger != nil {
			e.Logger.Info("shadow decision created",
				zap.String("hypothesis", h.row.Name),
				zap.String("market_id", market.ID),
				zap.Int64("runner_id", quote.SelectionID),
				zap.String("side", h.row.Side),
				zap.String("reason", match.Reason))
		}
	}
	return nil
}

func (e *Engine) buildDecision(h compiled, cand Candidate, match *MatchResult, quote *Quote) *models.ShadowDecision {
	entry := quote.Back
	if h.row.Side == models.SideLay {
		entry = quote.Lay
	}
	stake := h.row.StakeUSD
	if stake <= 0 {
		stake = e.BaseStake
	}
	decision := &models.ShadowDecision{
		Ref:            uuid.NewString(),
		MarketID:       cand.MarketID,
		HypothesisName: h.row.Name,
		RunnerID:       quote.SelectionID,
		RunnerName:     quote.Name,
		Side:           h.row.Side,
		EntryPrice:     decimal.NewFromFloat(entry),
		EntrySpreadPct: quote.SpreadPct,
		EntryMatched:   decimal.NewFromFloat(cand.TotalMatched),
		Stake:          decimal.NewFromFloat(stake),
		Reason:         match.Reason,
		Outcome:        models.OutcomePending,
	}
	if cand.Score != nil {
		decision.Score = *cand.Score
	}
	if match.Signal != nil {
		decision.MomentumWindow = match.Signal.Window
		decision.MomentumPctChange = match.Signal.PctChange
	}
	return decision
}

// buildQuotes joins the snapshot's ladders with runner names and applies
// the price sanity filter.
func (e *Engine) buildQuotes(ctx context.Context, marketID string, snap *models.MarketSnapshot) ([]Quote, error) {
	ladders := models.UnmarshalRunnerLadders(snap.Runners)
	if len(ladders) == 0 {
		return nil, nil
	}
	runners, err := e.Repo.ListRunnersByMarketID(ctx, marketID)
	if err != nil {
		return nil, err
	}
	names := map[int64]string{}
	for _, r := range runners {
		names[r.SelectionID] = r.Name
	}

	var quotes []Quote
	for _, ladder := range ladders {
		if len(ladder.Back) == 0 || len(ladder.Lay) == 0 {
			continue
		}
		back := ladder.Back[0]
		lay := ladder.Lay[0]
		if back.Price < minTradeablePrice || back.Price > maxTradeablePrice {
			continue
		}
		if lay.Price <= 0 {
			continue
		}
		quotes = append(quotes, Quote{
			SelectionID: ladder.SelectionID,
			Name:        names[ladder.SelectionID],
			Back:        back.Price,
			Lay:         lay.Price,
			BackSize:    back.Size,
			LaySize:     lay.Size,
			SpreadPct:   (lay.Price - back.Price) / back.Price * 100,
		})
	}
	return quotes, nil
}

func (e *Engine) logWarn(msg string, err error, fields ...zap.Field) {
	if e == nil || e.Logger == nil {
		return
	}
	e.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
