package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edgescout/internal/client/exchange"
	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// ResultIngestService tails the exchange settlement feed. Each pass
// resumes from the persisted watermark, records one MarketResult per
// settled market, flips runner statuses and closes the market row.
// Results are idempotent upserts, so replaying a window is harmless.
type ResultIngestService struct {
	Repo   repository.Repository
	Client *exchange.Client
	Config config.IngestConfig
	Logger *zap.Logger

	ScanInterval time.Duration
}

func (s *ResultIngestService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Client == nil {
		return nil
	}
	interval := s.ScanInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	// Run once on start.
	if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logWarn("result ingest failed", err)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logWarn("result ingest failed", err)
			}
		}
	}
}

func (s *ResultIngestService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Client == nil {
		return nil
	}
	now := time.Now().UTC()
	since := s.watermark(ctx, now)

	results, err := s.Client.ListResults(ctx, since, 500)
	if err != nil {
		s.saveState(ctx, now, since, err)
		return err
	}

	applied := 0
	watermark := since
	for _, result := range results {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if result.MarketID == "" {
			continue
		}
		if err := s.applyResult(ctx, result); err != nil {
			s.logWarn("apply result failed", err, zap.String("market_id", result.MarketID))
			continue
		}
		applied++
		if result.SettledAt.After(watermark) {
			watermark = result.SettledAt
		}
	}

	s.saveState(ctx, now, watermark, nil)
	if s.Logger != nil && applied > 0 {
		s.Logger.Info("results ingested", zap.Int("applied", applied))
	}
	return nil
}

func (s *ResultIngestService) applyResult(ctx context.Context, result exchange.MarketResult) error {
	winner := winnerFromResult(result)

	row := &models.MarketResult{
		MarketID:        result.MarketID,
		WinningRunnerID: winner,
		Void:            result.Voided,
		SettledAt:       result.SettledAt.UTC(),
	}
	if raw, err := json.Marshal(result); err == nil {
		row.Raw = datatypes.JSON(raw)
	}
	if err := s.Repo.UpsertMarketResult(ctx, row); err != nil {
		return err
	}
	if err := s.Repo.ApplyRunnerResult(ctx, result.MarketID, winner); err != nil {
		return err
	}
	return s.Repo.MarkMarketStatus(ctx, result.MarketID, models.MarketStatusClosed)
}

// winnerFromResult prefers the explicit winner field and falls back to
// the per-runner statuses. Voided markets have no winner.
func winnerFromResult(result exchange.MarketResult) *int64 {
	if result.Voided {
		return nil
	}
	if result.WinningSelectionID != nil {
		return result.WinningSelectionID
	}
	for _, r := range result.Runners {
		if r.Status == exchange.RunnerWinner {
			id := r.SelectionID
			return &id
		}
	}
	return nil
}

func (s *ResultIngestService) watermark(ctx context.Context, now time.Time) time.Time {
	lookback := s.Config.ResultLookback
	if lookback <= 0 {
		lookback = 72 * time.Hour
	}
	floor := now.Add(-lookback)

	state, err := s.Repo.GetSyncState(ctx, SyncScopeResults)
	if err != nil || state == nil || state.WatermarkTS == nil {
		return floor
	}
	if state.WatermarkTS.Before(floor) {
		return floor
	}
	return *state.WatermarkTS
}

func (s *ResultIngestService) saveState(ctx context.Context, at, watermark time.Time, runErr error) {
	state := &models.SyncState{Scope: SyncScopeResults, LastAttemptAt: &at, WatermarkTS: &watermark}
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastSuccessAt = &at
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		s.logWarn("save sync state failed", err)
	}
}

func (s *ResultIngestService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
