package scoring

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edgescout/internal/models"
	"edgescout/internal/profile"
	"edgescout/internal/repository"
)

// Service scores every recently refreshed profile. Each run appends new
// score rows; prior rows are never touched, so the history of a market's
// score is queryable as a series.
type Service struct {
	Repo     repository.Repository
	Engine   *Engine
	Logger   *zap.Logger
	Lookback time.Duration
}

func (s *Service) RunOnce(ctx context.Context) (int, error) {
	if s == nil || s.Repo == nil || s.Engine == nil {
		return 0, nil
	}
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 2 * time.Hour
	}
	since := time.Now().UTC().Add(-lookback)
	profiles, err := s.Repo.ListProfilesUpdatedSince(ctx, since, 5000)
	if err != nil {
		return 0, err
	}

	scored := 0
	now := time.Now().UTC()
	for _, p := range profiles {
		if ctx.Err() != nil {
			return scored, ctx.Err()
		}
		result := s.Engine.Score(Metrics{
			SpreadTicks:   p.AvgSpreadTicks,
			Volatility:    p.PriceVolatility,
			UpdateRate:    p.UpdateRatePerMinute,
			Depth:         p.AvgDepthBest,
			Volume:        p.TotalMatchedVolume,
			SnapshotCount: p.SnapshotCount,
		})

		row := &models.ExploitabilityScore{
			MarketID:         p.MarketID,
			RunnerID:         p.FavouriteRunnerID,
			TimeBucket:       p.TimeBucket,
			OddsBand:         profile.OddsBand(p.MeanPrice),
			SpreadScore:      result.SpreadScore,
			VolatilityScore:  result.VolatilityScore,
			UpdateScore:      result.UpdateScore,
			DepthScore:       result.DepthScore,
			VolumePenalty:    result.VolumePenalty,
			TotalScore:       result.TotalScore,
			EstimatedEdgePct: EstimatedEdgePct(result.TotalScore),
			ConfigVersion:    s.Engine.Version(),
			ScoredAt:         now,
		}
		if len(result.GuardsFailed) > 0 {
			if raw, err := json.Marshal(result.GuardsFailed); err == nil {
				row.GuardReasons = datatypes.JSON(raw)
			}
		}
		if err := s.Repo.InsertScore(ctx, row); err != nil {
			s.logWarn("insert score failed", err, zap.String("market_id", p.MarketID))
			continue
		}
		scored++
	}
	return scored, nil
}

func (s *Service) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
