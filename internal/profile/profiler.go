package profile

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// Profiler folds a market's snapshots for one (date, time-bucket)
// partition into a MarketProfile row. Buckets with fewer than MinSnapshots
// observations produce no row at all: insufficient data is not zero.
type Profiler struct {
	Repo         repository.Repository
	Logger       *zap.Logger
	MinSnapshots int
}

type RunStats struct {
	MarketsProcessed int
	ProfilesUpserted int
}

// RunOnce recomputes profiles for every market that has snapshots on the
// given day. Re-running on identical input is idempotent: the upsert
// replaces, never accumulates.
func (p *Profiler) RunOnce(ctx context.Context, day time.Time) (RunStats, error) {
	var stats RunStats
	if p == nil || p.Repo == nil {
		return stats, nil
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	marketIDs, err := p.Repo.ListMarketIDsWithSnapshotsSince(ctx, start, 5000)
	if err != nil {
		return stats, err
	}
	for _, marketID := range marketIDs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		n, err := p.ProfileMarket(ctx, marketID, start, end)
		if err != nil {
			p.logWarn("profile market failed", err, zap.String("market_id", marketID))
			continue
		}
		stats.MarketsProcessed++
		stats.ProfilesUpserted += n
	}
	return stats, nil
}

// ProfileMarket recomputes all bucket profiles for one market within
// [from, to). Returns the number of profile rows upserted.
func (p *Profiler) ProfileMarket(ctx context.Context, marketID string, from, to time.Time) (int, error) {
	market, err := p.Repo.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	if market == nil || market.ScheduledOff == nil {
		return 0, nil
	}
	snapshots, err := p.Repo.ListSnapshots(ctx, marketID, from, to)
	if err != nil {
		return 0, err
	}
	if len(snapshots) == 0 {
		return 0, nil
	}

	buckets := map[string][]models.MarketSnapshot{}
	for _, snap := range snapshots {
		bucket := TimeBucket(*market.ScheduledOff, snap.CapturedAt)
		if bucket == BucketInplay {
			continue
		}
		buckets[bucket] = append(buckets[bucket], snap)
	}

	upserted := 0
	for bucket, bucketSnaps := range buckets {
		row, ok := p.computeBucketProfile(bucketSnaps)
		if !ok {
			continue
		}
		row.MarketID = marketID
		row.ProfileDate = from
		row.TimeBucket = bucket
		if err := p.Repo.UpsertProfile(ctx, row); err != nil {
			return upserted, err
		}
		upserted++
	}
	return upserted, nil
}

type snapshotMetrics struct {
	spreadTicks float64
	bestDepth   float64
	midPrice    float64
}

func extractMetrics(snap models.MarketSnapshot) snapshotMetrics {
	var out snapshotMetrics
	runners := models.UnmarshalRunnerLadders(snap.Runners)
	if len(runners) == 0 {
		return out
	}
	valid := 0
	for _, r := range runners {
		if len(r.Back) == 0 || len(r.Lay) == 0 {
			continue
		}
		bestBack := r.Back[0]
		bestLay := r.Lay[0]
		out.spreadTicks += SpreadTicks(bestBack.Price, bestLay.Price)
		out.bestDepth += bestBack.Size + bestLay.Size
		out.midPrice += (bestBack.Price + bestLay.Price) / 2
		valid++
	}
	if valid > 0 {
		out.spreadTicks /= float64(valid)
		out.midPrice /= float64(valid)
	}
	return out
}

func (p *Profiler) computeBucketProfile(snapshots []models.MarketSnapshot) (*models.MarketProfile, bool) {
	minSnaps := p.MinSnapshots
	if minSnaps < 2 {
		minSnaps = 2
	}
	if len(snapshots) < minSnaps {
		return nil, false
	}

	var spreads, depths, mids []float64
	for _, snap := range snapshots {
		m := extractMetrics(snap)
		if m.spreadTicks > 0 {
			spreads = append(spreads, m.spreadTicks)
		}
		if m.bestDepth > 0 {
			depths = append(depths, m.bestDepth)
		}
		if m.midPrice > 0 {
			mids = append(mids, m.midPrice)
		}
	}
	if len(spreads) == 0 || len(depths) == 0 {
		return nil, false
	}

	durationMinutes := snapshots[len(snapshots)-1].CapturedAt.Sub(snapshots[0].CapturedAt).Minutes()
	if durationMinutes <= 0 {
		durationMinutes = 1
	}

	maxVolume := 0.0
	for _, snap := range snapshots {
		v, _ := snap.TotalMatched.Float64()
		if v > maxVolume {
			maxVolume = v
		}
	}

	meanMid := mean(mids)
	priceVol := 0.0
	if len(mids) > 1 && meanMid > 0 {
		priceVol = stddev(mids) / meanMid
	}

	return &models.MarketProfile{
		AvgSpreadTicks:      mean(spreads),
		SpreadVolatility:    stddev(spreads),
		AvgDepthBest:        mean(depths),
		TotalMatchedVolume:  maxVolume,
		UpdateRatePerMinute: float64(len(snapshots)) / durationMinutes,
		PriceVolatility:     priceVol,
		MeanPrice:           meanMid,
		SnapshotCount:       len(snapshots),
		FavouriteRunnerID:   snapshots[len(snapshots)-1].FavouriteRunnerID,
	}, true
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation; fewer than two values yield 0.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func (p *Profiler) logWarn(msg string, err error, fields ...zap.Field) {
	if p == nil || p.Logger == nil {
		return
	}
	p.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
