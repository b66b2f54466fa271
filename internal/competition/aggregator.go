package competition

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// Aggregator recomputes per-competition daily score statistics. Each run
// is a full recompute of the target day: the upsert replaces whatever a
// previous run wrote, so late-arriving scores simply fold in next pass.
type Aggregator struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.CompetitionConfig
}

type RunStats struct {
	Competitions int
	Upserted     int
	Skipped      int
}

// RunOnce aggregates the given day. Competitions below the minimum-market
// gate, matching an exclusion pattern, or carrying a hard exclusion tier
// produce no row.
func (a *Aggregator) RunOnce(ctx context.Context, day time.Time) (RunStats, error) {
	var stats RunStats
	if a == nil || a.Repo == nil {
		return stats, nil
	}
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	scores, err := a.Repo.ListDailyMarketScores(ctx, date)
	if err != nil {
		return stats, err
	}
	if len(scores) == 0 {
		return stats, nil
	}

	excluded, err := a.excludedCompetitions(ctx)
	if err != nil {
		return stats, err
	}

	byCompetition := map[string][]float64{}
	for _, row := range scores {
		if row.CompetitionID == "" {
			continue
		}
		byCompetition[row.CompetitionID] = append(byCompetition[row.CompetitionID], row.TotalScore)
	}
	stats.Competitions = len(byCompetition)

	minMarkets := a.Config.MinMarketsPerDay
	if minMarkets <= 0 {
		minMarkets = 1
	}
	t1, t2, t3 := a.thresholds()

	for competitionID, totals := range byCompetition {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if len(totals) < minMarkets || excluded[competitionID] {
			stats.Skipped++
			continue
		}

		row := &models.CompetitionStats{
			CompetitionID: competitionID,
			StatsDate:     date,
			MarketsScored: len(totals),
			AvgScore:      mean(totals),
			MaxScore:      maxScore(totals),
			MinScore:      minScore(totals),
			StddevScore:   stddev(totals),
			CountAboveT1:  countAbove(totals, t1),
			CountAboveT2:  countAbove(totals, t2),
			CountAboveT3:  countAbove(totals, t3),
		}
		rolling, err := a.rollingAverage(ctx, competitionID, date, row.AvgScore, row.MarketsScored)
		if err != nil {
			a.logWarn("rolling average failed", err, zap.String("competition_id", competitionID))
		}
		row.Rolling30dAvg = rolling

		if err := a.Repo.UpsertCompetitionStats(ctx, row); err != nil {
			a.logWarn("upsert competition stats failed", err, zap.String("competition_id", competitionID))
			continue
		}
		stats.Upserted++
	}
	return stats, nil
}

// rollingAverage is the market-weighted mean score over the trailing
// window, including today's freshly computed figures in place of any
// stale row for the same date.
func (a *Aggregator) rollingAverage(ctx context.Context, competitionID string, date time.Time, todayAvg float64, todayMarkets int) (float64, error) {
	days := a.Config.RollingDays
	if days <= 0 {
		days = 30
	}
	since := date.AddDate(0, 0, -(days - 1))
	history, err := a.Repo.ListCompetitionStats(ctx, competitionID, since)
	if err != nil {
		return todayAvg, err
	}

	weightedSum := todayAvg * float64(todayMarkets)
	markets := todayMarkets
	for _, h := range history {
		if sameDay(h.StatsDate, date) {
			continue
		}
		weightedSum += h.AvgScore * float64(h.MarketsScored)
		markets += h.MarketsScored
	}
	if markets == 0 {
		return 0, nil
	}
	return weightedSum / float64(markets), nil
}

// excludedCompetitions merges config name patterns with per-row exclusion
// tiers.
func (a *Aggregator) excludedCompetitions(ctx context.Context) (map[string]bool, error) {
	competitions, err := a.Repo.ListCompetitions(ctx, repository.ListCompetitionsParams{Limit: 5000})
	if err != nil {
		return nil, err
	}
	excluded := map[string]bool{}
	for _, c := range competitions {
		if c.ExclusionTier > 0 || !c.Enabled {
			excluded[c.ID] = true
			continue
		}
		for _, pattern := range a.Config.ExcludePatterns {
			if pattern != "" && strings.Contains(strings.ToLower(c.Name), strings.ToLower(pattern)) {
				excluded[c.ID] = true
				break
			}
		}
	}
	return excluded, nil
}

func (a *Aggregator) thresholds() (float64, float64, float64) {
	t1, t2, t3 := 40.0, 55.0, 70.0
	ts := a.Config.Thresholds
	if len(ts) > 0 {
		t1 = ts[0]
	}
	if len(ts) > 1 {
		t2 = ts[1]
	}
	if len(ts) > 2 {
		t3 = ts[2]
	}
	return t1, t2, t3
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func countAbove(xs []float64, threshold float64) int {
	n := 0
	for _, x := range xs {
		if x >= threshold {
			n++
		}
	}
	return n
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

func maxScore(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minScore(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

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

func (a *Aggregator) logWarn(msg string, err error, fields ...zap.Field) {
	if a == nil || a.Logger == nil {
		return
	}
	a.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
