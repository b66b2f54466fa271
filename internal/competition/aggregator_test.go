package competition

import (
	"context"
	"math"
	"testing"
	"time"

	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

type aggregatorRepo struct {
	repository.Repository
	scores       []repository.DailyMarketScore
	competitions []models.Competition
	history      map[string][]models.CompetitionStats

	upserts map[string]*models.CompetitionStats
}

func (r *aggregatorRepo) ListDailyMarketScores(ctx context.Context, day time.Time) ([]repository.DailyMarketScore, error) {
	return r.scores, nil
}

func (r *aggregatorRepo) ListCompetitions(ctx context.Context, params repository.ListCompetitionsParams) ([]models.Competition, error) {
	return r.competitions, nil
}

func (r *aggregatorRepo) ListCompetitionStats(ctx context.Context, competitionID string, since time.Time) ([]models.CompetitionStats, error) {
	return r.history[competitionID], nil
}

func (r *aggregatorRepo) UpsertCompetitionStats(ctx context.Context, item *models.CompetitionStats) error {
	if r.upserts == nil {
		r.upserts = map[string]*models.CompetitionStats{}
	}
	r.upserts[item.CompetitionID] = item
	return nil
}

func testCompetitionConfig() config.CompetitionConfig {
	return config.CompetitionConfig{
		MinMarketsPerDay: 3,
		Thresholds:       []float64{40, 55, 70},
		RollingDays:      30,
		ExcludePatterns:  []string{"reserve"},
	}
}

func TestRunOnce_AggregatesAndGates(t *testing.T) {
	day := time.Date(2026, 3, 7, 13, 30, 0, 0, time.UTC)
	repo := &aggregatorRepo{
		scores: []repository.DailyMarketScore{
			{MarketID: "m1", CompetitionID: "league", TotalScore: 30},
			{MarketID: "m2", CompetitionID: "league", TotalScore: 60},
			{MarketID: "m3", CompetitionID: "league", TotalScore: 75},
			{MarketID: "m4", CompetitionID: "thin", TotalScore: 80},
			{MarketID: "m5", CompetitionID: "thin", TotalScore: 85},
			{MarketID: "m6", CompetitionID: "reserves", TotalScore: 50},
			{MarketID: "m7", CompetitionID: "reserves", TotalScore: 55},
			{MarketID: "m8", CompetitionID: "reserves", TotalScore: 60},
			{MarketID: "m9", CompetitionID: "", TotalScore: 99},
		},
		competitions: []models.Competition{
			{ID: "league", Name: "Premier League", Enabled: true},
			{ID: "thin", Name: "Cup", Enabled: true},
			{ID: "reserves", Name: "Reserve Division", Enabled: true},
		},
	}
	a := &Aggregator{Repo: repo, Config: testCompetitionConfig()}

	stats, err := a.RunOnce(context.Background(), day)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Competitions != 3 || stats.Upserted != 1 || stats.Skipped != 2 {
		t.Fatalf("stats=%+v", stats)
	}

	row := repo.upserts["league"]
	if row == nil {
		t.Fatalf("league row missing: %v", repo.upserts)
	}
	if row.MarketsScored != 3 || row.AvgScore != 55 || row.MaxScore != 75 || row.MinScore != 30 {
		t.Fatalf("row=%+v", row)
	}
	if row.CountAboveT1 != 2 || row.CountAboveT2 != 2 || row.CountAboveT3 != 1 {
		t.Fatalf("threshold counts=%d/%d/%d", row.CountAboveT1, row.CountAboveT2, row.CountAboveT3)
	}
	if !row.StatsDate.Equal(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date=%v", row.StatsDate)
	}
	if _, ok := repo.upserts["thin"]; ok {
		t.Fatalf("two-market competition should be gated")
	}
	if _, ok := repo.upserts["reserves"]; ok {
		t.Fatalf("excluded-pattern competition should be skipped")
	}
}

func TestRunOnce_HardExclusions(t *testing.T) {
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	repo := &aggregatorRepo{
		scores: []repository.DailyMarketScore{
			{MarketID: "m1", CompetitionID: "tiered", TotalScore: 50},
			{MarketID: "m2", CompetitionID: "tiered", TotalScore: 50},
			{MarketID: "m3", CompetitionID: "tiered", TotalScore: 50},
			{MarketID: "m4", CompetitionID: "disabled", TotalScore: 50},
			{MarketID: "m5", CompetitionID: "disabled", TotalScore: 50},
			{MarketID: "m6", CompetitionID: "disabled", TotalScore: 50},
		},
		competitions: []models.Competition{
			{ID: "tiered", Name: "Friendlies", Enabled: true, ExclusionTier: 1},
			{ID: "disabled", Name: "Serie B", Enabled: false},
		},
	}
	a := &Aggregator{Repo: repo, Config: testCompetitionConfig()}

	stats, err := a.RunOnce(context.Background(), day)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Upserted != 0 || stats.Skipped != 2 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestRollingAverage_MarketWeighted(t *testing.T) {
	day := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	repo := &aggregatorRepo{
		scores: []repository.DailyMarketScore{
			{MarketID: "m1", CompetitionID: "league", TotalScore: 60},
			{MarketID: "m2", CompetitionID: "league", TotalScore: 60},
			{MarketID: "m3", CompetitionID: "league", TotalScore: 60},
		},
		competitions: []models.Competition{{ID: "league", Name: "Premier League", Enabled: true}},
		history: map[string][]models.CompetitionStats{
			"league": {
				// Ten markets at 40 two days back.
				{CompetitionID: "league", StatsDate: day.AddDate(0, 0, -2), AvgScore: 40, MarketsScored: 10},
				// A stale row for today from an earlier run: superseded by
				// the fresh figures, not double-counted.
				{CompetitionID: "league", StatsDate: day, AvgScore: 99, MarketsScored: 50},
			},
		},
	}
	a := &Aggregator{Repo: repo, Config: testCompetitionConfig()}

	stats, err := a.RunOnce(context.Background(), day)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Upserted != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	row := repo.upserts["league"]
	// (3×60 + 10×40) / 13
	want := (3*60.0 + 10*40.0) / 13.0
	if math.Abs(row.Rolling30dAvg-want) > 1e-9 {
		t.Fatalf("rolling=%v want %v", row.Rolling30dAvg, want)
	}
}

func TestStddev(t *testing.T) {
	if got := stddev([]float64{50}); got != 0 {
		t.Fatalf("single value: %v", got)
	}
	got := stddev([]float64{30, 60, 75})
	if math.Abs(got-22.9128784747792) > 1e-9 {
		t.Fatalf("stddev=%v", got)
	}
}
