package hypothesis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

type engineRepo struct {
	repository.Repository
	hypotheses []models.TradingHypothesis
	markets    []models.Market
	snapshots  map[string]*models.MarketSnapshot
	runners    map[string][]models.Runner
	scores     map[string]*models.ExploitabilityScore

	decisions map[string]*models.ShadowDecision
	upserted  map[string]models.TradingHypothesis
}

func (r *engineRepo) ListHypotheses(ctx context.Context, enabledOnly bool) ([]models.TradingHypothesis, error) {
	if !enabledOnly {
		return r.hypotheses, nil
	}
	var out []models.TradingHypothesis
	for _, h := range r.hypotheses {
		if h.Enabled {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *engineRepo) UpsertHypothesis(ctx context.Context, item *models.TradingHypothesis) error {
	if r.upserted == nil {
		r.upserted = map[string]models.TradingHypothesis{}
	}
	r.upserted[item.Name] = *item
	return nil
}

func (r *engineRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	return r.markets, nil
}

func (r *engineRepo) LatestSnapshot(ctx context.Context, marketID string) (*models.MarketSnapshot, error) {
	return r.snapshots[marketID], nil
}

func (r *engineRepo) ListRunnersByMarketID(ctx context.Context, marketID string) ([]models.Runner, error) {
	return r.runners[marketID], nil
}

func (r *engineRepo) LatestScoreForMarket(ctx context.Context, marketID string) (*models.ExploitabilityScore, error) {
	return r.scores[marketID], nil
}

func (r *engineRepo) InsertShadowDecisionIfAbsent(ctx context.Context, item *models.ShadowDecision) (bool, error) {
	if r.decisions == nil {
		r.decisions = map[string]*models.ShadowDecision{}
	}
	key := item.MarketID + "|" + item.HypothesisName
	if _, exists := r.decisions[key]; exists {
		return false, nil
	}
	r.decisions[key] = item
	return true, nil
}

func criteriaJSON(t *testing.T, c Criteria) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal criteria: %v", err)
	}
	return datatypes.JSON(raw)
}

func TestRunOnce_CreatesDecisionOnce(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	off := now.Add(10 * time.Hour)

	snap := &models.MarketSnapshot{
		MarketID:     "1.1",
		TotalMatched: decimal.NewFromInt(8000),
		Runners: models.MarshalRunnerLadders([]models.RunnerLadder{
			{SelectionID: 1, Back: []models.PriceSize{{Price: 1.80, Size: 100}}, Lay: []models.PriceSize{{Price: 1.84, Size: 100}}},
			{SelectionID: 2, Back: []models.PriceSize{{Price: 3.40, Size: 100}}, Lay: []models.PriceSize{{Price: 3.50, Size: 100}}},
		}),
	}
	repo := &engineRepo{
		hypotheses: []models.TradingHypothesis{{
			Name:      "quiet_value",
			Enabled:   true,
			Side:      models.SideBack,
			Selection: SelectBestValue,
			StakeUSD:  25,
			Criteria: criteriaJSON(t, Criteria{
				MinScore:        40,
				MinMinutesToOff: 360,
				MaxMinutesToOff: 1440,
				MinTotalMatched: 5000,
				MaxSpreadPct:    5,
				MarketTypes:     []string{"MATCH_ODDS"},
			}),
		}},
		markets: []models.Market{{
			ID:           "1.1",
			MarketType:   "MATCH_ODDS",
			Status:       models.MarketStatusOpen,
			ScheduledOff: &off,
		}},
		snapshots: map[string]*models.MarketSnapshot{"1.1": snap},
		runners: map[string][]models.Runner{"1.1": {
			{MarketID: "1.1", SelectionID: 1, Name: "Home"},
			{MarketID: "1.1", SelectionID: 2, Name: "Away"},
		}},
		scores: map[string]*models.ExploitabilityScore{
			"1.1": {MarketID: "1.1", TotalScore: 62},
		},
	}
	e := &Engine{Repo: repo, BaseStake: 10}

	stats, err := e.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.MarketsScanned != 1 || stats.Matched != 1 || stats.Created != 1 {
		t.Fatalf("stats=%+v", stats)
	}

	d := repo.decisions["1.1|quiet_value"]
	if d == nil {
		t.Fatalf("decision missing: %v", repo.decisions)
	}
	if d.RunnerID != 2 || d.RunnerName != "Away" {
		t.Fatalf("picked runner %d (%s)", d.RunnerID, d.RunnerName)
	}
	if d.Side != models.SideBack || !d.EntryPrice.Equal(decimal.NewFromFloat(3.40)) {
		t.Fatalf("entry=%+v", d)
	}
	if !d.Stake.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("stake=%s want hypothesis stake 25", d.Stake)
	}
	if d.Score != 62 || d.Outcome != models.OutcomePending || d.Ref == "" {
		t.Fatalf("decision=%+v", d)
	}

	// A retried pass loses the insert race and counts the row as existing.
	stats, err = e.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("rerun err=%v", err)
	}
	if stats.Created != 0 || stats.SkippedExisting != 1 || len(repo.decisions) != 1 {
		t.Fatalf("rerun stats=%+v decisions=%d", stats, len(repo.decisions))
	}
}

func TestRunOnce_SpreadGateRejectsWideQuote(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	off := now.Add(10 * time.Hour)
	snap := &models.MarketSnapshot{
		MarketID:     "1.2",
		TotalMatched: decimal.NewFromInt(8000),
		Runners: models.MarshalRunnerLadders([]models.RunnerLadder{
			// 3.00/3.60 is a 20% spread.
			{SelectionID: 1, Back: []models.PriceSize{{Price: 3.00, Size: 50}}, Lay: []models.PriceSize{{Price: 3.60, Size: 50}}},
		}),
	}
	repo := &engineRepo{
		hypotheses: []models.TradingHypothesis{{
			Name:      "quiet_value",
			Enabled:   true,
			Side:      models.SideBack,
			Selection: SelectBestValue,
			Criteria: criteriaJSON(t, Criteria{
				MinMinutesToOff: 360,
				MaxMinutesToOff: 1440,
				MaxSpreadPct:    5,
				MarketTypes:     []string{"MATCH_ODDS"},
			}),
		}},
		markets:   []models.Market{{ID: "1.2", MarketType: "MATCH_ODDS", ScheduledOff: &off}},
		snapshots: map[string]*models.MarketSnapshot{"1.2": snap},
		runners:   map[string][]models.Runner{"1.2": {{MarketID: "1.2", SelectionID: 1, Name: "Home"}}},
	}
	e := &Engine{Repo: repo, BaseStake: 10}

	stats, err := e.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if stats.Matched != 0 || stats.Created != 0 {
		t.Fatalf("wide spread traded: %+v", stats)
	}
}

func TestSyncFromConfig_PreservesOperatorToggle(t *testing.T) {
	repo := &engineRepo{
		hypotheses: []models.TradingHypothesis{{
			Name:    "steam_follower",
			Enabled: false,
			Side:    models.SideBack,
		}},
	}
	e := &Engine{Repo: repo}

	err := e.SyncFromConfig(context.Background(), []config.HypothesisConfig{
		{Name: "steam_follower", Enabled: true, Side: "BACK", Selection: "steamer", StakeUSD: 10},
		{Name: "drift_fader", Enabled: true, Side: "LAY", Selection: "drifter", StakeUSD: 10},
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if repo.upserted["steam_follower"].Enabled {
		t.Fatalf("operator disable overwritten by config")
	}
	if !repo.upserted["drift_fader"].Enabled {
		t.Fatalf("new hypothesis should take the configured flag")
	}
	if len(repo.upserted["drift_fader"].Criteria) == 0 {
		t.Fatalf("criteria not serialized")
	}
}
