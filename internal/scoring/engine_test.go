package scoring

import (
	"testing"

	"edgescout/internal/config"
)

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Version: "test",
		Weights: config.WeightsConfig{
			Spread:        0.25,
			Volatility:    0.25,
			UpdateRate:    0.15,
			Depth:         0.20,
			VolumePenalty: 0.15,
		},
		Spread:     config.SpreadNormConfig{MinTicks: 2, SweetTicks: 8, MaxTicks: 12},
		Volatility: config.VolatilityNormConfig{Target: 0.04, Max: 0.12},
		UpdateRate: config.UpdateRateNormConfig{Min: 0.2, Max: 2.0},
		Depth:      config.DepthNormConfig{Min: 150, Optimal: 1000, Max: 8000},
		Volume:     config.VolumeNormConfig{Threshold: 30000, Max: 200000, HardCap: 500000},
		Guards:     config.GuardsConfig{MinDepth: 100, MaxSpreadTicks: 20, MinSnapshots: 5},
	}
}

func TestScore_EfficientHighVolumeMarket(t *testing.T) {
	e := NewEngine(testConfig())
	r := e.Score(Metrics{
		SpreadTicks:   1,
		Volatility:    0.015,
		UpdateRate:    4.0,
		Depth:         12000,
		Volume:        450000,
		SnapshotCount: 10,
	})
	if len(r.GuardsFailed) != 0 {
		t.Fatalf("guards failed: %v", r.GuardsFailed)
	}
	if r.TotalScore >= 40 {
		t.Fatalf("total=%v want < 40", r.TotalScore)
	}
	if r.VolumePenalty != 100 {
		t.Fatalf("volume penalty=%v want 100", r.VolumePenalty)
	}
}

func TestScore_QuietMidLiquidityMarket(t *testing.T) {
	e := NewEngine(testConfig())
	r := e.Score(Metrics{
		SpreadTicks:   5,
		Volatility:    0.045,
		UpdateRate:    0.8,
		Depth:         620,
		Volume:        18000,
		SnapshotCount: 10,
	})
	if r.TotalScore <= 55 || r.TotalScore >= 60 {
		t.Fatalf("total=%v want in (55, 60)", r.TotalScore)
	}
	if r.VolumePenalty != 0 {
		t.Fatalf("volume penalty=%v want 0", r.VolumePenalty)
	}
}

func TestCheckGuards(t *testing.T) {
	e := NewEngine(testConfig())
	good := Metrics{SpreadTicks: 5, Volatility: 0.04, UpdateRate: 1, Depth: 500, Volume: 1000, SnapshotCount: 10}
	if failed := e.CheckGuards(good); len(failed) != 0 {
		t.Fatalf("unexpected guards: %v", failed)
	}

	cases := []struct {
		name   string
		mutate func(*Metrics)
		want   string
	}{
		{"shallow book", func(m *Metrics) { m.Depth = 99 }, "depth_below_minimum"},
		{"spread too wide", func(m *Metrics) { m.SpreadTicks = 21 }, "spread_above_maximum"},
		{"too few snapshots", func(m *Metrics) { m.SnapshotCount = 4 }, "insufficient_snapshots"},
		{"volume at hard cap", func(m *Metrics) { m.Volume = 500000 }, "volume_above_hard_cap"},
	}
	for _, tc := range cases {
		m := good
		tc.mutate(&m)
		failed := e.CheckGuards(m)
		if len(failed) != 1 || failed[0] != tc.want {
			t.Fatalf("%s: guards=%v want [%s]", tc.name, failed, tc.want)
		}
	}
}

func TestScore_GuardFailureZeroesEverything(t *testing.T) {
	e := NewEngine(testConfig())
	r := e.Score(Metrics{SpreadTicks: 5, Volatility: 0.04, UpdateRate: 1, Depth: 50, Volume: 1000, SnapshotCount: 10})
	if len(r.GuardsFailed) == 0 {
		t.Fatalf("expected guard failure")
	}
	if r.TotalScore != 0 || r.SpreadScore != 0 || r.VolatilityScore != 0 ||
		r.UpdateScore != 0 || r.DepthScore != 0 || r.VolumePenalty != 0 {
		t.Fatalf("non-zero components on guard failure: %+v", r)
	}
}

func TestFVolume(t *testing.T) {
	e := NewEngine(testConfig())
	if got := e.FVolume(30000); got != 0 {
		t.Fatalf("at threshold: %v want 0", got)
	}
	if got := e.FVolume(500000); got != 1 {
		t.Fatalf("at hard cap: %v want 1", got)
	}
	if got := e.FVolume(900000); got != 1 {
		t.Fatalf("above hard cap: %v want 1", got)
	}
	prev := -1.0
	for _, v := range []float64{10000, 50000, 100000, 200000, 400000, 499999} {
		got := e.FVolume(v)
		if got < prev {
			t.Fatalf("penalty not monotonic at volume %v: %v < %v", v, got, prev)
		}
		prev = got
	}
}

func TestFDepth(t *testing.T) {
	e := NewEngine(testConfig())
	if got := e.FDepth(100); got != 0 {
		t.Fatalf("below min: %v want 0", got)
	}
	if got := e.FDepth(1000); got != 1 {
		t.Fatalf("at optimal: %v want 1", got)
	}
	if got := e.FDepth(50000); got != 0.7 {
		t.Fatalf("deep book floor: %v want 0.7", got)
	}
}

func TestFSpread(t *testing.T) {
	e := NewEngine(testConfig())
	if got := e.FSpread(0); got != 0 {
		t.Fatalf("zero spread: %v want 0", got)
	}
	if got := e.FSpread(8); got != 1 {
		t.Fatalf("sweet spot: %v want 1", got)
	}
	if got := e.FSpread(12); got != 0 {
		t.Fatalf("max ticks: %v want 0", got)
	}
	tight := e.FSpread(1)
	if tight <= 0 || tight > 0.3 {
		t.Fatalf("tight spread: %v want in (0, 0.3]", tight)
	}
}

func TestFUpdate(t *testing.T) {
	e := NewEngine(testConfig())
	if got := e.FUpdate(2.0); got != 1 {
		t.Fatalf("at max: %v want 1", got)
	}
	if got := e.FUpdate(5.0); got != 1 {
		t.Fatalf("above max: %v want 1", got)
	}
	mid := e.FUpdate(1.1)
	if mid <= 0.49 || mid >= 0.51 {
		t.Fatalf("midpoint: %v want 0.5", mid)
	}
	slow := e.FUpdate(0.1)
	if slow <= 0 || slow > 0.3 {
		t.Fatalf("below min: %v want in (0, 0.3]", slow)
	}
}

func TestScore_BoundedComponents(t *testing.T) {
	e := NewEngine(testConfig())
	r := e.Score(Metrics{SpreadTicks: 8, Volatility: 0.04, UpdateRate: 2, Depth: 1000, Volume: 0, SnapshotCount: 50})
	for name, v := range map[string]float64{
		"total":      r.TotalScore,
		"spread":     r.SpreadScore,
		"volatility": r.VolatilityScore,
		"update":     r.UpdateScore,
		"depth":      r.DepthScore,
		"penalty":    r.VolumePenalty,
	} {
		if v < 0 || v > 100 {
			t.Fatalf("%s=%v out of [0,100]", name, v)
		}
	}
	// All components pinned, no penalty: the weighted sum is 85.
	if r.TotalScore <= 80 {
		t.Fatalf("ideal metrics scored %v", r.TotalScore)
	}
}

func TestEstimatedEdgePct(t *testing.T) {
	if got := EstimatedEdgePct(50); got != 0 {
		t.Fatalf("at 50: %v want 0", got)
	}
	if got := EstimatedEdgePct(30); got != 0 {
		t.Fatalf("below 50: %v want 0", got)
	}
	if got := EstimatedEdgePct(75); got != 5 {
		t.Fatalf("at 75: %v want 5", got)
	}
}
