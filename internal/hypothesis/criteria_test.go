package hypothesis

import (
	"testing"

	"edgescout/internal/momentum"
)

func scorePtr(v float64) *float64 { return &v }

func baseCandidate() Candidate {
	return Candidate{
		MarketID:     "1.1",
		MarketType:   "MATCH_ODDS",
		MinutesToOff: 600,
		TotalMatched: 8000,
		Score:        scorePtr(50),
	}
}

func TestMatch_AllConjunctsPass(t *testing.T) {
	c := Criteria{
		MinScore:        30,
		MinMinutesToOff: 360,
		MaxMinutesToOff: 1440,
		MinTotalMatched: 5000,
		MarketTypes:     []string{"MATCH_ODDS"},
	}
	match := c.Match(baseCandidate())
	if match == nil {
		t.Fatalf("expected match")
	}
	if match.Signal != nil {
		t.Fatalf("non-momentum criteria carried a signal")
	}
}

func TestMatch_EachConjunctRejects(t *testing.T) {
	c := Criteria{
		MinScore:        30,
		MinMinutesToOff: 360,
		MaxMinutesToOff: 1440,
		MinTotalMatched: 5000,
		MaxTotalMatched: 100000,
		MarketTypes:     []string{"MATCH_ODDS"},
	}
	cases := []struct {
		name   string
		mutate func(*Candidate)
	}{
		{"score below threshold", func(cd *Candidate) { cd.Score = scorePtr(29) }},
		{"unscored market", func(cd *Candidate) { cd.Score = nil }},
		{"too close to off", func(cd *Candidate) { cd.MinutesToOff = 300 }},
		{"too far from off", func(cd *Candidate) { cd.MinutesToOff = 2000 }},
		{"too little matched", func(cd *Candidate) { cd.TotalMatched = 4000 }},
		{"too much matched", func(cd *Candidate) { cd.TotalMatched = 200000 }},
		{"wrong market type", func(cd *Candidate) { cd.MarketType = "CORRECT_SCORE" }},
	}
	for _, tc := range cases {
		cand := baseCandidate()
		tc.mutate(&cand)
		if c.Match(cand) != nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

func TestMatch_ZeroScoreThresholdIgnoresMissingScore(t *testing.T) {
	c := Criteria{MinTotalMatched: 1000}
	cand := baseCandidate()
	cand.Score = nil
	if c.Match(cand) == nil {
		t.Fatalf("unscored market rejected without a score threshold")
	}
}

func TestMatch_MomentumConjunct(t *testing.T) {
	c := Criteria{
		Direction:      momentum.DirectionSteaming,
		MinPctChange:   0.05,
		MomentumWindow: "1h",
	}
	cand := baseCandidate()
	cand.Score = nil

	if c.Match(cand) != nil {
		t.Fatalf("matched without any signal")
	}

	cand.Signals = []momentum.Signal{
		{RunnerID: 1, Window: "1h", Direction: momentum.DirectionDrifting, PctChange: 0.08},
	}
	if c.Match(cand) != nil {
		t.Fatalf("matched against the wrong direction")
	}

	cand.Signals = []momentum.Signal{
		{RunnerID: 1, Window: "1h", Direction: momentum.DirectionSteaming, PctChange: -0.03},
	}
	if c.Match(cand) != nil {
		t.Fatalf("matched below min pct change")
	}

	cand.Signals = []momentum.Signal{
		{RunnerID: 1, Window: "1h", Direction: momentum.DirectionSteaming, PctChange: -0.06},
		{RunnerID: 2, Window: "30m", Direction: momentum.DirectionSteaming, PctChange: -0.09},
		{RunnerID: 3, Window: "4h", Direction: momentum.DirectionSteaming, PctChange: -0.20},
	}
	match := c.Match(cand)
	if match == nil || match.Signal == nil {
		t.Fatalf("expected momentum match")
	}
	// Strongest in-window signal wins; the 4h signal is out of scope for a
	// 1h criterion.
	if match.Signal.RunnerID != 2 {
		t.Fatalf("picked runner %d want 2", match.Signal.RunnerID)
	}
}

func TestFallbackWindows(t *testing.T) {
	got := fallbackWindows("2h")
	want := []string{"30m", "1h", "2h"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if len(fallbackWindows("")) != len(momentum.WindowNames()) {
		t.Fatalf("empty window should accept all")
	}
	if len(fallbackWindows("bogus")) != len(momentum.WindowNames()) {
		t.Fatalf("unknown window should accept all")
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria([]byte(`{"min_score":40,"min_minutes_to_off":360,"market_types":["MATCH_ODDS"]}`))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if c.MinScore != 40 || c.MinMinutesToOff != 360 || len(c.MarketTypes) != 1 {
		t.Fatalf("parsed=%+v", c)
	}
	if _, err := ParseCriteria(nil); err == nil {
		t.Fatalf("empty criteria should error")
	}
	if _, err := ParseCriteria([]byte(`{`)); err == nil {
		t.Fatalf("malformed criteria should error")
	}
}
