package hypothesis

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"edgescout/internal/config"
	"edgescout/internal/momentum"
)

// Criteria is the entry predicate set of one hypothesis. Every field is a
// conjunct: a candidate must satisfy all of them. Zero values disable the
// corresponding check except MinTotalMatched, where zero genuinely means
// "no liquidity floor".
type Criteria struct {
	MinScore        float64  `json:"min_score"`
	MinMinutesToOff int      `json:"min_minutes_to_off"`
	MaxMinutesToOff int      `json:"max_minutes_to_off"`
	MinTotalMatched float64  `json:"min_total_matched"`
	MaxTotalMatched float64  `json:"max_total_matched,omitempty"`
	MaxSpreadPct    float64  `json:"max_spread_pct"`
	Direction       string   `json:"direction,omitempty"`
	MinPctChange    float64  `json:"min_pct_change,omitempty"`
	MomentumWindow  string   `json:"momentum_window,omitempty"`
	MarketTypes     []string `json:"market_types,omitempty"`
}

func CriteriaFromConfig(c config.CriteriaConfig) Criteria {
	return Criteria{
		MinScore:        c.MinScore,
		MinMinutesToOff: c.MinMinutesToOff,
		MaxMinutesToOff: c.MaxMinutesToOff,
		MinTotalMatched: c.MinTotalMatched,
		MaxTotalMatched: c.MaxTotalMatched,
		MaxSpreadPct:    c.MaxSpreadPct,
		Direction:       c.Direction,
		MinPctChange:    c.MinPctChange,
		MomentumWindow:  c.MomentumWindow,
		MarketTypes:     c.MarketTypes,
	}
}

func ParseCriteria(raw datatypes.JSON) (Criteria, error) {
	var c Criteria
	if len(raw) == 0 {
		return c, fmt.Errorf("empty criteria")
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("parse criteria: %w", err)
	}
	return c, nil
}

// Candidate is one market's state at evaluation time: latest score, time
// to off, matched volume, and any non-stable momentum signals.
type Candidate struct {
	MarketID     string
	MarketType   string
	MinutesToOff int
	TotalMatched float64
	Score        *float64
	Signals      []momentum.Signal
}

// MatchResult records why a candidate passed and, for momentum-driven
// criteria, which runner moved.
type MatchResult struct {
	Reason string
	Signal *momentum.Signal
}

// Match applies the conjunction. A nil result means at least one conjunct
// failed; the candidate is silently out, never an error.
func (c Criteria) Match(cand Candidate) *MatchResult {
	if c.MinScore > 0 {
		// A score threshold demands a score: unscored markets are out.
		if cand.Score == nil || *cand.Score < c.MinScore {
			return nil
		}
	}

	maxMinutes := c.MaxMinutesToOff
	if maxMinutes <= 0 {
		maxMinutes = 1440
	}
	if cand.MinutesToOff < c.MinMinutesToOff || cand.MinutesToOff > maxMinutes {
		return nil
	}

	if cand.TotalMatched < c.MinTotalMatched {
		return nil
	}
	if c.MaxTotalMatched > 0 && cand.TotalMatched > c.MaxTotalMatched {
		return nil
	}

	if len(c.MarketTypes) > 0 && !contains(c.MarketTypes, cand.MarketType) {
		return nil
	}

	reason := fmt.Sprintf("%dm to off, matched %.0f", cand.MinutesToOff, cand.TotalMatched)
	if cand.Score != nil {
		reason = fmt.Sprintf("score %.0f, %s", *cand.Score, reason)
	}

	if c.Direction == "" && c.MinPctChange <= 0 {
		return &MatchResult{Reason: reason}
	}

	sig := c.pickSignal(cand.Signals)
	if sig == nil {
		return nil
	}
	return &MatchResult{
		Reason: fmt.Sprintf("%s, %s %.1f%% over %s", reason, sig.Direction, 100*absFloat(sig.PctChange), sig.Window),
		Signal: sig,
	}
}

// pickSignal finds the strongest signal satisfying the momentum conjuncts.
// When the configured window has no qualifying snapshot, shorter windows
// are accepted as a fallback: a 2h criterion is still meaningful on a
// market we have only tracked for an hour.
func (c Criteria) pickSignal(signals []momentum.Signal) *momentum.Signal {
	allowed := fallbackWindows(c.MomentumWindow)
	var best *momentum.Signal
	for i := range signals {
		sig := &signals[i]
		if !contains(allowed, sig.Window) {
			continue
		}
		if c.Direction != "" && sig.Direction != c.Direction {
			continue
		}
		if absFloat(sig.PctChange) < c.MinPctChange {
			continue
		}
		if best == nil || absFloat(sig.PctChange) > absFloat(best.PctChange) {
			best = sig
		}
	}
	return best
}

// fallbackWindows returns the configured window plus every shorter one, in
// preference order. An empty configuration accepts any window.
func fallbackWindows(window string) []string {
	names := momentum.WindowNames()
	if window == "" {
		return names
	}
	for i, name := range names {
		if name == window {
			return names[:i+1]
		}
	}
	return names
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
