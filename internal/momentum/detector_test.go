package momentum

import (
	"testing"
	"time"

	"edgescout/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		pct       float64
		direction string
		strength  string
	}{
		{0.0, DirectionStable, StrengthSlight},
		{0.01, DirectionStable, StrengthSlight},
		{-0.01, DirectionStable, StrengthSlight},
		{0.03, DirectionDrifting, StrengthSlight},
		{-0.03, DirectionSteaming, StrengthSlight},
		{0.06, DirectionDrifting, StrengthModerate},
		{-0.06, DirectionSteaming, StrengthModerate},
		{0.15, DirectionDrifting, StrengthSharp},
		{-0.15, DirectionSteaming, StrengthSharp},
		{-0.10, DirectionSteaming, StrengthSharp},
	}
	for _, tc := range cases {
		direction, strength := Classify(tc.pct)
		if direction != tc.direction || strength != tc.strength {
			t.Fatalf("Classify(%v)=%s/%s want %s/%s", tc.pct, direction, strength, tc.direction, tc.strength)
		}
	}
}

func TestWindowNames(t *testing.T) {
	names := WindowNames()
	want := []string{"30m", "1h", "2h", "4h"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v want %v", names, want)
		}
	}
	if !ValidWindow("2h") || ValidWindow("6h") {
		t.Fatalf("ValidWindow misclassified")
	}
}

func snapAt(at time.Time, backPrice float64) models.MarketSnapshot {
	runners := []models.RunnerLadder{{
		SelectionID: 7,
		Back:        []models.PriceSize{{Price: backPrice, Size: 100}},
		Lay:         []models.PriceSize{{Price: backPrice + 0.05, Size: 100}},
	}}
	return models.MarketSnapshot{
		MarketID:   "1.999",
		CapturedAt: at,
		Runners:    models.MarshalRunnerLadders(runners),
	}
}

func TestDetectFromSnapshots_Steaming(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	snaps := []models.MarketSnapshot{
		snapAt(now.Add(-60*time.Minute), 3.00),
		snapAt(now, 2.70),
	}
	signals := DetectFromSnapshots("1.999", snaps, now)
	if len(signals) != 1 {
		t.Fatalf("signals=%v", signals)
	}
	sig := signals[0]
	if sig.Window != "1h" {
		t.Fatalf("window=%s want 1h", sig.Window)
	}
	if sig.Direction != DirectionSteaming || sig.Strength != StrengthSharp {
		t.Fatalf("got %s/%s", sig.Direction, sig.Strength)
	}
	if sig.PctChange >= -0.099 || sig.PctChange <= -0.101 {
		t.Fatalf("pct=%v want -0.10", sig.PctChange)
	}
	if sig.RunnerID != 7 || sig.CurrentBack != 2.70 {
		t.Fatalf("sig=%+v", sig)
	}
}

func TestDetectFromSnapshots_MultipleWindows(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	snaps := []models.MarketSnapshot{
		snapAt(now.Add(-2*time.Hour), 3.00),
		snapAt(now.Add(-1*time.Hour), 2.85),
		snapAt(now.Add(-30*time.Minute), 2.80),
		snapAt(now, 2.70),
	}
	signals := DetectFromSnapshots("1.999", snaps, now)
	byWindow := map[string]Signal{}
	for _, sig := range signals {
		byWindow[sig.Window] = sig
	}
	for _, w := range []string{"30m", "1h", "2h"} {
		if _, ok := byWindow[w]; !ok {
			t.Fatalf("no signal for window %s: %v", w, signals)
		}
	}
	if _, ok := byWindow["4h"]; ok {
		t.Fatalf("unexpected 4h signal with 2h of history")
	}
	if byWindow["2h"].Direction != DirectionSteaming {
		t.Fatalf("2h direction=%s", byWindow["2h"].Direction)
	}
}

func TestDetectFromSnapshots_StableSuppressed(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	snaps := []models.MarketSnapshot{
		snapAt(now.Add(-60*time.Minute), 2.00),
		snapAt(now, 2.02),
	}
	if signals := DetectFromSnapshots("1.999", snaps, now); len(signals) != 0 {
		t.Fatalf("stable move produced signals: %v", signals)
	}
}

func TestDetectFromSnapshots_GlitchFiltered(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	snaps := []models.MarketSnapshot{
		snapAt(now.Add(-60*time.Minute), 2.00),
		snapAt(now, 4.50),
	}
	if signals := DetectFromSnapshots("1.999", snaps, now); len(signals) != 0 {
		t.Fatalf(">100%% move should be filtered: %v", signals)
	}
}

func TestDetectFromSnapshots_TooFew(t *testing.T) {
	now := time.Now().UTC()
	if signals := DetectFromSnapshots("1.999", []models.MarketSnapshot{snapAt(now, 2.0)}, now); signals != nil {
		t.Fatalf("single snapshot: %v", signals)
	}
}
