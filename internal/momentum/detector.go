package momentum

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"edgescout/internal/models"
	"edgescout/internal/repository"
)

const (
	DirectionSteaming = "STEAMING"
	DirectionDrifting = "DRIFTING"
	DirectionStable   = "STABLE"
)

const (
	StrengthSlight   = "SLIGHT"
	StrengthModerate = "MODERATE"
	StrengthSharp    = "SHARP"
)

const (
	slightThreshold   = 0.02
	moderateThreshold = 0.05
	sharpThreshold    = 0.10
)

// Signal is an ephemeral momentum observation for one runner over one
// lookback window. Negative price change means the price shortened
// (steaming); positive means it lengthened (drifting).
type Signal struct {
	MarketID    string
	RunnerID    int64
	Window      string
	PctChange   float64
	Direction   string
	Strength    string
	CurrentBack float64
	CurrentLay  float64
}

// window lookbacks carry a tolerance band, since snapshots are not
// captured on exact boundaries: "1h" accepts any snapshot aged between
// 45 and 75 minutes, preferring the most recent in band.
type windowBand struct {
	Name   string
	MinAge time.Duration
	MaxAge time.Duration
}

var windows = []windowBand{
	{Name: "30m", MinAge: 25 * time.Minute, MaxAge: 45 * time.Minute},
	{Name: "1h", MinAge: 45 * time.Minute, MaxAge: 75 * time.Minute},
	{Name: "2h", MinAge: 90 * time.Minute, MaxAge: 150 * time.Minute},
	{Name: "4h", MinAge: 180 * time.Minute, MaxAge: 300 * time.Minute},
}

// WindowNames lists the supported lookback windows in ascending order.
func WindowNames() []string {
	names := make([]string, 0, len(windows))
	for _, w := range windows {
		names = append(names, w.Name)
	}
	return names
}

func ValidWindow(name string) bool {
	for _, w := range windows {
		if w.Name == name {
			return true
		}
	}
	return false
}

func Classify(pctChange float64) (direction, strength string) {
	abs := math.Abs(pctChange)
	if abs < slightThreshold {
		return DirectionStable, StrengthSlight
	}
	direction = DirectionDrifting
	if pctChange < 0 {
		direction = DirectionSteaming
	}
	switch {
	case abs >= sharpThreshold:
		strength = StrengthSharp
	case abs >= moderateThreshold:
		strength = StrengthModerate
	default:
		strength = StrengthSlight
	}
	return direction, strength
}

type Detector struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Detect computes momentum signals for every runner of a market from its
// snapshot history. Only non-stable signals are returned.
func (d *Detector) Detect(ctx context.Context, marketID string, now time.Time) ([]Signal, error) {
	if d == nil || d.Repo == nil {
		return nil, nil
	}
	from := now.Add(-windows[len(windows)-1].MaxAge)
	snapshots, err := d.Repo.ListSnapshots(ctx, marketID, from, now.Add(time.Minute))
	if err != nil {
		return nil, err
	}
	return DetectFromSnapshots(marketID, snapshots, now), nil
}

// DetectFromSnapshots is the pure core of Detect, separated so it can be
// driven directly in tests. Snapshots must be ordered by captured_at
// ascending.
func DetectFromSnapshots(marketID string, snapshots []models.MarketSnapshot, now time.Time) []Signal {
	if len(snapshots) < 2 {
		return nil
	}
	current := snapshots[len(snapshots)-1]
	currentRunners := models.UnmarshalRunnerLadders(current.Runners)
	if len(currentRunners) == 0 {
		return nil
	}

	var signals []Signal
	for _, band := range windows {
		historical := pickInBand(snapshots[:len(snapshots)-1], band, now)
		if historical == nil {
			continue
		}
		oldRunners := models.UnmarshalRunnerLadders(historical.Runners)
		if len(oldRunners) == 0 {
			continue
		}
		oldBack := map[int64]float64{}
		for _, r := range oldRunners {
			if len(r.Back) > 0 {
				oldBack[r.SelectionID] = r.Back[0].Price
			}
		}
		for _, r := range currentRunners {
			if len(r.Back) == 0 {
				continue
			}
			cur := r.Back[0].Price
			old, ok := oldBack[r.SelectionID]
			if !ok || old <= 0 || cur <= 0 {
				continue
			}
			pct := (cur - old) / old
			// A >100% jump on a betting ladder is a data glitch, not
			// momentum.
			if math.Abs(pct) > 1.0 {
				continue
			}
			direction, strength := Classify(pct)
			if direction == DirectionStable {
				continue
			}
			sig := Signal{
				MarketID:    marketID,
				RunnerID:    r.SelectionID,
				Window:      band.Name,
				PctChange:   pct,
				Direction:   direction,
				Strength:    strength,
				CurrentBack: cur,
			}
			if len(r.Lay) > 0 {
				sig.CurrentLay = r.Lay[0].Price
			}
			signals = append(signals, sig)
		}
	}
	return signals
}

// pickInBand returns the most recent snapshot whose age falls inside the
// band, or nil when none qualifies.
func pickInBand(snapshots []models.MarketSnapshot, band windowBand, now time.Time) *models.MarketSnapshot {
	for i := len(snapshots) - 1; i >= 0; i-- {
		age := now.Sub(snapshots[i].CapturedAt)
		if age >= band.MinAge && age <= band.MaxAge {
			return &snapshots[i]
		}
		if age > band.MaxAge {
			break
		}
	}
	return nil
}
