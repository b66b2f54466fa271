package scoring

import (
	"edgescout/internal/config"
)

// Metrics is the scoring input, lifted from one MarketProfile.
type Metrics struct {
	SpreadTicks   float64
	Volatility    float64
	UpdateRate    float64
	Depth         float64
	Volume        float64
	SnapshotCount int
}

// Result carries the total and the per-component breakdown, all scaled to
// [0,100]. GuardsFailed is non-empty when a hard disqualification fired;
// the total and every component are then 0.
type Result struct {
	TotalScore      float64
	SpreadScore     float64
	VolatilityScore float64
	UpdateScore     float64
	DepthScore      float64
	VolumePenalty   float64
	GuardsFailed    []string
}

// Engine maps one profile to one exploitability score. The config is an
// immutable snapshot; Version identifies it on every row produced.
//
//	score = 100 × clamp(w_sp·f_spread + w_vol·f_volatility + w_up·f_update
//	                    + w_dp·f_depth − w_pen·f_volume, 0, 1)
//
// High matched volume is a penalty: efficient markets are suppressed, not
// rewarded.
type Engine struct {
	cfg     config.ScoringConfig
	version string
}

func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg, version: cfg.ResolvedVersion()}
}

func (e *Engine) Version() string {
	return e.version
}

// FSpread scores the tick spread: quoted too tight is efficient (capped at
// 0.3), the sweet spot ramps 0.3→1.0, and wide spreads decay to 0.
func (e *Engine) FSpread(spreadTicks float64) float64 {
	p := e.cfg.Spread
	switch {
	case spreadTicks <= 0:
		return 0
	case spreadTicks < p.MinTicks:
		return spreadTicks / p.MinTicks * 0.3
	case spreadTicks <= p.SweetTicks:
		return 0.3 + (spreadTicks-p.MinTicks)/(p.SweetTicks-p.MinTicks)*0.7
	default:
		excess := spreadTicks - p.SweetTicks
		maxExcess := p.MaxTicks - p.SweetTicks
		return clamp(1.0-excess/maxExcess, 0, 1)
	}
}

// FVolatility is an inverted V around the target: too stable offers no
// opportunity, too chaotic is unpriceable.
func (e *Engine) FVolatility(volatility float64) float64 {
	p := e.cfg.Volatility
	if volatility <= 0 {
		return 0
	}
	if volatility < p.Target {
		return volatility / p.Target
	}
	maxExcess := p.Max - p.Target
	if maxExcess <= 0 {
		return 0
	}
	return clamp(1.0-(volatility-p.Target)/maxExcess, 0, 1)
}

// FUpdate ramps linearly between the configured min and max updates per
// minute; rates below min are capped at 0.3 of scale.
func (e *Engine) FUpdate(updateRate float64) float64 {
	p := e.cfg.UpdateRate
	if updateRate <= 0 {
		return 0
	}
	if updateRate < p.Min {
		return updateRate / p.Min * 0.3
	}
	return clamp((updateRate-p.Min)/(p.Max-p.Min), 0, 1)
}

// FDepth ramps from the minimum tradeable depth to the optimum, then
// decays gently: very deep books imply an efficient market but remain
// tradeable, so the decay floors at 0.7.
func (e *Engine) FDepth(depth float64) float64 {
	p := e.cfg.Depth
	if depth < p.Min {
		return 0
	}
	if depth <= p.Optimal {
		return (depth - p.Min) / (p.Optimal - p.Min)
	}
	maxExcess := p.Max - p.Optimal
	if maxExcess <= 0 {
		return 1.0
	}
	v := 1.0 - (depth-p.Optimal)/maxExcess*0.3
	if v < 0.7 {
		return 0.7
	}
	return v
}

// FVolume is the penalty: 0 at or below the threshold, linear up to the
// max-penalty volume, pinned at 1.0 from the hard cap upward.
func (e *Engine) FVolume(volume float64) float64 {
	p := e.cfg.Volume
	if volume <= p.Threshold {
		return 0
	}
	if volume >= p.HardCap {
		return 1.0
	}
	maxExcess := p.Max - p.Threshold
	if maxExcess <= 0 {
		return 1.0
	}
	return clamp((volume-p.Threshold)/maxExcess, 0, 1)
}

// CheckGuards returns the hard-disqualification reasons, empty when the
// metrics are scoreable. Guards run before the weighted formula and are
// not errors: they mean "definitionally unusable or definitionally
// efficient".
func (e *Engine) CheckGuards(m Metrics) []string {
	g := e.cfg.Guards
	var failed []string
	if m.Depth < g.MinDepth {
		failed = append(failed, "depth_below_minimum")
	}
	if m.SpreadTicks > g.MaxSpreadTicks {
		failed = append(failed, "spread_above_maximum")
	}
	if m.SnapshotCount < g.MinSnapshots {
		failed = append(failed, "insufficient_snapshots")
	}
	if m.Volume >= e.cfg.Volume.HardCap {
		failed = append(failed, "volume_above_hard_cap")
	}
	return failed
}

func (e *Engine) Score(m Metrics) Result {
	if failed := e.CheckGuards(m); len(failed) > 0 {
		return Result{GuardsFailed: failed}
	}

	spread := e.FSpread(m.SpreadTicks)
	volatility := e.FVolatility(m.Volatility)
	update := e.FUpdate(m.UpdateRate)
	depth := e.FDepth(m.Depth)
	penalty := e.FVolume(m.Volume)

	w := e.cfg.Weights
	raw := w.Spread*spread +
		w.Volatility*volatility +
		w.UpdateRate*update +
		w.Depth*depth -
		w.VolumePenalty*penalty

	return Result{
		TotalScore:      clamp(raw, 0, 1) * 100,
		SpreadScore:     spread * 100,
		VolatilityScore: volatility * 100,
		UpdateScore:     update * 100,
		DepthScore:      depth * 100,
		VolumePenalty:   penalty * 100,
	}
}

// EstimatedEdgePct maps the total score to a cost-adjusted heuristic
// margin for reporting. It is not a probability delta and must never be
// used as a Kelly input.
func EstimatedEdgePct(totalScore float64) float64 {
	if totalScore <= 50 {
		return 0
	}
	return (totalScore - 50) / 5
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
