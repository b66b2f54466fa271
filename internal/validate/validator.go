package validate

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// Verdict labels, roughly ordered from worst to best.
const (
	VerdictInsufficientData = "INSUFFICIENT_DATA"
	VerdictNegativeCLV      = "WARNING_NEGATIVE_CLV"
	VerdictUnprofitable     = "UNPROFITABLE"
	VerdictMarginal         = "MARGINAL"
	VerdictPromising        = "PROMISING"
)

// SplitStats summarizes one side of the chronological split.
type SplitStats struct {
	Decisions int     `json:"decisions"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Voids     int     `json:"voids"`
	WinRate   float64 `json:"win_rate"`
	ROIPct    float64 `json:"roi_pct"`
	AvgCLV    float64 `json:"avg_clv"`
	NetPnL    float64 `json:"net_pnl"`
	PValue    float64 `json:"p_value"`
}

// Report is the validation result for one hypothesis. Promotion requires
// both splits to clear the profitability bars, the out-sample to be large
// enough to mean anything, and the out-sample p-value to survive the
// Bonferroni-corrected significance threshold.
type Report struct {
	Hypothesis     string     `json:"hypothesis"`
	Settled        int        `json:"settled"`
	InSample       SplitStats `json:"in_sample"`
	OutSample      SplitStats `json:"out_sample"`
	CorrectedAlpha float64    `json:"corrected_alpha"`
	Eligible       bool       `json:"eligible"`
	Verdict        string     `json:"verdict"`
}

// Validator runs holdout validation over settled shadow decisions. The
// split is chronological, never random: a hypothesis must keep working on
// data it was not tuned on, and shuffling would leak the future into the
// in-sample half.
type Validator struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Config config.ValidationConfig

	// HypothesisCount sizes the Bonferroni correction. When several
	// hypotheses run in parallel, each is tested at alpha/N.
	HypothesisCount int
}

func (v *Validator) Validate(ctx context.Context, hypothesisName string) (Report, error) {
	report := Report{Hypothesis: hypothesisName, Verdict: VerdictInsufficientData}
	if v == nil || v.Repo == nil {
		return report, nil
	}

	decisions, err := v.Repo.ListSettledDecisions(ctx, hypothesisName)
	if err != nil {
		return report, err
	}
	report.Settled = len(decisions)
	report.CorrectedAlpha = v.correctedAlpha()
	if len(decisions) == 0 {
		return report, nil
	}

	sort.Slice(decisions, func(i, j int) bool {
		si, sj := settledTime(decisions[i]), settledTime(decisions[j])
		return si.Before(sj)
	})

	share := v.Config.InSampleShare
	if share <= 0 || share >= 1 {
		share = 0.6
	}
	cut := int(math.Round(float64(len(decisions)) * share))
	if cut < 1 {
		cut = 1
	}
	if cut >= len(decisions) {
		cut = len(decisions) - 1
	}

	report.InSample = splitStats(decisions[:cut])
	report.OutSample = splitStats(decisions[cut:])

	minOut := v.Config.MinOutSample
	if minOut <= 0 {
		minOut = 20
	}
	report.Eligible = report.OutSample.Decisions >= minOut &&
		passes(report.InSample, v.Config) &&
		passes(report.OutSample, v.Config) &&
		report.OutSample.PValue <= report.CorrectedAlpha

	report.Verdict = verdict(report, minOut)
	return report, nil
}

// ValidateAll reports on every hypothesis that has settled decisions.
func (v *Validator) ValidateAll(ctx context.Context) ([]Report, error) {
	if v == nil || v.Repo == nil {
		return nil, nil
	}
	rows, err := v.Repo.ListHypotheses(ctx, false)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(rows))
	for _, row := range rows {
		report, err := v.Validate(ctx, row.Name)
		if err != nil {
			if v.Logger != nil {
				v.Logger.Warn("validation failed", zap.String("hypothesis", row.Name), zap.Error(err))
			}
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (v *Validator) correctedAlpha() float64 {
	alpha := v.Config.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}
	n := v.HypothesisCount
	if n < 1 {
		n = 1
	}
	return alpha / float64(n)
}

func passes(s SplitStats, cfg config.ValidationConfig) bool {
	settled := s.Wins + s.Losses
	if settled == 0 {
		return false
	}
	return s.ROIPct > cfg.MinROIPct && s.AvgCLV > cfg.MinAvgCLV
}

func verdict(r Report, minOut int) string {
	switch {
	case r.OutSample.Decisions < minOut:
		return VerdictInsufficientData
	case r.Settled >= 100 && r.OutSample.AvgCLV < -1.0:
		return VerdictNegativeCLV
	case r.Eligible:
		return VerdictPromising
	case r.OutSample.ROIPct > 0:
		return VerdictMarginal
	default:
		return VerdictUnprofitable
	}
}

func splitStats(decisions []models.ShadowDecision) SplitStats {
	var s SplitStats
	s.Decisions = len(decisions)

	var staked, clvSum float64
	var clvN int
	var pnls []float64
	for _, d := range decisions {
		switch d.Outcome {
		case models.OutcomeWin:
			s.Wins++
		case models.OutcomeLose:
			s.Losses++
		case models.OutcomeVoid:
			s.Voids++
		}
		if d.Outcome == models.OutcomeVoid {
			continue
		}
		stake, _ := d.Stake.Float64()
		staked += stake
		if d.NetPnL != nil {
			net, _ := d.NetPnL.Float64()
			s.NetPnL += net
			pnls = append(pnls, net)
		}
		if d.CLV != nil {
			clv, _ := d.CLV.Float64()
			clvSum += clv
			clvN++
		}
	}

	settled := s.Wins + s.Losses
	if settled > 0 {
		s.WinRate = float64(s.Wins) / float64(settled) * 100
	}
	if staked > 0 {
		s.ROIPct = s.NetPnL / staked * 100
	}
	if clvN > 0 {
		s.AvgCLV = clvSum / float64(clvN)
	}
	s.PValue = pValue(pnls)
	return s
}

// pValue is a one-sided test of mean per-decision net P&L exceeding zero,
// using the normal approximation. Too few observations default to 1: no
// evidence, not weak evidence.
func pValue(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 1
	}
	n := float64(len(pnls))
	sum := 0.0
	for _, x := range pnls {
		sum += x
	}
	m := sum / n
	variance := 0.0
	for _, x := range pnls {
		d := x - m
		variance += d * d
	}
	variance /= n - 1
	if variance <= 0 {
		if m > 0 {
			return 0
		}
		return 1
	}
	z := m / math.Sqrt(variance/n)
	return 0.5 * math.Erfc(z/math.Sqrt2)
}

func settledTime(d models.ShadowDecision) time.Time {
	if d.SettledAt != nil {
		return *d.SettledAt
	}
	return d.CreatedAt
}
