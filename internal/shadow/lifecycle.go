package shadow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// Manager drives a decision's life after creation: closing-price capture
// shortly before the off, then settlement once a result arrives. Both
// passes are safe to re-run; the underlying writes are conditional
// single-shot updates.
type Manager struct {
	Repo           repository.Repository
	Logger         *zap.Logger
	CommissionRate decimal.Decimal

	// ClosingWindow is how close to the off a decision must be before its
	// closing price is captured.
	ClosingWindow time.Duration

	// SettlementTimeout forces PENDING decisions to VOID when no result
	// arrives this long after the scheduled off. Those rows carry
	// timed_out=true so reporting can separate them from exchange voids.
	SettlementTimeout time.Duration
}

type ClosingStats struct {
	Checked  int
	Captured int
}

type SettleStats struct {
	Checked  int
	Wins     int
	Losses   int
	Voids    int
	TimedOut int
}

// CaptureClosing records closing back/lay and CLV for decisions whose
// market is inside the closing window.
func (m *Manager) CaptureClosing(ctx context.Context, now time.Time) (ClosingStats, error) {
	var stats ClosingStats
	if m == nil || m.Repo == nil {
		return stats, nil
	}
	window := m.ClosingWindow
	if window <= 0 {
		window = 2 * time.Hour
	}

	decisions, err := m.Repo.ListDecisionsAwaitingClosing(ctx, 500)
	if err != nil {
		return stats, err
	}
	for _, d := range decisions {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++

		market, err := m.Repo.GetMarket(ctx, d.MarketID)
		if err != nil {
			m.logWarn("load market for closing failed", err, zap.String("market_id", d.MarketID))
			continue
		}
		if market == nil || market.ScheduledOff == nil {
			continue
		}
		if market.ScheduledOff.Sub(now) > window {
			continue
		}

		snap, err := m.Repo.LatestSnapshot(ctx, d.MarketID)
		if err != nil {
			m.logWarn("load snapshot for closing failed", err, zap.String("market_id", d.MarketID))
			continue
		}
		if snap == nil {
			continue
		}
		back, lay, ok := runnerBestPrices(snap, d.RunnerID)
		if !ok {
			continue
		}

		mid := back.Add(lay).Div(decimal.NewFromInt(2))
		clv := CLV(d.Side, d.EntryPrice, mid)
		if err := m.Repo.SetDecisionClosing(ctx, d.ID, back, lay, clv, now); err != nil {
			m.logWarn("set closing failed", err, zap.Uint64("decision_id", d.ID))
			continue
		}
		stats.Captured++
		if m.Logger != nil {
			m.Logger.Info("closing price captured",
				zap.Uint64("decision_id", d.ID),
				zap.String("market_id", d.MarketID),
				zap.String("clv_pct", clv.StringFixed(2)))
		}
	}
	return stats, nil
}

// Settle resolves pending decisions against the settlement feed and
// forces long-overdue ones to VOID.
func (m *Manager) Settle(ctx context.Context, now time.Time) (SettleStats, error) {
	var stats SettleStats
	if m == nil || m.Repo == nil {
		return stats, nil
	}
	timeout := m.SettlementTimeout
	if timeout <= 0 {
		timeout = 72 * time.Hour
	}

	decisions, err := m.Repo.ListPendingDecisions(ctx, 500)
	if err != nil {
		return stats, err
	}
	for _, d := range decisions {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++

		result, err := m.Repo.GetMarketResult(ctx, d.MarketID)
		if err != nil {
			m.logWarn("load result failed", err, zap.String("market_id", d.MarketID))
			continue
		}
		outcome, resolved := Outcome(d.Side, result, d.RunnerID)
		timedOut := false
		if !resolved {
			if !m.isOverdue(ctx, d.MarketID, now, timeout) {
				continue
			}
			outcome = models.OutcomeVoid
			timedOut = true
		}

		pnl := CalculatePnL(d.Side, outcome, d.Stake, d.EntryPrice, m.CommissionRate)
		settled, err := m.Repo.SettleDecision(ctx, d.ID, outcome, pnl.Gross, pnl.Commission, pnl.Net, now, timedOut)
		if err != nil {
			m.logWarn("settle failed", err, zap.Uint64("decision_id", d.ID))
			continue
		}
		if !settled {
			continue
		}
		switch outcome {
		case models.OutcomeWin:
			stats.Wins++
		case models.OutcomeLose:
			stats.Losses++
		default:
			stats.Voids++
			if timedOut {
				stats.TimedOut++
			}
		}
		if m.Logger != nil {
			m.Logger.Info("shadow decision settled",
				zap.Uint64("decision_id", d.ID),
				zap.String("hypothesis", d.HypothesisName),
				zap.String("outcome", outcome),
				zap.Bool("timed_out", timedOut),
				zap.String("net_pnl", pnl.Net.StringFixed(2)))
		}
	}
	return stats, nil
}

func (m *Manager) isOverdue(ctx context.Context, marketID string, now time.Time, timeout time.Duration) bool {
	market, err := m.Repo.GetMarket(ctx, marketID)
	if err != nil || market == nil || market.ScheduledOff == nil {
		return false
	}
	return now.Sub(*market.ScheduledOff) > timeout
}

func runnerBestPrices(snap *models.MarketSnapshot, runnerID int64) (back, lay decimal.Decimal, ok bool) {
	for _, ladder := range models.UnmarshalRunnerLadders(snap.Runners) {
		if ladder.SelectionID != runnerID {
			continue
		}
		if len(ladder.Back) == 0 || len(ladder.Lay) == 0 {
			return decimal.Zero, decimal.Zero, false
		}
		b := decimal.NewFromFloat(ladder.Back[0].Price)
		l := decimal.NewFromFloat(ladder.Lay[0].Price)
		if !b.IsPositive() || !l.IsPositive() {
			return decimal.Zero, decimal.Zero, false
		}
		return b, l, true
	}
	return decimal.Zero, decimal.Zero, false
}

func (m *Manager) logWarn(msg string, err error, fields ...zap.Field) {
	if m == nil || m.Logger == nil {
		return
	}
	m.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
