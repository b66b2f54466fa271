package shadow

import (
	"github.com/shopspring/decimal"

	"edgescout/internal/models"
)

var one = decimal.NewFromInt(1)

// PnL is the settlement breakdown of one decision. Commission is charged
// on gross winnings only; losing and void positions pay none.
type PnL struct {
	Gross      decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// CalculatePnL computes the paper P&L for a settled decision.
//
// BACK wins pay stake×(price−1) before commission; BACK losses burn the
// stake. LAY inverts: the lay wins the backer's stake when the selection
// loses, and owes stake×(price−1) when it wins. VOID is flat regardless
// of price.
func CalculatePnL(side, outcome string, stake, entryPrice, commissionRate decimal.Decimal) PnL {
	if outcome == models.OutcomeVoid {
		return PnL{}
	}

	var gross decimal.Decimal
	switch side {
	case models.SideLay:
		if outcome == models.OutcomeWin {
			gross = stake
		} else {
			gross = stake.Mul(entryPrice.Sub(one)).Neg()
		}
	default:
		if outcome == models.OutcomeWin {
			gross = stake.Mul(entryPrice.Sub(one))
		} else {
			gross = stake.Neg()
		}
	}

	var commission decimal.Decimal
	if gross.IsPositive() {
		commission = gross.Mul(commissionRate)
	}
	return PnL{
		Gross:      gross,
		Commission: commission,
		Net:        gross.Sub(commission),
	}
}

// CLV measures entry quality against the closing mid-price, in percent.
// Positive means the entry beat the close on either side: a BACK above
// the closing mid, or a LAY below it.
func CLV(side string, entryPrice, closingMid decimal.Decimal) decimal.Decimal {
	if !closingMid.IsPositive() {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	if side == models.SideLay {
		return closingMid.Sub(entryPrice).Div(closingMid).Mul(hundred)
	}
	return entryPrice.Sub(closingMid).Div(closingMid).Mul(hundred)
}

// Outcome resolves a decision side against the settlement result. The
// second return is false while the result does not determine an outcome.
func Outcome(side string, result *models.MarketResult, runnerID int64) (string, bool) {
	if result == nil {
		return "", false
	}
	if result.Void {
		return models.OutcomeVoid, true
	}
	if result.WinningRunnerID == nil {
		return "", false
	}
	selectionWon := *result.WinningRunnerID == runnerID
	if side == models.SideLay {
		if selectionWon {
			return models.OutcomeLose, true
		}
		return models.OutcomeWin, true
	}
	if selectionWon {
		return models.OutcomeWin, true
	}
	return models.OutcomeLose, true
}
