package shadow

import (
	"testing"

	"github.com/shopspring/decimal"

	"edgescout/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculatePnL_BackWin(t *testing.T) {
	pnl := CalculatePnL(models.SideBack, models.OutcomeWin, dec("10"), dec("2.40"), dec("0.05"))
	if !pnl.Gross.Equal(dec("14.0")) {
		t.Fatalf("gross=%s want 14.0", pnl.Gross)
	}
	if !pnl.Commission.Equal(dec("0.7")) {
		t.Fatalf("commission=%s want 0.7", pnl.Commission)
	}
	if !pnl.Net.Equal(dec("13.3")) {
		t.Fatalf("net=%s want 13.3", pnl.Net)
	}
}

func TestCalculatePnL_BackLose(t *testing.T) {
	pnl := CalculatePnL(models.SideBack, models.OutcomeLose, dec("10"), dec("2.40"), dec("0.05"))
	if !pnl.Gross.Equal(dec("-10")) || !pnl.Commission.IsZero() || !pnl.Net.Equal(dec("-10")) {
		t.Fatalf("pnl=%+v", pnl)
	}
}

func TestCalculatePnL_LayWin(t *testing.T) {
	// The lay wins the backer's stake; commission applies.
	pnl := CalculatePnL(models.SideLay, models.OutcomeWin, dec("10"), dec("3.00"), dec("0.02"))
	if !pnl.Gross.Equal(dec("10")) {
		t.Fatalf("gross=%s want 10", pnl.Gross)
	}
	if !pnl.Commission.Equal(dec("0.2")) {
		t.Fatalf("commission=%s want 0.2", pnl.Commission)
	}
	if !pnl.Net.Equal(dec("9.8")) {
		t.Fatalf("net=%s want 9.8", pnl.Net)
	}
}

func TestCalculatePnL_LayLose(t *testing.T) {
	// Liability is stake × (price − 1), no commission on a loss.
	pnl := CalculatePnL(models.SideLay, models.OutcomeLose, dec("10"), dec("3.00"), dec("0.02"))
	if !pnl.Gross.Equal(dec("-20")) || !pnl.Commission.IsZero() || !pnl.Net.Equal(dec("-20")) {
		t.Fatalf("pnl=%+v", pnl)
	}
}

func TestCalculatePnL_Void(t *testing.T) {
	for _, side := range []string{models.SideBack, models.SideLay} {
		pnl := CalculatePnL(side, models.OutcomeVoid, dec("10"), dec("2.40"), dec("0.05"))
		if !pnl.Gross.IsZero() || !pnl.Commission.IsZero() || !pnl.Net.IsZero() {
			t.Fatalf("%s void pnl=%+v", side, pnl)
		}
	}
}

func TestCLV(t *testing.T) {
	// BACK at 2.50 against a 2.40 closing mid: entry beat the close.
	clv := CLV(models.SideBack, dec("2.50"), dec("2.40"))
	if got, _ := clv.Float64(); got < 4.1 || got > 4.2 {
		t.Fatalf("back clv=%v want ~4.17", got)
	}
	// The same prices on the LAY side are a worse-than-close entry.
	clv = CLV(models.SideLay, dec("2.50"), dec("2.40"))
	if got, _ := clv.Float64(); got > -4.1 || got < -4.2 {
		t.Fatalf("lay clv=%v want ~-4.17", got)
	}
	// LAY below the closing mid is positive.
	clv = CLV(models.SideLay, dec("2.30"), dec("2.40"))
	if !clv.IsPositive() {
		t.Fatalf("lay clv=%s want positive", clv)
	}
	if !CLV(models.SideBack, dec("2.50"), decimal.Zero).IsZero() {
		t.Fatalf("zero mid should yield zero CLV")
	}
}

func TestOutcome(t *testing.T) {
	winner := int64(101)

	if outcome, ok := Outcome(models.SideBack, nil, 101); ok || outcome != "" {
		t.Fatalf("nil result resolved to %q", outcome)
	}

	void := &models.MarketResult{Void: true}
	if outcome, ok := Outcome(models.SideBack, void, 101); !ok || outcome != models.OutcomeVoid {
		t.Fatalf("void result: %q %v", outcome, ok)
	}

	unresolved := &models.MarketResult{}
	if _, ok := Outcome(models.SideBack, unresolved, 101); ok {
		t.Fatalf("result without winner resolved")
	}

	settled := &models.MarketResult{WinningRunnerID: &winner}
	cases := []struct {
		side     string
		runnerID int64
		want     string
	}{
		{models.SideBack, 101, models.OutcomeWin},
		{models.SideBack, 202, models.OutcomeLose},
		{models.SideLay, 101, models.OutcomeLose},
		{models.SideLay, 202, models.OutcomeWin},
	}
	for _, tc := range cases {
		outcome, ok := Outcome(tc.side, settled, tc.runnerID)
		if !ok || outcome != tc.want {
			t.Fatalf("%s runner %d: %q want %q", tc.side, tc.runnerID, outcome, tc.want)
		}
	}
}
