package hypothesis

import (
	"testing"

	"edgescout/internal/momentum"
)

func matchOddsQuotes() []Quote {
	return []Quote{
		{SelectionID: 1, Name: "Home", Back: 1.80, Lay: 1.84},
		{SelectionID: 2, Name: "Away", Back: 4.50, Lay: 4.70},
		{SelectionID: 3, Name: "The Draw", Back: 3.40, Lay: 3.50},
	}
}

func TestSelectRunner_MomentumTags(t *testing.T) {
	quotes := matchOddsQuotes()
	match := &MatchResult{Signal: &momentum.Signal{RunnerID: 2}}

	q := SelectRunner(SelectSteamer, "MATCH_ODDS", quotes, match)
	if q == nil || q.SelectionID != 2 {
		t.Fatalf("steamer picked %+v", q)
	}
	q = SelectRunner(SelectDrifter, "MATCH_ODDS", quotes, match)
	if q == nil || q.SelectionID != 2 {
		t.Fatalf("drifter picked %+v", q)
	}

	if SelectRunner(SelectSteamer, "MATCH_ODDS", quotes, nil) != nil {
		t.Fatalf("steamer without a signal should yield nothing")
	}
	noQuote := &MatchResult{Signal: &momentum.Signal{RunnerID: 99}}
	if SelectRunner(SelectSteamer, "MATCH_ODDS", quotes, noQuote) != nil {
		t.Fatalf("signal runner without a quote should yield nothing")
	}
}

func TestSelectRunner_Favourite(t *testing.T) {
	q := SelectRunner(SelectFavourite, "MATCH_ODDS", matchOddsQuotes(), nil)
	if q == nil || q.SelectionID != 1 {
		t.Fatalf("favourite picked %+v", q)
	}
}

func TestSelectRunner_BestValue(t *testing.T) {
	// Home at 1.80 is below the value band; the draw at 3.40 is the
	// shortest price inside it.
	q := SelectRunner(SelectBestValue, "MATCH_ODDS", matchOddsQuotes(), nil)
	if q == nil || q.SelectionID != 3 {
		t.Fatalf("best value picked %+v", q)
	}

	outOfBand := []Quote{
		{SelectionID: 1, Back: 1.20, Lay: 1.22},
		{SelectionID: 2, Back: 9.00, Lay: 9.60},
	}
	if SelectRunner(SelectBestValue, "MATCH_ODDS", outOfBand, nil) != nil {
		t.Fatalf("no runner inside the band should yield nothing")
	}
}

func TestSelectRunner_GoalMarkets(t *testing.T) {
	quotes := []Quote{
		{SelectionID: 1, Name: "Over 2.5 Goals", Back: 1.90, Lay: 1.94},
		{SelectionID: 2, Name: "Under 2.5 Goals", Back: 2.10, Lay: 2.16},
	}
	q := SelectRunner(SelectBestValue, "OVER_UNDER_25", quotes, nil)
	if q == nil || q.SelectionID != 2 {
		t.Fatalf("over/under 2.5 picked %+v", q)
	}

	btts := []Quote{
		{SelectionID: 1, Name: "Yes", Back: 1.75, Lay: 1.79},
		{SelectionID: 2, Name: "No", Back: 2.25, Lay: 2.31},
	}
	q = SelectRunner(SelectBestValue, "BOTH_TEAMS_TO_SCORE", btts, nil)
	if q == nil || q.SelectionID != 2 {
		t.Fatalf("btts picked %+v", q)
	}
}

func TestSelectRunner_UnsupportedMarketType(t *testing.T) {
	quotes := matchOddsQuotes()
	for _, marketType := range []string{"HALF_TIME_FULL_TIME", "ASIAN_HANDICAP", "SOMETHING_NEW"} {
		if q := SelectRunner(SelectBestValue, marketType, quotes, nil); q != nil {
			t.Fatalf("%s should not be traded, picked %+v", marketType, q)
		}
	}
}

func TestSelectRunner_UnknownTag(t *testing.T) {
	if SelectRunner("martingale", "MATCH_ODDS", matchOddsQuotes(), nil) != nil {
		t.Fatalf("unknown selection tag should yield nothing")
	}
}
