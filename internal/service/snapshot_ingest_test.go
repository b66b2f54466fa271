package service

import (
	"testing"
	"time"

	"edgescout/internal/client/exchange"
	"edgescout/internal/models"
)

func TestSnapshotFromBook(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	book := exchange.MarketBook{
		MarketID:       "1.234",
		Status:         "OPEN",
		TotalMatched:   15000,
		TotalAvailable: 4200,
		Runners: []exchange.RunnerBook{
			{SelectionID: 2, Back: []exchange.PriceSize{{Price: 3.40, Size: 80}}, Lay: []exchange.PriceSize{{Price: 3.50, Size: 60}}},
			{SelectionID: 1, Back: []exchange.PriceSize{{Price: 1.80, Size: 150}}, Lay: []exchange.PriceSize{{Price: 1.84, Size: 120}}},
			// Dead runner: no priced levels on either side.
			{SelectionID: 3, Back: []exchange.PriceSize{{Price: 0, Size: 0}}},
		},
	}

	snap, ok := SnapshotFromBook(book, now)
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.MarketID != "1.234" || !snap.CapturedAt.Equal(now) || snap.InPlay {
		t.Fatalf("snap=%+v", snap)
	}
	if snap.FavouriteRunnerID != 1 {
		t.Fatalf("favourite=%d want shortest back", snap.FavouriteRunnerID)
	}
	best := models.UnmarshalLadder(snap.BestBack)
	if len(best) != 1 || best[0].Price != 1.80 {
		t.Fatalf("best back=%v", best)
	}
	runners := models.UnmarshalRunnerLadders(snap.Runners)
	if len(runners) != 2 {
		t.Fatalf("runners=%v want dead runner dropped", runners)
	}
	if got, _ := snap.TotalMatched.Float64(); got != 15000 {
		t.Fatalf("matched=%v", got)
	}
}

func TestSnapshotFromBook_NoPricedRunner(t *testing.T) {
	now := time.Now().UTC()
	book := exchange.MarketBook{
		MarketID: "1.234",
		Runners:  []exchange.RunnerBook{{SelectionID: 1}},
	}
	if _, ok := SnapshotFromBook(book, now); ok {
		t.Fatalf("unpriced book produced a snapshot")
	}
	if _, ok := SnapshotFromBook(exchange.MarketBook{}, now); ok {
		t.Fatalf("empty book produced a snapshot")
	}
}
