package profile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// profilerRepo stubs only the methods the profiler touches; anything else
// panics via the embedded nil interface.
type profilerRepo struct {
	repository.Repository
	market    *models.Market
	snapshots []models.MarketSnapshot
	upserts   map[string]*models.MarketProfile
}

func (r *profilerRepo) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	return r.market, nil
}

func (r *profilerRepo) ListSnapshots(ctx context.Context, marketID string, from, to time.Time) ([]models.MarketSnapshot, error) {
	return r.snapshots, nil
}

func (r *profilerRepo) UpsertProfile(ctx context.Context, item *models.MarketProfile) error {
	if r.upserts == nil {
		r.upserts = map[string]*models.MarketProfile{}
	}
	key := fmt.Sprintf("%s|%s|%s", item.MarketID, item.ProfileDate.Format("2006-01-02"), item.TimeBucket)
	r.upserts[key] = item
	return nil
}

func ladderSnapshot(at time.Time, back, lay, size, matched float64) models.MarketSnapshot {
	runners := []models.RunnerLadder{{
		SelectionID: 101,
		Back:        []models.PriceSize{{Price: back, Size: size}},
		Lay:         []models.PriceSize{{Price: lay, Size: size}},
	}}
	return models.MarketSnapshot{
		MarketID:          "1.234",
		CapturedAt:        at,
		FavouriteRunnerID: 101,
		TotalMatched:      decimal.NewFromFloat(matched),
		Runners:           models.MarshalRunnerLadders(runners),
	}
}

func TestProfileMarket(t *testing.T) {
	off := time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	from := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	// Four snapshots in the 2-6h bucket over 30 minutes, rising volume.
	var snaps []models.MarketSnapshot
	for i := 0; i < 4; i++ {
		at := off.Add(-4*time.Hour + time.Duration(i)*10*time.Minute)
		snaps = append(snaps, ladderSnapshot(at, 2.40, 2.46, 200, float64(10000+i*500)))
	}
	// One lonely snapshot in <2h: below the minimum, no row.
	snaps = append(snaps, ladderSnapshot(off.Add(-time.Hour), 2.38, 2.44, 180, 12500))
	// Post-off snapshot: excluded entirely.
	snaps = append(snaps, ladderSnapshot(off.Add(time.Minute), 2.30, 2.50, 50, 13000))

	repo := &profilerRepo{
		market:    &models.Market{ID: "1.234", ScheduledOff: &off},
		snapshots: snaps,
	}
	p := &Profiler{Repo: repo, MinSnapshots: 2}

	n, err := p.ProfileMarket(context.Background(), "1.234", from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 1 {
		t.Fatalf("upserted %d rows, want 1", n)
	}
	row := repo.upserts["1.234|2026-03-07|2-6h"]
	if row == nil {
		t.Fatalf("missing 2-6h row, got %v", repo.upserts)
	}
	if row.SnapshotCount != 4 {
		t.Fatalf("snapshot count=%d want 4", row.SnapshotCount)
	}
	if row.TotalMatchedVolume != 11500 {
		t.Fatalf("volume=%v want max 11500", row.TotalMatchedVolume)
	}
	if row.AvgSpreadTicks <= 0 {
		t.Fatalf("spread ticks=%v", row.AvgSpreadTicks)
	}
	if row.AvgDepthBest != 400 {
		t.Fatalf("depth=%v want 400", row.AvgDepthBest)
	}
	if row.FavouriteRunnerID != 101 {
		t.Fatalf("favourite=%d", row.FavouriteRunnerID)
	}
	// 4 snapshots over 30 minutes.
	if row.UpdateRatePerMinute <= 0.13 || row.UpdateRatePerMinute >= 0.14 {
		t.Fatalf("update rate=%v", row.UpdateRatePerMinute)
	}

	// Re-running replaces, never accumulates.
	n, err = p.ProfileMarket(context.Background(), "1.234", from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("rerun err=%v", err)
	}
	if n != 1 || len(repo.upserts) != 1 {
		t.Fatalf("rerun upserted=%d rows=%d", n, len(repo.upserts))
	}
}

func TestProfileMarket_NoScheduledOff(t *testing.T) {
	repo := &profilerRepo{market: &models.Market{ID: "1.234"}}
	p := &Profiler{Repo: repo, MinSnapshots: 2}
	n, err := p.ProfileMarket(context.Background(), "1.234", time.Now(), time.Now().Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
