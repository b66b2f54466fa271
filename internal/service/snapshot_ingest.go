package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"edgescout/internal/client/exchange"
	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// Sync-state scopes written by the ingest services.
const (
	SyncScopeSnapshots = "snapshots"
	SyncScopeResults   = "results"
)

// SnapshotIngestService polls the exchange for upcoming markets and their
// live books, maintaining the catalog (competitions, events, markets,
// runners) and appending one immutable snapshot per market per poll.
// Snapshots older than the retention window are pruned on each pass.
type SnapshotIngestService struct {
	Repo   repository.Repository
	Client *exchange.Client
	Config config.IngestConfig
	Logger *zap.Logger

	// CatalogHorizon bounds how far ahead markets are tracked.
	CatalogHorizon time.Duration
}

func (s *SnapshotIngestService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Client == nil {
		return nil
	}
	interval := s.Config.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	// Run once on start.
	if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logWarn("snapshot ingest failed", err)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logWarn("snapshot ingest failed", err)
			}
		}
	}
}

func (s *SnapshotIngestService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Client == nil {
		return nil
	}
	now := time.Now().UTC()
	horizon := s.CatalogHorizon
	if horizon <= 0 {
		horizon = 72 * time.Hour
	}
	maxMarkets := s.Config.MaxMarkets
	if maxMarkets <= 0 {
		maxMarkets = 200
	}

	catalogues, err := s.Client.ListMarkets(ctx, now, now.Add(horizon), maxMarkets)
	if err != nil {
		s.saveState(ctx, now, err)
		return err
	}
	if err := s.syncCatalog(ctx, catalogues, now); err != nil {
		s.saveState(ctx, now, err)
		return err
	}

	marketIDs := make([]string, 0, len(catalogues))
	for _, cat := range catalogues {
		if cat.MarketID != "" {
			marketIDs = append(marketIDs, cat.MarketID)
		}
	}
	captured, err := s.captureBooks(ctx, marketIDs, now)
	if err != nil {
		s.saveState(ctx, now, err)
		return err
	}

	if s.Config.SnapshotRetention > 0 {
		if pruned, err := s.Repo.DeleteSnapshotsBefore(ctx, now.Add(-s.Config.SnapshotRetention)); err != nil {
			s.logWarn("snapshot retention prune failed", err)
		} else if pruned > 0 && s.Logger != nil {
			s.Logger.Debug("snapshots pruned", zap.Int64("rows", pruned))
		}
	}

	s.saveState(ctx, now, nil)
	if s.Logger != nil {
		s.Logger.Info("snapshot ingest pass complete",
			zap.Int("markets", len(catalogues)), zap.Int("snapshots", captured))
	}
	return nil
}

func (s *SnapshotIngestService) syncCatalog(ctx context.Context, catalogues []exchange.MarketCatalogue, now time.Time) error {
	competitionByID := map[string]models.Competition{}
	eventByID := map[string]models.Event{}
	var markets []models.Market
	var runners []models.Runner

	for _, cat := range catalogues {
		if cat.MarketID == "" || cat.Event == nil || cat.Event.ID == "" {
			continue
		}
		var competitionID *string
		if comp := cat.Event.Competition; comp != nil && comp.ID != "" {
			competitionByID[comp.ID] = models.Competition{
				ID:      comp.ID,
				Name:    comp.Name,
				Country: comp.CountryCode,
				Enabled: true,
			}
			id := comp.ID
			competitionID = &id
		}
		eventByID[cat.Event.ID] = models.Event{
			ID:            cat.Event.ID,
			CompetitionID: competitionID,
			Name:          cat.Event.Name,
			Country:       cat.Event.CountryCode,
			OpenDate:      cat.Event.OpenDate,
			LastSeenAt:    now,
		}
		markets = append(markets, models.Market{
			ID:            cat.MarketID,
			EventID:       cat.Event.ID,
			CompetitionID: competitionID,
			Name:          cat.MarketName,
			MarketType:    cat.MarketType,
			Status:        models.MarketStatusOpen,
			ScheduledOff:  cat.MarketStartTime,
			TotalMatched:  decimal.NewFromFloat(cat.TotalMatched),
			LastSeenAt:    now,
		})
		for _, r := range cat.Runners {
			runners = append(runners, models.Runner{
				MarketID:     cat.MarketID,
				SelectionID:  r.SelectionID,
				Name:         r.RunnerName,
				SortPriority: r.SortPriority,
			})
		}
	}

	competitions := make([]models.Competition, 0, len(competitionByID))
	for _, c := range competitionByID {
		competitions = append(competitions, c)
	}
	events := make([]models.Event, 0, len(eventByID))
	for _, e := range eventByID {
		events = append(events, e)
	}

	if err := s.Repo.UpsertCompetitions(ctx, competitions); err != nil {
		return err
	}
	if err := s.Repo.UpsertEvents(ctx, events); err != nil {
		return err
	}
	if err := s.Repo.UpsertMarkets(ctx, markets); err != nil {
		return err
	}
	return s.Repo.UpsertRunners(ctx, runners)
}

func (s *SnapshotIngestService) captureBooks(ctx context.Context, marketIDs []string, now time.Time) (int, error) {
	if len(marketIDs) == 0 {
		return 0, nil
	}
	depth := s.Config.LadderDepth
	if depth <= 0 {
		depth = 3
	}
	books, err := s.Client.GetBooks(ctx, marketIDs, depth)
	if err != nil {
		return 0, err
	}

	captured := 0
	for _, book := range books {
		if ctx.Err() != nil {
			return captured, ctx.Err()
		}
		switch book.Status {
		case "SUSPENDED":
			if err := s.Repo.MarkMarketStatus(ctx, book.MarketID, models.MarketStatusSuspended); err != nil {
				s.logWarn("mark suspended failed", err, zap.String("market_id", book.MarketID))
			}
			continue
		case "CLOSED":
			if err := s.Repo.MarkMarketStatus(ctx, book.MarketID, models.MarketStatusClosed); err != nil {
				s.logWarn("mark closed failed", err, zap.String("market_id", book.MarketID))
			}
			continue
		}

		snap, ok := SnapshotFromBook(book, now)
		if !ok {
			continue
		}
		if err := s.Repo.InsertSnapshot(ctx, snap); err != nil {
			s.logWarn("insert snapshot failed", err, zap.String("market_id", book.MarketID))
			continue
		}
		captured++
	}
	return captured, nil
}

// SnapshotFromBook converts a live book into a snapshot row. Markets with
// no priced runner produce nothing.
func SnapshotFromBook(book exchange.MarketBook, now time.Time) (*models.MarketSnapshot, bool) {
	if book.MarketID == "" || len(book.Runners) == 0 {
		return nil, false
	}

	ladders := make([]models.RunnerLadder, 0, len(book.Runners))
	var favourite *models.RunnerLadder
	for _, r := range book.Runners {
		ladder := models.RunnerLadder{
			SelectionID: r.SelectionID,
			Back:        toPriceSizes(r.Back),
			Lay:         toPriceSizes(r.Lay),
		}
		if len(ladder.Back) == 0 && len(ladder.Lay) == 0 {
			continue
		}
		ladders = append(ladders, ladder)
	}
	if len(ladders) == 0 {
		return nil, false
	}
	// Favourite = shortest best back price.
	sort.SliceStable(ladders, func(i, j int) bool {
		return bestBackPrice(ladders[i]) < bestBackPrice(ladders[j])
	})
	for i := range ladders {
		if len(ladders[i].Back) > 0 {
			favourite = &ladders[i]
			break
		}
	}
	if favourite == nil {
		return nil, false
	}

	snap := &models.MarketSnapshot{
		MarketID:          book.MarketID,
		CapturedAt:        now,
		InPlay:            book.InPlay,
		FavouriteRunnerID: favourite.SelectionID,
		TotalMatched:      decimal.NewFromFloat(book.TotalMatched),
		TotalAvailable:    decimal.NewFromFloat(book.TotalAvailable),
		BestBack:          models.MarshalLadder(favourite.Back),
		BestLay:           models.MarshalLadder(favourite.Lay),
		Runners:           models.MarshalRunnerLadders(ladders),
	}
	return snap, true
}

func toPriceSizes(levels []exchange.PriceSize) []models.PriceSize {
	out := make([]models.PriceSize, 0, len(levels))
	for _, l := range levels {
		if l.Price <= 0 {
			continue
		}
		out = append(out, models.PriceSize{Price: l.Price, Size: l.Size})
	}
	return out
}

func bestBackPrice(ladder models.RunnerLadder) float64 {
	if len(ladder.Back) == 0 {
		return 1e9
	}
	return ladder.Back[0].Price
}

func (s *SnapshotIngestService) saveState(ctx context.Context, at time.Time, runErr error) {
	state := &models.SyncState{Scope: SyncScopeSnapshots, LastAttemptAt: &at}
	if runErr != nil {
		msg := runErr.Error()
		state.LastError = &msg
	} else {
		state.LastSuccessAt = &at
		state.WatermarkTS = &at
	}
	if raw, err := json.Marshal(map[string]any{"at": at}); err == nil {
		state.StatsJSON = datatypes.JSON(raw)
	}
	if err := s.Repo.SaveSyncState(ctx, state); err != nil {
		s.logWarn("save sync state failed", err)
	}
}

func (s *SnapshotIngestService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
