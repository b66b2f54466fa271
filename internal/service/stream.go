package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"edgescout/internal/client/exchange"
	"edgescout/internal/config"
	"edgescout/internal/models"
	"edgescout/internal/repository"
)

// StreamService consumes the push feed of book changes and appends
// snapshots between poller passes, giving momentum detection a finer
// price series on busy markets. The poller remains the source of truth
// for the catalog; the stream only ever writes snapshots.
type StreamService struct {
	Repo   repository.Repository
	Config config.StreamConfig
	Logger *zap.Logger
}

func (s *StreamService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || !s.Config.Enabled || s.Config.URL == "" {
		return nil
	}
	stream := exchange.NewMarketStream(exchange.MarketStreamOptions{
		URL:             s.Config.URL,
		Provider:        s.trackedMarketIDs,
		RefreshInterval: s.Config.RefreshInterval,
		Logger:          s.Logger,
	})
	return stream.Run(ctx, func(env exchange.StreamEnvelope, raw []byte) {
		s.handleMessage(ctx, env, raw)
	})
}

func (s *StreamService) trackedMarketIDs(ctx context.Context) ([]string, error) {
	maxMarkets := s.Config.MaxMarkets
	if maxMarkets <= 0 {
		maxMarkets = 200
	}
	now := time.Now().UTC()
	status := models.MarketStatusOpen
	asc := true
	markets, err := s.Repo.ListMarkets(ctx, repository.ListMarketsParams{
		Status:   &status,
		OffAfter: &now,
		OrderBy:  "scheduled_off",
		Asc:      &asc,
		Limit:    maxMarkets,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *StreamService) handleMessage(ctx context.Context, env exchange.StreamEnvelope, raw []byte) {
	if !strings.EqualFold(env.Op, "book") {
		return
	}
	var book exchange.MarketBook
	if err := json.Unmarshal(raw, &book); err != nil {
		s.logWarn("parse stream book failed", err, zap.String("market_id", env.MarketID))
		return
	}
	if book.MarketID == "" {
		book.MarketID = env.MarketID
	}
	snap, ok := SnapshotFromBook(book, time.Now().UTC())
	if !ok {
		return
	}
	if err := s.Repo.InsertSnapshot(ctx, snap); err != nil {
		s.logWarn("insert stream snapshot failed", err, zap.String("market_id", book.MarketID))
	}
}

func (s *StreamService) logWarn(msg string, err error, fields ...zap.Field) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
