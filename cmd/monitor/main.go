package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"edgescout/internal/client/exchange"
	"edgescout/internal/competition"
	"edgescout/internal/config"
	cronrunner "edgescout/internal/cron"
	"edgescout/internal/db"
	"edgescout/internal/handler"
	"edgescout/internal/hypothesis"
	"edgescout/internal/logger"
	"edgescout/internal/momentum"
	"edgescout/internal/profile"
	gormrepository "edgescout/internal/repository/gorm"
	"edgescout/internal/scoring"
	"edgescout/internal/service"
	"edgescout/internal/shadow"
	"edgescout/internal/validate"

	_ "edgescout/docs"
)

func main() {
	cfgPath := os.Getenv("ES_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ES_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	if err := config.Validate(cfg); err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	exchangeHTTP := &http.Client{Timeout: cfg.Exchange.Timeout}
	exchangeClient := exchange.NewClient(exchangeHTTP, cfg.Exchange.BaseURL, cfg.Exchange.RateLimitRPS, cfg.Exchange.RateBurst)
	store := gormrepository.New(dbConn.Gorm)

	profiler := &profile.Profiler{
		Repo:         store,
		Logger:       logger,
		MinSnapshots: cfg.Profiling.MinSnapshots,
	}
	scorer := &scoring.Service{
		Repo:   store,
		Engine: scoring.NewEngine(cfg.Scoring),
		Logger: logger,
	}
	detector := &momentum.Detector{Repo: store, Logger: logger}
	hypEngine := &hypothesis.Engine{
		Repo:      store,
		Detector:  detector,
		Logger:    logger,
		BaseStake: cfg.Shadow.BaseStake,
	}
	shadowMgr := &shadow.Manager{
		Repo:              store,
		Logger:            logger,
		CommissionRate:    decimal.NewFromFloat(cfg.Shadow.CommissionRate),
		ClosingWindow:     cfg.Shadow.ClosingWindow,
		SettlementTimeout: cfg.Shadow.SettlementTimeout,
	}
	aggregator := &competition.Aggregator{
		Repo:   store,
		Logger: logger,
		Config: cfg.Competition,
	}
	validator := &validate.Validator{
		Repo:            store,
		Logger:          logger,
		Config:          cfg.Validation,
		HypothesisCount: len(cfg.Hypotheses),
	}

	if err := hypEngine.SyncFromConfig(context.Background(), cfg.Hypotheses); err != nil {
		logger.Fatal("hypothesis sync failed", zap.Error(err))
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	scoreHandler := &handler.ScoreHandler{Repo: store}
	scoreHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store}
	marketHandler.Register(engine)
	competitionHandler := &handler.CompetitionHandler{Repo: store}
	competitionHandler.Register(engine)
	hypothesisHandler := &handler.HypothesisHandler{Repo: store, Validator: validator}
	hypothesisHandler.Register(engine)
	decisionHandler := &handler.DecisionHandler{Repo: store}
	decisionHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)

	_, err = cronRunner.Add(cfg.Jobs.ProfileMarkets, func(ctx context.Context) {
		stats, err := profiler.RunOnce(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("profile pass failed", zap.Error(err))
			return
		}
		logger.Info("profile pass ok",
			zap.Int("markets", stats.MarketsProcessed),
			zap.Int("profiles", stats.ProfilesUpserted),
		)
	})
	if err != nil {
		logger.Warn("cron register profile pass failed", zap.Error(err))
	}

	_, err = cronRunner.Add(cfg.Jobs.ScoreMarkets, func(ctx context.Context) {
		n, err := scorer.RunOnce(ctx)
		if err != nil {
			logger.Warn("score pass failed", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("score pass ok", zap.Int("scored", n))
		}
	})
	if err != nil {
		logger.Warn("cron register score pass failed", zap.Error(err))
	}

	_, err = cronRunner.Add(cfg.Jobs.EvaluateHypotheses, func(ctx context.Context) {
		stats, err := hypEngine.RunOnce(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("hypothesis pass failed", zap.Error(err))
			return
		}
		if stats.Created > 0 || stats.Matched > 0 {
			logger.Info("hypothesis pass ok",
				zap.Int("scanned", stats.MarketsScanned),
				zap.Int("matched", stats.Matched),
				zap.Int("created", stats.Created),
				zap.Int("existing", stats.SkippedExisting),
			)
		}
	})
	if err != nil {
		logger.Warn("cron register hypothesis pass failed", zap.Error(err))
	}

	_, err = cronRunner.Add(cfg.Jobs.CaptureClosing, func(ctx context.Context) {
		stats, err := shadowMgr.CaptureClosing(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("closing capture failed", zap.Error(err))
			return
		}
		if stats.Captured > 0 {
			logger.Info("closing capture ok",
				zap.Int("checked", stats.Checked),
				zap.Int("captured", stats.Captured),
			)
		}
	})
	if err != nil {
		logger.Warn("cron register closing capture failed", zap.Error(err))
	}

	_, err = cronRunner.Add(cfg.Jobs.SettleDecisions, func(ctx context.Context) {
		stats, err := shadowMgr.Settle(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("settlement pass failed", zap.Error(err))
			return
		}
		if stats.Checked > 0 {
			logger.Info("settlement pass ok",
				zap.Int("checked", stats.Checked),
				zap.Int("wins", stats.Wins),
				zap.Int("losses", stats.Losses),
				zap.Int("voids", stats.Voids),
				zap.Int("timed_out", stats.TimedOut),
			)
		}
	})
	if err != nil {
		logger.Warn("cron register settlement failed", zap.Error(err))
	}

	_, err = cronRunner.Add(cfg.Jobs.AggregateStats, func(ctx context.Context) {
		stats, err := aggregator.RunOnce(ctx, time.Now().UTC())
		if err != nil {
			logger.Warn("competition aggregate failed", zap.Error(err))
			return
		}
		logger.Info("competition aggregate ok",
			zap.Int("competitions", stats.Competitions),
			zap.Int("upserted", stats.Upserted),
			zap.Int("skipped", stats.Skipped),
		)
	})
	if err != nil {
		logger.Warn("cron register competition aggregate failed", zap.Error(err))
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Ingest.Enabled {
		snapshotIngest := &service.SnapshotIngestService{
			Repo:   store,
			Client: exchangeClient,
			Config: cfg.Ingest,
			Logger: logger,
		}
		go func() {
			if err := snapshotIngest.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("snapshot ingest stopped", zap.Error(err))
			}
		}()

		resultIngest := &service.ResultIngestService{
			Repo:   store,
			Client: exchangeClient,
			Config: cfg.Ingest,
			Logger: logger,
		}
		go func() {
			if err := resultIngest.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("result ingest stopped", zap.Error(err))
			}
		}()
	}

	streamService := &service.StreamService{Repo: store, Config: cfg.Stream, Logger: logger}
	go func() {
		if err := streamService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("market stream stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
