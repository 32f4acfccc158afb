package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ItsMalma/fiems-sub000/internal/app"
	"github.com/ItsMalma/fiems-sub000/internal/documents"
	"github.com/ItsMalma/fiems-sub000/internal/masterdata"
	"github.com/ItsMalma/fiems-sub000/internal/observability"
	"github.com/ItsMalma/fiems-sub000/internal/platform/cache"
	"github.com/ItsMalma/fiems-sub000/internal/pricing"
	"github.com/ItsMalma/fiems-sub000/internal/quotations"
	"github.com/ItsMalma/fiems-sub000/internal/schedules"
	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
	"github.com/ItsMalma/fiems-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	clock := shared.SystemClock{}
	seq := sequence.NewGenerator(cfg.SequencePeriodReset)
	refCache := cache.NewRefCache(redisClient, cfg.RefCacheTTL)

	masterdataRepo := masterdata.NewRepository(dbpool)
	masterdataService := masterdata.NewService(masterdataRepo, seq, clock, refCache, logger)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	pricingRepo := pricing.NewRepository(dbpool)
	pricingService := pricing.NewService(pricingRepo, seq, clock, logger)
	pricingHandler := pricing.NewHandler(logger, pricingService)

	quotationsRepo := quotations.NewRepository(dbpool)
	quotationsService := quotations.NewService(quotationsRepo, pricingService, seq, clock, logger)
	quotationsHandler := quotations.NewHandler(logger, quotationsService)

	schedulesRepo := schedules.NewRepository(dbpool)
	schedulesService := schedules.NewService(schedulesRepo, seq, clock, logger)
	schedulesHandler := schedules.NewHandler(logger, schedulesService)

	documentsRepo := documents.NewRepository(dbpool)
	documentsService := documents.NewService(documentsRepo, seq, clock, logger)
	documentsHandler := documents.NewHandler(logger, documentsService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterdataHandler,
		PricingHandler:    pricingHandler,
		QuotationsHandler: quotationsHandler,
		SchedulesHandler:  schedulesHandler,
		DocumentsHandler:  documentsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
