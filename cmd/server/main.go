package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/middleware"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/router"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := infra.InitTracer("kasir-utc", cfg.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	shop, err := infra.LoadShopProfile(cfg.ShopProfilePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.ShopProfilePath).Msg("shop profile not loaded, using defaults")
	}

	events := infra.NewStockEventPublisher(cfg.Brokers(), cfg.KafkaStockTopic)
	mailer := infra.NewMailer(cfg)
	mailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	dispatcher := worker.NewDispatcher(rdb)

	// Worker handlers are wired here so the pool sees every infrastructure
	// dependency without the services knowing about it.
	saleRepo := repository.NewSaleRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	handlers := map[string]worker.HandlerFunc{
		worker.JobReceipt:  worker.NewReceiptWorker(saleRepo, receiptRepo, dispatcher, shop, cfg.PDFStoragePath).Process,
		worker.JobLowStock: worker.NewLowStockWorker(dispatcher, cfg.AlertEmail).Process,
		worker.JobEmail:    worker.NewEmailWorker(mailer, mailCB, receiptRepo).Process,
	}
	waitWorkers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{RDB: rdb, MailCB: mailCB})

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	go limiter.RunPurge(ctx, 5*time.Minute)

	r := router.New(cfg, router.Deps{
		DB:          db,
		Redis:       rdb,
		Events:      events,
		MailCB:      mailCB,
		Dispatcher:  dispatcher,
		RateLimiter: limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Kasir UTC backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	waitWorkers()

	if err := events.Close(); err != nil {
		log.Warn().Err(err).Msg("kafka writer close failed")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer flush failed")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
