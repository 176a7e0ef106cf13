package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustpay-sync/config"
	redisStorage "trustpay-sync/internal/adapter/storage/redis"
	"trustpay-sync/internal/service"
	"trustpay-sync/internal/simulator"
	"trustpay-sync/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "TPS_JWT_SECRET must be set")
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting TrustPay escrow simulator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize state and websocket hub
	store := simulator.NewStore(log, hashSvc)
	hub := simulator.NewHub(log, tokenSvc)

	deps := simulator.RouterDeps{
		Store:    store,
		Hub:      hub,
		TokenSvc: tokenSvc,
		Logger:   log,
	}

	// Redis carries the cross-replica event broadcast and the rate limit
	// counters. Without it the simulator still runs single-replica: events
	// go straight to the local hub and rate limiting is disabled.
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running single-replica without rate limits")
		deps.Publisher = simulator.NewHubPublisher(hub)
	} else {
		defer rdb.Close()
		log.Info().Msg("Redis connected")
		deps.Publisher = simulator.NewRedisPublisher(log, rdb)
		deps.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
		deps.HealthCheck = redisStorage.NewHealthCheck(rdb)
		simulator.StartSubscriber(ctx, log, rdb, hub)
	}

	// Sweep unfunded escrows past their deadline so watchers see EXPIRED.
	simulator.StartExpirySweeper(ctx, log, store, deps.Publisher, simulator.DefaultSweepInterval)

	router := simulator.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
