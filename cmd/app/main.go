// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-spotlight/internal/config"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/adapter"
	"marketplace-spotlight/internal/infra/chain"
	pg "marketplace-spotlight/internal/infra/db/postgres"
	"marketplace-spotlight/internal/infra/logging"
	"marketplace-spotlight/internal/infra/metrics"
	red "marketplace-spotlight/internal/infra/redis"
	"marketplace-spotlight/internal/infra/sched"
	tele "marketplace-spotlight/internal/infra/telegram"
	"marketplace-spotlight/internal/infra/wallet"
	"marketplace-spotlight/internal/infra/web"
	"marketplace-spotlight/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema migration failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	requestRepo := pg.NewRequestRepo(pool)
	sessionRepo := pg.NewPaymentSessionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Collaborators ----
	chainLookup, err := chain.NewHTTPLookup(cfg.Chain.LookupURL, cfg.Chain.Timeout, cfg.Chain.MaxRetries)
	if err != nil {
		logger.Fatal().Err(err).Msg("chain lookup init failed")
	}

	var walletGW adapter.WalletGateway
	if cfg.Wallet.BridgeURL != "" {
		walletGW, err = wallet.NewBridgeGateway(cfg.Wallet.BridgeURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("wallet bridge init failed")
		}
	} else {
		walletGW = wallet.NewNoopGateway()
		logger.Warn().Msg("wallet.bridge_url not set, wallet payments are simulated")
	}

	var notifier adapter.AdminNotifier
	if cfg.Telegram.Token != "" {
		notifier, err = tele.NewNotifier(cfg.Telegram.Token, cfg.Telegram.AdminIDs, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier init failed")
		}
	} else {
		notifier = tele.NewNoopNotifier(logger)
	}

	// ---- Use cases ----
	pricing := model.NewPricing(cfg.Spotlight.UnitPrice, cfg.Spotlight.MinorUnitsPerUnit)
	requestUC := usecase.NewRequestUseCase(requestRepo, txManager, pricing, notifier, logger)
	paymentUC := usecase.NewPaymentUseCase(
		sessionRepo, requestRepo, txManager,
		chainLookup, walletGW, locker, notifier,
		cfg.Spotlight.PaymentAddress, cfg.Spotlight.PaymentWindow,
		logger,
	)
	availUC := usecase.NewAvailabilityUseCase(requestRepo)
	sweepUC := usecase.NewSweepUseCase(requestRepo, sessionRepo, txManager, notifier, cfg.Spotlight.PaymentWindow, logger)

	// ---- Background workers ----
	sweeper := sched.NewSweepWorker(cfg.Spotlight.SweepInterval, sweepUC, logger)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweep worker stopped")
		}
	}()
	poller := sched.NewVerifyPoller(paymentUC, sessionRepo, cfg.Spotlight.VerifyInterval, 30*time.Second, logger)
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("verify poller stopped")
		}
	}()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin, !cfg.Runtime.Dev)
	srv := web.NewServer(requestUC, paymentUC, availUC, auth, statusCache, cfg.Admin.Secret, logger)
	httpServer := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port))
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
