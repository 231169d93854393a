// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobboard-billing/internal/config"
	pg "jobboard-billing/internal/infra/db/postgres"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
	"jobboard-billing/internal/infra/notify"
	"jobboard-billing/internal/infra/payment"
	red "jobboard-billing/internal/infra/redis"
	"jobboard-billing/internal/infra/sched"
	"jobboard-billing/internal/infra/storage"
	"jobboard-billing/internal/infra/web"
	"jobboard-billing/internal/infra/worker"
	"jobboard-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	metrics.MustRegister()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, cfg.Redis.TTL)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Gateway ----
	gw, err := payment.NewRazorpayGateway(
		cfg.Payment.Razorpay.KeyID,
		cfg.Payment.Razorpay.KeySecret,
		cfg.Payment.Razorpay.WebhookSecret,
		cfg.Payment.Razorpay.BaseURL,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}

	// ---- Invoice storage ----
	fileStore, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.BaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invoice storage")
	}

	// ---- Notification dispatch ----
	pool2 := worker.NewPool(cfg.Notifications.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	notifier := notify.NewLogNotifier(logger)

	// ---- Use cases ----
	notifUC := usecase.NewNotificationUseCase(notifier, pool2, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, payRepo, txm, notifUC, logger)
	invoiceUC := usecase.NewInvoiceUseCase(invoiceRepo, planRepo, userRepo, fileStore, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, planRepo, userRepo, gw, cfg.Payment.Razorpay.Currency, logger)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, planRepo, gw, subUC, invoiceUC, notifUC, locker, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret)
	server := web.NewServer(cfg.HTTP.Port, paymentUC, reconcileUC, subUC, invoiceUC, auth, logger)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Background workers ----
	reconciler := sched.NewPaymentReconciler(reconcileUC, payRepo, gw, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	expiry := sched.NewExpiryWorker(1*time.Hour, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	_ = redisClient.Close()
}
