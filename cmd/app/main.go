// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billing-sync/internal/config"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"
	"billing-sync/internal/domain/ports/repository"
	"billing-sync/internal/infra/adapters/billing"
	"billing-sync/internal/infra/backend"
	"billing-sync/internal/infra/logging"
	"billing-sync/internal/infra/metrics"
	"billing-sync/internal/infra/notify"
	red "billing-sync/internal/infra/redis"
	"billing-sync/internal/infra/web"
	"billing-sync/internal/infra/worker"
	"billing-sync/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Price map ----
	prices, err := model.NewPriceTierMap(priceEntries(cfg.Stripe.Prices))
	if err != nil {
		log.Fatalf("price map: %v", err)
	}
	if prices.Len() == 0 {
		logger.Warn().Msg("no price ids configured; tier resolution will rely on metadata and the default tier")
	}

	// ---- Billing provider ----
	provider := billing.NewStripeProvider(&cfg.Stripe)
	if cfg.Stripe.SecretKey == "" {
		logger.Warn().Msg("stripe.secret_key not set; provider calls will fail until configured")
	}
	if cfg.Stripe.WebhookSecret == "" {
		logger.Warn().Msg("stripe.webhook_secret not set; webhook deliveries will be rejected")
	}

	// ---- Backend store ----
	store, err := backend.NewClient(&cfg.Backend)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}

	// ---- Usage counters ----
	var usage repository.UsageCounter = red.NoUsage{}
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		usage = red.NewUsageCounters(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; throttle status will report zero usage")
	}

	// ---- Notifications ----
	pool := worker.NewPool(cfg.Notify.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	var notifier adapter.Notifier = notify.NoopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	} else {
		logger.Warn().Msg("notify.webhook_url not set; operational notifications disabled")
	}
	dispatcher := notify.NewDispatcher(pool, notifier, cfg.Notify.MaxRetries, cfg.Notify.RetryBackoff, logger)

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(provider, store, prices, dispatcher, logger)
	billingUC := usecase.NewBillingUseCase(provider, store, prices, logger)
	throttleUC := usecase.NewThrottleUseCase(store, usage, cfg.Throttle.EliteLimits, cfg.Throttle.UpgradeURL, logger)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Server.JWTSecret, cfg.Server.SessionTTL)
	server := web.NewServer(reconcileUC, billingUC, throttleUC, auth, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Server.Port) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func priceEntries(p config.PriceSlots) []model.PriceEntry {
	return []model.PriceEntry{
		{PriceID: p.LiteMonthly, Tier: model.TierLite, Cycle: model.CycleMonthly},
		{PriceID: p.LiteAnnual, Tier: model.TierLite, Cycle: model.CycleAnnual},
		{PriceID: p.ProMonthly, Tier: model.TierPro, Cycle: model.CycleMonthly},
		{PriceID: p.ProAnnual, Tier: model.TierPro, Cycle: model.CycleAnnual},
		{PriceID: p.EnterpriseMonthly, Tier: model.TierEnterprise, Cycle: model.CycleMonthly},
		{PriceID: p.EnterpriseAnnual, Tier: model.TierEnterprise, Cycle: model.CycleAnnual},
		{PriceID: p.MaximumMonthly, Tier: model.TierMaximum, Cycle: model.CycleMonthly},
		{PriceID: p.MaximumAnnual, Tier: model.TierMaximum, Cycle: model.CycleAnnual},
	}
}
