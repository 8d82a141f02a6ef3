package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	alertingrepo "github.com/stockflow/stockflow-backend/internal/alerting/repository"
	alertingservice "github.com/stockflow/stockflow-backend/internal/alerting/service"
	authrepo "github.com/stockflow/stockflow-backend/internal/auth/repository"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	forecastrepo "github.com/stockflow/stockflow-backend/internal/forecast/repository"
	forecastservice "github.com/stockflow/stockflow-backend/internal/forecast/service"
	notifchannel "github.com/stockflow/stockflow-backend/internal/notification/channel"
	"github.com/stockflow/stockflow-backend/internal/notification/consumers"
	notifrepo "github.com/stockflow/stockflow-backend/internal/notification/repository"
	notifservice "github.com/stockflow/stockflow-backend/internal/notification/service"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("worker", cfg.Server.Environment)
	log.Info().Msg("starting StockFlow worker")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	stockPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, "worker", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stock event publisher")
	}
	forecastPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeForecastEvents, "worker", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create forecast event publisher")
	}

	articleRepo := catalogrepo.NewArticleRepository(db)
	storeRepo := catalogrepo.NewStoreRepository(db)
	userRepo := authrepo.NewUserRepository(db)
	saleRepo := forecastrepo.NewSaleRepository(db)
	forecastRepo := forecastrepo.NewForecastRepository(db)
	alertRepo := alertingrepo.NewAlertRepository(db)
	notificationRepo := notifrepo.NewNotificationRepository(db)

	deliveryChannels := []notifchannel.Channel{
		notifchannel.NewWhatsApp(cfg.WhatsApp, log),
		notifchannel.NewEmail(cfg.Email, log),
		notifchannel.NewInApp(),
	}

	engine := forecastservice.NewEngine(saleRepo, forecastRepo, articleRepo, storeRepo, forecastPublisher, log)
	scanner := alertingservice.NewScanner(articleRepo, storeRepo, alertRepo, stockPublisher, log)
	dispatcher := notifservice.NewDispatcher(notificationRepo, userRepo, deliveryChannels, log)
	processor := notifservice.NewProcessor(db, notificationRepo, deliveryChannels, log)

	forecastScheduler := forecastservice.NewScheduler(engine, cfg.Scheduler.ForecastInterval, log)
	alertScheduler := alertingservice.NewScheduler(scanner, cfg.Scheduler.AlertScanInterval, log)
	notificationScheduler := notifservice.NewScheduler(processor, cfg.Scheduler.NotificationInterval, cfg.Scheduler.NotificationBatch, log)

	alertConsumer, err := consumers.NewAlertEventConsumer(rmq, dispatcher, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alertConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start alert event consumer")
	}

	forecastScheduler.Start(ctx)
	alertScheduler.Start(ctx)
	notificationScheduler.Start(ctx)

	log.Info().
		Dur("forecast_interval", cfg.Scheduler.ForecastInterval).
		Dur("alert_scan_interval", cfg.Scheduler.AlertScanInterval).
		Dur("notification_interval", cfg.Scheduler.NotificationInterval).
		Msg("worker running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")

	cancel()
	notificationScheduler.Stop()
	alertScheduler.Stop()
	forecastScheduler.Stop()

	log.Info().Msg("worker stopped")
}
