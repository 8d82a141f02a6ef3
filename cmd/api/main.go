package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	alertinghandler "github.com/stockflow/stockflow-backend/internal/alerting/handler"
	alertingrepo "github.com/stockflow/stockflow-backend/internal/alerting/repository"
	alertingservice "github.com/stockflow/stockflow-backend/internal/alerting/service"
	authhandler "github.com/stockflow/stockflow-backend/internal/auth/handler"
	authrepo "github.com/stockflow/stockflow-backend/internal/auth/repository"
	authservice "github.com/stockflow/stockflow-backend/internal/auth/service"
	cataloghandler "github.com/stockflow/stockflow-backend/internal/catalog/handler"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	forecasthandler "github.com/stockflow/stockflow-backend/internal/forecast/handler"
	forecastrepo "github.com/stockflow/stockflow-backend/internal/forecast/repository"
	forecastservice "github.com/stockflow/stockflow-backend/internal/forecast/service"
	notifchannel "github.com/stockflow/stockflow-backend/internal/notification/channel"
	notifhandler "github.com/stockflow/stockflow-backend/internal/notification/handler"
	notifrepo "github.com/stockflow/stockflow-backend/internal/notification/repository"
	notifservice "github.com/stockflow/stockflow-backend/internal/notification/service"
	reportinghandler "github.com/stockflow/stockflow-backend/internal/reporting/handler"
	reportingservice "github.com/stockflow/stockflow-backend/internal/reporting/service"
	stockhandler "github.com/stockflow/stockflow-backend/internal/stock/handler"
	stockrepo "github.com/stockflow/stockflow-backend/internal/stock/repository"
	stockservice "github.com/stockflow/stockflow-backend/internal/stock/service"
	supplierhandler "github.com/stockflow/stockflow-backend/internal/supplier/handler"
	supplierrepo "github.com/stockflow/stockflow-backend/internal/supplier/repository"
	supplierservice "github.com/stockflow/stockflow-backend/internal/supplier/service"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("api", cfg.Server.Environment)
	log.Info().Msg("starting StockFlow API")

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

	stockPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, "api", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create stock event publisher")
	}
	forecastPublisher, err := messaging.NewPublisher(rmq, messaging.ExchangeForecastEvents, "api", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create forecast event publisher")
	}

	// Repositories
	companyRepo := catalogrepo.NewCompanyRepository(db)
	storeRepo := catalogrepo.NewStoreRepository(db)
	articleRepo := catalogrepo.NewArticleRepository(db)
	userRepo := authrepo.NewUserRepository(db)
	movementRepo := stockrepo.NewMovementRepository(db)
	transferRepo := stockrepo.NewTransferRepository(db)
	supplierRepo := supplierrepo.NewSupplierRepository(db)
	orderRepo := supplierrepo.NewOrderRepository(db)
	saleRepo := forecastrepo.NewSaleRepository(db)
	forecastRepo := forecastrepo.NewForecastRepository(db)
	alertRepo := alertingrepo.NewAlertRepository(db)
	notificationRepo := notifrepo.NewNotificationRepository(db)

	// Services
	authService := authservice.NewAuthService(userRepo, cfg.JWT, log)
	stockService := stockservice.NewStockService(db, articleRepo, movementRepo, transferRepo, saleRepo, stockPublisher, log)
	orderService := supplierservice.NewOrderService(db, orderRepo, supplierRepo, articleRepo, movementRepo, log)
	forecastEngine := forecastservice.NewEngine(saleRepo, forecastRepo, articleRepo, storeRepo, forecastPublisher, log)
	suggester := forecastservice.NewSuggester(forecastRepo, articleRepo, log)
	scanner := alertingservice.NewScanner(articleRepo, storeRepo, alertRepo, stockPublisher, log)
	reportingService := reportingservice.NewReportingService(articleRepo, movementRepo, alertRepo, log)
	deliveryChannels := []notifchannel.Channel{
		notifchannel.NewWhatsApp(cfg.WhatsApp, log),
		notifchannel.NewEmail(cfg.Email, log),
		notifchannel.NewInApp(),
	}
	processor := notifservice.NewProcessor(db, notificationRepo, deliveryChannels, log)

	// Handlers
	authHandler := authhandler.NewAuthHandler(authService, userRepo, log)
	companyHandler := cataloghandler.NewCompanyHandler(companyRepo, log)
	storeHandler := cataloghandler.NewStoreHandler(storeRepo, log)
	articleHandler := cataloghandler.NewArticleHandler(articleRepo, log)
	movementHandler := stockhandler.NewMovementHandler(stockService, movementRepo, log)
	transferHandler := stockhandler.NewTransferHandler(stockService, transferRepo, log)
	supplierHandler := supplierhandler.NewSupplierHandler(supplierRepo, log)
	orderHandler := supplierhandler.NewOrderHandler(orderService, orderRepo, log)
	forecastHandler := forecasthandler.NewForecastHandler(forecastEngine, suggester, forecastRepo, log)
	alertHandler := alertinghandler.NewAlertHandler(alertRepo, scanner, log)
	notificationHandler := notifhandler.NewNotificationHandler(notificationRepo, processor, log)
	reportHandler := reportinghandler.NewReportHandler(reportingService, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "api",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		// Company onboarding happens before the first user exists.
		r.Post("/companies", companyHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(authService.Middleware)

			r.Get("/auth/me", authHandler.Me)

			r.Get("/companies/{id}", companyHandler.Get)
			r.With(authservice.RequireRole(authrepo.RoleOwner)).Put("/companies/{id}", companyHandler.Update)

			r.Route("/stores", func(r chi.Router) {
				r.Get("/", storeHandler.List)
				r.Post("/", storeHandler.Create)

				r.Route("/{storeID}", func(r chi.Router) {
					r.Get("/", storeHandler.Get)
					r.Put("/", storeHandler.Update)
					r.With(authservice.RequireRole(authrepo.RoleOwner)).Delete("/", storeHandler.Delete)

					r.Get("/articles", articleHandler.List)
					r.Post("/articles", articleHandler.Create)
					r.Get("/articles/low-stock", articleHandler.ListLowStock)
					r.Get("/movements", movementHandler.List)
					r.Get("/transfers", transferHandler.List)
					r.Get("/alerts", alertHandler.List)
					r.Post("/alerts/scan", alertHandler.Scan)
					r.Get("/suggestions", forecastHandler.Suggestions)
				})
			})

			r.Route("/articles", func(r chi.Router) {
				r.Get("/{id}", articleHandler.Get)
				r.Put("/{id}", articleHandler.Update)
				r.Delete("/{id}", articleHandler.Delete)
				r.Get("/{id}/stats", reportHandler.ArticleStats)
			})

			r.Post("/movements", movementHandler.Create)

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/", transferHandler.Create)
				r.Get("/{id}", transferHandler.Get)
				r.Patch("/{id}/ship", transferHandler.Ship)
				r.Patch("/{id}/receive", transferHandler.Receive)
				r.Patch("/{id}/cancel", transferHandler.Cancel)
			})

			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", supplierHandler.List)
				r.Post("/", supplierHandler.Create)
				r.Get("/{id}", supplierHandler.Get)
				r.Put("/{id}", supplierHandler.Update)
				r.With(authservice.RequireRole(authrepo.RoleOwner, authrepo.RoleManager)).Delete("/{id}", supplierHandler.Delete)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.List)
				r.Post("/", orderHandler.Create)
				r.Get("/{id}", orderHandler.Get)
				r.Patch("/{id}/confirm", orderHandler.Confirm)
				r.Patch("/{id}/receive", orderHandler.Receive)
				r.Patch("/{id}/cancel", orderHandler.Cancel)
			})

			r.Route("/forecasts", func(r chi.Router) {
				r.Post("/compute", forecastHandler.Compute)
				r.Post("/batch", forecastHandler.RunBatch)
				r.Get("/{storeID}/{articleID}", forecastHandler.Latest)
				r.Get("/{storeID}/{articleID}/history", forecastHandler.History)
			})

			r.Patch("/alerts/{id}/seen", alertHandler.MarkSeen)
			r.Patch("/alerts/{id}/resolve", alertHandler.Resolve)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/stats", notificationHandler.Stats)
				r.Post("/process", notificationHandler.Process)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard/{storeID}", reportHandler.Dashboard)
				r.Get("/valuation/{storeID}", reportHandler.Valuation)
				r.Get("/slow-movers/{storeID}", reportHandler.SlowMovers)
				r.Get("/vat", reportHandler.VAT)
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
