package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/amqp"
	"github.com/dafibh/fortuna/ledger-backend/internal/config"
	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/handler"
	"github.com/dafibh/fortuna/ledger-backend/internal/metrics"
	"github.com/dafibh/fortuna/ledger-backend/internal/middleware"
	"github.com/dafibh/fortuna/ledger-backend/internal/repository/postgres"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBStatementTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Connected to database")

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	store := postgres.NewStore(pool)
	clock := domain.SystemClock{}
	collector := metrics.NewCollector()

	// Live events: websocket hub plus optional broker fan-out
	hub := websocket.NewHub(log.Logger, cfg.WSMaxConnections)
	publishers := websocket.MultiPublisher{hub}
	var broker *amqp.Publisher
	if cfg.AMQPURL != "" {
		broker, err = amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP broker")
		}
		publishers = append(publishers, broker)
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("Publishing events to AMQP")
	}

	// Initialize services
	monitor := service.NewBudgetMonitor(clock, log.Logger, domain.DefaultCurrency)
	monitor.SetMetrics(collector)
	engine := service.NewTransactionService(store, monitor, clock, log.Logger)
	engine.SetEventPublisher(publishers)
	engine.SetMetrics(collector)
	notificationService := service.NewNotificationService(store, clock)
	notificationService.SetEventPublisher(publishers)

	poster := service.NewRecurringPoster(store, engine, clock, log.Logger, service.RecurringPosterConfig{
		Workers:          cfg.Recurring.Workers,
		BatchSize:        service.DefaultRecurringBatch,
		LoanReminderDays: cfg.Recurring.LoanReminderDays,
	})
	poster.SetEventPublisher(publishers)
	poster.SetMetrics(collector)
	worker := service.NewRecurringWorker(poster, log.Logger, service.RecurringWorkerConfig{
		Interval:   cfg.Recurring.Interval,
		RunTimeout: cfg.Recurring.RunTimeout,
	})

	validator, err := websocket.NewTokenValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token validator")
	}
	authMiddleware := middleware.NewAuthMiddleware(validator)
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMin, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	handlers := handler.Handlers{
		Account:      handler.NewAccountHandler(service.NewAccountService(store)),
		Category:     handler.NewCategoryHandler(service.NewCategoryService(store)),
		Transaction:  handler.NewTransactionHandler(engine),
		Budget:       handler.NewBudgetHandler(service.NewBudgetService(store, clock)),
		Recurring:    handler.NewRecurringHandler(service.NewRecurringService(store, clock)),
		Notification: handler.NewNotificationHandler(notificationService),
		Loan:         handler.NewLoanHandler(service.NewLoanService(store)),
		WebSocket:    handler.NewWebSocketHandler(hub, validator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(middleware.RequestLogger(log.Logger))
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"websocket_clients": hub.TotalClientCount(),
			"recurring_worker":  worker.IsRunning(),
		})
	})
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(collector.Handler()))
	}

	handler.RegisterRoutes(e, authMiddleware, rateLimiter, handlers)

	if cfg.Recurring.Enabled {
		worker.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.CloseAll()
		err := e.Shutdown(shutdownCtx)
		worker.Stop()
		if broker != nil {
			if cerr := broker.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("Failed to close AMQP publisher")
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		return
	}
	log.Info().Msg("Server exited")
}
