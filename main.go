package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/amqp"
	"github.com/isdelr/expense-tracker-be/internal/api"
	"github.com/isdelr/expense-tracker-be/internal/auth"
	"github.com/isdelr/expense-tracker-be/internal/config"
	"github.com/isdelr/expense-tracker-be/internal/database"
	"github.com/isdelr/expense-tracker-be/internal/logger"
	"github.com/isdelr/expense-tracker-be/internal/monitoring"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"github.com/isdelr/expense-tracker-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server exiting")
}

func run(ctx context.Context, cfg *config.Config) error {
	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	// Optional event fan-out
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := amqp.NewPublisher(ctx, cfg.AMQPURL, cfg.AMQPExchange, 5)
		if err != nil {
			return fmt.Errorf("connect to AMQP broker: %w", err)
		}
		defer p.Close()
		publisher = p
		log.Info().Str("exchange", cfg.AMQPExchange).Msg("Publishing events to AMQP")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()

	// Set up services
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	eventService := services.NewEventService(db, publisher)
	userService := services.NewUserService(db, eventService)
	expenseService := services.NewExpenseService(db, eventService, hub)
	reportService := services.NewReportService(expenseService, userService, eventService)
	recurringService := services.NewRecurringService(db, eventService)

	scheduler := monitoring.NewScheduler(recurringService, expenseService, eventService, cfg.SchedulerInterval)
	statSampler := monitoring.NewStatSampler(cfg.DatabasePath, 15*time.Second)

	// Set up router
	router := api.NewRouter(api.Dependencies{
		DB:         db,
		Tokens:     tokens,
		Users:      userService,
		Expenses:   expenseService,
		Reports:    reportService,
		Events:     eventService,
		Recurring:  recurringService,
		Hub:        hub,
		Stats:      statSampler,
		ClientURL:  cfg.ClientURL,
		Production: cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		statSampler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
