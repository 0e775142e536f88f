package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/fieldops/dispatch-api/internal/authz"
	"github.com/fieldops/dispatch-api/internal/config"
	"github.com/fieldops/dispatch-api/internal/handlers"
	"github.com/fieldops/dispatch-api/internal/middleware"
	"github.com/fieldops/dispatch-api/internal/migration"
	"github.com/fieldops/dispatch-api/internal/notification"
	"github.com/fieldops/dispatch-api/internal/repository"
	"github.com/fieldops/dispatch-api/internal/routes"
	"github.com/fieldops/dispatch-api/internal/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sqlx.DB
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	jobRepo := repository.NewJobRepository(app.db)
	teamRepo := repository.NewTeamRepository(app.db)
	settingsRepo := repository.NewSettingsRepository(app.db)
	weatherRepo := repository.NewWeatherRepository(app.db)
	notificationRepo := repository.NewNotificationRepository(app.db)

	schedCfg := app.config.Scheduler

	// Schedule pipeline: remote strategy (when configured) with local greedy
	// fallback, independent validation, write-time-guarded apply.
	var remote schedule.Strategy
	if schedCfg.OptimizerURL != "" {
		remote = schedule.NewRemoteStrategy(schedCfg.OptimizerURL, schedCfg.OptimizerAPIKey, schedCfg.OptimizerTimeout, logger)
	}
	optimizer := schedule.NewOptimizer(remote, logger)
	buffer := time.Duration(schedCfg.BufferMinutes) * time.Minute
	applier := schedule.NewApplier(jobRepo, buffer, logger)
	planner := schedule.NewPlanner(jobRepo, teamRepo, settingsRepo, weatherRepo, optimizer, applier, schedule.PlanOptions{
		HorizonDays:   schedCfg.HorizonDays,
		Buffer:        buffer,
		RainThreshold: schedCfg.RainThreshold,
	}, logger)

	// Notification pipeline: rule engine plus lifecycle service. Email
	// fan-out is optional and only configured hosts get it.
	var notifiers []notification.Notifier
	if app.config.Email.SMTPHost != "" {
		emailNotifier, err := notification.NewEmailNotifier(app.config.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	}
	engine := notification.NewEngine(notificationRepo, logger, notifiers...)
	notificationService := notification.NewService(notificationRepo, logger)

	// Handlers
	scheduleHandler := handlers.NewScheduleHandler(planner, logger)
	notificationHandler := handlers.NewNotificationHandler(
		engine,
		notificationService,
		planner,
		jobRepo,
		time.Duration(app.config.Rules.OverdueHours)*time.Hour,
		time.Duration(app.config.Rules.MinGapMinutes)*time.Minute,
		logger,
	)
	weatherHandler := handlers.NewWeatherHandler(weatherRepo, logger)

	auth := authz.JWTMiddleware(app.config.JWTSecret)
	return routes.NewRouter(scheduleHandler, notificationHandler, weatherHandler, auth)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
