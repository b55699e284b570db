package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bretthoffman/goteamgo/config"
	"github.com/bretthoffman/goteamgo/internal/api"
	"github.com/bretthoffman/goteamgo/internal/cache"
	"github.com/bretthoffman/goteamgo/internal/database"
	"github.com/bretthoffman/goteamgo/internal/docs"
	"github.com/bretthoffman/goteamgo/internal/messaging"
	"github.com/bretthoffman/goteamgo/internal/metrics"
	"github.com/bretthoffman/goteamgo/internal/search"
	"github.com/bretthoffman/goteamgo/internal/services"
	"github.com/bretthoffman/goteamgo/internal/store"
	"github.com/bretthoffman/goteamgo/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that manages calendar events, reminder slots and document provisioning`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize service dependencies
	calendarService, err := buildCalendarService(cfg, metricsCollector)
	if err != nil {
		return err
	}

	// Initialize and start the server
	server := api.NewServer(cfg, calendarService, metricsCollector)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the server
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// buildCalendarService wires the engine with its store and optional
// subsystems. Each optional subsystem logs a warning and is skipped when its
// configuration is missing or unreachable.
func buildCalendarService(cfg config.Config, metricsCollector *metrics.Metrics) (*services.CalendarService, error) {
	// Initialize the store; fall back to the in-memory adapter when allowed
	eventStore, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize the notification publisher
	publisher, err := messaging.NewServiceBusPublisher(cfg.ServiceBus)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Service Bus publisher, continuing without notifications")
	}

	// Initialize the document provisioning client
	var provisioner docs.Provisioner
	if docsClient, err := docs.NewClient(cfg.Docs); err != nil {
		log.Warn().Err(err).Msg("Document provisioning is not configured, slot doc requests will be rejected")
	} else {
		provisioner = docsClient
	}

	// Resolve the reference timezone for reminder presets
	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid calendar timezone %q", cfg.Calendar.Timezone)
	}

	return services.NewCalendarService(
		eventStore, redisCache, elasticClient, publisher, provisioner,
		metricsCollector, tracer, loc,
	), nil
}

func initStore(cfg config.Config) (store.Store, error) {
	db, readOnlyDB, err := database.Connect(cfg.DB)
	if err != nil {
		if cfg.DB.FallbackMemory {
			log.Warn().Err(err).Msg("Database unreachable, falling back to in-memory store")
			return store.NewMemoryStore(), nil
		}
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	return store.NewGormStore(db, readOnlyDB), nil
}
