// Package api wires the importer's components together.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/extractor"
	importhandler "github.com/FACorreiaa/activity-importer/internal/domain/import/handler"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/registry"
	importservice "github.com/FACorreiaa/activity-importer/internal/domain/import/service"
	"github.com/FACorreiaa/activity-importer/pkg/config"
	"github.com/FACorreiaa/activity-importer/pkg/cron"
	"github.com/FACorreiaa/activity-importer/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	// Observability
	Registry *prometheus.Registry
	Metrics  *importservice.Metrics

	// Services
	Extractor     *extractor.PageExtractor
	ImportService *importservice.Service

	// Watch mode, set by InitWatcher
	FileStorage storage.Storage
	Scheduler   *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initObservability()

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Debug("all dependencies initialized successfully")

	return deps, nil
}

// initObservability creates the metrics registry
func (d *Dependencies) initObservability() {
	if !d.Config.Observability.MetricsEnabled {
		return
	}
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = importservice.NewMetrics(d.Registry)
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	accepted := document.NewExtensionSet(d.Config.Import.AcceptedExtensions...)
	if len(accepted) == 0 {
		return fmt.Errorf("no valid accepted extensions in %v", d.Config.Import.AcceptedExtensions)
	}

	d.Extractor = extractor.New()
	d.ImportService = importservice.New(registry.All(), d.Extractor, accepted, d.Logger).
		WithWorkers(d.Config.Import.Workers)
	if d.Metrics != nil {
		d.ImportService.WithMetrics(d.Metrics)
	}

	d.Logger.Debug("services initialized",
		slog.Int("implementations", len(d.ImportService.Implementations())),
		slog.Any("extensions", accepted.List()),
	)
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(
		d.ImportService,
		d.Config.Import.MaxUploadBytes,
		float64(d.Config.Server.RateLimitPerSecond),
		d.Config.Server.RateLimitBurst,
		d.Logger,
	)
}

// InitWatcher prepares the inbox storage and the scheduler that sweeps it.
func (d *Dependencies) InitWatcher() error {
	fileStorage, err := storage.New(&storage.Config{
		InboxDir:   d.Config.Import.InboxDir,
		ArchiveDir: d.Config.Import.ArchiveDir,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.Scheduler = cron.NewScheduler(d.Config.Import.Schedule, d.sweepInbox, d.Logger)
	return nil
}

func (d *Dependencies) sweepInbox(ctx context.Context) {
	if _, err := d.ImportService.Sweep(ctx, d.FileStorage); err != nil {
		d.Logger.Error("inbox sweep failed", slog.Any("error", err))
	}
}

// APIHandler returns the import routes behind CORS.
func (d *Dependencies) APIHandler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: d.Config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
	return c.Handler(d.ImportHandler.Routes())
}

// MetricsHandler serves the Prometheus registry, or nil when metrics are
// disabled.
func (d *Dependencies) MetricsHandler() http.Handler {
	if d.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})
}

// Cleanup stops background work
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Debug("cleanup completed")
}
