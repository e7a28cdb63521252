// Package app wires the gallery components from a Config. Both binaries build
// on it: gallery-server to serve, gallery-cli to generate or rebuild locally.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chartgallery/internal/config"
	"chartgallery/internal/forecast"
	"chartgallery/internal/gallery"
	"chartgallery/internal/gather"
	"chartgallery/internal/gather/us"
	"chartgallery/internal/gather/yahoo"
	"chartgallery/internal/httpapi"
	"chartgallery/internal/metrics"
	"chartgallery/internal/pipeline"
	"chartgallery/internal/render"
	"chartgallery/internal/store"
	"chartgallery/internal/util"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Gallery  *gallery.Store
	Provider gather.Provider
	Pipeline *pipeline.Pipeline
	Batch    *pipeline.Batch
	Runs     *store.SQLiteStore // nil when the run log is disabled

	log *slog.Logger
}

// New builds every component described by cfg.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Metrics: metrics.New(), log: log}

	gs, err := gallery.NewStore(cfg.Storage.GalleryDir,
		gallery.WithLogger(log), gallery.WithMetrics(a.Metrics))
	if err != nil {
		return nil, err
	}
	a.Gallery = gs

	upstream, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	var cache store.BarStore
	if cfg.Storage.DataDir != "" {
		cache = store.NewParquetStore(cfg.Storage.DataDir)
	}
	a.Provider = gather.NewCachedProvider(upstream, cache, gather.CacheOptions{
		RateLimitPerMin: cfg.Provider.RateLimitPerMin,
		MaxAttempts:     cfg.Provider.MaxAttempts,
		RetryDelay:      time.Duration(cfg.Provider.RetryDelayMS) * time.Millisecond,
		Metrics:         a.Metrics,
		Logger:          log,
	})

	modelOpts := []forecast.Option{forecast.WithLogger(log)}
	cadence, fixed, err := util.ParseCadence(cfg.Forecast.Cadence)
	if err != nil {
		return nil, fmt.Errorf("forecast.cadence: %w", err)
	}
	if fixed {
		modelOpts = append(modelOpts, forecast.WithCadence(cadence))
	}

	a.Pipeline = pipeline.New(a.Provider, forecast.NewModel(modelOpts...), render.NewHTMLRenderer(), gs, log)

	batchOpts := []pipeline.BatchOption{
		pipeline.WithWorkers(cfg.Forecast.Workers),
		pipeline.WithMetrics(a.Metrics),
		pipeline.WithLogger(log),
	}
	if cfg.Storage.SQLitePath != "" {
		runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening run log: %w", err)
		}
		a.Runs = runs
		batchOpts = append(batchOpts, pipeline.WithRunStore(runs))
	}
	a.Batch = pipeline.NewBatch(a.Pipeline, batchOpts...)

	log.Info("gallery wired",
		"dir", cfg.Storage.GalleryDir,
		"provider", a.Provider.Name(),
		"bar_cache", cfg.Storage.DataDir != "",
		"run_log", a.Runs != nil,
		"workers", cfg.Forecast.Workers,
		"cadence", cfg.Forecast.Cadence,
	)
	return a, nil
}

// NewProvider returns the upstream data provider selected by
// cfg.Provider.Source.
func NewProvider(cfg *config.Config) (gather.Provider, error) {
	switch strings.ToLower(cfg.Provider.Source) {
	case "yahoo", "":
		return yahoo.New(), nil
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, errors.New("alpaca provider requires api_key and api_secret")
		}
		return us.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed), nil
	default:
		return nil, fmt.Errorf("unknown provider source %q", cfg.Provider.Source)
	}
}

// HTTPServer returns the gallery HTTP API for this app.
func (a *App) HTTPServer() *httpapi.GalleryServer {
	opts := []httpapi.Option{
		httpapi.WithMetrics(a.Metrics),
		httpapi.WithLogger(a.log),
		httpapi.WithMaxDays(a.Config.Forecast.MaxDays),
	}
	if a.Runs != nil {
		opts = append(opts, httpapi.WithRunStore(a.Runs))
	}
	return httpapi.NewGalleryServer(a.Gallery, a.Batch, opts...)
}

// Close releases the run log.
func (a *App) Close() error {
	if a.Runs != nil {
		return a.Runs.Close()
	}
	return nil
}
