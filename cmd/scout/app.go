package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/clock"
	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/dataset"
	"github.com/scoutwatch/scout/internal/delivery"
	"github.com/scoutwatch/scout/internal/detector"
	"github.com/scoutwatch/scout/internal/history"
	"github.com/scoutwatch/scout/internal/pipeline"
	"github.com/scoutwatch/scout/internal/telemetry"
)

// app is the wired engine shared by the run and schedule commands.
type app struct {
	cfg     config.Config
	store   blob.Store
	metrics *telemetry.Metrics
	orch    *pipeline.Orchestrator

	closers []func() error
}

// loadConfig reads the config file, classifying failures as
// configuration errors for the exit code.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, &pipeline.RunError{Code: pipeline.ExitConfig, Err: err}
	}
	return cfg, nil
}

// buildApp assembles the dependency graph from config. dryRun routes
// delivery to the log and skips the history sink; a non-empty
// referenceDate pins the run.
func buildApp(dryRun bool, referenceDate string) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if referenceDate != "" {
		cfg.ReferenceDateOverride = referenceDate
	}

	fs, err := blob.NewFSStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	var store blob.Store = blob.NewBreakerStore("datastore", fs)

	a := &app{cfg: cfg, store: store, metrics: telemetry.New()}

	var cache *dataset.Cache
	if cfg.Redis.Enabled {
		cache = dataset.NewCache(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TTL)
		a.closers = append(a.closers, cache.Close)
	}

	var deliverer delivery.Deliverer
	if cfg.SMTP.Enabled && !dryRun {
		deliverer = delivery.NewSMTP(cfg.SMTP, log.Logger)
	} else {
		deliverer = delivery.NewLog(log.Logger)
	}

	var sink pipeline.HistorySink
	if cfg.Postgres.Enabled && !dryRun {
		hs, err := history.Open(cfg.Postgres.DSN, cfg.Postgres.QueryTimeout, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("history sink: %w", err)
		}
		a.closers = append(a.closers, hs.Close)
		sink = hs
	}

	a.orch = pipeline.New(cfg, pipeline.Deps{
		Clock:     clock.Real{},
		Store:     store,
		Loader:    dataset.NewLoader(store, cache, cfg.LoadRatePerSec),
		Detectors: detector.All(cfg.Thresholds),
		Deliverer: deliverer,
		History:   sink,
		Metrics:   a.metrics,
		Logger:    log.Logger,
	})
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
