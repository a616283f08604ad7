package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rendis/reqbot/internal/assistant"
	"github.com/rendis/reqbot/internal/config"
	"github.com/rendis/reqbot/internal/flows"
	"github.com/rendis/reqbot/internal/generation"
	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/logging"
	"github.com/rendis/reqbot/internal/metrics"
	"github.com/rendis/reqbot/internal/oracle"
	"github.com/rendis/reqbot/internal/report"
	"github.com/rendis/reqbot/internal/scheduler"
	"github.com/rendis/reqbot/internal/streaming"
	"github.com/rendis/reqbot/internal/workers"
)

// app is the wired runtime shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Registry
	pool    *workers.Pool
	hub     *streaming.MemoryHub
	store   handoff.Store
	service *assistant.Service

	logCloser io.Closer
}

// newApp wires config → logging → oracle → generation → flows → pool →
// report builder → store → service. Close releases everything it opened.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, logCloser := logging.New(cfg.Logging())
	a := &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		metrics:   metrics.New(),
		hub:       streaming.NewMemoryHub(),
	}

	orc, err := oracle.New(cfg.OracleTransport(), logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("oracle: %w", err)
	}
	gen, err := generation.New(orc,
		generation.WithLogger(logger),
		generation.WithObserver(a.metrics),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("generation: %w", err)
	}
	f := flows.New(gen, logger)

	filter, err := cfg.Filter()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("report filter: %w", err)
	}

	a.pool = workers.New(cfg.Report.PoolSize)
	a.metrics.RegisterPool(a.pool)

	builder := report.New(f, a.pool,
		report.WithHub(a.hub),
		report.WithFilter(filter),
		report.WithObserver(a.metrics),
		report.WithLogger(logger),
	)

	store, err := handoff.Open(ctx, cfg.Handoff())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("session storage: %w", err)
	}
	a.store = store
	a.service = assistant.New(f, store, builder, a.hub, logger)

	logger.Debug("reqbot wired",
		"oracle", cfg.Oracle.Provider,
		"model", cfg.Oracle.Model,
		"storage", cfg.Storage.Backend,
		"pool_size", cfg.Report.PoolSize,
		"filter", filter.String(),
	)
	return a, nil
}

// startPurge runs the idle-session purge on the configured schedule. It
// returns a no-op stop func when purging is disabled.
func (a *app) startPurge(ctx context.Context) (func(), error) {
	if a.cfg.Scheduler.PurgeCron == "" || a.cfg.Storage.TTL <= 0 {
		return func() {}, nil
	}
	sched, err := scheduler.New(a.service, a.cfg.Scheduler.PurgeCron, a.cfg.Storage.TTL,
		scheduler.WithLogger(a.logger),
		scheduler.OnPurge(a.metrics.ObservePurge),
	)
	if err != nil {
		return nil, err
	}
	if err := sched.Start(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := sched.Stop(); err != nil {
			a.logger.Warn("scheduler stop failed", "error", err)
		}
	}, nil
}

// Close drains the pool and releases storage and log outputs.
func (a *app) Close() error {
	if a.pool != nil {
		a.pool.Shutdown()
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
