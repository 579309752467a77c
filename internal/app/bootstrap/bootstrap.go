package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	documentvoting "docvote/contexts/community-experience/document-voting"
	"docvote/contexts/community-experience/document-voting/adapters/system"
	"docvote/contexts/community-experience/document-voting/application/workers"
	"docvote/internal/platform/config"
	"docvote/internal/platform/httpserver"
	"docvote/internal/platform/messaging"
	"docvote/internal/platform/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server  *httpserver.Server
	storage storage
	logger  *slog.Logger
}

type WorkerApp struct {
	storage      storage
	outboxRelay  workers.OutboxRelay
	voterRemoval *workers.VoterRemovalConsumer
	clock        clockwork.Clock
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cached, err := withCache(store, cfg.DocumentCacheSize, cfg.DocumentCacheTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	store = cached

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	module := documentvoting.NewModule(documentvoting.Dependencies{
		Documents: store.Documents,
		Atomic:    store.Atomic,
		Outbox:    store.Outbox,
		Metrics:   metrics.NewVoteMetrics(registry),
		Clock:     system.NewClock(),
		IDGen:     system.UUIDGenerator{},
		VoterKind: cfg.VoterKind,
		Logger:    logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort),
		httpserver.WithHealthCheck(store.Ping),
		httpserver.WithGatherer(registry),
	)
	return &APIApp{
		server:  server,
		storage: store,
		logger:  logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageBackend != config.StorageBackendPostgres {
		return nil, errors.New("worker requires STORAGE_BACKEND=postgres")
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	clock := system.NewClock()
	app := &WorkerApp{
		storage: store,
		outboxRelay: workers.OutboxRelay{
			Outbox:    store.Relay,
			Publisher: kafka,
			Clock:     clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		clock:        clock,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}
	if cfg.EnableVoterRemovalConsumer {
		module := documentvoting.NewModule(documentvoting.Dependencies{
			Documents: store.Documents,
			Atomic:    store.Atomic,
			Outbox:    store.Outbox,
			Clock:     clock,
			IDGen:     system.UUIDGenerator{},
			VoterKind: cfg.VoterKind,
			Logger:    logger,
		})
		app.voterRemoval = &workers.VoterRemovalConsumer{
			Subscriber: kafka,
			Dedup:      store.Dedup,
			Documents:  store.Documents,
			Votes:      module.Votes,
			Clock:      clock,
			DedupTTL:   7 * 24 * time.Hour,
			Logger:     logger,
		}
	}
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.storage.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.voterRemoval != nil {
		if err := w.voterRemoval.Start(ctx); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"voter_removal_enabled", w.voterRemoval != nil,
	)
	return runPolling(ctx, w.logger, w.clock, w.pollInterval, w.outboxRelay.RunOnce)
}

func (w *WorkerApp) Close() error {
	return w.storage.Close()
}

// runPolling calls step immediately and then on every tick until ctx ends. A
// failed step is logged and retried on the next tick.
func runPolling(
	ctx context.Context,
	logger *slog.Logger,
	clock clockwork.Clock,
	interval time.Duration,
	step func(context.Context) error,
) error {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := step(ctx); err != nil && ctx.Err() == nil {
			logger.Error("poll step failed",
				"event", "document_voting_worker_poll_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
