package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	"ballotbox/contexts/governance/ballot-engine/adapters/identity"
	"ballotbox/contexts/governance/ballot-engine/adapters/memory"
	ballotmetrics "ballotbox/contexts/governance/ballot-engine/adapters/metrics"
	postgresadapter "ballotbox/contexts/governance/ballot-engine/adapters/postgres"
	redisadapter "ballotbox/contexts/governance/ballot-engine/adapters/redis"
	"ballotbox/internal/platform/artifacts"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/db"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/messaging"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	module       ballotengine.Module
	infra        *infrastructure
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerApp struct {
	module       ballotengine.Module
	infra        *infrastructure
	pollInterval time.Duration
	logger       *slog.Logger
}

type infrastructure struct {
	postgres *db.Postgres
	redis    *redis.Client
	bus      *messaging.Kafka
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	module, infra, err := buildModule(ctx, cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	artifact, err := artifacts.Load()
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	server := httpserver.New(module, artifact, httpserver.Options{
		Addr:               normalizeAddr(cfg.HTTPPort),
		StaticDir:          cfg.StaticDir,
		ArtifactsDir:       cfg.ArtifactsDir,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, logger)
	return &APIApp{
		server:       server,
		module:       module,
		infra:        infra,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// BuildWorker wires a relay and consumer against the shared postgres outbox,
// for deployments that keep the API process free of background loops.
func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	module, infra, err := buildModule(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		module:       module,
		infra:        infra,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// buildModule picks postgres when a DSN is configured and the memory store
// otherwise. Redis takes over idempotency when REDIS_ADDR is set.
func buildModule(
	ctx context.Context,
	cfg config.Config,
	registry prometheus.Registerer,
	logger *slog.Logger,
) (ballotengine.Module, *infrastructure, error) {
	infra := &infrastructure{}
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return ballotengine.Module{}, nil, err
	}
	infra.bus = bus

	deps := ballotengine.Dependencies{
		Publisher:      bus,
		Subscriber:     bus,
		Addresses:      identity.AddressNormalizer{Strict: cfg.StrictAddresses},
		Metrics:        ballotmetrics.NewPrometheus(registry),
		IdempotencyTTL: cfg.IdempotencyTTL,
		DisableLeader:  !cfg.EnableBallotLeaderConsumer,
		Logger:         logger,
	}

	var store *memory.Store
	if cfg.PostgresDSN != "" {
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			_ = infra.Close()
			return ballotengine.Module{}, nil, err
		}
		infra.postgres = pg
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			_ = infra.Close()
			return ballotengine.Module{}, nil, err
		}
		deps.Ballots = repo
		deps.Idempotency = repo
		deps.Outbox = repo
		deps.Dedup = repo
		deps.Clock = postgresadapter.SystemClock{}
		deps.IDGen = postgresadapter.UUIDGenerator{}
	} else {
		logger.Warn("POSTGRES_DSN not set, ballots are kept in memory",
			"event", "bootstrap_memory_store_selected",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		store = memory.NewStore(nil)
		deps.Ballots = store
		deps.Idempotency = store
		deps.Outbox = store
		deps.Dedup = store
		deps.Clock = store
		deps.IDGen = store
	}

	if cfg.RedisAddr != "" {
		client := redisadapter.NewClient(redisadapter.Options{Addr: cfg.RedisAddr})
		if err := client.WithContext(ctx).Ping().Err(); err != nil {
			_ = client.Close()
			_ = infra.Close()
			return ballotengine.Module{}, nil, err
		}
		infra.redis = client
		deps.Idempotency = redisadapter.NewIdempotencyStore(client, logger)
	}

	module := ballotengine.NewModule(deps)
	module.Store = store
	return module, infra, nil
}

// Run serves HTTP and drives the outbox relay and leader consumer until ctx
// is cancelled or one of them fails.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.server.Start(groupCtx)
	})
	group.Go(func() error {
		return a.module.Leader.Start(groupCtx)
	})
	group.Go(func() error {
		return a.module.Relay.Run(groupCtx, a.pollInterval)
	})
	err := group.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *APIApp) Close() error {
	return a.infra.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.module.Leader.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)
	return w.module.Relay.Run(ctx, w.pollInterval)
}

func (w *WorkerApp) Close() error {
	return w.infra.Close()
}

func (i *infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.bus != nil {
		i.bus.Close()
	}
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	if i.postgres != nil {
		errs = append(errs, i.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":3000"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
