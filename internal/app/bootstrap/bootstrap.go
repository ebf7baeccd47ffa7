package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	networkscoreservice "ballotnet/contexts/opinion-network/network-score-service"
	scorepostgres "ballotnet/contexts/opinion-network/network-score-service/adapters/postgres"
	scoreworkers "ballotnet/contexts/opinion-network/network-score-service/application/workers"
	positionservice "ballotnet/contexts/opinion-network/position-service"
	positionpostgres "ballotnet/contexts/opinion-network/position-service/adapters/postgres"
	positionworkers "ballotnet/contexts/opinion-network/position-service/application/workers"
	"ballotnet/internal/platform/config"
	"ballotnet/internal/platform/db"
	"ballotnet/internal/platform/httpserver"
	"ballotnet/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	outboxRelay   positionworkers.OutboxRelay
	relationships scoreworkers.RelationshipConsumer

	runOutboxRelay          bool
	runRelationshipFollower bool
	pollInterval            time.Duration
	logger                  *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	positions, networkScore := buildModules(pg, cfg, logger)
	server := httpserver.New(positions, networkScore, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	_, networkScore := buildModules(pg, cfg, logger)
	positionRepo := positionpostgres.NewRepository(pg.DB, logger)
	scoreRepo := scorepostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		outboxRelay: positionworkers.OutboxRelay{
			Outbox:    positionRepo,
			Publisher: kafka,
			Clock:     positionpostgres.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		relationships: networkScore.NewRelationshipConsumer(
			kafka,
			scoreRepo,
			scorepostgres.SystemClock{},
			logger,
		),
		runOutboxRelay:          cfg.EnablePositionOutboxRelay,
		runRelationshipFollower: cfg.EnableRelationshipConsumer,
		pollInterval:            2 * time.Second,
		logger:                  logger,
	}, nil
}

func buildModules(pg *db.Postgres, cfg config.Config, logger *slog.Logger) (positionservice.Module, networkscoreservice.Module) {
	positionRepo := positionpostgres.NewRepository(pg.DB, logger)
	resolver := positionpostgres.NewResolver(pg.DB, logger)
	positions := positionservice.NewModule(positionservice.Dependencies{
		Positions: positionRepo,
		Resolver:  resolver,
		Outbox:    positionRepo,
		Clock:     positionpostgres.SystemClock{},
		IDGen:     positionpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	scoreRepo := scorepostgres.NewRepository(pg.DB, logger)
	graph := scorepostgres.NewGraphReader(pg.DB, logger)
	networkScore := networkscoreservice.NewModule(networkscoreservice.Dependencies{
		Entries:     scoreRepo,
		Positions:   scoreRepo,
		SocialGraph: graph,
		Ballot:      graph,
		Links:       graph,
		Clock:       scorepostgres.SystemClock{},
		IDGen:       scorepostgres.UUIDGenerator{},
		Parallelism: cfg.RebuildParallelism,
		Logger:      logger,
	})
	return positions, networkScore
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.runRelationshipFollower {
		if err := w.relationships.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if w.runOutboxRelay {
			if err := w.outboxRelay.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
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
