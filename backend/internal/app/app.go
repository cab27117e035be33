// Package app builds the engine and its collaborators from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kaybee/backend/internal/engine"
	"kaybee/backend/internal/idalloc"
	"kaybee/backend/internal/metrics"
	"kaybee/backend/internal/resolver"
	"kaybee/backend/internal/store"
	"kaybee/backend/internal/store/badgerstore"
	"kaybee/backend/internal/store/dynamostore"
	"kaybee/backend/internal/store/neo4jstore"
	"kaybee/backend/internal/tools"
	"kaybee/backend/pkg/config"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// App holds the wired components of a running process
type App struct {
	Config   *config.Config
	Store    store.Store
	Engine   *engine.Engine
	Executor *tools.Executor
	Metrics  *metrics.Collector
}

// New opens the configured store and builds the engine on top of it.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()

	res, err := resolver.New(cfg.MatchAlgorithm)
	if err != nil {
		return nil, kberrors.NewConfigValidationFailed("MATCH_ALGORITHM", err.Error())
	}

	collector := metrics.NewCollector()

	backend, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := store.WithMetrics(backend, collector)
	s = store.WithTracing(s, cfg.StoreBackend, nil)
	if cfg.StoreBreaker {
		s = store.WithBreaker(s, store.DefaultBreakerConfig("kaybee-store-"+cfg.StoreBackend))
	}

	eng := engine.New(s,
		engine.WithResolver(res),
		engine.WithThreshold(cfg.MatchThreshold),
		engine.WithHops(cfg.NeighborhoodHops),
		engine.WithMaxHops(cfg.MaxHops),
		engine.WithIDOptions(idalloc.Options{
			PrefixLength: cfg.IDPrefixLength,
			SuffixLength: cfg.IDSuffixLength,
			MaxAttempts:  cfg.IDMaxAttempts,
		}),
		engine.WithObserver(collector),
	)

	log.Info("Knowledge graph engine ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("match_algorithm", res.Algorithm()),
		zap.Float64("match_threshold", cfg.MatchThreshold),
		zap.Int("hops", cfg.NeighborhoodHops),
		zap.Bool("breaker", cfg.StoreBreaker),
	)

	return &App{
		Config:   cfg,
		Store:    s,
		Engine:   eng,
		Executor: tools.NewExecutor(eng),
		Metrics:  collector,
	}, nil
}

// OpenStore opens the backend named by cfg.StoreBackend, without decorators
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemory(), nil

	case config.StoreFile:
		s, err := store.NewFile(cfg.GraphDir)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreBadger:
		s, err := badgerstore.Open(badgerstore.Options{Dir: cfg.GraphDir, SyncWrites: true})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreNeo4j:
		s, err := neo4jstore.Open(ctx, neo4jstore.Config{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDynamoDB:
		s, err := dynamostore.Open(ctx, dynamostore.Config{
			Table:    cfg.DynamoTable,
			Region:   cfg.AWSRegion,
			Endpoint: cfg.DynamoEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, kberrors.NewConfigValidationFailed("KNOWLEDGE_GRAPH_STORE", fmt.Sprintf("unknown backend %q", cfg.StoreBackend))
	}
}

// Close releases the store connection
func (a *App) Close(ctx context.Context) error {
	return closeStore(ctx, a.Store)
}

func closeStore(ctx context.Context, s store.Store) error {
	if c, ok := s.(store.Closer); ok {
		return c.Close(ctx)
	}
	return nil
}
