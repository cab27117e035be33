// Package neo4jstore keeps each graph document as a property of a :KnowledgeGraph node.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kaybee/backend/internal/store"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

// Config holds connection settings
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// Store is a store.Store on Neo4j. The driver pools connections and is safe for concurrent use.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// Open connects to Neo4j and makes sure the key constraint exists
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, kberrors.NewConfigMissingRequired("NEO4J_URI")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, kberrors.NewStoreOperationFailed("open", cfg.URI, fmt.Errorf("failed to create Neo4j driver: %w", err))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, kberrors.NewStoreOperationFailed("open", cfg.URI, fmt.Errorf("failed to verify Neo4j connectivity: %w", err))
	}

	s := New(driver, cfg.Database)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

// New wraps an existing driver
func New(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{
		driver:   driver,
		database: database,
		logger:   logger.Named("neo4jstore"),
	}
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// EnsureSchema creates the uniqueness constraint on graph keys
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := `CREATE CONSTRAINT knowledge_graph_key IF NOT EXISTS
		FOR (g:KnowledgeGraph) REQUIRE g.key IS UNIQUE`
	if _, err := session.Run(ctx, query, nil); err != nil {
		return kberrors.NewStoreOperationFailed("migrate", "KnowledgeGraph", fmt.Errorf("failed to create constraint: %w", err))
	}
	s.logger.Debug("Ensured KnowledgeGraph key constraint")
	return nil
}

// Get reads the document stored under key. A node left without a document by a rejected
// conditional write counts as absent.
func (s *Store) Get(ctx context.Context, key string) (store.Object, bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (g:KnowledgeGraph {key: $key})
		RETURN g.document AS document, g.version AS version
	`
	result, err := session.Run(ctx, query, map[string]interface{}{"key": key})
	if err != nil {
		return store.Object{}, false, kberrors.NewStoreOperationFailed("get", key, fmt.Errorf("failed to execute query: %w", err))
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return store.Object{}, false, kberrors.NewStoreOperationFailed("get", key, fmt.Errorf("failed to fetch record: %w", err))
		}
		return store.Object{}, false, nil
	}

	record := result.Record()
	document, _ := record.Get("document")
	doc, ok := document.(string)
	if !ok {
		return store.Object{}, false, nil
	}
	version, _ := record.Get("version")
	v, _ := version.(string)
	if v == "" {
		v = store.Version([]byte(doc))
	}
	return store.Object{Data: []byte(doc), Version: v}, true, nil
}

// Put replaces the document stored under key if expectedVersion is current.
// Touching the node first takes its write lock, so the version compare sees the latest commit.
func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion string) (string, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	version := store.Version(data)
	params := map[string]interface{}{
		"key":      key,
		"document": string(data),
		"version":  version,
		"expected": expectedVersion,
	}

	query := `
		MERGE (g:KnowledgeGraph {key: $key})
		SET g.locked_at = timestamp()
		WITH g, coalesce(g.version, '') AS current
		WHERE $expected = '*' OR current = $expected
		SET g.document = $document,
		    g.version = $version,
		    g.updated_at = datetime()
		RETURN g.version AS version
	`
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", kberrors.NewStoreOperationFailed("put", key, fmt.Errorf("failed to execute query: %w", err))
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", kberrors.NewStoreOperationFailed("put", key, fmt.Errorf("failed to fetch record: %w", err))
		}
		return "", kberrors.NewConflict(key, expectedVersion)
	}

	s.logger.Debug("Stored graph document",
		zap.String("key", key),
		zap.String("version", version),
		zap.Int("bytes", len(data)),
	)
	return version, nil
}

// Close closes the Neo4j driver connection
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
