package neo4jstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"kaybee/backend/internal/store/storetest"
)

// Requires a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables
func TestStore_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	s, err := Open(ctx, testConfig())
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	defer s.Close(ctx)

	prefix := "kaybee-test-" + time.Now().Format("20060102150405")
	defer func() {
		session := s.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (g:KnowledgeGraph) WHERE g.key STARTS WITH $prefix DETACH DELETE g",
			map[string]interface{}{"prefix": prefix})
	}()

	n := 0
	storetest.Run(t, s, func() string {
		n++
		return fmt.Sprintf("%s-%d.json", prefix, n)
	})
}

func TestOpen_RequiresURI(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected a configuration error")
	}
}

func testConfig() Config {
	cfg := Config{
		URI:      "bolt://localhost:7687",
		User:     "neo4j",
		Password: "password",
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Password = v
	}
	return cfg
}
