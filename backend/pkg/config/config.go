package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	kberrors "kaybee/backend/pkg/errors"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreBadger   = "badger"
	StoreNeo4j    = "neo4j"
	StoreDynamoDB = "dynamodb"
)

// matches neighborhood.MaxHops
const maxHopsCeiling = 16

// Config holds all application configuration
type Config struct {
	// App
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	// Store
	StoreBackend string `yaml:"store"`
	GraphDir     string `yaml:"graph_dir"` // file and badger backends

	// Neo4j
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	// DynamoDB
	DynamoTable    string `yaml:"dynamodb_table"`
	AWSRegion      string `yaml:"aws_region"`
	DynamoEndpoint string `yaml:"dynamodb_endpoint"` // local DynamoDB, tests

	StoreBreaker bool `yaml:"store_breaker"`

	// Engine
	MatchThreshold   float64 `yaml:"match_threshold"`
	MatchAlgorithm   string  `yaml:"match_algorithm"`
	NeighborhoodHops int     `yaml:"neighborhood_hops"`
	MaxHops          int     `yaml:"max_hops"` // largest radius a request may ask for
	IDPrefixLength   int     `yaml:"id_prefix_length"`
	IDSuffixLength   int     `yaml:"id_suffix_length"`
	IDMaxAttempts    int     `yaml:"id_max_attempts"`
}

// Default returns the configuration used when neither a file nor the environment says otherwise
func Default() *Config {
	return &Config{
		Port:             "8080",
		Env:              "development",
		StoreBackend:     StoreFile,
		Neo4jURI:         "bolt://localhost:7687",
		Neo4jUser:        "neo4j",
		Neo4jDatabase:    "neo4j",
		AWSRegion:        "us-east-1",
		StoreBreaker:     true,
		MatchThreshold:   80,
		MatchAlgorithm:   "jaro-winkler",
		NeighborhoodHops: 2,
		MaxHops:          4,
		IDPrefixLength:   4,
		IDSuffixLength:   6,
		IDMaxAttempts:    16,
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// Environment variables take precedence over file settings.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("KAYBEE_CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.StoreBackend = strings.ToLower(getEnv("KNOWLEDGE_GRAPH_STORE", c.StoreBackend))
	c.GraphDir = getEnv("KNOWLEDGE_GRAPH_DIR", c.GraphDir)
	c.Neo4jURI = getEnv("NEO4J_URI", c.Neo4jURI)
	c.Neo4jUser = getEnv("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPassword = getEnv("NEO4J_PASSWORD", c.Neo4jPassword)
	c.Neo4jDatabase = getEnv("NEO4J_DATABASE", c.Neo4jDatabase)
	c.DynamoTable = getEnv("KNOWLEDGE_GRAPH_TABLE", c.DynamoTable)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoEndpoint)
	c.StoreBreaker = getEnvBool("STORE_BREAKER", c.StoreBreaker)
	c.MatchThreshold = getEnvFloat("MATCH_THRESHOLD", c.MatchThreshold)
	c.MatchAlgorithm = getEnv("MATCH_ALGORITHM", c.MatchAlgorithm)
	c.NeighborhoodHops = getEnvInt("NEIGHBORHOOD_HOPS", c.NeighborhoodHops)
	c.MaxHops = getEnvInt("MAX_NEIGHBORHOOD_HOPS", c.MaxHops)
	c.IDPrefixLength = getEnvInt("ID_PREFIX_LENGTH", c.IDPrefixLength)
	c.IDSuffixLength = getEnvInt("ID_SUFFIX_LENGTH", c.IDSuffixLength)
	c.IDMaxAttempts = getEnvInt("ID_MAX_ATTEMPTS", c.IDMaxAttempts)
}

// Validate checks that required configuration values are set.
// A missing store location is fatal: nothing can be served without it.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFile, StoreBadger:
		if c.GraphDir == "" {
			return kberrors.NewConfigMissingRequired("KNOWLEDGE_GRAPH_DIR")
		}
	case StoreNeo4j:
		if c.Neo4jURI == "" {
			return kberrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return kberrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return kberrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case StoreDynamoDB:
		if c.DynamoTable == "" {
			return kberrors.NewConfigMissingRequired("KNOWLEDGE_GRAPH_TABLE")
		}
		if c.AWSRegion == "" {
			return kberrors.NewConfigMissingRequired("AWS_REGION")
		}
	default:
		return kberrors.NewConfigValidationFailed("KNOWLEDGE_GRAPH_STORE", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return kberrors.NewConfigValidationFailed("MATCH_THRESHOLD", "must be between 0 and 100")
	}
	if c.NeighborhoodHops < 1 {
		return kberrors.NewConfigValidationFailed("NEIGHBORHOOD_HOPS", "must be at least 1")
	}
	if c.MaxHops < c.NeighborhoodHops || c.MaxHops > maxHopsCeiling {
		return kberrors.NewConfigValidationFailed("MAX_NEIGHBORHOOD_HOPS",
			fmt.Sprintf("must be between NEIGHBORHOOD_HOPS and %d", maxHopsCeiling))
	}
	if c.IDPrefixLength < 1 || c.IDSuffixLength < 1 {
		return kberrors.NewConfigValidationFailed("ID_PREFIX_LENGTH/ID_SUFFIX_LENGTH", "must be positive")
	}
	if c.IDMaxAttempts < 1 {
		return kberrors.NewConfigValidationFailed("ID_MAX_ATTEMPTS", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
