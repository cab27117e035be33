package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaybee/backend/internal/adapter"
	"kaybee/backend/internal/app"
	"kaybee/backend/internal/graph"
	"kaybee/backend/internal/store/neo4jstore"
	"kaybee/backend/pkg/config"
	kberrors "kaybee/backend/pkg/errors"
	"kaybee/backend/pkg/logger"
)

func initLogger(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	env := "production"
	if verbose {
		env = "development"
	}
	return logger.Init(env)
}

// openApp loads configuration and opens the store. The caller must Close the App.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func graphID(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("graph")
	if err := graph.ValidateGraphID(id); err != nil {
		return "", err
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin for "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func runNeighborhood(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	hops, _ := cmd.Flags().GetInt("hops")
	if hops < 1 {
		hops = a.Engine.Hops()
	}
	sub, err := a.Engine.Neighborhood(ctx, id, args, hops)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), sub)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	describe := a.Engine.Describe
	if expand, _ := cmd.Flags().GetBool("expand"); expand {
		describe = a.Engine.ExpandQuery
	}
	text, err := describe(ctx, id, args)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "Nothing is known about these names")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runRandom(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	hops, _ := cmd.Flags().GetInt("hops")
	pick, found, err := a.Engine.RandomEntity(ctx, id, hops)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("graph %s is empty", id)
	}
	return printJSON(cmd.OutOrStdout(), pick)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}

	// Parse inputs before touching the store
	original := graph.NewSubgraph()
	if path, _ := cmd.Flags().GetString("original"); path != "" {
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, original); err != nil {
			return kberrors.NewInvalidInput("original", err.Error())
		}
	}
	path, _ := cmd.Flags().GetString("replacement")
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	replacement, err := adapter.ParseReplacement(string(data))
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := a.Engine.ApplyReplacement(ctx, id, original, replacement)
	if err != nil {
		if kberrors.IsConflict(err) {
			return fmt.Errorf("%w (the graph changed since the neighborhood was extracted; extract it again)", err)
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	g, err := graph.Decode(data)
	if err != nil {
		return kberrors.NewInvalidInput("document", err.Error())
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	version, err := a.Engine.Import(ctx, id, g)
	if err != nil {
		return err
	}
	logger.Get().Info("Imported graph",
		zap.String("graph_id", id),
		zap.String("version", version),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d entities and %d relationships into %s (version %s)\n",
		len(g.Entities), len(g.Relationships), id, version)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := graphID(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	g, _, err := a.Engine.Graph(ctx, id)
	if err != nil {
		return err
	}
	data, err := graph.Encode(g)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return os.WriteFile(out, append(data, '\n'), 0o644)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Get()

	if cfg.StoreBackend != config.StoreNeo4j {
		log.Info("Store needs no schema", zap.String("store", cfg.StoreBackend))
		return nil
	}

	// Open runs EnsureSchema
	s, err := neo4jstore.Open(ctx, neo4jstore.Config{
		URI:      cfg.Neo4jURI,
		User:     cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	log.Info("Neo4j schema is up to date", zap.String("database", cfg.Neo4jDatabase))
	fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
	return nil
}
