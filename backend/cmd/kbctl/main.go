// Package main provides kbctl, the operator CLI for knowledge graphs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kbctl",
		Short: "kbctl - inspect and patch knowledge graphs",
		Long: `kbctl works directly against the configured knowledge graph store.

The store is selected the same way as for the server: KNOWLEDGE_GRAPH_STORE,
KNOWLEDGE_GRAPH_DIR, NEO4J_* and KNOWLEDGE_GRAPH_TABLE, from the environment,
a .env file or the YAML file named by KAYBEE_CONFIG_FILE.`,
		SilenceUsage:      true,
		PersistentPreRunE: initLogger,
	}
	rootCmd.PersistentFlags().String("graph", "", "Graph id (usually the user id)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kbctl v%s (%s)\n", version, commit)
		},
	})

	// Neighborhood command
	neighborhoodCmd := &cobra.Command{
		Use:   "neighborhood NAME...",
		Short: "Print the neighborhood of the entities matching the names",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runNeighborhood,
	}
	neighborhoodCmd.Flags().Int("hops", 0, "Neighborhood radius (default from NEIGHBORHOOD_HOPS)")
	rootCmd.AddCommand(neighborhoodCmd)

	// Describe command
	describeCmd := &cobra.Command{
		Use:   "describe NAME...",
		Short: "Print the neighborhood of the names as prompt text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDescribe,
	}
	describeCmd.Flags().Bool("expand", false, "Append the graph id the facts came from")
	rootCmd.AddCommand(describeCmd)

	// Random command
	randomCmd := &cobra.Command{
		Use:   "random",
		Short: "Print a random entity and its neighborhood",
		RunE:  runRandom,
	}
	randomCmd.Flags().Int("hops", 1, "Neighborhood radius")
	rootCmd.AddCommand(randomCmd)

	// Apply command
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Replace a previously extracted neighborhood",
		Long: `Replace a previously extracted neighborhood with an edited version.

--original is the neighborhood as printed by "kbctl neighborhood"; --replacement is
the edited graph ({"entities": [...], "relationships": [...]}), or model output
wrapped in a code fence. Frozen entities of the original must keep their ids.`,
		RunE: runApply,
	}
	applyCmd.Flags().String("original", "", "File holding the extracted neighborhood")
	applyCmd.Flags().String("replacement", "", "File holding the replacement (- for stdin)")
	_ = applyCmd.MarkFlagRequired("replacement")
	rootCmd.AddCommand(applyCmd)

	// Import command
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Overwrite a graph with a stored document",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	rootCmd.AddCommand(importCmd)

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print a whole graph document",
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)

	// Migrate command
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema the configured store needs",
		RunE:  runMigrate,
	}
	rootCmd.AddCommand(migrateCmd)

	return rootCmd
}
