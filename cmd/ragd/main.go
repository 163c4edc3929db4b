// Package main implements the ragd CLI: document ingestion, re-indexing, and
// retrieval-augmented querying against the configured vector index.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file; env vars override it.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragd",
	Short: "Document ingestion and retrieval-augmented answering",
	Long: `ragd ingests documents into a vector index and answers questions
grounded in the indexed content.

Configuration is read from a YAML file (--config) and RAGD_* environment
variables, e.g. RAGD_PROVIDER=gemini or RAGD_QDRANT_HOST=qdrant.internal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(collectionsCmd)
}
