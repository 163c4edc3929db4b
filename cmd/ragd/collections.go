package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Show stats for the active collection",
	Long: `Show the active collection's name, point count, vector size, and status.
The collection is derived from the configured provider, e.g. kb_openai_1536.`,
	Args: cobra.NoArgs,
	RunE: runCollections,
}

func runCollections(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	stats, err := app.store.Stats(ctx)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		fmt.Fprintf(out, "collection %s does not exist yet; ingest a document to create it\n",
			app.cfg.CollectionName())
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "collection:  %s\n", stats.Name)
	fmt.Fprintf(out, "points:      %d\n", stats.PointCount)
	fmt.Fprintf(out, "vector size: %d\n", stats.VectorSize)
	fmt.Fprintf(out, "status:      %s\n", stats.Status)
	return nil
}
