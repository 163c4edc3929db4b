package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/chain"
)

var queryShowSources bool

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against the knowledge base",
	Long: `Run the full retrieval-augmented pipeline for a single question and print
the answer with its source attribution and timings.

Examples:
  ragd query "What are your business hours?"
  ragd query --sources=false "How do refunds work?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryShowSources, "sources", true, "print source attribution")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	ragChain, err := app.newChain(ctx)
	if err != nil {
		return err
	}

	answer := ragChain.Answer(ctx, chain.Query{Text: strings.Join(args, " ")})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)

	if queryShowSources && len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, src := range answer.Sources {
			fmt.Fprintf(out, "  %d. %s (%.2f)\n", i+1, src.Title, src.Score)
		}
	}

	fmt.Fprintf(out, "\nstatus=%s docs=%d tokens=%d retrieval=%dms generation=%dms total=%dms\n",
		answer.Status, answer.DocsRetrieved, answer.TotalTokens,
		answer.RetrievalMS, answer.GenerationMS, answer.TotalMS)

	if answer.Status == chain.StatusFailed && answer.Err != nil {
		return answer.Err
	}
	return nil
}
