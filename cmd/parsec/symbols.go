package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/output"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols QUERY",
	Short: "Fuzzy search symbols across a workspace and its dependencies",
	Long: `Index a workspace together with the packages listed in its Project.toml and
print the best matching symbols, ranked the same way as the editor's
workspace symbol search.

An empty query lists symbols in indexing order.

EXAMPLES:
    parsec symbols plot
    parsec symbols --root ~/dev/MyPkg --limit 20 --scores rcp
    parsec symbols --workspace-only ''`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSymbols,
}

// symbolsOptions are the flags of the symbols command.
type symbolsOptions struct {
	Query         string
	Root          string
	Limit         int
	WorkspaceOnly bool
	Scores        bool
	Stats         bool
}

var symbolsOpts symbolsOptions

func init() {
	rootCmd.AddCommand(symbolsCmd)
	addOutputFlags(symbolsCmd)

	symbolsCmd.Flags().StringVarP(&symbolsOpts.Root, "root", "r", ".", "Workspace root to index")
	symbolsCmd.Flags().IntVarP(&symbolsOpts.Limit, "limit", "m", 0, "Maximum number of results (default search.limit)")
	symbolsCmd.Flags().BoolVarP(&symbolsOpts.WorkspaceOnly, "workspace-only", "w", false, "Only report symbols under the workspace root")
	symbolsCmd.Flags().BoolVar(&symbolsOpts.Scores, "scores", false, "Show match scores")
	symbolsCmd.Flags().BoolVar(&symbolsOpts.Stats, "stats", false, "Print indexing statistics after the results")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	opts := symbolsOpts
	if len(args) > 0 {
		opts.Query = args[0]
	}

	e, err := newEngine(viper.GetViper())
	if err != nil {
		return err
	}
	defer e.Close()

	config, err := formatterConfig(cmd, e.settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	config.ShowScores = opts.Scores
	config.ShowOrigins = true
	return searchSymbols(cmd.Context(), e, opts, config, cmd.OutOrStdout())
}

// searchSymbols indexes opts.Root with its dependencies and writes the hits
// for opts.Query.
func searchSymbols(ctx context.Context, e *engine, opts symbolsOptions, config output.FormatterConfig, w io.Writer) error {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	if opts.Limit <= 0 {
		opts.Limit = e.settings.Server.SearchLimit
	}
	config.BaseDir = root
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	ix := index.NewSymbolIndex()
	indexer := index.NewIndexer(e.store, ix, e.extractor, e.settings.Server.Index, e.logger)
	defer indexer.Stop()

	roots := indexer.Start(root, e.settings.Server.Environment)
	done := make(chan struct{})
	go func() {
		indexer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	e.logger.Info("indexed workspace", "roots", len(roots), "symbols", ix.Len())

	prefix := ""
	if opts.WorkspaceOnly {
		prefix = root
	}
	hits := ix.Search(opts.Query, prefix, opts.Limit)

	formatter := output.NewFormatterFactory(w, config).CreateFormatter()
	manager := output.NewOutputManager(ctx, formatter)
	defer manager.Close()

	if err := manager.ProcessHits(hits); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if opts.Stats {
		return manager.ProcessSummary(output.Summary{
			Elapsed: output.NewDuration(time.Since(start)),
			Stats:   indexer.Stats(),
			Hits:    len(hits),
		})
	}
	return nil
}
