package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/codebase-embeddings/internal/embedding"
	"github.com/bull/codebase-embeddings/internal/indexer"
)

var (
	describe   bool
	enriched   bool
	recreate   bool
	pruneStale bool
	githubRepo string
	noProgress bool
)

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Index a Python codebase into a collection",
	Long: `Extracts every function and class from the .py files under root (or a
GitHub repository with --github), embeds them and stores them in the
collection, creating it on first use.

Points are numbered 0..n-1 on every run. Re-indexing a tree that shrank
leaves the old tail in place; it is reported as stale and removed with
--prune-stale, or avoided entirely with --recreate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&describe, "describe", false, "generate a description of every entity with the chat model")
	indexCmd.Flags().BoolVar(&enriched, "enriched", false, "embed file, name, line range and description along with the code")
	indexCmd.Flags().BoolVar(&recreate, "recreate", false, "drop the collection before indexing")
	indexCmd.Flags().BoolVar(&pruneStale, "prune-stale", false, "delete points left over from earlier runs")
	indexCmd.Flags().StringVar(&githubRepo, "github", "", "index owner/repo[/path][@ref] from GitHub instead of a local root")
	indexCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	var root string
	if len(args) == 1 {
		root = args[0]
	}
	if root == "" && githubRepo == "" {
		return fmt.Errorf("a root directory or --github repository is required")
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	src, err := a.OpenSource(ctx, root, githubRepo)
	if err != nil {
		return err
	}

	mode := embedding.ModeCode
	if enriched {
		mode = embedding.ModeEnriched
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexing %s into %q...\n", src.Root(), a.Config.Index.Collection)

	result, err := a.Pipeline.Run(ctx, indexer.Request{
		Collection:    a.Config.Index.Collection,
		Source:        src,
		Describe:      describe,
		Mode:          mode,
		Recreate:      recreate,
		PruneStale:    pruneStale,
		AuxiliaryFile: a.Config.Index.AuxiliaryFile,
		Progress:      newProgress(!noProgress && progressEnabled()),
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printIndexResult(out, result, a.Config.Index.AuxiliaryFile)
	fmt.Fprintf(out, "\nTotal time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printIndexResult(out io.Writer, result *indexer.Result, auxName string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Indexing complete!")
	fmt.Fprintf(out, "  Collection: %s\n", result.Collection)
	fmt.Fprintf(out, "  Run: %s\n", result.RunID)
	fmt.Fprintf(out, "  Files: %d\n", result.FilesScanned)
	fmt.Fprintf(out, "  Entities: %d\n", result.Entities)
	fmt.Fprintf(out, "  Points written: %d\n", result.Chunks)
	if result.DescriptionFailures > 0 {
		fmt.Fprintf(out, "  Descriptions unavailable: %d\n", result.DescriptionFailures)
	}
	switch {
	case result.PrunedPoints > 0:
		fmt.Fprintf(out, "  Stale points pruned: %d\n", result.PrunedPoints)
	case result.StalePoints > 0:
		fmt.Fprintf(out, "  Stale points from earlier runs: %d (use --prune-stale or --recreate)\n", result.StalePoints)
	}
	fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.ParseErrors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Skipped files:")
		for _, perr := range result.ParseErrors {
			fmt.Fprintf(out, "  - %s\n", perr)
		}
	}

	if result.HasMainFile {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Main code extracted from %s:\n", auxName)
		fmt.Fprintln(out, result.MainFile)
	}
}
