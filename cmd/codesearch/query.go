package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/codebase-embeddings/internal/search"
)

var (
	limit    int
	showCode bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Find the functions and classes most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "number of results")
	queryCmd.Flags().BoolVar(&showCode, "code", true, "print the source of every match")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	results, err := a.Engine.Query(ctx, strings.Join(args, " "), a.Config.Index.Collection, limit)
	if err != nil {
		return err
	}

	printResults(cmd.OutOrStdout(), results, showCode)
	return nil
}

func printResults(out io.Writer, results []search.Result, withCode bool) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching code found.")
		return
	}

	for i, r := range results {
		p := r.Payload
		fmt.Fprintf(out, "%d. %s %s  %s:%d-%d  (score %.4f)\n",
			i+1, p.EntityType, p.EntityName, p.FilePath, p.StartLine, p.EndLine, r.Score)
		if p.Description != "" {
			fmt.Fprintf(out, "   %s\n", p.Description)
		}
		if withCode {
			fmt.Fprintln(out)
			for _, line := range strings.Split(p.Code, "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
			fmt.Fprintln(out)
		}
	}
}
