package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bull/codebase-embeddings/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the size and vector parameters of a collection",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	out := cmd.OutOrStdout()
	name := a.Config.Index.Collection

	info, err := a.Store.CollectionInfo(ctx, name)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		fmt.Fprintf(out, "Collection %q does not exist. Run `codesearch index` first.\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Collection: %s\n", info.Name)
	fmt.Fprintf(out, "  Points: %d\n", info.PointsCount)
	fmt.Fprintf(out, "  Vector size: %d\n", info.VectorSize)
	fmt.Fprintf(out, "  Distance: %s\n", info.Distance)
	return nil
}
