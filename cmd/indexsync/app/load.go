package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexsync/internal/catalog"
)

func (c *cli) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Write a catalog fixture to the database",
		Long: `Save the categories and products of a YAML fixture through the repository.
With auto_update enabled every committed write is mirrored into the index.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("open fixture: %w", err)
			}
			defer func() { _ = f.Close() }()

			fixture, err := catalog.DecodeFixture(f)
			if err != nil {
				return err //nolint:wrapcheck // already describes the fixture
			}
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				rep := newReporter(cmd.OutOrStdout())
				n, err := catalog.Seed(ctx, d.repo, fixture)
				if err != nil {
					rep.Error(fmt.Sprintf("Saved %d objects before failing: %v", n, err))
					return fmt.Errorf("%w: %w", errReported, err)
				}
				if !d.listener.Enabled() {
					rep.Warning("auto_update is disabled; run reindex to refresh the collections")
				}
				rep.Success(fmt.Sprintf("Saved %d objects", n))
				return nil
			})
		},
	}
}
