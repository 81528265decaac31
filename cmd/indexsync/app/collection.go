package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) createCollectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-collection <entity>",
		Short: "Create the collection of an indexable entity",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				if err := d.syncer.Create(ctx, args[0]); err != nil {
					return fmt.Errorf("%w: %w", errReported, err)
				}
				return nil
			})
		},
	}
}

// collectionCmd groups the maintenance actions. A missing or unknown action is a usage error.
func (c *cli) collectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection <delete|recreate|reindex> <entity>",
		Short: "Maintain the collection of an indexable entity",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("an action is required: delete, recreate or reindex")
		},
	}
	cmd.AddCommand(c.deleteCmd(), c.recreateCmd(), c.reindexCmd())
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity>",
		Short: "Delete the collection; a missing collection is only a warning",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				if err := d.syncer.Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("%w: %w", errReported, err)
				}
				return nil
			})
		},
	}
}

func (c *cli) recreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recreate <entity>",
		Short: "Delete and create the collection",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				if !d.syncer.Recreate(ctx, args[0]) {
					return errReported
				}
				return nil
			})
		},
	}
}

func (c *cli) reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <entity>",
		Short: "Import every stored object of the entity",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				res := d.syncer.ReindexDetailed(ctx, args[0])
				if res.Err != nil {
					return fmt.Errorf("%w: %w", errReported, res.Err)
				}
				return nil
			})
		},
	}
}
