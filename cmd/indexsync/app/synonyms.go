package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domsyn "github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

func (c *cli) synonymsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synonyms <upsert|list|delete>",
		Short: "Manage synonym groups",
		Long: `Manage synonym groups. Without --collection the action applies to every
registered collection.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("an action is required: upsert, list or delete")
		},
	}
	cmd.PersistentFlags().String("collection", "", "Target collection (default: every registered collection)")
	cmd.AddCommand(c.synonymsUpsertCmd(), c.synonymsListCmd(), c.synonymsDeleteCmd())
	return cmd
}

func (c *cli) synonymsUpsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or replace a synonym group",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			id, _ := cmd.Flags().GetString("id")
			root, _ := cmd.Flags().GetString("root")
			terms, _ := cmd.Flags().GetStringSlice("synonyms")

			syn, err := domsyn.New(id, root, terms, collection)
			if err != nil {
				return usageError{err: err}
			}
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				rep := newReporter(cmd.OutOrStdout())
				if err := d.synonyms.Upsert(ctx, collection, syn); err != nil {
					rep.Error(fmt.Sprintf("Failed to upsert synonym %q: %v", syn.ID, err))
					return fmt.Errorf("%w: %w", errReported, err)
				}
				rep.Success(fmt.Sprintf("Synonym %q upserted in %s", syn.ID, scope(collection)))
				return nil
			})
		},
	}
	cmd.Flags().String("id", "", "Synonym group id (required)")
	cmd.Flags().String("root", "", "Root term for a one-way mapping")
	cmd.Flags().StringSlice("synonyms", nil, "Comma-separated terms (required)")
	return cmd
}

func (c *cli) synonymsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored synonym groups",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				list, err := d.synonyms.List(ctx, collection)
				if err != nil {
					newReporter(cmd.OutOrStdout()).Error(fmt.Sprintf("Failed to list synonyms: %v", err))
					return fmt.Errorf("%w: %w", errReported, err)
				}
				return renderSynonyms(cmd.OutOrStdout(), list)
			})
		},
	}
}

func (c *cli) synonymsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a synonym group",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			collection, _ := cmd.Flags().GetString("collection")
			id, _ := cmd.Flags().GetString("id")
			if strings.TrimSpace(id) == "" {
				return usagef("--id is required")
			}
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				rep := newReporter(cmd.OutOrStdout())
				err := d.synonyms.Delete(ctx, collection, id)
				switch {
				case err == nil:
					rep.Success(fmt.Sprintf("Synonym %q deleted from %s", id, scope(collection)))
					return nil
				case errors.Is(err, domain.ErrNotFound):
					rep.Warning(fmt.Sprintf("Synonym %q does not exist in %s", id, scope(collection)))
					return nil
				default:
					rep.Error(fmt.Sprintf("Failed to delete synonym %q: %v", id, err))
					return fmt.Errorf("%w: %w", errReported, err)
				}
			})
		},
	}
	cmd.Flags().String("id", "", "Synonym group id (required)")
	return cmd
}

func (c *cli) synonymsApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synonyms-apply",
		Short: "Push every configured and type-declared synonym group",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				rep := newReporter(cmd.OutOrStdout())
				res, err := d.synonyms.Apply(ctx)
				if err != nil {
					rep.Error(fmt.Sprintf("Applied %d synonym groups, %d failed: %v", res.Applied, res.Failed, err))
					return fmt.Errorf("%w: %w", errReported, err)
				}
				if res.Applied == 0 {
					rep.Warning("No synonyms to apply")
					return nil
				}
				rep.Success(fmt.Sprintf("Applied %d synonym groups", res.Applied))
				return nil
			})
		},
	}
}

func renderSynonyms(out io.Writer, list []domsyn.Synonym) error {
	if len(list) == 0 {
		newReporter(out).Info("No synonyms found")
		return nil
	}
	table := tablewriter.NewWriter(out)
	table.Header("Collection", "ID", "Root", "Synonyms")
	for _, s := range list {
		if err := table.Append([]string{s.Collection, s.ID, s.Root, strings.Join(s.Synonyms, ", ")}); err != nil {
			return fmt.Errorf("render synonyms: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render synonyms: %w", err)
	}
	return nil
}

func scope(collection string) string {
	if collection == "" {
		return "all collections"
	}
	return collection
}
