package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/usecase/health"
)

func (c *cli) healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Evaluate cluster health",
		Long: `Probe every configured node and print the green/yellow/red verdict.
A red verdict exits with status 1.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format != "" && format != "json" && format != "table" {
				return usagef("unsupported format %q", format)
			}
			return c.withDeps(cmd, func(ctx context.Context, d *deps) error {
				report := d.health.Check(ctx)
				if format == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(report); err != nil {
						return fmt.Errorf("encode report: %w", err)
					}
				} else if err := renderHealth(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if report.Verdict == cluster.Red {
					return errReported
				}
				return nil
			})
		},
	}
	cmd.Flags().String("format", "table", "Output format (table, json)")
	return cmd
}

var verdictStyles = map[cluster.Verdict]lipgloss.Style{
	cluster.Green:  successStyle,
	cluster.Yellow: warningStyle,
	cluster.Red:    errorStyle,
}

func renderHealth(out io.Writer, r health.Report) error {
	table := tablewriter.NewWriter(out)
	table.Header("Node", "Role", "Healthy", "State", "Version", "Error")
	for _, n := range r.Nodes {
		row := []string{
			n.Node.Addr(), string(n.Node.Role), strconv.FormatBool(n.Healthy), n.State, n.Version, n.Error,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render health: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render health: %w", err)
	}

	style := verdictStyles[r.Verdict]
	fmt.Fprintln(out, style.Render(fmt.Sprintf("%s (%s): %s", r.Verdict, r.Status, r.Reason)))
	fmt.Fprintf(out, "active %d/%d, leaders %d, documents %d\n", r.Active, r.Total, r.Leaders, r.Documents)
	if r.Database != "" {
		fmt.Fprintf(out, "database %s\n", r.Database)
	}
	return nil
}
