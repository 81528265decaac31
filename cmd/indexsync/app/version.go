package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexsync/internal/version"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format == "json" {
				output, err := json.MarshalIndent(map[string]string{
					"version": version.Version,
					"commit":  version.Commit,
					"built":   version.Date,
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("format version: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
