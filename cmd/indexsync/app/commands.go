// Package app provides the cobra command tree of the indexsync CLI.
package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// EnvPrefix namespaces environment overrides of the global flags.
const EnvPrefix = "INDEXSYNC"

// usageError marks invalid invocations (bad or missing action, arguments or flags).
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// errReported is returned once the failure has already been rendered.
var errReported = errors.New("failed")

// IsReported reports whether err was already shown to the user.
func IsReported(err error) bool { return errors.Is(err, errReported) }

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// withUsage wraps a cobra positional-args validator so violations exit with ExitUsage.
func withUsage(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

// cli carries the flag bindings shared by every command.
type cli struct {
	v *viper.Viper
	// build assembles dependencies; replaced in tests.
	build func(c *cli, cmd *cobra.Command) (*deps, error)
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), build: buildDeps}
	return c.root()
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:               "indexsync",
		DisableAutoGenTag: true,
		Short:             "Keep search collections in step with the catalog database",
		Long: `indexsync derives search collection schemas from annotated Go types,
creates, deletes, recreates and reindexes collections, manages synonyms and
reports cluster health.`,
		Args:          withUsage(cobra.NoArgs),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("a command is required")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err: err} })

	root.PersistentFlags().String("config", "", "Path to configuration file (YAML)")
	root.PersistentFlags().String("env", "", "Environment name used to locate config/<env>.yaml")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	for _, name := range []string{"config", "env", "debug"} {
		if err := c.v.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.createCollectionCmd(),
		c.collectionCmd(),
		c.deleteCmd(),
		c.recreateCmd(),
		c.reindexCmd(),
		c.synonymsCmd(),
		c.synonymsApplyCmd(),
		c.healthCmd(),
		c.loadCmd(),
		c.serveCmd(),
		versionCmd(),
	)
	return root
}
