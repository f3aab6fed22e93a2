// Package cli implements the zaloga command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "zaloga",
		Short: "Zaloga - shop stock ledger",
		Long: `Zaloga tracks item stock in a warehouse and a display pool. Every
movement is recorded in an audit log that can later be rolled back or edited.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: ./zaloga.yaml if present)")
	cmd.PersistentFlags().StringP("db", "d", "zaloga.sqlite3", "SQLite database path")
	cmd.PersistentFlags().StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().String("timezone", "UTC", "time zone for day filters and exports")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// load reads the configuration with the command's flags applied.
func (o *RootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(o.ConfigFile, cmd.Flags())
}
