package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/inventory"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Date   string
	Type   string
	Output string
}

// NewExportCommand creates the export subcommand.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write audit log entries as CSV",
		Example: `  zaloga export --date 2024-03-01
  zaloga export --type sale -o sales.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if opts.Output != "" && opts.Output != "-" {
				f, err := os.Create(opts.Output)
				if err != nil {
					return fmt.Errorf("creating output: %w", err)
				}
				defer f.Close()
				out = f
			}
			return runExport(cmd, rootOpts, opts, out)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "only entries from this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Type, "type", "all", "only entries of this type (input|transfer|sale|reduction|all)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "output file (- for stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions, out io.Writer) error {
	cfg, err := rootOpts.load(cmd)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DB); err != nil {
		return fmt.Errorf("database %s: %w", cfg.DB, err)
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	svc := &inventory.Service{DB: database, Location: loc}
	entries, err := svc.ListLogs(cmd.Context(), opts.Date, opts.Type)
	if err != nil {
		return err
	}
	return inventory.WriteCSV(out, entries, loc)
}
