package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/think/internal/engine"
	"github.com/roach88/think/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database  string
	Table     string
	Output    string
	SkolemIRI string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored quad table as N-Quads",
		Long: `Write the quads of one table of a SQLite database as N-Quads, sorted
canonically so that two exports of the same table are byte-identical.

Examples:
  think export --db ./think.db
  think export --db ./think.db --table production.facts --output facts.nq
  think export --db ./think.db --skolem-iri https://example.org`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Table, "table", "production", "table to export")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.SkolemIRI, "skolem-iri", "", "rewrite minted blank nodes to IRIs under this base")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	db, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	table, err := db.Table(ctx, opts.Table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open table", err)
	}

	quads, err := store.Collect(ctx, table)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read table", err)
	}
	store.SortQuads(quads)

	if opts.SkolemIRI != "" {
		ns, err := engine.SkolemNamespace(opts.SkolemIRI)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build skolem namespace", err)
		}
		quads = store.SkolemizeIRIs(quads, ns)
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		if err := writeNQuadsFile(opts.Output, quads); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d quad(s) to %s\n", len(quads), opts.Output)
		return nil
	}
	if err := writeQuads(w, quads); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
