package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/think/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// TableInfo describes one quad table of the database.
type TableInfo struct {
	Name  string `json:"name"`
	Quads int    `json:"quads"`
}

// RunsResult holds the runs command output.
type RunsResult struct {
	Runs   []store.Run `json:"runs"`
	Tables []TableInfo `json:"tables,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs",
		Long: `List the runs recorded in a SQLite database by "think run --db".

Each run shows its status, passes, derived quad count, production table and
the hash of the rules it ran. With a run ID, only that run is shown together
with the quad tables of the database.

Examples:
  think runs --db ./think.db
  think runs --db ./think.db 01933e4a-7b2c-7def-8abc-123456789abc
  think runs --db ./think.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runRuns(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRuns(opts *RunsOptions, runID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	db, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	result := RunsResult{Runs: []store.Run{}}

	if runID == "" {
		result.Runs, err = db.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	} else {
		run, err := db.ReadRun(ctx, runID)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		result.Runs = append(result.Runs, run)

		result.Tables, err = tableInfo(ctx, db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read tables", err)
		}
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd).Indented(CLIResponse{Status: "ok", Data: result})
	}
	return outputRunsText(cmd, result)
}

// tableInfo lists the quad tables of db with their sizes.
func tableInfo(ctx context.Context, db *store.DB) ([]TableInfo, error) {
	names, err := db.Tables(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]TableInfo, 0, len(names))
	for _, name := range names {
		t, err := db.Table(ctx, name)
		if err != nil {
			return nil, err
		}
		n, err := t.Len(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, TableInfo{Name: name, Quads: n})
	}
	return infos, nil
}

// outputRunsText outputs runs in human-readable format.
func outputRunsText(cmd *cobra.Command, result RunsResult) error {
	w := cmd.OutOrStdout()

	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	for _, run := range result.Runs {
		fmt.Fprintf(w, "%s  %-9s  passes=%d  derived=%d  table=%s\n",
			run.ID, run.Status, run.Passes, run.Derived, run.ProductionTable)
		if len(run.RulesHash) >= 12 {
			fmt.Fprintf(w, "  rules %s  engine %s\n", run.RulesHash[:12], run.EngineVersion)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", run.Error)
		}
	}

	if len(result.Tables) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tables:")
		for _, t := range result.Tables {
			fmt.Fprintf(w, "  %s: %d quad(s)\n", t.Name, t.Quads)
		}
	}

	return nil
}
