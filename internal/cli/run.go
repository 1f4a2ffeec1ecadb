package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/think/internal/engine"
	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryexec"
	"github.com/roach88/think/internal/store"
)

// DefaultMaxPasses bounds CLI runs unless --max-passes overrides it.
const DefaultMaxPasses = 10000

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Facts       []string
	Sources     []string
	Database    string
	Table       string
	Output      string
	MaxPasses   int
	MaxFacts    int
	Timeout     time.Duration
	SkolemIRI   string
	MetricsAddr string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the JSON payload of a successful run.
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Passes     int      `json:"passes"`
	Derived    int      `json:"derived"`
	Quads      int      `json:"quads"`
	PassSizes  []int    `json:"pass_sizes"`
	Output     string   `json:"output,omitempty"`
	Production []string `json:"production,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand binds the run flags to opts, keeping any non-flag fields
// (RunIDs) the caller set.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <rules>...",
		Short: "Run rules to their fixpoint",
		Long: `Compile the rule files (or directories), load the facts and apply every
rule until a pass derives nothing new. The derived quads are written as
N-Quads to stdout or --output.

With --db the facts and the production store live in a SQLite database and
premises are evaluated as SQL; an existing production table is extended, and
the run is recorded in the runs table. Identifiers minted for existential
conclusion terms are saved per production table and rule set, so rerunning
the same rules reuses them instead of deriving fresh copies.

--source files are matched by premises like facts but are kept in a separate
store. Every input file is its own blank node scope: _:x in two files names
two different nodes.

Example:
  think run rules.cue --facts people.nq
  think run rules.cue --facts people.nq --source vocabulary.nq
  think run ./rules --db ./think.db --max-passes 100 --output out.nq
  think run rules.cue --skolem-iri https://example.org --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Facts, "facts", nil, "N-Quads fact file (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Sources, "source", nil, "read-only N-Quads source file matched by premises (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Table, "table", "production", "production table name (with --db)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write production N-Quads to file")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", DefaultMaxPasses, "maximum passes (0 = unlimited)")
	cmd.Flags().IntVar(&opts.MaxFacts, "max-facts", 0, "maximum production size (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this duration (0 = none)")
	cmd.Flags().StringVar(&opts.SkolemIRI, "skolem-iri", "", "rewrite minted blank nodes to IRIs under this base")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

// runStores holds the fact store, production store and evaluator of a run.
type runStores struct {
	db         *store.DB
	facts      store.Store
	sources    store.Store
	production store.Store
	evaluator  engine.Evaluator
	close      func()
}

func runEngine(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Compile rules
	slog.Info("loading rules", "paths", paths)
	loadResult, loadErrors := LoadRuleSets(paths, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}
	rs := loadResult.RuleSet

	rules, err := engine.CompileRules(rs)
	if err != nil {
		return outputCommandError(formatter, string(engine.ErrorCode(err)), err)
	}
	slog.Info("rules compiled", "files", loadResult.FileCount, "rules", len(rules))

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	formatter.RunID = runID

	ctx, cancel := runContext(commandContext(cmd), opts.Timeout)
	defer cancel()

	stores, err := openRunStores(ctx, opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err)
	}
	defer stores.close()

	var docs store.Loader
	if err := loadFacts(ctx, &docs, stores.facts, rs.Facts, opts.Facts); err != nil {
		return outputCommandError(formatter, ErrCodeFactsFailed, err)
	}
	if err := loadSources(ctx, &docs, stores.sources, opts.Sources); err != nil {
		return outputCommandError(formatter, ErrCodeFactsFailed, err)
	}

	next, err := nextSkolemIndex(ctx, stores.facts, stores.sources, stores.production)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err)
	}

	rulesHash := ir.RuleSetHash(rs)
	if stores.db != nil {
		saved, err := stores.db.LoadSkolems(ctx, opts.Table, rulesHash)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err)
		}
		engine.RestoreSkolems(rules, saved)
	}

	engineOpts := []engine.Option{
		engine.WithEvaluator(stores.evaluator),
		engine.WithProduction(stores.production),
		engine.WithSources(stores.sources),
		engine.WithLimits(engine.Limits{MaxPasses: opts.MaxPasses, MaxFacts: opts.MaxFacts}),
		// Continue numbering after identifiers minted by earlier runs.
		engine.WithSkolemGenerator(engine.NewSkolemCounterAt(next)),
		engine.WithRunID(runID),
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		engineOpts = append(engineOpts, engine.WithMetrics(engine.NewMetrics(reg)))
		stop := serveMetrics(opts.MetricsAddr, reg)
		defer stop()
	}

	if stores.db != nil {
		err := stores.db.BeginRun(ctx, store.Run{
			ID:              runID,
			RulesHash:       rulesHash,
			EngineVersion:   ir.EngineVersion,
			ProductionTable: opts.Table,
		})
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, err)
		}
	}

	res, runErr := engine.New(engineOpts...).Run(ctx, stores.facts, rules)

	if stores.db != nil {
		passes, derived := 0, 0
		if res != nil {
			passes, derived = res.Passes, res.Derived
		}
		// The run context may be expired; the record is written regardless.
		// Aborted runs keep their partial production, so their identifiers
		// are saved too.
		recordCtx := context.WithoutCancel(ctx)
		if err := stores.db.SaveSkolems(recordCtx, opts.Table, rulesHash, engine.SkolemMaps(rules)); err != nil {
			slog.Error("failed to save skolems", "run", runID, "error", err)
		}
		if err := stores.db.FinishRun(recordCtx, runID, passes, derived, runErr); err != nil {
			slog.Error("failed to record run", "run", runID, "error", err)
		}
	}

	if runErr != nil {
		code := string(engine.ErrorCode(runErr))
		if code == "" {
			code = ErrCodeRunFailed
		}
		_ = formatter.Error(code, runErr.Error(), nil)
		return WrapExitError(ExitFailure, "run aborted", runErr)
	}

	return outputRun(ctx, formatter, opts, res)
}

// runContext derives the run context: cancelled on SIGINT/SIGTERM and after
// timeout when it is positive.
func runContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// openRunStores opens the SQLite database when --db is set; otherwise the
// run uses in-memory stores.
func openRunStores(ctx context.Context, opts *RunOptions) (*runStores, error) {
	if opts.Database == "" {
		return &runStores{
			facts:      store.NewMemory(),
			sources:    store.NewMemory(),
			production: store.NewMemory(),
			evaluator:  queryexec.NewMemory(),
			close:      func() {},
		}, nil
	}

	slog.Info("opening database", "path", opts.Database)
	db, err := store.Open(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}

	// Facts live next to their production table, so one database can hold
	// several independent runs.
	facts, err := db.Table(ctx, opts.Table+".facts")
	if err != nil {
		closeDB()
		return nil, err
	}
	sources, err := db.Table(ctx, opts.Table+".sources")
	if err != nil {
		closeDB()
		return nil, err
	}
	production, err := db.Table(ctx, opts.Table)
	if err != nil {
		closeDB()
		return nil, err
	}
	ev, err := queryexec.NewSQL(db)
	if err != nil {
		closeDB()
		return nil, err
	}

	return &runStores{
		db:         db,
		facts:      facts,
		sources:    sources,
		production: production,
		evaluator:  ev,
		close: func() {
			ev.Close()
			closeDB()
		},
	}, nil
}

// loadFacts adds the rule-file facts and every N-Quads file to dst. The
// rule-file facts are one document; each file is another.
func loadFacts(ctx context.Context, docs *store.Loader, dst store.Store, ruleFacts []ir.Quad, files []string) error {
	if _, err := docs.LoadQuads(ctx, dst, ruleFacts); err != nil {
		return fmt.Errorf("load rule facts: %w", err)
	}
	for _, path := range files {
		n, err := docs.LoadFile(ctx, dst, path)
		if err != nil {
			return err
		}
		slog.Info("facts loaded", "path", path, "new", n)
	}
	return nil
}

// loadSources adds every source file to dst.
func loadSources(ctx context.Context, docs *store.Loader, dst store.Store, files []string) error {
	for _, path := range files {
		n, err := docs.LoadFile(ctx, dst, path)
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		slog.Info("source loaded", "path", path, "new", n)
	}
	return nil
}

// nextSkolemIndex returns the first sk_N index unused by any of srcs.
func nextSkolemIndex(ctx context.Context, srcs ...store.Source) (int64, error) {
	var next int64
	for _, src := range srcs {
		quads, err := store.Collect(ctx, src)
		if err != nil {
			return 0, err
		}
		next = max(next, engine.NextSkolemIndex(quads))
	}
	return next, nil
}

// serveMetrics serves reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prometheus.Registry) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// outputRun writes the production store and the run summary.
func outputRun(ctx context.Context, formatter *OutputFormatter, opts *RunOptions, res *engine.Result) error {
	quads, err := store.Collect(ctx, res.Production)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err)
	}
	store.SortQuads(quads)

	if opts.SkolemIRI != "" {
		ns, err := engine.SkolemNamespace(opts.SkolemIRI)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err)
		}
		quads = store.SkolemizeIRIs(quads, ns)
	}

	summary := RunSummary{
		RunID:     formatter.RunID,
		Passes:    res.Passes,
		Derived:   res.Derived,
		Quads:     len(quads),
		PassSizes: res.PassSizes,
		Output:    opts.Output,
	}

	if opts.Output != "" {
		if err := writeNQuadsFile(opts.Output, quads); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err)
		}
	}

	if formatter.Format == "json" {
		if opts.Output == "" {
			summary.Production = make([]string, len(quads))
			for i, q := range quads {
				summary.Production[i] = ir.EncodeQuad(q)
			}
		}
		return formatter.Success(summary)
	}

	if opts.Output == "" {
		if err := store.WriteQuads(formatter.Writer, quads); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}
	fmt.Fprintf(formatter.GetErrWriter(), "✓ Fixpoint after %d pass(es): %d quad(s), %d new (run %s)\n",
		summary.Passes, summary.Quads, summary.Derived, summary.RunID)
	return nil
}

func writeNQuadsFile(path string, quads []ir.Quad) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return writeQuads(f, quads)
}

func writeQuads(w io.Writer, quads []ir.Quad) error {
	if err := store.WriteQuads(w, quads); err != nil {
		return fmt.Errorf("writing n-quads: %w", err)
	}
	return nil
}

// outputCommandError reports a command-level failure (exit code 2).
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	if code == "" {
		code = ErrCodeGeneric
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// outputLoadErrors reports rule loading failures (exit code 2).
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	for _, err := range errs {
		code, message := parseCompileError(err)
		_ = formatter.Error(code, message, nil)
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("loading rules failed with %d error(s)", len(errs)))
}
