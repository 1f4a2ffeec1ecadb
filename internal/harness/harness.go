package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/think/internal/compiler"
	"github.com/roach88/think/internal/engine"
	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryexec"
	"github.com/roach88/think/internal/store"
	"github.com/roach88/think/internal/testutil"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	facts      store.Store
	production store.Store
	evaluator  engine.Evaluator
	skolems    *testutil.DeterministicSkolems
	runIDs     *testutil.FixedRunIDGenerator
	logger     *slog.Logger
	closers    []func()
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against fresh stores with a fresh skolem counter, so
// minted identifiers are reproducible.
//
// Execution flow:
// 1. Compile and merge the rule files
// 2. Load rule-file facts and N-Quads fact files
// 3. Run the engine to its fixpoint (or until it aborts)
// 4. Evaluate assertions against production and run outcome
//
// Load and compile failures are returned as errors. An engine failure is
// recorded on the result so that error assertions can inspect it.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	rs, err := compiler.LoadFiles(scenario.Rules...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	rules, err := engine.CompileRules(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	if err := h.loadFacts(ctx, rs, scenario.Facts); err != nil {
		return nil, err
	}

	eng := engine.New(
		engine.WithEvaluator(h.evaluator),
		engine.WithProduction(h.production),
		engine.WithSkolemGenerator(h.skolems),
		engine.WithLimits(engine.Limits{MaxPasses: scenario.MaxPasses, MaxFacts: scenario.MaxFacts}),
		engine.WithRunID(h.runIDs.Generate()),
		engine.WithLogger(h.logger),
	)

	result := NewResult()
	res, runErr := eng.Run(ctx, h.facts, rules)
	if runErr != nil {
		result.RunError = runErr.Error()
		result.ErrorCode = string(engine.ErrorCode(runErr))
	} else {
		result.Passes = res.Passes
		result.Derived = res.Derived
	}

	// Production is reported even for aborted runs; assertions may inspect
	// how far the run got.
	production, err := store.Collect(ctx, h.production)
	if err != nil {
		return nil, fmt.Errorf("failed to read production: %w", err)
	}
	store.SortQuads(production)
	result.Production = production

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// newHarness creates the stores and evaluator for the scenario backend.
func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	h := &Harness{
		skolems: testutil.NewDeterministicSkolems(),
		runIDs:  testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if scenario.Backend != BackendSQLite {
		h.facts = store.NewMemory()
		h.production = store.NewMemory()
		h.evaluator = queryexec.NewMemory()
		return h, nil
	}

	// Fresh in-memory SQLite database per scenario
	db, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h.closers = append(h.closers, func() { db.Close() })

	facts, err := db.Table(ctx, "facts")
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to create facts table: %w", err)
	}
	production, err := db.Table(ctx, "production")
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to create production table: %w", err)
	}
	ev, err := queryexec.NewSQL(db)
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to create SQL evaluator: %w", err)
	}
	h.closers = append(h.closers, ev.Close)

	h.facts = facts
	h.production = production
	h.evaluator = ev
	return h, nil
}

// loadFacts fills the fact store from the rule set and the fact files.
func (h *Harness) loadFacts(ctx context.Context, rs *ir.RuleSet, files []string) error {
	var docs store.Loader
	if _, err := docs.LoadQuads(ctx, h.facts, rs.Facts); err != nil {
		return fmt.Errorf("failed to load rule facts: %w", err)
	}
	for _, path := range files {
		if _, err := docs.LoadFile(ctx, h.facts, path); err != nil {
			return fmt.Errorf("failed to load facts %s: %w", path, err)
		}
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (h *Harness) close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}
