package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryexec"
	"github.com/roach88/think/internal/store"
)

// Engine is the fixpoint driver.
//
// A run applies every rule, in order, once per pass, merging each rule's
// result into the production store immediately so later rules in the same
// pass see it. Passes repeat until one adds no quad.
//
// Thread-safety model:
//   - Run(): one run at a time per Engine; rules are mutated in place
//   - the production store and skolem maps are touched only by the run
//
// INVARIANTS:
//   - rules apply in slice order every pass
//   - the production store only grows
type Engine struct {
	evaluator  Evaluator
	sources    []store.Source
	production store.Store
	limits     Limits
	metrics    *Metrics
	skolems    SkolemGenerator
	runID      string
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSources adds query sources consulted after the facts and production.
func WithSources(sources ...store.Source) Option {
	return func(e *Engine) {
		e.sources = append(e.sources, sources...)
	}
}

// WithProduction sets the store derived quads are merged into. It may
// already hold quads from an earlier run.
//
// Default: a new store.Memory per run.
func WithProduction(s store.Store) Option {
	return func(e *Engine) {
		e.production = s
	}
}

// WithLimits bounds the run.
//
// Default: Limits{} (unlimited)
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEvaluator sets the premise query evaluator.
//
// Default: queryexec.NewMemory()
func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithSkolemGenerator sets the identifier source for existentials.
//
// Default: NewSkolemCounter(), shared by all runs of this Engine.
func WithSkolemGenerator(g SkolemGenerator) Option {
	return func(e *Engine) {
		e.skolems = g
	}
}

// WithRunID tags the run's log lines.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// WithLogger sets the logger for pass and rule progress.
//
// Default: slog.Default()
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		evaluator: queryexec.NewMemory(),
		skolems:   NewSkolemCounter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a run that reached its fixpoint.
type Result struct {
	// Production holds every derived quad.
	Production store.Store

	// Passes counts full passes, including the final one that added nothing.
	Passes int

	// Derived is the number of quads added by this run.
	Derived int

	// PassSizes is the production size at the end of each pass.
	PassSizes []int
}

// Run applies rules to facts until a pass derives nothing.
//
// The query sources are facts, then the production store, then any
// WithSources. facts may be nil. On error (evaluation failure, limit,
// cancellation) no Result is returned: a partial production store is not a
// fixpoint.
func (e *Engine) Run(ctx context.Context, facts store.Source, rules []*Rule) (*Result, error) {
	production := e.production
	if production == nil {
		production = store.NewMemory()
	}

	sources := make([]store.Source, 0, 2+len(e.sources))
	if facts != nil {
		sources = append(sources, facts)
	}
	sources = append(sources, production)
	sources = append(sources, e.sources...)

	gen := e.skolems
	if e.metrics != nil {
		gen = countingGenerator{next: gen, metrics: e.metrics}
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.runID != "" {
		logger = logger.With("run", e.runID)
	}

	initial, err := production.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("production size: %w", err)
	}

	limits := newLimitEnforcer(e.limits)
	res := &Result{Production: production}
	size := initial

	for {
		if err := limits.beginPass(); err != nil {
			logger.Error("run aborted", "error", err, "passes", res.Passes)
			return nil, err
		}
		res.Passes++
		started := time.Now()
		before := size

		logger.Info("pass starting", "pass", res.Passes, "production", before)

		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			derived, err := Apply(ctx, e.evaluator, sources, rule, gen)
			if err != nil {
				return nil, err
			}

			added, err := production.Merge(ctx, derived)
			if err != nil {
				return nil, fmt.Errorf("rule %s: merge into production: %w", rule.ID, err)
			}
			size += added
			e.metrics.observeApplication(rule.ID, added)

			logger.Info("rule applied", "pass", res.Passes, "rule", rule.ID, "quads", derived.Size(), "added", added)

			if err := limits.checkFacts(size); err != nil {
				logger.Error("run aborted", "error", err, "passes", res.Passes)
				return nil, err
			}
		}

		delta := size - before
		res.PassSizes = append(res.PassSizes, size)
		e.metrics.observePass(time.Since(started).Seconds())
		e.metrics.setProduction(size)

		logger.Info("pass finished", "pass", res.Passes, "production", size, "delta", delta)

		if delta == 0 {
			break
		}
	}

	res.Derived = size - initial
	return res, nil
}

// Think compiles rs, loads rs.Facts into an in-memory fact store and runs
// the rules to their fixpoint. The facts are loaded as one document, so their
// blank node labels are scoped (see store.Loader).
func Think(ctx context.Context, rs *ir.RuleSet, opts ...Option) (*Result, error) {
	rules, err := CompileRules(rs)
	if err != nil {
		return nil, err
	}
	facts := store.NewMemory()
	var docs store.Loader
	if _, err := docs.LoadQuads(ctx, facts, rs.Facts); err != nil {
		return nil, err
	}
	return New(opts...).Run(ctx, facts, rules)
}
