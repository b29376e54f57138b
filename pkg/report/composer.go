package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
	"github.com/wemcdonald/sqlsafety/pkg/rollback"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// DefaultRollbackTimeout bounds how long Compose waits for a rollback script
const DefaultRollbackTimeout = 60 * time.Second

// ErrRollbackTimeout is reported when the generator does not answer in time
var ErrRollbackTimeout = errors.New("rollback generation timed out")

// Composer builds safety reports. It is safe for concurrent use.
type Composer struct {
	parser          *sqlparser.SQLParser
	simulator       *dryrun.Simulator
	generator       rollback.Generator
	rollbackTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures a Composer
type Option func(*Composer)

// WithGenerator sets the rollback generator. Without one, rollback
// generation reports rollback.ErrNotConfigured.
func WithGenerator(g rollback.Generator) Option {
	return func(c *Composer) {
		c.generator = g
	}
}

// WithSimulator replaces the default simulator
func WithSimulator(s *dryrun.Simulator) Option {
	return func(c *Composer) {
		c.simulator = s
	}
}

// WithRollbackTimeout sets how long to wait for the generator
func WithRollbackTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.rollbackTimeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// NewComposer creates a Composer
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		parser:          sqlparser.NewSQLParser(),
		rollbackTimeout: DefaultRollbackTimeout,
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.simulator == nil {
		c.simulator = dryrun.New(dryrun.WithLogger(c.logger))
	}
	return c
}

// Compose analyzes sql and builds its report. Only a parse failure returns
// an error; problems with the dry-run or the rollback are recorded in their
// own sections.
func (c *Composer) Compose(ctx context.Context, sql string, opts Options) (*SafetyReport, error) {
	impact, err := c.parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	rep := &SafetyReport{
		ID:          uuid.NewString(),
		SQL:         impact.SQL,
		Type:        impact.Type,
		Assessment:  risk.Assess(impact),
		Impact:      Summarize(impact),
		GeneratedAt: c.now().UTC(),
	}

	// The two steps only read the impact and write disjoint report fields.
	var g errgroup.Group
	if opts.IncludeDryRun {
		g.Go(func() error {
			rep.DryRun = c.simulate(ctx, impact, opts)
			return nil
		})
	}
	if opts.IncludeRollback {
		g.Go(func() error {
			rep.Rollback, rep.RollbackError = c.rollback(ctx, impact)
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info("report composed",
		"id", rep.ID,
		"type", rep.Type,
		"risk", rep.Level,
		"warnings", len(rep.Warnings),
		"dry_run", rep.DryRun != nil,
		"rollback_error", rep.RollbackError != "",
	)
	return rep, nil
}

func (c *Composer) simulate(ctx context.Context, impact *sqlparser.Impact, opts Options) (out *dryrun.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("dry-run panicked", "panic", rec)
			out = &dryrun.Outcome{
				Type:   impact.Type,
				Tables: impact.Tables(),
				Error:  fmt.Sprintf("simulation failed: %v", rec),
			}
		}
	}()
	return c.simulator.Simulate(ctx, impact, opts.SampleData)
}

// rollback returns the script and an error message. A failed generation
// stores a placeholder script; a timeout stores none.
func (c *Composer) rollback(ctx context.Context, impact *sqlparser.Impact) (*string, string) {
	ctx, cancel := context.WithTimeout(ctx, c.rollbackTimeout)
	defer cancel()

	type result struct {
		script string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		script, err := rollback.Generate(ctx, c.generator, rollback.NewRequest(impact))
		done <- result{script, err}
	}()

	// Generators that ignore ctx must not hold up the report.
	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	switch {
	case res.err == nil:
		return &res.script, ""
	case errors.Is(res.err, context.DeadlineExceeded):
		err := fmt.Errorf("%w after %s", ErrRollbackTimeout, c.rollbackTimeout)
		c.logger.Warn("rollback generation timed out", "timeout", c.rollbackTimeout)
		return nil, err.Error()
	default:
		c.logger.Warn("rollback generation failed", "error", res.err)
		placeholder := rollbackPlaceholder(res.err)
		return &placeholder, res.err.Error()
	}
}
