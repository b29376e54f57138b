// Package dryrun simulates a parsed statement against a throwaway sandbox and
// reports what it observed.
//
// Simulation never fails outright. Missing schema is an expected limitation
// and ends up in Outcome.Note. Any other engine failure is recorded in
// Outcome.Error.
package dryrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wemcdonald/sqlsafety/pkg/sandbox"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

const (
	// DefaultPreviewLimit is the number of rows kept from a SELECT
	DefaultPreviewLimit = 10
	// updatePreviewLimit is the number of rows read back after an UPDATE
	updatePreviewLimit = 5
)

const (
	noteMissingSchema = "Dry-run simulation requires actual database tables. The SQL syntax appears valid."
	noteAlterNoTable  = "Table structure not available in simulation. The SQL syntax has been validated and the operation type has been identified."
	noteAlterExecuted = "ALTER statement executed successfully in simulation. In production, this will modify the actual table structure."
	noteAlterRejected = "The SQL syntax appears valid. This operation will modify table structure in production."
	noteAlterMissing  = "ALTER references an object missing from the simulated table: %s. The SQL syntax has been validated."
	noteCreateOK      = "CREATE statement executed successfully in simulation."
	noteTruncate      = "TRUNCATE statement syntax validated. In production, this will remove all rows from the table."

	estimateUpdate = "Unknown (table may not exist in simulation)"
	estimateInsert = "Unknown (may be 1 or more)"
	estimateDrop   = "All data in affected objects will be lost"
)

// Simulator runs statements against a fresh sandbox per call. It holds no
// per-call state and is safe for concurrent use.
type Simulator struct {
	logger       *slog.Logger
	previewLimit int
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithPreviewLimit sets how many SELECT rows are kept in the preview
func WithPreviewLimit(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.previewLimit = n
		}
	}
}

// New creates a Simulator
func New(opts ...Option) *Simulator {
	s := &Simulator{
		logger:       slog.Default(),
		previewLimit: DefaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run is the per-call state: the impact, the outcome being built and the
// lazily opened sandbox.
type run struct {
	sim    *Simulator
	impact *sqlparser.Impact
	seed   sandbox.SampleData
	lazy   *sandbox.Lazy
	out    *Outcome
}

// Simulate executes impact against a sandbox seeded with seed and returns
// what happened. It does not return errors or panic; the sandbox is closed
// before it returns.
func (s *Simulator) Simulate(ctx context.Context, impact *sqlparser.Impact, seed sandbox.SampleData) (out *Outcome) {
	out = &Outcome{
		Type:   impact.Type,
		Tables: impact.Tables(),
	}

	r := &run{
		sim:    s,
		impact: impact,
		seed:   seed,
		lazy:   sandbox.NewLazy(seed, sandbox.WithLogger(s.logger)),
		out:    out,
	}
	defer func() {
		if err := r.lazy.Close(); err != nil {
			s.logger.Warn("failed to close sandbox", "error", err)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("dry-run panicked", "type", impact.Type, "panic", rec)
			out.Successful = false
			out.Error = fmt.Sprintf("simulation failed: %v", rec)
		}
	}()

	switch impact.Type {
	case sqlparser.StatementSelect:
		r.selectStmt(ctx)
	case sqlparser.StatementUpdate:
		r.update(ctx)
	case sqlparser.StatementDelete:
		r.delete(ctx)
	case sqlparser.StatementInsert:
		r.insert(ctx)
	case sqlparser.StatementCreate:
		r.create(ctx)
	case sqlparser.StatementAlter:
		r.alter(ctx)
	case sqlparser.StatementDrop:
		r.drop()
	case sqlparser.StatementTruncate:
		r.truncate(ctx)
	case sqlparser.StatementUnknown:
		r.unknown()
	default:
		panic(fmt.Sprintf("unhandled statement type %d", impact.Type))
	}

	s.logger.Debug("dry-run finished",
		"type", impact.Type,
		"successful", out.Successful,
		"sandbox_opened", r.lazy.Opened(),
	)
	return out
}

func (r *run) selectStmt(ctx context.Context) {
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	res, err := sb.Query(ctx, r.impact.SQL, r.sim.previewLimit)
	if err != nil {
		r.engineFailure("SELECT", err)
		return
	}
	r.out.Successful = true
	r.out.RowsAffected = ExactRows(int64(res.Total))
	r.out.Preview = &Preview{Columns: res.Columns, Rows: res.Rows}
}

func (r *run) update(ctx context.Context) {
	table := r.impact.PrimaryTable()
	if table == "" {
		r.out.Error = "Could not identify the table to update."
		return
	}
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	if !r.tableExists(ctx, sb, table) {
		return
	}

	if _, err := sb.Exec(ctx, r.impact.SQL); err != nil {
		r.engineFailure("UPDATE", err)
		return
	}
	r.out.Successful = true
	r.out.RowsAffected = QualitativeRows(estimateUpdate)

	// Best effort; a failed read just leaves the preview out.
	if res, err := sb.Preview(ctx, table, updatePreviewLimit); err == nil {
		r.out.Preview = &Preview{Columns: res.Columns, Rows: res.Rows}
	}
}

func (r *run) delete(ctx context.Context) {
	table := r.impact.PrimaryTable()
	if table == "" {
		r.out.Error = "Could not identify the table to delete from."
		return
	}
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}

	before, err := sb.Count(ctx, table)
	if err != nil {
		r.engineFailure("DELETE", err)
		return
	}
	if _, err := sb.Exec(ctx, r.impact.SQL); err != nil {
		r.engineFailure("DELETE", err)
		return
	}
	after, err := sb.Count(ctx, table)
	if err != nil {
		r.engineFailure("DELETE", err)
		return
	}
	r.out.Successful = true
	r.out.RowsAffected = ExactRows(before - after)
}

func (r *run) insert(ctx context.Context) {
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	// A missing target is a real failure for INSERT, not a limitation.
	if _, err := sb.Exec(ctx, r.impact.SQL); err != nil {
		r.out.Error = fmt.Sprintf("Could not simulate INSERT: %s", engineMessage(err))
		return
	}
	r.out.Successful = true
	r.out.RowsAffected = QualitativeRows(estimateInsert)
}

func (r *run) create(ctx context.Context) {
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	if _, err := sb.Exec(ctx, r.impact.SQL); err != nil {
		r.out.Note = fmt.Sprintf("CREATE statement syntax validated. Original error: %s", engineMessage(err))
		return
	}
	r.out.Successful = true
	r.out.Note = noteCreateOK
}

func (r *run) alter(ctx context.Context) {
	r.out.Alter = AnalyzeAlter(r.impact.SQL)

	table := r.impact.PrimaryTable()
	if table == "" {
		r.out.Note = noteAlterNoTable
		return
	}
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	exists, err := sb.TableExists(ctx, table)
	if err != nil {
		r.engineFailure("ALTER", err)
		return
	}
	if !exists {
		r.out.Note = noteAlterNoTable
		return
	}

	if _, err := sb.Exec(ctx, r.impact.SQL); err != nil {
		if sandbox.IsMissingObject(err) {
			r.out.Note = fmt.Sprintf(noteAlterMissing, engineMessage(err))
			return
		}
		r.out.Error = fmt.Sprintf("ALTER syntax validated, but the sandbox engine rejected the operation: %s", engineMessage(err))
		r.out.Note = noteAlterRejected
		return
	}
	r.out.Successful = true
	r.out.Note = noteAlterExecuted
}

// drop never touches the engine.
func (r *run) drop() {
	tables := r.impact.Tables()
	if len(tables) == 0 {
		r.out.Error = "Could not identify objects to be dropped."
		return
	}
	r.out.Note = fmt.Sprintf(
		"DROP statement will permanently delete: %s. This cannot be simulated without actual database objects.",
		strings.Join(tables, ", "))
	r.out.RowsAffected = QualitativeRows(estimateDrop)
}

// truncate never executes the statement. With seed data it counts the rows
// the table holds, since all of them would be lost.
func (r *run) truncate(ctx context.Context) {
	r.out.Note = noteTruncate

	table := r.impact.PrimaryTable()
	if table == "" || r.seed.Empty() {
		return
	}
	sb, ok := r.sandbox(ctx)
	if !ok {
		return
	}
	exists, err := sb.TableExists(ctx, table)
	if err != nil || !exists {
		return
	}
	n, err := sb.Count(ctx, table)
	if err != nil {
		return
	}
	r.out.RowsAffected = ExactRows(n)
	r.out.Note = fmt.Sprintf("TRUNCATE would remove all %d rows from %s. The statement was not executed.", n, table)
}

func (r *run) unknown() {
	r.out.Note = fmt.Sprintf("%s statement syntax validated. Full simulation requires actual database connection.", r.impact.Type)
}

// sandbox opens the sandbox on first use. A failure is recorded as a hard error.
func (r *run) sandbox(ctx context.Context) (*sandbox.Sandbox, bool) {
	sb, err := r.lazy.Get(ctx)
	if err != nil {
		r.out.Error = fmt.Sprintf("Could not prepare simulation: %s", engineMessage(err))
		return nil, false
	}
	return sb, true
}

// tableExists records a limitation when table is absent from the sandbox.
func (r *run) tableExists(ctx context.Context, sb *sandbox.Sandbox, table string) bool {
	exists, err := sb.TableExists(ctx, table)
	if err != nil {
		r.engineFailure(r.impact.Type.String(), err)
		return false
	}
	if !exists {
		r.sim.logger.Debug("table missing from sandbox", "table", table)
		r.out.Note = noteMissingSchema
		return false
	}
	return true
}

// engineFailure sorts an engine error into a limitation note or a hard error.
func (r *run) engineFailure(stmt string, err error) {
	r.out.Successful = false
	if sandbox.IsMissingObject(err) {
		r.sim.logger.Debug("dry-run limited by missing schema", "type", stmt, "error", err)
		r.out.Note = noteMissingSchema
		return
	}
	r.out.Error = fmt.Sprintf("Could not simulate %s: %s", stmt, engineMessage(err))
}

// engineMessage returns the driver's own message without sandbox framing.
func engineMessage(err error) string {
	var engineErr *sandbox.EngineError
	if errors.As(err, &engineErr) && engineErr.Err != nil {
		return engineErr.Err.Error()
	}
	return err.Error()
}
