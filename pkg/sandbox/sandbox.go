// Package sandbox provides a throwaway in-memory SQLite engine for simulating
// statements without touching real data.
//
// Every Sandbox is private to its caller and is destroyed on Close. Use With
// to scope one so it is released on every exit path:
//
//	err := sandbox.With(ctx, seed, func(sb *sandbox.Sandbox) error {
//		n, err := sb.Count(ctx, "users")
//		...
//	})
package sandbox

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"
	memoryDSN  = ":memory:"
)

// Sandbox wraps one private in-memory database
type Sandbox struct {
	db     *sqlx.DB
	logger *slog.Logger
	seeded bool
}

// Option configures a Sandbox
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for engine diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates a fresh, empty in-memory database.
func Open(ctx context.Context, opts ...Option) (*Sandbox, error) {
	o := buildOptions(opts)

	db, err := sqlx.Open(driverName, memoryDSN)
	if err != nil {
		return nil, &EngineError{Code: CodeOpenFailed, Message: "failed to open sandbox", Err: err}
	}

	// Each connection to :memory: is its own database, so pin the pool to one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &EngineError{Code: CodeOpenFailed, Message: "failed to open sandbox", Err: err}
	}

	o.logger.Debug("sandbox opened")
	return &Sandbox{db: db, logger: o.logger}, nil
}

// With opens a sandbox, seeds it and runs fn. The sandbox is closed when fn
// returns, panics, or seeding fails.
func With(ctx context.Context, seed SampleData, fn func(*Sandbox) error, opts ...Option) error {
	sb, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer sb.Close()

	if err := sb.Seed(ctx, seed); err != nil {
		return err
	}
	return fn(sb)
}

// Close releases the database. It is safe to call more than once.
func (s *Sandbox) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Debug("sandbox closed", "seeded", s.seeded)
	return err
}

// TableExists checks the catalog for a table or view with the given name
func (s *Sandbox) TableExists(ctx context.Context, name string) (bool, error) {
	if s.db == nil {
		return false, ErrClosed
	}
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`,
		name)
	if err != nil {
		return false, classify(CodeQueryFailed, "failed to read catalog", err)
	}
	return n > 0, nil
}

// Count returns the number of rows in table
func (s *Sandbox) Count(ctx context.Context, table string) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quoteIdent(table)); err != nil {
		return 0, classify(CodeQueryFailed, "failed to count rows in "+table, err)
	}
	return n, nil
}

// Exec runs a statement and returns the number of rows the engine reports as changed.
func (s *Sandbox) Exec(ctx context.Context, query string) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		s.logger.Debug("sandbox exec failed", "error", err)
		return 0, classify(CodeExecFailed, "failed to execute statement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Result holds the rows read by Query
type Result struct {
	Columns []string
	Rows    [][]any
	Total   int
}

// Query runs a statement that returns rows. At most limit rows are kept, but
// Total counts all of them. A limit below zero keeps every row.
func (s *Sandbox) Query(ctx context.Context, query string, limit int) (*Result, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, classify(CodeQueryFailed, "failed to run query", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(CodeQueryFailed, "failed to read columns", err)
	}

	result := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		result.Total++
		if limit >= 0 && len(result.Rows) >= limit {
			continue
		}
		values, err := rows.SliceScan()
		if err != nil {
			return nil, classify(CodeQueryFailed, "failed to scan row", err)
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(CodeQueryFailed, "failed to read rows", err)
	}
	return result, nil
}

// Preview reads the first limit rows of table
func (s *Sandbox) Preview(ctx context.Context, table string, limit int) (*Result, error) {
	return s.Query(ctx, "SELECT * FROM "+quoteIdent(table)+" LIMIT "+itoa(limit), limit)
}

func normalizeRow(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}

// quoteIdent quotes an identifier for SQLite
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
