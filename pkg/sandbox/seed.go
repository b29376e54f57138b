package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SampleData maps a table name to the rows loaded into it before simulation.
// A row is either a map of column name to value or a positional slice of
// values. Positional columns are named column1, column2, and so on.
type SampleData map[string][]any

// Empty reports whether there is nothing to seed
func (d SampleData) Empty() bool {
	for _, rows := range d {
		if len(rows) > 0 {
			return false
		}
	}
	return true
}

// Tables returns the seeded table names in sorted order
func (d SampleData) Tables() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seed creates one untyped table per entry in data and inserts its rows.
// Tables with no rows are still created so statements against them run.
func (s *Sandbox) Seed(ctx context.Context, data SampleData) error {
	if s.db == nil {
		return ErrClosed
	}
	for _, table := range data.Tables() {
		if err := s.seedTable(ctx, table, data[table]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sandbox) seedTable(ctx context.Context, table string, rows []any) error {
	columns, err := seedColumns(table, rows)
	if err != nil {
		return err
	}

	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		params[i] = ":c" + itoa(i)
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return &EngineError{Code: CodeSeedFailed, Message: "failed to create table " + table, Err: err}
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(params, ", "))

	for i, row := range rows {
		args, err := bindRow(columns, row)
		if err != nil {
			return &EngineError{Code: CodeSeedFailed, Message: fmt.Sprintf("row %d of %s", i, table), Err: err}
		}
		if _, err := s.db.NamedExecContext(ctx, insert, args); err != nil {
			return &EngineError{Code: CodeSeedFailed, Message: fmt.Sprintf("failed to insert row %d into %s", i, table), Err: err}
		}
	}

	if len(rows) > 0 {
		s.seeded = true
	}
	s.logger.Debug("sandbox table seeded", "table", table, "rows", len(rows), "columns", len(columns))
	return nil
}

// seedColumns derives the column list: map keys in sorted order, then any
// positional columns beyond them.
func seedColumns(table string, rows []any) ([]string, error) {
	keys := map[string]struct{}{}
	width := 0
	for i, row := range rows {
		switch r := row.(type) {
		case map[string]any:
			for k := range r {
				keys[k] = struct{}{}
			}
		case []any:
			if len(r) > width {
				width = len(r)
			}
		default:
			return nil, &EngineError{
				Code:    CodeSeedFailed,
				Message: fmt.Sprintf("row %d of %s must be an object or an array, got %T", i, table, row),
			}
		}
	}

	columns := make([]string, 0, len(keys)+width)
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	for i := 1; i <= width; i++ {
		name := "column" + itoa(i)
		if _, ok := keys[name]; !ok {
			columns = append(columns, name)
		}
	}

	if len(columns) == 0 {
		// SQLite refuses a table with no columns
		columns = append(columns, "column1")
	}
	return columns, nil
}

// bindRow maps a row onto the generated :cN parameters. Missing values bind NULL.
func bindRow(columns []string, row any) (map[string]any, error) {
	args := make(map[string]any, len(columns))
	for i := range columns {
		args["c"+itoa(i)] = nil
	}

	switch r := row.(type) {
	case map[string]any:
		for i, col := range columns {
			if v, ok := r[col]; ok {
				args["c"+itoa(i)] = scalar(v)
			}
		}
	case []any:
		for i, v := range r {
			idx := indexOf(columns, "column"+itoa(i+1))
			if idx < 0 {
				return nil, fmt.Errorf("positional value %d has no column", i+1)
			}
			args["c"+itoa(idx)] = scalar(v)
		}
	}
	return args, nil
}

// scalar converts a decoded JSON or YAML value into something the driver binds.
func scalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, []byte, time.Time:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	default:
		return fmt.Sprint(x)
	}
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
