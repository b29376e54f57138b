package sqlparser

import (
	"encoding/json"
	"sort"

	"github.com/xwb1989/sqlparser"
)

// StatementType represents the type of SQL statement
type StatementType int

const (
	StatementUnknown StatementType = iota
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
	StatementCreate
	StatementAlter
	StatementDrop
	StatementTruncate
)

// String implements the Stringer interface for StatementType
func (s StatementType) String() string {
	switch s {
	case StatementSelect:
		return "SELECT"
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	case StatementCreate:
		return "CREATE"
	case StatementAlter:
		return "ALTER"
	case StatementDrop:
		return "DROP"
	case StatementTruncate:
		return "TRUNCATE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the statement type as its keyword.
func (s StatementType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a keyword written by MarshalJSON.
func (s *StatementType) UnmarshalJSON(data []byte) error {
	var keyword string
	if err := json.Unmarshal(data, &keyword); err != nil {
		return err
	}
	*s = ParseStatementType(keyword)
	return nil
}

// ParseStatementType maps a keyword back to a StatementType.
func ParseStatementType(s string) StatementType {
	for t := StatementSelect; t <= StatementTruncate; t++ {
		if t.String() == s {
			return t
		}
	}
	return StatementUnknown
}

// Impact describes what a single statement touches: its type, every table it
// references, the columns it can change and whether a predicate narrows it.
//
// An Impact is immutable once built. Accessors hand out copies.
type Impact struct {
	SQL      string
	Type     StatementType
	HasWhere bool
	Where    string

	tables  []string
	columns map[string][]string
	target  string
	ast     sqlparser.Statement
}

// Tables returns the sorted set of referenced table names.
func (i *Impact) Tables() []string {
	return append([]string(nil), i.tables...)
}

// Columns returns table -> affected column names.
//
// A table mapped to an empty slice has all of its columns potentially
// affected. A table with no entry has no identified columns.
func (i *Impact) Columns() map[string][]string {
	out := make(map[string][]string, len(i.columns))
	for table, cols := range i.columns {
		out[table] = append([]string{}, cols...)
	}
	return out
}

// ColumnsFor returns the affected columns for one table and whether the table
// has an entry at all.
func (i *Impact) ColumnsFor(table string) ([]string, bool) {
	cols, ok := i.columns[table]
	if !ok {
		return nil, false
	}
	return append([]string{}, cols...), true
}

// AllColumns reports whether every column of table is potentially affected.
func (i *Impact) AllColumns(table string) bool {
	cols, ok := i.columns[table]
	return ok && len(cols) == 0
}

// ColumnCount is the number of distinct named columns across all tables.
func (i *Impact) ColumnCount() int {
	n := 0
	for _, cols := range i.columns {
		n += len(cols)
	}
	return n
}

// PrimaryTable is the statement's target table, or "" when nothing was found.
func (i *Impact) PrimaryTable() string {
	if i.target != "" {
		return i.target
	}
	if len(i.tables) > 0 {
		return i.tables[0]
	}
	return ""
}

// AST returns the parsed statement. It is nil for statements only the
// extended grammar accepts.
func (i *Impact) AST() sqlparser.Statement {
	return i.ast
}

// tableSet collects names without duplicates.
type tableSet map[string]struct{}

func (s tableSet) add(name string) {
	if name != "" {
		s[name] = struct{}{}
	}
}

func (s tableSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
