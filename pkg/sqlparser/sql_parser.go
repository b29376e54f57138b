package sqlparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// ErrEmptyQuery is returned when an empty query is provided
var ErrEmptyQuery = fmt.Errorf("empty query")

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("failed to parse SQL")

// unknownTable names an UPDATE target that could not be resolved.
const unknownTable = "unknown"

// ParseError is returned when the text is not valid SQL for the parser's dialect.
type ParseError struct {
	SQL     string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s", ErrParse, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// SQLParser handles the parsing of SQL statements into an Impact
type SQLParser struct{}

// NewSQLParser creates a new SQL parser instance
func NewSQLParser() *SQLParser {
	return &SQLParser{}
}

// Parse parses a single SQL statement and derives its Impact: statement type,
// every referenced table, the affected columns per table and the WHERE
// predicate. Returns ErrEmptyQuery for blank input and a *ParseError when the
// text cannot be parsed.
func (p *SQLParser) Parse(query string) (*Impact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ast, err := sqlparser.Parse(query)
	if err != nil {
		// CTEs and column-level ALTER forms need the extended grammar.
		if impact, ok := parseExtended(query); ok {
			return impact, nil
		}
		return nil, &ParseError{SQL: query, Message: err.Error(), Err: err}
	}

	impact := &Impact{
		SQL:  query,
		Type: statementType(ast, query),
		ast:  ast,
	}

	tables := collectTables(ast)
	impact.columns, impact.target = affectedColumns(ast, impact.Type, tables)
	for table := range impact.columns {
		tables.add(table)
	}
	impact.tables = tables.sorted()
	impact.Where, impact.HasWhere = whereClause(ast)

	return impact, nil
}

// statementType maps the AST root to a StatementType. The grammar reports
// CREATE INDEX as an alter action, so the leading keyword decides there.
func statementType(ast sqlparser.Statement, query string) StatementType {
	switch stmt := ast.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return StatementSelect
	case *sqlparser.Insert:
		return StatementInsert
	case *sqlparser.Update:
		return StatementUpdate
	case *sqlparser.Delete:
		return StatementDelete
	case *sqlparser.DDL:
		switch stmt.Action {
		case sqlparser.CreateStr:
			return StatementCreate
		case sqlparser.AlterStr:
			if leadingKeyword(query) == "CREATE" {
				return StatementCreate
			}
			return StatementAlter
		case "rename":
			return StatementAlter
		case sqlparser.DropStr:
			return StatementDrop
		case "truncate":
			return StatementTruncate
		}
	case *sqlparser.DBDDL:
		switch stmt.Action {
		case sqlparser.CreateStr:
			return StatementCreate
		case sqlparser.DropStr:
			return StatementDrop
		}
	}
	return StatementUnknown
}

func leadingKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// collectTables walks the whole statement, subqueries and joins included, and
// gathers every table reference.
func collectTables(ast sqlparser.Statement) tableSet {
	tables := make(tableSet)

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case sqlparser.TableName:
			tables.add(n.Name.String())
		case *sqlparser.ColName, *sqlparser.StarExpr:
			// Qualifiers here are aliases or table prefixes, not references.
			return false, nil
		case sqlparser.TableNames:
			// DELETE targets may be aliases; the real tables are in TableExprs.
			return false, nil
		}
		return true, nil
	}, ast)

	// The walker does not descend into DDL nodes.
	switch ddl := ast.(type) {
	case *sqlparser.DDL:
		tables.add(ddl.Table.Name.String())
		tables.add(ddl.NewName.Name.String())
	case *sqlparser.DBDDL:
		tables.add(ddl.DBName)
	}

	return tables
}

// affectedColumns builds the table -> columns mapping for the statement type and
// reports the statement's target table.
func affectedColumns(ast sqlparser.Statement, stmtType StatementType, tables tableSet) (map[string][]string, string) {
	columns := make(map[string][]string)

	switch stmt := ast.(type) {
	case *sqlparser.Update:
		target := updateTarget(stmt, tables)
		cols := make(tableSet)
		for _, expr := range stmt.Exprs {
			if expr.Name != nil {
				cols.add(expr.Name.Name.String())
			}
		}
		columns[target] = cols.sorted()
		return columns, target

	case *sqlparser.Insert:
		target := stmt.Table.Name.String()
		cols := make(tableSet)
		for _, col := range stmt.Columns {
			cols.add(col.String())
		}
		columns[target] = cols.sorted()
		return columns, target
	}

	switch stmtType {
	case StatementDelete, StatementAlter, StatementDrop, StatementTruncate:
		for table := range tables {
			columns[table] = []string{}
		}
	}
	return columns, firstTarget(ast, tables)
}

// updateTarget resolves the single table an UPDATE writes to. Multi-table
// updates fall back to the first table found, then to "unknown".
func updateTarget(stmt *sqlparser.Update, tables tableSet) string {
	if len(stmt.TableExprs) == 1 {
		if name, ok := aliasedTableName(stmt.TableExprs[0]); ok {
			return name
		}
	}
	if t := firstTableExpr(stmt.TableExprs); t != "" {
		return t
	}
	if sorted := tables.sorted(); len(sorted) > 0 {
		return sorted[0]
	}
	return unknownTable
}

// firstTarget returns the table a statement primarily acts on.
func firstTarget(ast sqlparser.Statement, tables tableSet) string {
	switch stmt := ast.(type) {
	case *sqlparser.Delete:
		if t := firstTableExpr(stmt.TableExprs); t != "" {
			return t
		}
	case *sqlparser.Select:
		if t := firstTableExpr(stmt.From); t != "" {
			return t
		}
	case *sqlparser.DDL:
		if !stmt.Table.IsEmpty() {
			return stmt.Table.Name.String()
		}
	}
	if sorted := tables.sorted(); len(sorted) > 0 {
		return sorted[0]
	}
	return ""
}

// firstTableExpr finds the left-most table name in a list of table expressions
func firstTableExpr(exprs sqlparser.TableExprs) string {
	for _, expr := range exprs {
		switch table := expr.(type) {
		case *sqlparser.AliasedTableExpr:
			if name, ok := aliasedTableName(table); ok {
				return name
			}
		case *sqlparser.JoinTableExpr:
			if name := firstTableExpr(sqlparser.TableExprs{table.LeftExpr, table.RightExpr}); name != "" {
				return name
			}
		case *sqlparser.ParenTableExpr:
			if name := firstTableExpr(table.Exprs); name != "" {
				return name
			}
		}
	}
	return ""
}

func aliasedTableName(expr sqlparser.TableExpr) (string, bool) {
	aliased, ok := expr.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", false
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok || name.IsEmpty() {
		return "", false
	}
	return name.Name.String(), true
}

// whereClause reports whether a WHERE predicate exists anywhere in the
// statement and renders it. The statement's own predicate wins over one
// found in a subquery.
func whereClause(ast sqlparser.Statement) (string, bool) {
	var top *sqlparser.Where
	switch stmt := ast.(type) {
	case *sqlparser.Select:
		top = stmt.Where
	case *sqlparser.Update:
		top = stmt.Where
	case *sqlparser.Delete:
		top = stmt.Where
	}
	if isWhere(top) {
		return sqlparser.String(top.Expr), true
	}

	var found *sqlparser.Where
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if w, ok := node.(*sqlparser.Where); ok && isWhere(w) {
			found = w
			return false, errStopWalk
		}
		return true, nil
	}, ast)
	if found == nil {
		return "", false
	}
	return sqlparser.String(found.Expr), true
}

var errStopWalk = errors.New("stop walk")

func isWhere(w *sqlparser.Where) bool {
	return w != nil && w.Type == sqlparser.WhereStr && w.Expr != nil
}
