package sqlparser

import (
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// A tidb parser is not safe for concurrent use.
var extendedParsers = sync.Pool{
	New: func() any { return parser.New() },
}

// parseExtended builds an Impact with the TiDB grammar, which accepts
// statements the primary grammar rejects: WITH clauses, RENAME COLUMN and
// other MySQL 8 forms. It only succeeds for a single statement.
func parseExtended(query string) (*Impact, bool) {
	p := extendedParsers.Get().(*parser.Parser)
	defer extendedParsers.Put(p)

	stmts, _, err := p.Parse(query, "", "")
	if err != nil || len(stmts) != 1 {
		return nil, false
	}
	stmt := stmts[0]

	impact := &Impact{
		SQL:  query,
		Type: extendedStatementType(stmt),
	}

	tables := extendedTables(stmt)
	impact.columns, impact.target = extendedColumns(stmt, impact.Type, tables)
	for table := range impact.columns {
		tables.add(table)
	}
	impact.tables = tables.sorted()
	impact.Where, impact.HasWhere = extendedWhere(stmt)

	return impact, true
}

func extendedStatementType(stmt ast.StmtNode) StatementType {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return StatementSelect
	case *ast.InsertStmt:
		return StatementInsert
	case *ast.UpdateStmt:
		return StatementUpdate
	case *ast.DeleteStmt:
		return StatementDelete
	case *ast.CreateTableStmt, *ast.CreateViewStmt, *ast.CreateIndexStmt, *ast.CreateDatabaseStmt:
		return StatementCreate
	case *ast.AlterTableStmt, *ast.RenameTableStmt:
		return StatementAlter
	case *ast.DropTableStmt, *ast.DropIndexStmt, *ast.DropDatabaseStmt:
		return StatementDrop
	case *ast.TruncateTableStmt:
		return StatementTruncate
	}
	return StatementUnknown
}

// tableCollector gathers table references. Names bound by a WITH clause are
// dropped at the end since they are not tables.
type tableCollector struct {
	tables tableSet
	ctes   map[string]struct{}
}

func (c *tableCollector) Enter(n ast.Node) (ast.Node, bool) {
	switch node := n.(type) {
	case *ast.TableName:
		c.tables.add(node.Name.O)
	case *ast.WithClause:
		for _, cte := range node.CTEs {
			c.ctes[cte.Name.L] = struct{}{}
		}
	}
	return n, false
}

func (c *tableCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func extendedTables(stmt ast.StmtNode) tableSet {
	c := &tableCollector{tables: make(tableSet), ctes: map[string]struct{}{}}
	stmt.Accept(c)

	switch s := stmt.(type) {
	case *ast.CreateDatabaseStmt:
		c.tables.add(s.Name.O)
	case *ast.DropDatabaseStmt:
		c.tables.add(s.Name.O)
	}

	for name := range c.tables {
		if _, ok := c.ctes[strings.ToLower(name)]; ok {
			delete(c.tables, name)
		}
	}
	return c.tables
}

// extendedColumns mirrors affectedColumns for the TiDB AST.
func extendedColumns(stmt ast.StmtNode, stmtType StatementType, tables tableSet) (map[string][]string, string) {
	columns := make(map[string][]string)

	switch s := stmt.(type) {
	case *ast.UpdateStmt:
		target := refTarget(s.TableRefs)
		if target == "" {
			if sorted := tables.sorted(); len(sorted) > 0 {
				target = sorted[0]
			} else {
				target = unknownTable
			}
		}
		cols := make(tableSet)
		for _, a := range s.List {
			if a.Column != nil {
				cols.add(a.Column.Name.O)
			}
		}
		columns[target] = cols.sorted()
		return columns, target

	case *ast.InsertStmt:
		target := refTarget(s.Table)
		cols := make(tableSet)
		for _, col := range s.Columns {
			cols.add(col.Name.O)
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

	var target string
	switch s := stmt.(type) {
	case *ast.DeleteStmt:
		target = refTarget(s.TableRefs)
	case *ast.SelectStmt:
		target = refTarget(s.From)
	case *ast.AlterTableStmt:
		target = s.Table.Name.O
	case *ast.TruncateTableStmt:
		target = s.Table.Name.O
	case *ast.CreateTableStmt:
		target = s.Table.Name.O
	case *ast.CreateIndexStmt:
		target = s.Table.Name.O
	}
	if _, ok := tables[target]; !ok {
		target = ""
	}
	if target == "" {
		if sorted := tables.sorted(); len(sorted) > 0 {
			target = sorted[0]
		}
	}
	return columns, target
}

// refTarget returns the left-most table of a FROM or target clause.
func refTarget(refs *ast.TableRefsClause) string {
	if refs == nil || refs.TableRefs == nil {
		return ""
	}
	return leftmostTable(refs.TableRefs)
}

func leftmostTable(n ast.ResultSetNode) string {
	switch node := n.(type) {
	case *ast.Join:
		if name := leftmostTable(node.Left); name != "" {
			return name
		}
		if node.Right != nil {
			return leftmostTable(node.Right)
		}
	case *ast.TableSource:
		return leftmostTable(node.Source)
	case *ast.TableName:
		return node.Name.O
	}
	return ""
}

// whereFinder records the first WHERE predicate in walk order.
type whereFinder struct {
	found ast.ExprNode
}

func (w *whereFinder) Enter(n ast.Node) (ast.Node, bool) {
	if w.found != nil {
		return n, true
	}
	switch node := n.(type) {
	case *ast.SelectStmt:
		w.found = node.Where
	case *ast.UpdateStmt:
		w.found = node.Where
	case *ast.DeleteStmt:
		w.found = node.Where
	}
	return n, w.found != nil
}

func (w *whereFinder) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

// extendedWhere prefers the statement's own predicate over one found in a
// subquery or CTE.
func extendedWhere(stmt ast.StmtNode) (string, bool) {
	var top ast.ExprNode
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		top = s.Where
	case *ast.UpdateStmt:
		top = s.Where
	case *ast.DeleteStmt:
		top = s.Where
	}
	if top == nil {
		w := &whereFinder{}
		stmt.Accept(w)
		top = w.found
	}
	if top == nil {
		return "", false
	}
	return restoreExpr(top), true
}

func restoreExpr(expr ast.ExprNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.RestoreStringSingleQuotes|format.RestoreKeyWordUppercase, &sb)
	if err := expr.Restore(ctx); err != nil {
		return ""
	}
	return sb.String()
}
