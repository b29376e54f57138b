package dryrun

import (
	"fmt"
	"regexp"
	"strings"
)

// Alter operation kinds, in the order they are reported.
const (
	KindAddColumn      = "ADD COLUMN"
	KindDropColumn     = "DROP COLUMN"
	KindRenameColumn   = "RENAME COLUMN"
	KindModifyColumn   = "MODIFY COLUMN"
	KindAddConstraint  = "ADD CONSTRAINT"
	KindDropConstraint = "DROP CONSTRAINT"
	KindGeneric        = "ALTER TABLE"
)

// AlterOperation is one clause recognized in an ALTER statement
type AlterOperation struct {
	Kind       string `json:"kind"`
	Column     string `json:"column,omitempty"`
	NewName    string `json:"new_name,omitempty"`
	ColumnType string `json:"column_type,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}

func (op AlterOperation) String() string {
	switch op.Kind {
	case KindAddColumn:
		colType := op.ColumnType
		if colType == "" {
			colType = "Unknown type"
		}
		return fmt.Sprintf("ADD COLUMN %s (%s)", op.Column, colType)
	case KindDropColumn, KindModifyColumn:
		return op.Kind + " " + op.Column
	case KindRenameColumn:
		return fmt.Sprintf("RENAME COLUMN %s TO %s", op.Column, op.NewName)
	case KindAddConstraint, KindDropConstraint:
		return op.Kind + " " + op.Constraint
	default:
		return op.Kind
	}
}

// AlterAnalysis is the structural reading of an ALTER statement. It is built
// from the statement text alone and does not depend on execution.
type AlterAnalysis struct {
	Operations []AlterOperation `json:"operations"`
	Columns    []string         `json:"columns_affected"`
	Summary    string           `json:"impact_summary"`
	Operation  string           `json:"alter_operation"`
}

// Impact summaries, chosen in this priority order.
const (
	SummaryRename  = "Will rename columns (data preserved)"
	SummaryDrop    = "Will permanently remove columns/constraints"
	SummaryAdd     = "Will add new columns/constraints"
	SummaryModify  = "Will modify existing column structure"
	SummaryGeneric = "Will modify table structure"
)

const ident = "[`\"\\[]?(\\w+)[`\"\\]]?"

var (
	addColumnRe      = regexp.MustCompile(`(?i)\bADD\s+(?:COLUMN\s+)?` + ident + `(?:\s+(\w+(?:\s*\(\s*\d+(?:\s*,\s*\d+)?\s*\))?))?`)
	dropColumnRe     = regexp.MustCompile(`(?i)\bDROP\s+(?:COLUMN\s+)?` + ident)
	renameColumnRe   = regexp.MustCompile(`(?i)\bRENAME\s+(?:COLUMN\s+)?` + ident + `\s+TO\s+` + ident)
	modifyColumnRe   = regexp.MustCompile(`(?i)\b(?:MODIFY(?:\s+COLUMN)?|ALTER\s+COLUMN|CHANGE(?:\s+COLUMN)?)\s+` + ident)
	addConstraintRe  = regexp.MustCompile(`(?i)\bADD\s+(?:CONSTRAINT\s+` + ident + `|(PRIMARY\s+KEY|FOREIGN\s+KEY|UNIQUE|CHECK|INDEX|KEY))`)
	dropConstraintRe = regexp.MustCompile(`(?i)\bDROP\s+(?:(?:CONSTRAINT|INDEX|KEY|FOREIGN\s+KEY)\s+` + ident + `|(PRIMARY\s+KEY))`)

	genericAddRe    = regexp.MustCompile(`(?i)\bADD\b`)
	genericDropRe   = regexp.MustCompile(`(?i)\bDROP\b`)
	genericRenameRe = regexp.MustCompile(`(?i)\bRENAME\b`)
	genericModifyRe = regexp.MustCompile(`(?i)\b(?:MODIFY|ALTER\s+COLUMN|CHANGE)\b`)

	spaceRe = regexp.MustCompile(`\s+`)
)

// keywords that follow ADD/DROP but are not column names
var clauseKeywords = map[string]bool{
	"COLUMN":     true,
	"CONSTRAINT": true,
	"INDEX":      true,
	"KEY":        true,
	"PRIMARY":    true,
	"UNIQUE":     true,
	"FOREIGN":    true,
	"CHECK":      true,
	"PARTITION":  true,
	"FULLTEXT":   true,
	"SPATIAL":    true,
	"IF":         true,
}

// AnalyzeAlter reads the operations out of an ALTER statement. Statements it
// cannot recognize still yield a generic operation and summary.
func AnalyzeAlter(sql string) *AlterAnalysis {
	var ops []AlterOperation

	for _, m := range addColumnRe.FindAllStringSubmatch(sql, -1) {
		if clauseKeywords[strings.ToUpper(m[1])] {
			continue
		}
		ops = append(ops, AlterOperation{
			Kind:       KindAddColumn,
			Column:     m[1],
			ColumnType: strings.ToUpper(spaceRe.ReplaceAllString(m[2], "")),
		})
	}
	for _, m := range dropColumnRe.FindAllStringSubmatch(sql, -1) {
		if clauseKeywords[strings.ToUpper(m[1])] {
			continue
		}
		ops = append(ops, AlterOperation{Kind: KindDropColumn, Column: m[1]})
	}
	for _, m := range renameColumnRe.FindAllStringSubmatch(sql, -1) {
		ops = append(ops, AlterOperation{Kind: KindRenameColumn, Column: m[1], NewName: m[2]})
	}
	for _, m := range modifyColumnRe.FindAllStringSubmatch(sql, -1) {
		if clauseKeywords[strings.ToUpper(m[1])] {
			continue
		}
		ops = append(ops, AlterOperation{Kind: KindModifyColumn, Column: m[1]})
	}
	for _, m := range addConstraintRe.FindAllStringSubmatch(sql, -1) {
		ops = append(ops, AlterOperation{Kind: KindAddConstraint, Constraint: constraintName(m)})
	}
	for _, m := range dropConstraintRe.FindAllStringSubmatch(sql, -1) {
		ops = append(ops, AlterOperation{Kind: KindDropConstraint, Constraint: constraintName(m)})
	}

	if len(ops) == 0 {
		ops = append(ops, genericOperation(sql))
	}

	analysis := &AlterAnalysis{
		Operations: ops,
		Columns:    touchedColumns(ops),
		Summary:    summarize(ops),
	}

	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	analysis.Operation = strings.Join(names, ", ")
	return analysis
}

func constraintName(m []string) string {
	if m[1] != "" {
		return m[1]
	}
	return strings.ToUpper(spaceRe.ReplaceAllString(m[2], " "))
}

func genericOperation(sql string) AlterOperation {
	switch {
	case genericAddRe.MatchString(sql):
		return AlterOperation{Kind: "ADD"}
	case genericDropRe.MatchString(sql):
		return AlterOperation{Kind: "DROP"}
	case genericRenameRe.MatchString(sql):
		return AlterOperation{Kind: "RENAME"}
	case genericModifyRe.MatchString(sql):
		return AlterOperation{Kind: "MODIFY"}
	default:
		return AlterOperation{Kind: KindGeneric}
	}
}

// touchedColumns lists every column named by ops, first-seen order, no repeats.
func touchedColumns(ops []AlterOperation) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(name string) {
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	for _, op := range ops {
		add(op.Column)
		add(op.NewName)
	}
	return out
}

func summarize(ops []AlterOperation) string {
	var rename, drop, add, modify bool
	for _, op := range ops {
		switch {
		case strings.HasPrefix(op.Kind, "RENAME"):
			rename = true
		case strings.HasPrefix(op.Kind, "DROP"):
			drop = true
		case strings.HasPrefix(op.Kind, "ADD"):
			add = true
		case strings.HasPrefix(op.Kind, "MODIFY"):
			modify = true
		}
	}
	switch {
	case rename:
		return SummaryRename
	case drop:
		return SummaryDrop
	case add:
		return SummaryAdd
	case modify:
		return SummaryModify
	default:
		return SummaryGeneric
	}
}
