// Package risk classifies a parsed statement as Low, Medium or High risk and
// explains why.
package risk

import (
	"fmt"
	"strings"

	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// Level is a three-tier risk classification
type Level string

const (
	Low    Level = "Low"
	Medium Level = "Medium"
	High   Level = "High"
)

// multiTableThreshold is the table count above which a fan-out warning is raised.
const multiTableThreshold = 3

// Assessment is the result of assessing one statement
type Assessment struct {
	Level       Level    `json:"risk_level"`
	Warnings    []string `json:"warnings"`
	Explanation string   `json:"explanation"`
}

// Assess applies the fixed classification policy to an impact. It reads
// nothing but the impact and always returns the same result for it.
func Assess(impact *sqlparser.Impact) Assessment {
	level := LevelFor(impact.Type)
	tables := impact.Tables()

	return Assessment{
		Level:       level,
		Warnings:    warnings(level, impact.Type, impact.HasWhere, tables),
		Explanation: explanation(level, impact.Type, impact.HasWhere, tables),
	}
}

// LevelFor maps a statement type to its risk level
func LevelFor(stmtType sqlparser.StatementType) Level {
	switch stmtType {
	case sqlparser.StatementAlter, sqlparser.StatementDrop, sqlparser.StatementTruncate:
		return High
	case sqlparser.StatementUpdate, sqlparser.StatementDelete:
		return Medium
	case sqlparser.StatementSelect, sqlparser.StatementInsert:
		return Low
	default:
		// Unknown statements are treated conservatively
		return Medium
	}
}

func warnings(level Level, stmtType sqlparser.StatementType, hasWhere bool, tables []string) []string {
	out := []string{}

	if level == High {
		switch stmtType {
		case sqlparser.StatementAlter:
			out = append(out, "HIGH RISK: ALTER statements modify table structure and cannot be easily undone.")
		case sqlparser.StatementDrop:
			out = append(out, "HIGH RISK: DROP statements permanently delete database objects (tables, columns, etc.).")
		case sqlparser.StatementTruncate:
			out = append(out, "HIGH RISK: TRUNCATE permanently deletes all rows from a table without logging individual row deletions.")
		}
	}

	if isRowModification(stmtType) && !hasWhere {
		out = append(out, fmt.Sprintf(
			"CRITICAL: This %s statement lacks a WHERE clause and will affect ALL rows in %s.",
			stmtType, joinTables(tables, "target table(s)")))
	}

	if len(tables) > multiTableThreshold {
		out = append(out, fmt.Sprintf(
			"WARNING: This statement affects %d tables, increasing the risk of unintended side effects.",
			len(tables)))
	}

	return out
}

func explanation(level Level, stmtType sqlparser.StatementType, hasWhere bool, tables []string) string {
	parts := []string{fmt.Sprintf("Risk Level: %s", level)}

	switch level {
	case High:
		parts = append(parts, fmt.Sprintf(
			"This is a %s statement, which is classified as HIGH RISK because it permanently modifies database structure or deletes data without row-level logging.",
			stmtType))
	case Medium:
		switch {
		case isRowModification(stmtType) && !hasWhere:
			parts = append(parts, fmt.Sprintf(
				"This %s statement will affect ALL rows in %s because it lacks a WHERE clause.",
				stmtType, joinTables(tables, "the target table")))
		case isRowModification(stmtType):
			parts = append(parts, fmt.Sprintf(
				"This %s statement will modify data in %s.",
				stmtType, joinTables(tables, "the target table")))
		default:
			parts = append(parts, "The statement type could not be classified, so it is treated as MEDIUM RISK.")
		}
	case Low:
		switch stmtType {
		case sqlparser.StatementSelect:
			parts = append(parts, "This is a SELECT statement (read-only), which poses minimal risk.")
		case sqlparser.StatementInsert:
			parts = append(parts, fmt.Sprintf(
				"This INSERT statement will add new rows to %s.",
				joinTables(tables, "the target table")))
		}
	}

	return strings.Join(parts, " ")
}

func isRowModification(stmtType sqlparser.StatementType) bool {
	return stmtType == sqlparser.StatementUpdate || stmtType == sqlparser.StatementDelete
}

func joinTables(tables []string, fallback string) string {
	if len(tables) == 0 {
		return fallback
	}
	return strings.Join(tables, ", ")
}
