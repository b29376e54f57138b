// Package report assembles the safety report for a statement: its impact,
// risk assessment, dry-run outcome and rollback script.
package report

import (
	"time"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
	"github.com/wemcdonald/sqlsafety/pkg/sandbox"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// SafetyReport is the complete analysis of one statement
type SafetyReport struct {
	ID   string                  `json:"id"`
	SQL  string                  `json:"sql"`
	Type sqlparser.StatementType `json:"statement_type"`
	risk.Assessment
	Impact        ImpactSummary   `json:"impact"`
	Rollback      *string         `json:"rollback_script"`
	RollbackError string          `json:"rollback_error,omitempty"`
	DryRun        *dryrun.Outcome `json:"dry_run"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ImpactSummary aggregates the impact of a statement
type ImpactSummary struct {
	TableCount     int                 `json:"tables_affected"`
	Tables         []string            `json:"tables"`
	ColumnCount    int                 `json:"columns_affected"`
	ColumnsByTable map[string][]string `json:"columns_by_table"`
	HasWhere       bool                `json:"has_where_clause"`
	Where          string              `json:"where_clause,omitempty"`
}

// Summarize aggregates an impact into counts
func Summarize(impact *sqlparser.Impact) ImpactSummary {
	tables := impact.Tables()
	columns := impact.Columns()
	return ImpactSummary{
		TableCount:     len(tables),
		Tables:         tables,
		ColumnCount:    impact.ColumnCount(),
		ColumnsByTable: columns,
		HasWhere:       impact.HasWhere,
		Where:          impact.Where,
	}
}

// Options selects the optional parts of a report
type Options struct {
	IncludeRollback bool               `json:"include_rollback"`
	IncludeDryRun   bool               `json:"include_dry_run"`
	SampleData      sandbox.SampleData `json:"sample_data,omitempty"`
}

// DefaultOptions enables the rollback and the dry-run
func DefaultOptions() Options {
	return Options{
		IncludeRollback: true,
		IncludeDryRun:   true,
	}
}

// rollbackPlaceholder is stored as the script when generation fails.
func rollbackPlaceholder(err error) string {
	return "-- Error generating rollback: " + err.Error() + "\n-- Manual rollback may be required."
}
