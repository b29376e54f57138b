// Package sqlsafety analyzes a SQL statement before it runs: what it touches,
// how risky it is, what a throwaway simulation observes and how to undo it.
package sqlsafety

import (
	"context"

	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

// Analyze builds a full report for sql with the rollback and dry-run enabled
func Analyze(ctx context.Context, sql string, opts ...report.Option) (*SafetyReport, error) {
	return AnalyzeWith(ctx, sql, report.DefaultOptions(), opts...)
}

// AnalyzeWith builds a report with explicit options
func AnalyzeWith(ctx context.Context, sql string, options Options, opts ...report.Option) (*SafetyReport, error) {
	return report.NewComposer(opts...).Compose(ctx, sql, options)
}

// Assess parses sql and returns only its risk assessment
func Assess(sql string) (*Impact, Assessment, error) {
	impact, err := sqlparser.NewSQLParser().Parse(sql)
	if err != nil {
		return nil, Assessment{}, err
	}
	return impact, risk.Assess(impact), nil
}

// Render formats a report as text
func Render(rep *SafetyReport) string {
	return report.Render(rep)
}

// Re-export types for convenience
type (
	SafetyReport = report.SafetyReport
	Options      = report.Options
	Impact       = sqlparser.Impact
	Assessment   = risk.Assessment
	ParseError   = sqlparser.ParseError
)
