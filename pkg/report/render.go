package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
)

const width = 80

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// Badge returns the marker shown next to a risk level
func Badge(level risk.Level) string {
	switch level {
	case risk.Low:
		return "✅"
	case risk.High:
		return "🚨"
	default:
		return "⚠️"
	}
}

// Render formats a report as plain text. Sections appear in a fixed order:
// header, SQL, risk, statement type, impact, warnings, explanation, dry-run
// and rollback script. Empty optional sections are left out.
func Render(rep *SafetyReport) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	section := func(title string) {
		line("%s:", title)
		line("%s", lightRule)
	}

	line("%s", heavyRule)
	line("SAFETY REPORT")
	line("%s", heavyRule)
	line("")

	section("SQL Statement")
	line("%s", rep.SQL)
	line("")

	line("Risk Level: %s %s", Badge(rep.Level), rep.Level)
	line("")
	line("Statement Type: %s", rep.Type)
	line("")

	section("Impact Analysis")
	line("  Tables Affected: %d", rep.Impact.TableCount)
	if len(rep.Impact.Tables) > 0 {
		line("  Tables: %s", strings.Join(rep.Impact.Tables, ", "))
	}
	line("  Columns Affected: %d", rep.Impact.ColumnCount)
	for _, table := range sortedKeys(rep.Impact.ColumnsByTable) {
		cols := rep.Impact.ColumnsByTable[table]
		if len(cols) == 0 {
			line("    - %s: All columns", table)
		} else {
			line("    - %s: %s", table, strings.Join(cols, ", "))
		}
	}
	line("  Has WHERE Clause: %t", rep.Impact.HasWhere)
	if rep.Impact.Where != "" {
		line("  WHERE: %s", rep.Impact.Where)
	}
	line("")

	if len(rep.Warnings) > 0 {
		section("Warnings")
		for _, w := range rep.Warnings {
			line("  %s", w)
		}
		line("")
	}

	section("Explanation")
	line("  %s", rep.Explanation)
	line("")

	if rep.DryRun != nil {
		section("Dry Run Simulation")
		writeDryRun(line, rep.DryRun, false)
		line("")
	}

	if rep.Rollback != nil || rep.RollbackError != "" {
		section("Rollback Script")
		if rep.RollbackError != "" {
			line("  ⚠️  %s", rep.RollbackError)
			line("")
		}
		if rep.Rollback != nil {
			line("%s", *rep.Rollback)
			line("")
		}
	}

	line("%s", heavyRule)
	return b.String()
}

// RenderDryRun formats a simulation outcome on its own, including the row
// preview when there is one.
func RenderDryRun(out *dryrun.Outcome) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	line("Dry Run Simulation (%s):", out.Type)
	line("%s", lightRule)
	if len(out.Tables) > 0 {
		line("  Tables: %s", strings.Join(out.Tables, ", "))
	}
	writeDryRun(line, out, true)
	return b.String()
}

func writeDryRun(line func(string, ...any), out *dryrun.Outcome, withPreview bool) {
	switch {
	case out.Successful:
		line("  ✅ Simulation completed successfully")
		if out.RowsAffected != nil {
			line("  Estimated Rows Affected: %s", out.RowsAffected)
		}
		if out.Note != "" {
			line("  ℹ️  %s", out.Note)
		}
	case out.Alter != nil:
		line("  📊 ALTER Statement Analysis:")
		line("  Operation: %s", out.Alter.Operation)
		line("  Impact: %s", out.Alter.Summary)
		if len(out.Alter.Columns) > 0 {
			line("  Columns Affected: %s", strings.Join(out.Alter.Columns, ", "))
		}
		if out.Note != "" {
			line("  ℹ️  %s", out.Note)
		}
		if out.Error != "" {
			line("  Error: %s", out.Error)
		}
	case out.Error != "":
		line("  ⚠️  Simulation had issues")
		line("  Error: %s", out.Error)
	case out.Note != "":
		line("  ℹ️  %s", out.Note)
		if out.RowsAffected != nil {
			line("  Estimated Rows Affected: %s", out.RowsAffected)
		}
	default:
		line("  ⚠️  Simulation had issues")
	}

	if !withPreview || out.Preview == nil {
		return
	}
	line("")
	line("  Preview (%d rows):", len(out.Preview.Rows))
	line("    %s", strings.Join(out.Preview.Columns, " | "))
	for _, row := range out.Preview.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		line("    %s", strings.Join(cells, " | "))
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
