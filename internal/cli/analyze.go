package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var analyzeFlags struct {
	sql        string
	noRollback bool
	noDryRun   bool
	output     string
	format     string
	sampleData string
}

var analyzeCmd = &cobra.Command{
	Use:     "analyze [file]",
	Aliases: []string{"report"},
	Short:   "Build a safety report for a SQL statement",
	Example: `  sqlsafety analyze -s "DELETE FROM users WHERE id = 1"
  sqlsafety analyze migration.sql --format json -o report.json
  cat change.sql | sqlsafety analyze --no-rollback --sample-data rows.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.sql, "sql", "s", "", "SQL statement to analyze")
	f.BoolVar(&analyzeFlags.noRollback, "no-rollback", false, "skip rollback script generation")
	f.BoolVar(&analyzeFlags.noDryRun, "no-dry-run", false, "skip the dry-run simulation")
	f.StringVarP(&analyzeFlags.output, "output", "o", "", "write the report to a file")
	f.StringVar(&analyzeFlags.format, "format", formatText, "output format: text or json")
	f.StringVar(&analyzeFlags.sampleData, "sample-data", "", "YAML or JSON file with rows to seed the simulation")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := checkFormat(analyzeFlags.format); err != nil {
		return err
	}
	query, err := readSQL(cmd, analyzeFlags.sql, args)
	if err != nil {
		return err
	}
	seed, err := readSampleData(analyzeFlags.sampleData)
	if err != nil {
		return err
	}

	composer, err := newComposer()
	if err != nil {
		return err
	}
	rep, err := composer.Compose(cmd.Context(), query, report.Options{
		IncludeRollback: !analyzeFlags.noRollback,
		IncludeDryRun:   !analyzeFlags.noDryRun,
		SampleData:      seed,
	})
	if err != nil {
		return err
	}

	w, closeOut, err := openOutput(cmd, analyzeFlags.output)
	if err != nil {
		return err
	}
	if err := writeReport(w, rep, analyzeFlags.format); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	if analyzeFlags.output != "" {
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", analyzeFlags.output)
	}
	printVerdict(cmd.ErrOrStderr(), rep.Level)
	return nil
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q: use text or json", format)
	}
}

func writeReport(w io.Writer, rep *report.SafetyReport, format string) error {
	if format == formatJSON {
		return writeJSON(w, rep)
	}
	_, err := io.WriteString(w, report.Render(rep))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVerdict writes a one-line colored risk summary
func printVerdict(w io.Writer, level risk.Level) {
	c := color.New(color.Bold, levelColor(level))
	c.Fprintf(w, "%s %s risk\n", report.Badge(level), level)
}

func levelColor(level risk.Level) color.Attribute {
	switch level {
	case risk.Low:
		return color.FgGreen
	case risk.High:
		return color.FgRed
	default:
		return color.FgYellow
	}
}
