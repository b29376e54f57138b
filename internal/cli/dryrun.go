package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

var dryRunFlags struct {
	sql        string
	format     string
	sampleData string
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run [file]",
	Short: "Simulate a SQL statement in a throwaway in-memory database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(dryRunFlags.format); err != nil {
			return err
		}
		query, err := readSQL(cmd, dryRunFlags.sql, args)
		if err != nil {
			return err
		}
		seed, err := readSampleData(dryRunFlags.sampleData)
		if err != nil {
			return err
		}
		impact, err := sqlparser.NewSQLParser().Parse(query)
		if err != nil {
			return err
		}

		out := newSimulator().Simulate(cmd.Context(), impact, seed)
		if dryRunFlags.format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), out)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), report.RenderDryRun(out))
		return err
	},
}

func init() {
	f := dryRunCmd.Flags()
	f.StringVarP(&dryRunFlags.sql, "sql", "s", "", "SQL statement to simulate")
	f.StringVar(&dryRunFlags.format, "format", formatText, "output format: text or json")
	f.StringVar(&dryRunFlags.sampleData, "sample-data", "", "YAML or JSON file with rows to seed the simulation")
}
