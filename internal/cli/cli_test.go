package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(env, "")
	}

	analyzeFlags.sql, analyzeFlags.output, analyzeFlags.sampleData = "", "", ""
	analyzeFlags.noRollback, analyzeFlags.noDryRun = false, false
	analyzeFlags.format = formatText
	dryRunFlags.sql, dryRunFlags.sampleData, dryRunFlags.format = "", "", formatText

	var out, errOut bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&errOut)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(append(args, "--provider", "none"))
	err := RootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAnalyzeInline(t *testing.T) {
	out, err := execute(t, "", "analyze", "-s", "UPDATE users SET status = 'x'")
	require.NoError(t, err)

	assert.Contains(t, out, "SAFETY REPORT")
	assert.Contains(t, out, "Risk Level: ⚠️ Medium")
	assert.Contains(t, out, "Dry Run Simulation:")
	assert.Contains(t, out, "Rollback Script:")
	assert.Contains(t, out, "no rollback generator configured")
}

func TestAnalyzeFromFileAsJSON(t *testing.T) {
	sqlFile := writeTemp(t, "change.sql", "DELETE FROM users WHERE id = 1")
	seed := writeTemp(t, "rows.yaml", "users:\n  - {id: 1, name: alice}\n  - {id: 2, name: bob}\n")

	out, err := execute(t, "", "report", sqlFile, "--format", "json", "--no-rollback", "--sample-data", seed)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "DELETE", decoded["statement_type"])
	require.Contains(t, decoded, "rollback_script")
	assert.Nil(t, decoded["rollback_script"])

	dryRun, ok := decoded["dry_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, dryRun["simulation_successful"])
	assert.Equal(t, float64(1), dryRun["estimated_rows_affected"])
}

func TestAnalyzeFromStdinToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.txt")

	out, err := execute(t, "DROP TABLE users", "analyze", "--no-dry-run", "--no-rollback", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Risk Level: 🚨 High")
	assert.NotContains(t, string(data), "Dry Run Simulation:")
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"analyze"}, "no SQL provided"},
		{"parse error", []string{"analyze", "-s", "SELEC 1"}, "failed to parse"},
		{"bad format", []string{"analyze", "-s", "SELECT 1", "--format", "xml"}, "unknown format"},
		{"missing sample data", []string{"analyze", "-s", "SELECT 1", "--sample-data", "/nonexistent/rows.yaml"}, "failed to read sample data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDryRunCommand(t *testing.T) {
	seed := writeTemp(t, "rows.json", `{"users": [{"id": 1, "name": "alice"}, {"id": 2, "name": "bob"}]}`)

	out, err := execute(t, "", "dry-run", "-s", "SELECT * FROM users", "--sample-data", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry Run Simulation (SELECT):")
	assert.Contains(t, out, "Simulation completed successfully")
	assert.Contains(t, out, "Preview (2 rows):")
	assert.Contains(t, out, "alice")
}
