package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/risk"
	"github.com/wemcdonald/sqlsafety/pkg/rollback"
	"github.com/wemcdonald/sqlsafety/pkg/sandbox"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

func TestRenderSectionOrder(t *testing.T) {
	gen := rollback.GeneratorFunc(func(context.Context, rollback.Request) (string, error) {
		return "", errors.New("no key")
	})
	rep, err := NewComposer(WithGenerator(gen)).Compose(context.Background(),
		"UPDATE users SET status = 'inactive'", DefaultOptions())
	require.NoError(t, err)

	text := Render(rep)
	sections := []string{
		"SAFETY REPORT",
		"SQL Statement:",
		"Risk Level: ⚠️ Medium",
		"Statement Type: UPDATE",
		"Impact Analysis:",
		"Warnings:",
		"Explanation:",
		"Dry Run Simulation:",
		"Rollback Script:",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(text, s)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}

	assert.Contains(t, text, "    - users: status")
	assert.Contains(t, text, "  Has WHERE Clause: false")
	assert.Contains(t, text, "  ⚠️  no key")
	assert.Contains(t, text, "-- Manual rollback may be required.")
}

func TestRenderOmitsEmptySections(t *testing.T) {
	rep, err := NewComposer().Compose(context.Background(), "SELECT * FROM users", Options{})
	require.NoError(t, err)

	text := Render(rep)
	assert.NotContains(t, text, "Warnings:")
	assert.NotContains(t, text, "Dry Run Simulation:")
	assert.NotContains(t, text, "Rollback Script:")
	assert.Contains(t, text, "Risk Level: ✅ Low")
	assert.True(t, strings.HasSuffix(text, strings.Repeat("=", 80)+"\n"))
}

func TestRenderDryRunVariants(t *testing.T) {
	seed := sandbox.SampleData{"users": {map[string]any{"id": 1}, map[string]any{"id": 2}}}

	tests := []struct {
		name  string
		query string
		seed  sandbox.SampleData
		want  []string
	}{
		{
			name:  "successful delete",
			query: "DELETE FROM users WHERE id = 1",
			seed:  seed,
			want:  []string{"Simulation completed successfully", "Estimated Rows Affected: 1"},
		},
		{
			name:  "alter analysis",
			query: "ALTER TABLE users ADD COLUMN age INT",
			want:  []string{"ALTER Statement Analysis", "Operation: ADD COLUMN age (INT)", "Impact: " + "Will add new columns/constraints", "Columns Affected: age"},
		},
		{
			name:  "drop note",
			query: "DROP TABLE users",
			want:  []string{"DROP statement will permanently delete: users", "All data in affected objects will be lost"},
		},
		{
			name:  "hard error",
			query: "INSERT INTO users (id) VALUES (1)",
			want:  []string{"Simulation had issues", "Error: Could not simulate INSERT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := NewComposer().Compose(context.Background(), tt.query,
				Options{IncludeDryRun: true, SampleData: tt.seed})
			require.NoError(t, err)
			text := Render(rep)
			for _, w := range tt.want {
				assert.Contains(t, text, w)
			}
		})
	}
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "✅", Badge(risk.Low))
	assert.Equal(t, "⚠️", Badge(risk.Medium))
	assert.Equal(t, "🚨", Badge(risk.High))
}

func TestRenderDryRunPreview(t *testing.T) {
	out := dryrun.New().Simulate(context.Background(), mustParse(t, "SELECT id, name FROM users"),
		sandbox.SampleData{"users": {map[string]any{"id": 1, "name": "alice"}, map[string]any{"id": 2}}})

	text := RenderDryRun(out)
	assert.Contains(t, text, "Dry Run Simulation (SELECT):")
	assert.Contains(t, text, "  Tables: users")
	assert.Contains(t, text, "Preview (2 rows):")
	assert.Contains(t, text, "    id | name")
	assert.Contains(t, text, "    1 | alice")
	assert.Contains(t, text, "    2 | NULL")
}

func mustParse(t *testing.T, query string) *sqlparser.Impact {
	t.Helper()
	impact, err := sqlparser.NewSQLParser().Parse(query)
	require.NoError(t, err)
	return impact
}
