package risk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemcdonald/sqlsafety/pkg/sqlparser"
)

func parse(t *testing.T, query string) *sqlparser.Impact {
	t.Helper()
	impact, err := sqlparser.NewSQLParser().Parse(query)
	require.NoError(t, err)
	return impact
}

func TestLevelPolicy(t *testing.T) {
	tests := []struct {
		query string
		want  Level
	}{
		{"ALTER TABLE users ADD COLUMN age INT", High},
		{"DROP TABLE users", High},
		{"DROP DATABASE prod", High},
		{"DROP SCHEMA prod", High},
		{"TRUNCATE TABLE logs", High},
		{"UPDATE users SET status = 'x' WHERE id = 1", Medium},
		{"DELETE FROM users WHERE id = 1", Medium},
		{"SELECT * FROM users", Low},
		{"INSERT INTO users (name) VALUES ('x')", Low},
		{"SHOW TABLES", Medium},
		{"CREATE TABLE t (id INT)", Medium},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Assess(parse(t, tt.query)).Level)
		})
	}
}

func TestUpdateWithoutWhere(t *testing.T) {
	got := Assess(parse(t, "UPDATE users SET status = 'inactive'"))

	assert.Equal(t, Medium, got.Level)
	require.Len(t, got.Warnings, 1)
	assert.True(t, strings.HasPrefix(got.Warnings[0], "CRITICAL"))
	assert.Contains(t, got.Warnings[0], "users")
	assert.Contains(t, got.Explanation, "affect ALL rows in users")
}

func TestDeleteWithWhereHasNoWarnings(t *testing.T) {
	got := Assess(parse(t, "DELETE FROM orders WHERE created_at < '2020-01-01'"))

	assert.Equal(t, Medium, got.Level)
	assert.Empty(t, got.Warnings)
	assert.Equal(t, "Risk Level: Medium This DELETE statement will modify data in orders.", got.Explanation)
}

func TestDropTable(t *testing.T) {
	got := Assess(parse(t, "DROP TABLE users"))

	assert.Equal(t, High, got.Level)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "DROP statements permanently delete")
	assert.True(t, strings.HasPrefix(got.Explanation, "Risk Level: High This is a DROP statement"))
}

func TestDropDatabase(t *testing.T) {
	got := Assess(parse(t, "DROP DATABASE prod"))

	assert.Equal(t, High, got.Level)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "DROP statements permanently delete")
	assert.Contains(t, got.Explanation, "This is a DROP statement")
}

func TestStructuralWarnings(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"ALTER TABLE users DROP COLUMN age", "ALTER statements modify table structure"},
		{"TRUNCATE TABLE logs", "without logging individual row deletions"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Assess(parse(t, tt.query))
			require.Len(t, got.Warnings, 1)
			assert.Contains(t, got.Warnings[0], tt.want)
		})
	}
}

func TestFanOutWarning(t *testing.T) {
	got := Assess(parse(t, "SELECT * FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id JOIN d ON c.id = d.id"))

	assert.Equal(t, Low, got.Level)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "affects 4 tables")
}

func TestWarningOrder(t *testing.T) {
	got := Assess(parse(t, "DELETE FROM a WHERE 1 = 1"))
	assert.Empty(t, got.Warnings)

	got = Assess(parse(t, "DELETE a FROM a JOIN b ON a.id = b.id JOIN c ON c.id = b.id JOIN d ON d.id = c.id"))
	require.Len(t, got.Warnings, 2)
	assert.True(t, strings.HasPrefix(got.Warnings[0], "CRITICAL"))
	assert.True(t, strings.HasPrefix(got.Warnings[1], "WARNING"))
}

func TestLowExplanations(t *testing.T) {
	assert.Equal(t,
		"Risk Level: Low This is a SELECT statement (read-only), which poses minimal risk.",
		Assess(parse(t, "SELECT * FROM users")).Explanation)
	assert.Equal(t,
		"Risk Level: Low This INSERT statement will add new rows to users.",
		Assess(parse(t, "INSERT INTO users (name) VALUES ('x')")).Explanation)
}

func TestAssessIsDeterministic(t *testing.T) {
	impact := parse(t, "UPDATE users SET status = 'inactive'")
	assert.Equal(t, Assess(impact), Assess(impact))
}

func TestLevelIgnoresLiteralsAndColumns(t *testing.T) {
	a := Assess(parse(t, "UPDATE users SET status = 'inactive' WHERE id = 1"))
	b := Assess(parse(t, "UPDATE users SET name = 'bob' WHERE email = 'x@y.z'"))
	assert.Equal(t, a, b)
}
