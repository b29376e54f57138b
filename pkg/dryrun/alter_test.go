package dryrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeAlter(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		wantOps     []string
		wantColumns []string
		wantSummary string
	}{
		{
			name:        "add column",
			sql:         "ALTER TABLE users ADD COLUMN age INT",
			wantOps:     []string{"ADD COLUMN age (INT)"},
			wantColumns: []string{"age"},
			wantSummary: SummaryAdd,
		},
		{
			name:        "add column without keyword",
			sql:         "alter table users add email varchar(255) not null",
			wantOps:     []string{"ADD COLUMN email (VARCHAR(255))"},
			wantColumns: []string{"email"},
			wantSummary: SummaryAdd,
		},
		{
			name:        "add column without type",
			sql:         "ALTER TABLE users ADD COLUMN age",
			wantOps:     []string{"ADD COLUMN age (Unknown type)"},
			wantColumns: []string{"age"},
			wantSummary: SummaryAdd,
		},
		{
			name:        "drop column",
			sql:         "ALTER TABLE users DROP COLUMN legacy_flag",
			wantOps:     []string{"DROP COLUMN legacy_flag"},
			wantColumns: []string{"legacy_flag"},
			wantSummary: SummaryDrop,
		},
		{
			name:        "rename column",
			sql:         "ALTER TABLE users RENAME COLUMN name TO full_name",
			wantOps:     []string{"RENAME COLUMN name TO full_name"},
			wantColumns: []string{"name", "full_name"},
			wantSummary: SummaryRename,
		},
		{
			name:        "modify column",
			sql:         "ALTER TABLE users MODIFY COLUMN status VARCHAR(20)",
			wantOps:     []string{"MODIFY COLUMN status"},
			wantColumns: []string{"status"},
			wantSummary: SummaryModify,
		},
		{
			name:        "alter column",
			sql:         "ALTER TABLE users ALTER COLUMN status SET DEFAULT 'active'",
			wantOps:     []string{"MODIFY COLUMN status"},
			wantColumns: []string{"status"},
			wantSummary: SummaryModify,
		},
		{
			name:        "add constraint",
			sql:         "ALTER TABLE orders ADD CONSTRAINT fk_user FOREIGN KEY (user_id) REFERENCES users(id)",
			wantOps:     []string{"ADD CONSTRAINT fk_user"},
			wantColumns: []string{},
			wantSummary: SummaryAdd,
		},
		{
			name:        "drop constraint",
			sql:         "ALTER TABLE orders DROP CONSTRAINT fk_user",
			wantOps:     []string{"DROP CONSTRAINT fk_user"},
			wantColumns: []string{},
			wantSummary: SummaryDrop,
		},
		{
			name:        "add primary key",
			sql:         "ALTER TABLE orders ADD PRIMARY KEY (id)",
			wantOps:     []string{"ADD CONSTRAINT PRIMARY KEY"},
			wantColumns: []string{},
			wantSummary: SummaryAdd,
		},
		{
			name:        "rename wins over drop and add",
			sql:         "ALTER TABLE users ADD age INT, DROP COLUMN nickname, RENAME COLUMN name TO full_name",
			wantOps:     []string{"ADD COLUMN age (INT)", "DROP COLUMN nickname", "RENAME COLUMN name TO full_name"},
			wantColumns: []string{"age", "nickname", "name", "full_name"},
			wantSummary: SummaryRename,
		},
		{
			name:        "columns are de-duplicated",
			sql:         "ALTER TABLE users DROP COLUMN age, ADD COLUMN age BIGINT",
			wantOps:     []string{"ADD COLUMN age (BIGINT)", "DROP COLUMN age"},
			wantColumns: []string{"age"},
			wantSummary: SummaryDrop,
		},
		{
			name:        "table rename falls back to keyword",
			sql:         "ALTER TABLE users RENAME TO members",
			wantOps:     []string{"RENAME"},
			wantColumns: []string{},
			wantSummary: SummaryRename,
		},
		{
			name:        "unrecognized",
			sql:         "ALTER TABLE users ENGINE = InnoDB",
			wantOps:     []string{"ALTER TABLE"},
			wantColumns: []string{},
			wantSummary: SummaryGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeAlter(tt.sql)
			require.NotNil(t, got)

			ops := make([]string, len(got.Operations))
			for i, op := range got.Operations {
				ops[i] = op.String()
			}
			assert.Equal(t, tt.wantOps, ops)
			assert.Equal(t, tt.wantColumns, got.Columns)
			assert.Equal(t, tt.wantSummary, got.Summary)
		})
	}
}

func TestAnalyzeAlterJoinsOperation(t *testing.T) {
	got := AnalyzeAlter("ALTER TABLE users ADD age INT, ADD city TEXT")
	assert.Equal(t, "ADD COLUMN age (INT), ADD COLUMN city (TEXT)", got.Operation)
}

func TestRowEstimate(t *testing.T) {
	n, ok := ExactRows(7).Count()
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "7", ExactRows(7).String())

	_, ok = QualitativeRows("Unknown").Count()
	assert.False(t, ok)

	var est RowEstimate
	require.NoError(t, est.UnmarshalJSON([]byte(`12`)))
	n, ok = est.Count()
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	require.NoError(t, est.UnmarshalJSON([]byte(`"lots"`)))
	assert.Equal(t, "lots", est.String())
}
