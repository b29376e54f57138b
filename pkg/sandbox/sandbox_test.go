package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersSeed() SampleData {
	return SampleData{
		"users": {
			map[string]any{"id": 1, "name": "alice", "status": "active"},
			map[string]any{"id": 2, "name": "bob", "status": "inactive"},
			map[string]any{"id": 3, "name": "carol"},
		},
	}
}

func TestWithSeedsAndCounts(t *testing.T) {
	ctx := context.Background()
	err := With(ctx, usersSeed(), func(sb *Sandbox) error {
		assert.True(t, sb.seeded)

		exists, err := sb.TableExists(ctx, "users")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = sb.TableExists(ctx, "USERS")
		require.NoError(t, err)
		assert.True(t, exists)

		n, err := sb.Count(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		return nil
	})
	require.NoError(t, err)
}

func TestWithClosesOnError(t *testing.T) {
	var captured *Sandbox
	boom := errors.New("boom")

	err := With(context.Background(), nil, func(sb *Sandbox) error {
		captured = sb
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = captured.Count(context.Background(), "users")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSandboxesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(ctx)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Seed(ctx, usersSeed()))

	exists, err := b.TableExists(ctx, "users")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecReportsRowsAffected(t *testing.T) {
	ctx := context.Background()
	err := With(ctx, usersSeed(), func(sb *Sandbox) error {
		n, err := sb.Exec(ctx, "UPDATE users SET status = 'x' WHERE id > 1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return nil
	})
	require.NoError(t, err)
}

func TestMissingObjectClassification(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantMissing bool
	}{
		{"missing table", "DELETE FROM nowhere", true},
		{"missing column", "UPDATE users SET nope = 1", true},
		{"syntax error", "UPDATE users SET", false},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := With(ctx, usersSeed(), func(sb *Sandbox) error {
				_, err := sb.Exec(ctx, tt.query)
				return err
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantMissing, IsMissingObject(err))

			var engineErr *EngineError
			require.True(t, errors.As(err, &engineErr))
			if tt.wantMissing {
				assert.Equal(t, CodeMissingObject, engineErr.Code)
			} else {
				assert.Equal(t, CodeExecFailed, engineErr.Code)
			}
		})
	}
}

func TestQueryLimitsRowsButCountsAll(t *testing.T) {
	ctx := context.Background()
	err := With(ctx, usersSeed(), func(sb *Sandbox) error {
		res, err := sb.Query(ctx, "SELECT id, name FROM users ORDER BY id", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "name"}, res.Columns)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, "alice", res.Rows[0][1])
		return nil
	})
	require.NoError(t, err)
}

func TestPositionalRows(t *testing.T) {
	ctx := context.Background()
	seed := SampleData{"points": {[]any{1, 2}, []any{3}}}

	err := With(ctx, seed, func(sb *Sandbox) error {
		res, err := sb.Preview(ctx, "points", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"column1", "column2"}, res.Columns)
		require.Len(t, res.Rows, 2)
		assert.Nil(t, res.Rows[1][1])
		return nil
	})
	require.NoError(t, err)
}

func TestSeedRejectsScalarRows(t *testing.T) {
	err := With(context.Background(), SampleData{"t": {42}}, func(*Sandbox) error { return nil })
	var engineErr *EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, CodeSeedFailed, engineErr.Code)
}

func TestEmptyTableIsCreated(t *testing.T) {
	ctx := context.Background()
	err := With(ctx, SampleData{"empty": {}}, func(sb *Sandbox) error {
		assert.False(t, sb.seeded)
		exists, err := sb.TableExists(ctx, "empty")
		require.NoError(t, err)
		assert.True(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestLazyOpensOnlyWhenNeeded(t *testing.T) {
	lazy := NewLazy(usersSeed())
	assert.False(t, lazy.Opened())
	require.NoError(t, lazy.Close())

	sb, err := lazy.Get(context.Background())
	require.NoError(t, err)
	again, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, sb, again)
	assert.True(t, lazy.Opened())

	require.NoError(t, lazy.Close())
	assert.False(t, lazy.Opened())
}
