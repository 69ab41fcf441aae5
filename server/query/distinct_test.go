package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/storage"
)

// sqliteEngine seeds a real database so the distinct queries run against
// actual SQL semantics rather than a mock.
func sqliteEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := &config.StorageConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "tablekit.db"),
	}
	store, err := storage.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	schemas := testSchemas(t)
	require.NoError(t, store.EnsureTables(context.Background(), schemas))

	engine := NewEngine(store, schemas, zerolog.Nop())
	ctx := context.Background()
	seed := []map[string]any{
		{"uid": "u1", "name": "alpha", "atc_code": "N02BA01"},
		{"uid": "u2", "name": "beta", "atc_code": "N02BA01"},
		{"uid": "u3", "name": "gamma", "atc_code": "N02BE01"},
		{"uid": "u4", "name": "delta", "atc_code": nil},
		{"uid": "u5", "name": "epsilon", "atc_code": ""},
	}
	for _, props := range seed {
		_, err := engine.Insert(ctx, "drug_catalog", props)
		require.NoError(t, err)
	}
	return engine
}

func TestSearchLike(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	rows, err := engine.SearchLike(ctx, "drug_catalog", "name", "ALPH")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0]["name"])

	// Wildcards in the term are literal characters, not patterns.
	rows, err = engine.SearchLike(ctx, "drug_catalog", "name", "%")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = engine.SearchLike(ctx, "drug_catalog", "name; --", "x")
	require.Error(t, err)
}

func TestSelectOffsetWithoutLimit(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	rows, err := engine.Select(ctx, SelectSpec{
		Table:   "drug_catalog",
		OrderBy: []Order{{Column: "uid", Direction: "asc"}},
		Offset:  2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "u3", rows[0]["uid"])
	assert.Equal(t, "u5", rows[2]["uid"])
}

func TestDistinctValues(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	// NULL and empty values never appear in the candidate list.
	values, err := engine.DistinctValues(ctx, "drug_catalog", "atc_code", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"N02BA01", "N02BE01"}, values)

	values, err = engine.DistinctValues(ctx, "drug_catalog", "atc_code", FilterMap{
		"name": {"alpha", "beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"N02BA01"}, values)
}

func TestDistinctValuesExcludesOwnFilter(t *testing.T) {
	engine := sqliteEngine(t)

	// A selection on the target column itself must not narrow its own
	// candidate list.
	values, err := engine.DistinctValues(context.Background(), "drug_catalog", "atc_code", FilterMap{
		"atc_code": {"N02BA01"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"N02BA01", "N02BE01"}, values)
}

func TestDistinctValuesRejectsUnknownColumns(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	_, err := engine.DistinctValues(ctx, "drug_catalog", "bogus", nil)
	require.Error(t, err)

	_, err = engine.DistinctValues(ctx, "drug_catalog", "atc_code", FilterMap{"bogus": {"x"}})
	require.Error(t, err)
}

func TestDistinctRows(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	// Unlike DistinctValues, row tuples keep NULL and empty values, so the
	// seed data yields four distinct codes: NULL, "", and the two real ones.
	result, err := engine.DistinctRows(ctx, "drug_catalog", []string{"atc_code"}, nil, 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalRows)
	require.Len(t, result.Rows, 4)
	assert.Equal(t, []string{"atc_code"}, result.Columns)
}

func TestDistinctRowsPagination(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	filters := FilterMap{"atc_code": {"N02BA01", "N02BE01"}}

	first, err := engine.DistinctRows(ctx, "drug_catalog", []string{"name", "atc_code"}, filters, 0, 2, "name")
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalRows)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "alpha", first.Rows[0]["name"])
	assert.Equal(t, "beta", first.Rows[1]["name"])

	second, err := engine.DistinctRows(ctx, "drug_catalog", []string{"name", "atc_code"}, filters, 2, 2, "name")
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, "gamma", second.Rows[0]["name"])

	// Every page of the same query reports the same total.
	assert.Equal(t, first.TotalRows, second.TotalRows)

	// A page past the end is empty, not an error, and keeps the total.
	past, err := engine.DistinctRows(ctx, "drug_catalog", []string{"name", "atc_code"}, filters, 50, 2, "name")
	require.NoError(t, err)
	assert.Empty(t, past.Rows)
	assert.Equal(t, 3, past.TotalRows)
}

func TestDistinctRowsClampsPaging(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	result, err := engine.DistinctRows(ctx, "drug_catalog", []string{"name"}, nil, -5, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Offset)
	assert.Equal(t, config.DEFAULT_PAGE_LIMIT, result.Limit)

	result, err = engine.DistinctRows(ctx, "drug_catalog", []string{"name"}, nil, 0, 1000000, "")
	require.NoError(t, err)
	assert.Equal(t, config.MAX_PAGE_LIMIT, result.Limit)
}

func TestDistinctRowsValidation(t *testing.T) {
	engine := sqliteEngine(t)
	ctx := context.Background()

	_, err := engine.DistinctRows(ctx, "drug_catalog", nil, nil, 0, 10, "")
	require.Error(t, err)

	_, err = engine.DistinctRows(ctx, "drug_catalog", []string{"name"}, nil, 0, 10, "atc_code")
	require.Error(t, err, "order column must be among the requested columns")

	_, err = engine.DistinctRows(ctx, "drug_catalog", []string{"name; --"}, nil, 0, 10, "")
	require.Error(t, err)
}
