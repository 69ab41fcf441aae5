package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekit/tablekit/pkg/errors"
)

func TestParseFilterMap(t *testing.T) {
	filters, err := ParseFilterMap(map[string]any{
		"name":         "aspirin",
		"atc_code":     []any{"N02BE01", "N02BA01"},
		"pack_size":    float64(30),
		"discontinued": false,
		"strength_mg":  0.5,
		"empty":        []any{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"aspirin"}, filters["name"])
	assert.Equal(t, []string{"N02BE01", "N02BA01"}, filters["atc_code"])
	assert.Equal(t, []string{"30"}, filters["pack_size"])
	assert.Equal(t, []string{"false"}, filters["discontinued"])
	assert.Equal(t, []string{"0.5"}, filters["strength_mg"])
	assert.Empty(t, filters["empty"])
}

func TestParseFilterMapRejectsNested(t *testing.T) {
	_, err := ParseFilterMap(map[string]any{
		"name": map[string]any{"like": "%asp%"},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidFilter))

	_, err = ParseFilterMap(map[string]any{
		"name": []any{[]any{"nested"}},
	})
	require.Error(t, err)
}

func TestFilterMapColumnsSortedAndSkipsEmpty(t *testing.T) {
	filters := FilterMap{
		"route":    {"oral"},
		"atc_code": {"N02BE01"},
		"name":     {},
		"status":   nil,
	}
	assert.Equal(t, []string{"atc_code", "route"}, filters.Columns())
}

func TestValueToString(t *testing.T) {
	assert.Equal(t, "", valueToString(nil))
	assert.Equal(t, "aspirin", valueToString("aspirin"))
	assert.Equal(t, "aspirin", valueToString([]byte("aspirin")))
	assert.Equal(t, "42", valueToString(int64(42)))
	assert.Equal(t, "0.5", valueToString(0.5))
	assert.Equal(t, "true", valueToString(true))
}
