package query

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tablekit/tablekit/pkg/errors"
)

// FilterMap maps a column name to the set of accepted values. An empty or
// absent entry means the column is unconstrained. Both distinct algorithms
// consume filters in this exact shape.
type FilterMap map[string][]string

// ParseFilterMap converts a raw decoded JSON object into a FilterMap.
// Scalars become single-value sets, arrays of scalars become value sets,
// and anything nested is rejected rather than silently coerced.
func ParseFilterMap(raw map[string]any) (FilterMap, error) {
	filters := make(FilterMap, len(raw))
	for column, value := range raw {
		switch v := value.(type) {
		case nil:
			filters[column] = nil
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				s, err := filterValueString(column, item)
				if err != nil {
					return nil, err
				}
				values = append(values, s)
			}
			filters[column] = values
		case map[string]any:
			return nil, errors.Newf(ErrInvalidFilter, "filter for column %q must be a scalar or an array, got an object", column)
		default:
			s, err := filterValueString(column, v)
			if err != nil {
				return nil, err
			}
			filters[column] = []string{s}
		}
	}
	return filters, nil
}

// Columns returns the constrained column names, sorted, skipping empty
// value sets.
func (f FilterMap) Columns() []string {
	columns := make([]string, 0, len(f))
	for column, values := range f {
		if len(values) == 0 {
			continue
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func filterValueString(column string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return "", errors.Newf(ErrInvalidFilter, "filter value %v for column %q is not a scalar", value, column)
}

// valueToString renders a scanned database value for the distinct-value
// result. Byte slices come back from both drivers for text columns.
func valueToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
