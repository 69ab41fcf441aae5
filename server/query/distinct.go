package query

import (
	"context"
	"strings"

	"github.com/tablekit/tablekit/server/config"
)

// DistinctRowsResult is one page of deduplicated row tuples plus the total
// distinct count for the whole filtered query. TotalRows is constant
// across every page of the same query so the caller can paginate without a
// second round trip.
type DistinctRowsResult struct {
	Rows      []Row    `json:"data"`
	Columns   []string `json:"columns"`
	TotalRows int      `json:"totalRows"`
	Offset    int      `json:"offset"`
	Limit     int      `json:"limit"`
}

// DistinctValues returns the ordered, deduplicated values one column could
// take given the filters on every *other* column. The target column's own
// filter is intentionally excluded: the UI needs to see all values the
// column could take under the remaining constraints, not the values it is
// currently restricted to.
func (e *Engine) DistinctValues(ctx context.Context, table, targetColumn string, filters FilterMap) ([]string, error) {
	if _, err := e.schemas.ValidateColumn(table, targetColumn); err != nil {
		return nil, err
	}

	whereSQL, args, err := e.buildFilterConjunction(table, filters, targetColumn)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ")
	sb.WriteString(targetColumn)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	sb.WriteString(" WHERE ")
	if whereSQL != "" {
		sb.WriteString(whereSQL)
		sb.WriteString(" AND ")
	}
	sb.WriteString(targetColumn)
	sb.WriteString(" IS NOT NULL ORDER BY ")
	sb.WriteString(targetColumn)

	rows, err := e.store.DB().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, e.executionError(err, sb.String())
	}
	defer rows.Close()

	values := make([]string, 0, 32)
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, e.executionError(err, sb.String())
		}
		value := valueToString(raw)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, e.executionError(err, sb.String())
	}
	return values, nil
}

// DistinctRows returns one page of distinct combinations over the
// requested columns under the full filter map, plus the total distinct
// count. Unlike DistinctValues there is no self-exclusion here: this
// answers "what rows match", not "what could this column be".
func (e *Engine) DistinctRows(ctx context.Context, table string, columns []string, filters FilterMap, offset, limit int, orderBy string) (*DistinctRowsResult, error) {
	if _, err := e.schemas.ValidateTable(table); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, newValidationError("at least one column is required")
	}
	for _, col := range columns {
		if _, err := e.schemas.ValidateColumn(table, col); err != nil {
			return nil, err
		}
	}

	if orderBy == "" {
		orderBy = columns[0]
	}
	if !containsString(columns, orderBy) {
		return nil, newValidationError("order column %q must be one of the requested columns", orderBy)
	}

	if offset < 0 {
		offset = 0
	}
	if limit < config.MIN_PAGE_LIMIT {
		limit = config.DEFAULT_PAGE_LIMIT
	}
	if limit > config.MAX_PAGE_LIMIT {
		limit = config.MAX_PAGE_LIMIT
	}

	whereSQL, args, err := e.buildFilterConjunction(table, filters, "")
	if err != nil {
		return nil, err
	}

	columnList := strings.Join(columns, ", ")
	base := "SELECT DISTINCT " + columnList + " FROM " + table
	if whereSQL != "" {
		base += " WHERE " + whereSQL
	}

	// The total is computed once per request; every page of the same
	// query reports the identical number.
	countStmt := "SELECT COUNT(*) FROM (" + base + ") AS distinct_rows"
	var total int
	if err := e.store.DB().QueryRowContext(ctx, countStmt, args...).Scan(&total); err != nil {
		return nil, e.executionError(err, countStmt)
	}

	pageStmt := base + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), limit, offset)
	pageRows, err := e.queryRows(ctx, pageStmt, pageArgs)
	if err != nil {
		return nil, err
	}

	return &DistinctRowsResult{
		Rows:      pageRows,
		Columns:   columns,
		TotalRows: total,
		Offset:    offset,
		Limit:     limit,
	}, nil
}

// buildFilterConjunction compiles a FilterMap into a conjunction of IN
// predicates, skipping empty value sets and, when excludeColumn is
// non-empty, the filter on that column.
func (e *Engine) buildFilterConjunction(table string, filters FilterMap, excludeColumn string) (string, []any, error) {
	var predicates []string
	var args []any

	for _, column := range filters.Columns() {
		if column == excludeColumn {
			continue
		}
		if _, err := e.schemas.ValidateColumn(table, column); err != nil {
			return "", nil, err
		}
		values := filters[column]
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = "?"
			args = append(args, v)
		}
		predicates = append(predicates, column+" IN ("+strings.Join(placeholders, ", ")+")")
	}

	return strings.Join(predicates, " AND "), args, nil
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
