package query

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/server/storage"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Engine executes built statements against the store. It never swallows a
// failure: every error leaves here carrying a typed code for the caller to
// translate or propagate.
type Engine struct {
	store   *storage.Store
	builder *Builder
	schemas *schema.Registry
	logger  zerolog.Logger
}

// NewEngine creates a query engine.
func NewEngine(store *storage.Store, schemas *schema.Registry, logger zerolog.Logger) *Engine {
	return &Engine{
		store:   store,
		builder: NewBuilder(schemas),
		schemas: schemas,
		logger:  logger.With().Str("component", "query-engine").Logger(),
	}
}

// Select runs a select spec and scans every row.
func (e *Engine) Select(ctx context.Context, spec SelectSpec) ([]Row, error) {
	stmt, args, err := e.builder.BuildSelect(spec)
	if err != nil {
		return nil, err
	}
	return e.queryRows(ctx, stmt, args)
}

// SelectTx is Select inside a caller-owned transaction.
func (e *Engine) SelectTx(ctx context.Context, tx *sql.Tx, spec SelectSpec) ([]Row, error) {
	stmt, args, err := e.builder.BuildSelect(spec)
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, e.executionError(err, stmt)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Insert executes an insert and returns the created row.
func (e *Engine) Insert(ctx context.Context, table string, props map[string]any) (Row, error) {
	stmt, args, err := e.builder.BuildInsert(table, props)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.DB().ExecContext(ctx, stmt, args...); err != nil {
		return nil, e.executionError(err, stmt)
	}
	return e.rowByPrimaryKey(ctx, table, props)
}

// InsertTx is Insert inside a caller-owned transaction, without the
// read-back of the created row.
func (e *Engine) InsertTx(ctx context.Context, tx *sql.Tx, table string, props map[string]any) error {
	stmt, args, err := e.builder.BuildInsert(table, props)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return e.executionError(err, stmt)
	}
	return nil
}

// Update executes an update keyed on the primary key. A nil row with a nil
// error means no row matched; that is a not-found signal, not a failure.
func (e *Engine) Update(ctx context.Context, table, uid string, props map[string]any) (Row, error) {
	stmt, args, err := e.builder.BuildUpdate(table, uid, props)
	if err != nil {
		return nil, err
	}
	result, err := e.store.DB().ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, e.executionError(err, stmt)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.New(ErrExecutionFailed, "failed to read rows affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	pkColumn, err := e.builder.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	return e.singleRow(ctx, table, pkColumn, uid)
}

// Delete executes a delete keyed on the primary key and reports how many
// rows went away.
func (e *Engine) Delete(ctx context.Context, table, uid string) (int64, error) {
	stmt, args, err := e.builder.BuildDelete(table, uid)
	if err != nil {
		return 0, err
	}
	result, err := e.store.DB().ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, e.executionError(err, stmt)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.New(ErrExecutionFailed, "failed to read rows affected", err)
	}
	return affected, nil
}

// DeleteWhere removes all rows matching an equality predicate on one
// column. Used by the cascade path, where deletes key on foreign keys
// rather than the primary key.
func (e *Engine) DeleteWhere(ctx context.Context, table, column string, value any) (int64, error) {
	if _, err := e.schemas.ValidateColumn(table, column); err != nil {
		return 0, err
	}
	stmt := "DELETE FROM " + table + " WHERE " + column + " = ?"
	result, err := e.store.DB().ExecContext(ctx, stmt, value)
	if err != nil {
		return 0, e.executionError(err, stmt)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.New(ErrExecutionFailed, "failed to read rows affected", err)
	}
	return affected, nil
}

// SearchLike returns all rows whose column contains term as a
// case-insensitive substring. LIKE wildcards in the term are escaped so a
// search for "50%" matches the literal text.
func (e *Engine) SearchLike(ctx context.Context, table, column, term string) ([]Row, error) {
	desc, err := e.schemas.ValidateTable(table)
	if err != nil {
		return nil, err
	}
	if _, err := e.schemas.ValidateColumn(table, column); err != nil {
		return nil, err
	}

	var columns []string
	for _, f := range desc.ExportableFields() {
		columns = append(columns, f.Name)
	}
	if len(columns) == 0 {
		return nil, errors.Newf(ErrValidationFailed, "table %q has no exportable columns", table)
	}

	stmt := "SELECT " + strings.Join(columns, ", ") + " FROM " + table +
		" WHERE LOWER(" + column + ") LIKE ? ESCAPE '\\'"
	pattern := "%" + escapeLikePattern(strings.ToLower(term)) + "%"
	return e.queryRows(ctx, stmt, []any{pattern})
}

func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}

// Count returns the number of rows matching a where map.
func (e *Engine) Count(ctx context.Context, table string, where map[string]any) (int, error) {
	if _, err := e.schemas.ValidateTable(table); err != nil {
		return 0, err
	}
	whereSQL, args, err := e.builder.buildWhere(table, where)
	if err != nil {
		return 0, err
	}
	stmt := "SELECT COUNT(*) FROM " + table
	if whereSQL != "" {
		stmt += " WHERE " + whereSQL
	}
	var count int
	if err := e.store.DB().QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, e.executionError(err, stmt)
	}
	return count, nil
}

// rowByPrimaryKey reads back a row using the primary key value from the
// property bag, if present.
func (e *Engine) rowByPrimaryKey(ctx context.Context, table string, props map[string]any) (Row, error) {
	pkColumn, err := e.builder.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	uid, ok := props[pkColumn]
	if !ok {
		return nil, nil
	}
	return e.singleRow(ctx, table, pkColumn, uid)
}

// singleRow fetches at most one row by equality on one column.
func (e *Engine) singleRow(ctx context.Context, table, column string, value any) (Row, error) {
	rows, err := e.Select(ctx, SelectSpec{
		Table: table,
		Where: map[string]any{column: value},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// queryRows executes a statement and scans all rows generically.
func (e *Engine) queryRows(ctx context.Context, stmt string, args []any) ([]Row, error) {
	rows, err := e.store.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, e.executionError(err, stmt)
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows scans every row into a column-keyed map. Text columns come back
// as []byte from both drivers and are normalized to string.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.New(ErrScanFailed, "failed to read result columns", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.New(ErrScanFailed, "failed to scan row", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(ErrScanFailed, "failed to iterate over rows", err)
	}
	return out, nil
}

// executionError classifies a driver failure. Uniqueness violations get
// their own code so callers can distinguish them from generic failures.
func (e *Engine) executionError(err error, stmt string) error {
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "Duplicate entry") {
		return errors.New(ErrConstraintViolation, "uniqueness constraint violated", err)
	}
	e.logger.Error().Err(err).Str("statement", stmt).Msg("Statement execution failed")
	return errors.New(ErrExecutionFailed, "statement execution failed", err)
}
