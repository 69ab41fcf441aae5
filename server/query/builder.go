// Package query turns validated identifiers plus a small declarative spec
// into parametrized SQL, and executes it against the store. Identifier
// names are interpolated into SQL text only after passing the schema
// registry's allow-list; values always travel as bind parameters.
package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/schema"
)

// Order declares one ORDER BY term.
type Order struct {
	Column    string
	Direction string // "asc" or "desc"
}

// SelectSpec is the declarative input for a select statement.
type SelectSpec struct {
	Table   string
	Columns []string       // empty means all exportable columns
	Where   map[string]any // scalar → equality, slice → set membership
	OrderBy []Order
	Limit   int // <= 0 means no limit
	Offset  int // <= 0 means no offset
}

// Builder constructs parametrized statements. It is pure: no statement it
// returns has touched the database.
type Builder struct {
	schemas *schema.Registry
}

// NewBuilder creates a builder backed by the given schema registry.
func NewBuilder(schemas *schema.Registry) *Builder {
	return &Builder{schemas: schemas}
}

// BuildSelect renders a SELECT statement from the spec. Every identifier
// in the spec is validated before any SQL text is produced.
func (b *Builder) BuildSelect(spec SelectSpec) (string, []any, error) {
	desc, err := b.schemas.ValidateTable(spec.Table)
	if err != nil {
		return "", nil, err
	}

	columns := spec.Columns
	if len(columns) == 0 {
		for _, f := range desc.ExportableFields() {
			columns = append(columns, f.Name)
		}
		if len(columns) == 0 {
			return "", nil, errors.Newf(ErrValidationFailed, "table %q has no exportable columns and none were requested", spec.Table)
		}
	}
	for _, col := range columns {
		if _, err := b.schemas.ValidateColumn(spec.Table, col); err != nil {
			return "", nil, err
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Table)

	whereSQL, args, err := b.buildWhere(spec.Table, spec.Where)
	if err != nil {
		return "", nil, err
	}
	if whereSQL != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}

	if len(spec.OrderBy) > 0 {
		var terms []string
		for _, order := range spec.OrderBy {
			if _, err := b.schemas.ValidateColumn(spec.Table, order.Column); err != nil {
				return "", nil, err
			}
			direction, err := normalizeDirection(order.Direction)
			if err != nil {
				return "", nil, errors.AsError(err).AddContext("column", order.Column)
			}
			terms = append(terms, order.Column+" "+direction)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if spec.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, spec.Limit)
	} else if spec.Offset > 0 {
		// sqlite and mysql both reject OFFSET without a preceding LIMIT.
		sb.WriteString(" LIMIT ?")
		args = append(args, int64(math.MaxInt64))
	}
	if spec.Offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, spec.Offset)
	}

	return sb.String(), args, nil
}

// BuildInsert renders an INSERT for the validated property bag.
func (b *Builder) BuildInsert(table string, props map[string]any) (string, []any, error) {
	if len(props) == 0 {
		return "", nil, errors.Newf(ErrEmptyProperties, "insert into %q requires at least one property", table)
	}
	if err := b.validateProperties(table, props); err != nil {
		return "", nil, err
	}

	columns := sortedKeys(props)
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = props[col]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return stmt, args, nil
}

// BuildUpdate renders an UPDATE keyed on the table's primary key.
func (b *Builder) BuildUpdate(table, uid string, props map[string]any) (string, []any, error) {
	if len(props) == 0 {
		return "", nil, errors.Newf(ErrEmptyProperties, "update of %q requires at least one property", table)
	}
	if err := b.validateProperties(table, props); err != nil {
		return "", nil, err
	}
	pkColumn, err := b.primaryKeyColumn(table)
	if err != nil {
		return "", nil, err
	}

	columns := sortedKeys(props)
	assignments := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		assignments[i] = col + " = ?"
		args = append(args, props[col])
	}
	args = append(args, uid)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		table, strings.Join(assignments, ", "), pkColumn)
	return stmt, args, nil
}

// BuildDelete renders a DELETE keyed on the table's primary key.
func (b *Builder) BuildDelete(table, uid string) (string, []any, error) {
	pkColumn, err := b.primaryKeyColumn(table)
	if err != nil {
		return "", nil, err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, pkColumn)
	return stmt, []any{uid}, nil
}

// buildWhere compiles the where map into a conjunction. Scalar values
// become equality predicates; slices become a single IN predicate so
// filter cardinality does not change plan shape. Empty slices are
// unconstrained and skipped.
func (b *Builder) buildWhere(table string, where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var predicates []string
	var args []any
	for _, col := range sortedKeys(where) {
		if _, err := b.schemas.ValidateColumn(table, col); err != nil {
			return "", nil, err
		}
		switch v := where[col].(type) {
		case []any:
			if len(v) == 0 {
				continue
			}
			placeholders := make([]string, len(v))
			for i, item := range v {
				if !isScalar(item) {
					return "", nil, errors.Newf(ErrInvalidValue, "non-scalar value in membership set for column %q", col)
				}
				placeholders[i] = "?"
				args = append(args, item)
			}
			predicates = append(predicates, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		case []string:
			if len(v) == 0 {
				continue
			}
			placeholders := make([]string, len(v))
			for i, item := range v {
				placeholders[i] = "?"
				args = append(args, item)
			}
			predicates = append(predicates, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		default:
			if !isScalar(v) {
				return "", nil, errors.Newf(ErrInvalidValue, "non-scalar value for column %q", col)
			}
			predicates = append(predicates, col+" = ?")
			args = append(args, v)
		}
	}

	return strings.Join(predicates, " AND "), args, nil
}

// validateProperties checks every property key against the schema and every
// value against the column's declared type. Unknown keys are rejected
// eagerly, never forwarded.
func (b *Builder) validateProperties(table string, props map[string]any) error {
	for _, col := range sortedKeys(props) {
		field, err := b.schemas.ValidateColumn(table, col)
		if err != nil {
			return err
		}
		if err := validateValue(field, props[col]); err != nil {
			return err
		}
	}
	return nil
}

// primaryKeyColumn resolves the single-column primary key for a table.
func (b *Builder) primaryKeyColumn(table string) (string, error) {
	desc, err := b.schemas.ValidateTable(table)
	if err != nil {
		return "", err
	}
	pks := desc.PrimaryKeyFields()
	if len(pks) != 1 {
		return "", errors.Newf(ErrValidationFailed, "table %q needs exactly one primary key column, has %d", table, len(pks))
	}
	return pks[0].Name, nil
}

// normalizeDirection accepts asc/desc in any case, nothing else.
func normalizeDirection(direction string) (string, error) {
	switch strings.ToLower(direction) {
	case "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	}
	return "", errors.Newf(ErrInvalidDirection, "order direction must be 'asc' or 'desc', got %q", direction)
}

// validateValue checks a property value against the declared field type.
// JSON decoding hands numbers over as float64, so integer columns accept
// integral floats.
func validateValue(field *schema.FieldDescriptor, value any) error {
	if value == nil {
		return nil
	}
	switch field.Type {
	case schema.FieldTypeString, schema.FieldTypeTimestamp:
		if _, ok := value.(string); !ok {
			return typeMismatch(field, value)
		}
	case schema.FieldTypeInteger:
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return typeMismatch(field, value)
			}
		default:
			return typeMismatch(field, value)
		}
	case schema.FieldTypeFloat:
		switch value.(type) {
		case float32, float64, int, int64:
		default:
			return typeMismatch(field, value)
		}
	case schema.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeMismatch(field, value)
		}
	}
	return nil
}

func typeMismatch(field *schema.FieldDescriptor, value any) error {
	return errors.Newf(ErrInvalidValue, "value %v is not assignable to %s column %q", value, field.Type, field.Name)
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
