package schema

import (
	"regexp"

	"github.com/tablekit/tablekit/pkg/errors"
)

// FieldType is the logical type of a column as declared in the catalog.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInteger   FieldType = "integer"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBoolean   FieldType = "boolean"
	FieldTypeTimestamp FieldType = "timestamp"
)

// ParseFieldType validates and normalizes a declared field type.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case FieldTypeString, FieldTypeInteger, FieldTypeFloat, FieldTypeBoolean, FieldTypeTimestamp:
		return FieldType(s), nil
	}
	return "", errors.Newf(ErrUnknownFieldType, "unknown field type %q", s)
}

// FieldDescriptor describes one column of a registered table.
type FieldDescriptor struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
	Exportable bool
	Filterable bool
}

// TableDescriptor describes one registered table. Descriptors are built at
// startup and never mutated afterward.
type TableDescriptor struct {
	Name   string
	Fields []FieldDescriptor
}

// identifierRegex is the sole injection defense for dynamic identifiers.
// Any table or column name interpolated into SQL text must match it.
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IsValidIdentifier reports whether name is safe to use as a SQL identifier.
func IsValidIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}

// Field returns the descriptor for the named column.
func (t *TableDescriptor) Field(name string) (*FieldDescriptor, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// HasField reports whether the table declares the named column.
func (t *TableDescriptor) HasField(name string) bool {
	_, ok := t.Field(name)
	return ok
}

// PrimaryKeyFields returns the declared primary key columns in field order.
func (t *TableDescriptor) PrimaryKeyFields() []FieldDescriptor {
	var pks []FieldDescriptor
	for _, f := range t.Fields {
		if f.PrimaryKey {
			pks = append(pks, f)
		}
	}
	return pks
}

// ExportableFields returns the exportable columns in field order.
func (t *TableDescriptor) ExportableFields() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range t.Fields {
		if f.Exportable {
			out = append(out, f)
		}
	}
	return out
}

// DisplayField returns the table's primary display column: the first
// exportable string field that is not a primary key, falling back to the
// first exportable field of any type.
func (t *TableDescriptor) DisplayField() (*FieldDescriptor, bool) {
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Exportable && f.Type == FieldTypeString && !f.PrimaryKey {
			return f, true
		}
	}
	for i := range t.Fields {
		if t.Fields[i].Exportable {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// equalShape reports whether two descriptors declare the identical shape.
func (t *TableDescriptor) equalShape(other *TableDescriptor) bool {
	if t.Name != other.Name || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// validate checks the descriptor's own consistency before registration.
func (t *TableDescriptor) validate() error {
	if !IsValidIdentifier(t.Name) {
		return errors.Newf(ErrInvalidIdentifier, "invalid table name %q", t.Name)
	}
	if len(t.Fields) == 0 {
		return errors.Newf(ErrNoFields, "table %q declares no fields", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if !IsValidIdentifier(f.Name) {
			return errors.Newf(ErrInvalidIdentifier, "invalid column name %q", f.Name).
				AddContext("table", t.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return errors.Newf(ErrTableConflict, "duplicate column %q", f.Name).
				AddContext("table", t.Name)
		}
		seen[f.Name] = struct{}{}
		if _, err := ParseFieldType(string(f.Type)); err != nil {
			return errors.AsError(err).AddContext("table", t.Name).AddContext("column", f.Name)
		}
	}
	return nil
}
