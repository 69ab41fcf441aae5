package schema

import (
	"sort"

	"github.com/tablekit/tablekit/pkg/errors"
)

// Registry holds every registered table descriptor. It is populated once at
// startup and read-only afterward; readers never lock.
type Registry struct {
	tables map[string]*TableDescriptor
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*TableDescriptor),
	}
}

// RegisterTable adds a table descriptor. Registering the identical shape
// twice is a no-op; a conflicting shape fails with schema.table_conflict.
func (r *Registry) RegisterTable(desc *TableDescriptor) error {
	if err := desc.validate(); err != nil {
		return err
	}

	if existing, ok := r.tables[desc.Name]; ok {
		if existing.equalShape(desc) {
			return nil
		}
		return errors.Newf(ErrTableConflict, "table %q already registered with a different shape", desc.Name)
	}

	r.tables[desc.Name] = desc
	return nil
}

// Table returns the descriptor for the named table.
func (r *Registry) Table(name string) (*TableDescriptor, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// TableNames returns all registered table names, sorted.
func (r *Registry) TableNames() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTable checks that the table name is well formed and registered.
func (r *Registry) ValidateTable(table string) (*TableDescriptor, error) {
	if !IsValidIdentifier(table) {
		return nil, errors.Newf(ErrInvalidIdentifier, "invalid table name %q", table)
	}
	desc, ok := r.tables[table]
	if !ok {
		return nil, errors.Newf(ErrUnknownTable, "unknown table %q", table)
	}
	return desc, nil
}

// ValidateColumn checks that the column is well formed and declared on the
// registered table.
func (r *Registry) ValidateColumn(table, column string) (*FieldDescriptor, error) {
	desc, err := r.ValidateTable(table)
	if err != nil {
		return nil, err
	}
	if !IsValidIdentifier(column) {
		return nil, errors.Newf(ErrInvalidIdentifier, "invalid column name %q", column).
			AddContext("table", table)
	}
	field, ok := desc.Field(column)
	if !ok {
		return nil, errors.Newf(ErrUnknownColumn, "unknown column %q on table %q", column, table)
	}
	return field, nil
}
