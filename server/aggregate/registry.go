// Package aggregate maps logical aggregate type names to their physical
// tables. The set of aggregate types is fixed at deployment time: the
// registry is loaded once from configuration and resolved by name at call
// time, never defaulted.
package aggregate

import (
	"sort"

	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/schema"
)

// Package-specific error codes for aggregate mapping operations
var (
	ErrUnknownType   = errors.MustNewCode("aggregate.unknown_type")
	ErrTypeConflict  = errors.MustNewCode("aggregate.type_conflict")
	ErrInvalidConfig = errors.MustNewCode("aggregate.invalid_mapping")
)

// Mapping links one logical aggregate type to a physical table, the column
// holding the owning entity uid, and the default ordering column.
type Mapping struct {
	TypeName           string
	Table              string
	OwnerColumn        string
	DefaultOrderColumn string
}

// Registry resolves aggregate type names. Populated once at startup,
// read-only afterward.
type Registry struct {
	schemas  *schema.Registry
	mappings map[string]*Mapping
}

// NewRegistry creates an empty aggregate registry backed by the given
// schema registry.
func NewRegistry(schemas *schema.Registry) *Registry {
	return &Registry{
		schemas:  schemas,
		mappings: make(map[string]*Mapping),
	}
}

// Register adds a mapping after validating that its table and columns
// resolve against the schema registry.
func (r *Registry) Register(m *Mapping) error {
	if m.TypeName == "" {
		return errors.Newf(ErrInvalidConfig, "aggregate type name is required")
	}
	if _, exists := r.mappings[m.TypeName]; exists {
		return errors.Newf(ErrTypeConflict, "aggregate type %q already registered", m.TypeName)
	}

	if _, err := r.schemas.ValidateColumn(m.Table, m.OwnerColumn); err != nil {
		return errors.AsError(err).AddContext("aggregate_type", m.TypeName)
	}
	if m.DefaultOrderColumn != "" {
		if _, err := r.schemas.ValidateColumn(m.Table, m.DefaultOrderColumn); err != nil {
			return errors.AsError(err).AddContext("aggregate_type", m.TypeName)
		}
	}

	r.mappings[m.TypeName] = m
	return nil
}

// Resolve returns the mapping for a type name. Unknown names fail the
// whole request; callers must never fall back to a default table.
func (r *Registry) Resolve(typeName string) (*Mapping, error) {
	m, ok := r.mappings[typeName]
	if !ok {
		return nil, errors.Newf(ErrUnknownType, "unknown aggregate type %q", typeName)
	}
	return m, nil
}

// TypeNames returns all registered aggregate type names, sorted.
func (r *Registry) TypeNames() []string {
	names := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns the distinct physical tables behind all mappings.
func (r *Registry) Tables() []string {
	seen := make(map[string]struct{})
	for _, m := range r.mappings {
		seen[m.Table] = struct{}{}
	}
	tables := make([]string, 0, len(seen))
	for table := range seen {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}

// OwnerColumnFor returns the owning foreign key column for a physical
// aggregate table, if any mapping uses that table.
func (r *Registry) OwnerColumnFor(table string) (string, bool) {
	for _, m := range r.mappings {
		if m.Table == table {
			return m.OwnerColumn, true
		}
	}
	return "", false
}

// LoadRegistry builds an aggregate registry from configuration.
func LoadRegistry(cfg *config.Config, schemas *schema.Registry) (*Registry, error) {
	registry := NewRegistry(schemas)
	for _, aggCfg := range cfg.Aggregates {
		mapping := &Mapping{
			TypeName:           aggCfg.Type,
			Table:              aggCfg.Table,
			OwnerColumn:        aggCfg.OwnerColumn,
			DefaultOrderColumn: aggCfg.OrderColumn,
		}
		if err := registry.Register(mapping); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
