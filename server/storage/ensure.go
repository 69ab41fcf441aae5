package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/schema"
)

// EnsureTables creates any catalog table that does not yet exist in the
// backing store. Domain tables normally pre-exist in a production
// deployment; this covers local bootstrap and tests. Existing tables are
// left untouched, whatever their actual shape.
func (s *Store) EnsureTables(ctx context.Context, registry *schema.Registry) error {
	for _, name := range registry.TableNames() {
		desc, _ := registry.Table(name)
		ddl := s.createTableDDL(desc)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return errors.New(ErrEnsureTablesFailed, "failed to ensure table", err).
				AddContext("table", name)
		}
	}
	return nil
}

// createTableDDL renders CREATE TABLE IF NOT EXISTS for a descriptor.
// Identifiers were validated at registration; no caller input reaches here.
func (s *Store) createTableDDL(desc *schema.TableDescriptor) string {
	var cols []string
	var pks []string
	for _, f := range desc.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", f.Name, s.columnType(f.Type)))
		if f.PrimaryKey {
			pks = append(pks, f.Name)
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", desc.Name, strings.Join(cols, ", "))
}

// columnType maps a logical field type to the driver's column type.
func (s *Store) columnType(t schema.FieldType) string {
	switch t {
	case schema.FieldTypeInteger:
		if s.driver == "mysql" {
			return "BIGINT"
		}
		return "INTEGER"
	case schema.FieldTypeFloat:
		if s.driver == "mysql" {
			return "DOUBLE"
		}
		return "REAL"
	case schema.FieldTypeBoolean:
		if s.driver == "mysql" {
			return "TINYINT(1)"
		}
		return "INTEGER"
	case schema.FieldTypeTimestamp:
		if s.driver == "mysql" {
			return "DATETIME"
		}
		return "TEXT"
	default:
		if s.driver == "mysql" {
			return "VARCHAR(512)"
		}
		return "TEXT"
	}
}
