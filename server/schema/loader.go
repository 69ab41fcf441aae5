package schema

import (
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/config"
)

// LoadRegistry builds a schema registry from the configured catalog.
// This runs once at startup; the resulting registry is read-only.
func LoadRegistry(cfg *config.Config) (*Registry, error) {
	registry := NewRegistry()

	for _, tableCfg := range cfg.Catalog.Tables {
		desc, err := descriptorFromConfig(tableCfg)
		if err != nil {
			return nil, err
		}
		if err := registry.RegisterTable(desc); err != nil {
			return nil, errors.AsError(err).AddContext("table", tableCfg.Name)
		}
	}

	return registry, nil
}

func descriptorFromConfig(tableCfg config.TableConfig) (*TableDescriptor, error) {
	fields := make([]FieldDescriptor, 0, len(tableCfg.Fields))
	for _, fieldCfg := range tableCfg.Fields {
		fieldType, err := ParseFieldType(fieldCfg.Type)
		if err != nil {
			return nil, errors.AsError(err).
				AddContext("table", tableCfg.Name).
				AddContext("column", fieldCfg.Name)
		}
		fields = append(fields, FieldDescriptor{
			Name:       fieldCfg.Name,
			Type:       fieldType,
			PrimaryKey: fieldCfg.PrimaryKey,
			Exportable: fieldCfg.Exportable,
			Filterable: fieldCfg.Filterable,
		})
	}

	return &TableDescriptor{
		Name:   tableCfg.Name,
		Fields: fields,
	}, nil
}
