package config

import (
	"os"

	"github.com/tablekit/tablekit/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	Log        LogConfig         `yaml:"log"`
	Storage    StorageConfig     `yaml:"storage"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Entities   EntityConfig      `yaml:"entities"`
	Aggregates []AggregateConfig `yaml:"aggregates"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`      // "json" or "console"
	FilePath   string `yaml:"file_path"`   // Path to log file
	Console    bool   `yaml:"console"`     // Whether to log to console
	MaxSize    int    `yaml:"max_size"`    // Max file size in MB
	MaxBackups int    `yaml:"max_backups"` // Max number of backup files
	MaxAge     int    `yaml:"max_age"`     // Max age in days
	Cleanup    bool   `yaml:"cleanup"`     // Whether to cleanup log file on startup
}

// StorageConfig represents the relational store configuration
type StorageConfig struct {
	Driver       string `yaml:"driver"` // "sqlite" or "mysql"
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CatalogConfig declares every table the server is allowed to touch.
// Tables absent from the catalog do not exist as far as the server is
// concerned, whatever the underlying database holds.
type CatalogConfig struct {
	Tables []TableConfig `yaml:"tables"`
}

// TableConfig declares one table and its columns
type TableConfig struct {
	Name   string        `yaml:"name"`
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one column
type FieldConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	PrimaryKey bool   `yaml:"primary_key"`
	Exportable bool   `yaml:"exportable"`
	Filterable bool   `yaml:"filterable"`
}

// EntityConfig names the entity-family tables and the cascade order for
// entity deletion. CascadeOrder is the caller-declared dependency order:
// aggregate tables first, then relationships, then the entity row.
type EntityConfig struct {
	AncestorTable     string   `yaml:"ancestor_table"`
	ChildTable        string   `yaml:"child_table"`
	RelationshipTable string   `yaml:"relationship_table"`
	CascadeOrder      []string `yaml:"cascade_order"`
}

// AggregateConfig maps one logical aggregate type to its physical table
type AggregateConfig struct {
	Type        string `yaml:"type"`
	Table       string `yaml:"table"`
	OwnerColumn string `yaml:"owner_column"`
	OrderColumn string `yaml:"order_column"`
}

// LoadDefaultConfig returns a default configuration with the reference
// formulary catalog: a generic-drug ancestor table, a manufactured-product
// child table, and their aggregate tables.
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			FilePath:   "logs/tablekit-server.log",
			Console:    true,
			MaxSize:    100, // 100MB
			MaxBackups: 3,
			MaxAge:     7,    // 7 days
			Cleanup:    true, // Cleanup log file on startup by default
		},
		Storage: StorageConfig{
			Driver:       "sqlite",
			DSN:          "./data/tablekit.db",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Catalog: CatalogConfig{
			Tables: []TableConfig{
				{
					Name: "drug_catalog",
					Fields: []FieldConfig{
						{Name: "uid", Type: "string", PrimaryKey: true, Exportable: true},
						{Name: "name", Type: "string", Exportable: true, Filterable: true},
						{Name: "manufacturer", Type: "string", Exportable: true, Filterable: true},
						{Name: "dosage_form", Type: "string", Exportable: true, Filterable: true},
					},
				},
				{
					Name: "product_catalog",
					Fields: []FieldConfig{
						{Name: "uid", Type: "string", PrimaryKey: true, Exportable: true},
						{Name: "name", Type: "string", Exportable: true, Filterable: true},
						{Name: "ndc_code", Type: "string", Exportable: true, Filterable: true},
						{Name: "strength", Type: "string", Exportable: true, Filterable: true},
					},
				},
				{
					Name: "entity_relationships",
					Fields: []FieldConfig{
						{Name: "uid", Type: "string", PrimaryKey: true},
						{Name: "ancestor_uid", Type: "string", Filterable: true},
						{Name: "child_uid", Type: "string", Filterable: true},
					},
				},
				{
					Name: "dosing_routes",
					Fields: []FieldConfig{
						{Name: "uid", Type: "string", PrimaryKey: true},
						{Name: "drug_uid", Type: "string", Filterable: true},
						{Name: "route", Type: "string", Exportable: true, Filterable: true},
					},
				},
				{
					Name: "approvals",
					Fields: []FieldConfig{
						{Name: "uid", Type: "string", PrimaryKey: true},
						{Name: "drug_uid", Type: "string", Filterable: true},
						{Name: "region", Type: "string", Exportable: true, Filterable: true},
						{Name: "approved_at", Type: "timestamp", Exportable: true},
					},
				},
			},
		},
		Entities: EntityConfig{
			AncestorTable:     "drug_catalog",
			ChildTable:        "product_catalog",
			RelationshipTable: "entity_relationships",
			CascadeOrder:      []string{"dosing_routes", "approvals"},
		},
		Aggregates: []AggregateConfig{
			{Type: "GenericRoute", Table: "dosing_routes", OwnerColumn: "drug_uid", OrderColumn: "route"},
			{Type: "GenericApproval", Table: "approvals", OwnerColumn: "drug_uid", OrderColumn: "region"},
		},
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to marshal config", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.New(ErrConfigFileWriteFailed, "failed to write config file", err)
	}
	return nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "mysql":
	default:
		return errors.Newf(ErrConfigValidationFailed, "unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return errors.Newf(ErrConfigValidationFailed, "storage dsn is required")
	}
	if len(c.Catalog.Tables) == 0 {
		return errors.Newf(ErrConfigValidationFailed, "catalog declares no tables")
	}

	declared := make(map[string]struct{}, len(c.Catalog.Tables))
	for _, t := range c.Catalog.Tables {
		declared[t.Name] = struct{}{}
	}

	for _, name := range []string{c.Entities.AncestorTable, c.Entities.ChildTable, c.Entities.RelationshipTable} {
		if name == "" {
			return errors.Newf(ErrConfigValidationFailed, "entities section is incomplete")
		}
		if _, ok := declared[name]; !ok {
			return errors.Newf(ErrConfigValidationFailed, "entity table %q is not in the catalog", name)
		}
	}
	for _, name := range c.Entities.CascadeOrder {
		if _, ok := declared[name]; !ok {
			return errors.Newf(ErrConfigValidationFailed, "cascade table %q is not in the catalog", name)
		}
	}
	for _, a := range c.Aggregates {
		if a.Type == "" || a.Table == "" || a.OwnerColumn == "" {
			return errors.Newf(ErrConfigValidationFailed, "aggregate mapping %q is incomplete", a.Type)
		}
		if _, ok := declared[a.Table]; !ok {
			return errors.Newf(ErrConfigValidationFailed, "aggregate table %q is not in the catalog", a.Table)
		}
	}
	return nil
}
