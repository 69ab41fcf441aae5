package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := LoadDefaultConfig()

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Expected default driver to be 'sqlite', got '%s'", cfg.Storage.Driver)
	}

	if len(cfg.Catalog.Tables) == 0 {
		t.Error("Expected default catalog to declare tables")
	}

	if cfg.Entities.RelationshipTable != "entity_relationships" {
		t.Errorf("Expected default relationship table, got '%s'", cfg.Entities.RelationshipTable)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := LoadDefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got error: %v", err)
	}

	cfg.Storage.Driver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Error("Config with unsupported driver should fail validation")
	}

	cfg = LoadDefaultConfig()
	cfg.Storage.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Config with empty dsn should fail validation")
	}

	cfg = LoadDefaultConfig()
	cfg.Entities.AncestorTable = "missing_table"
	if err := cfg.Validate(); err == nil {
		t.Error("Config with entity table outside the catalog should fail validation")
	}

	cfg = LoadDefaultConfig()
	cfg.Aggregates[0].Table = "missing_table"
	if err := cfg.Validate(); err == nil {
		t.Error("Config with aggregate table outside the catalog should fail validation")
	}

	cfg = LoadDefaultConfig()
	cfg.Entities.CascadeOrder = append(cfg.Entities.CascadeOrder, "missing_table")
	if err := cfg.Validate(); err == nil {
		t.Error("Config with cascade table outside the catalog should fail validation")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	cfg := LoadDefaultConfig()
	path := filepath.Join(t.TempDir(), "tablekit-server.yml")

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Storage.Driver != cfg.Storage.Driver {
		t.Errorf("Round-tripped driver mismatch: %s != %s", loaded.Storage.Driver, cfg.Storage.Driver)
	}
	if len(loaded.Catalog.Tables) != len(cfg.Catalog.Tables) {
		t.Errorf("Round-tripped catalog size mismatch: %d != %d", len(loaded.Catalog.Tables), len(cfg.Catalog.Tables))
	}
	if len(loaded.Aggregates) != len(cfg.Aggregates) {
		t.Errorf("Round-tripped aggregate count mismatch: %d != %d", len(loaded.Aggregates), len(cfg.Aggregates))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("storage: [not: a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid yaml")
	}
}
