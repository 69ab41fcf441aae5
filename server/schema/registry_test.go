package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/config"
)

func drugsDescriptor() *TableDescriptor {
	return &TableDescriptor{
		Name: "drugs",
		Fields: []FieldDescriptor{
			{Name: "uid", Type: FieldTypeString, PrimaryKey: true, Exportable: true},
			{Name: "name", Type: FieldTypeString, Exportable: true, Filterable: true},
			{Name: "mfr", Type: FieldTypeString, Exportable: true, Filterable: true},
		},
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"drugs", "drug_catalog", "Table1", "UID", "a", "x_1_y"}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), "expected %q to be valid", name)
	}

	invalid := []string{
		"",
		"drop table",
		"drugs;--",
		"drugs'",
		`drugs"`,
		"dru-gs",
		"drugs.name",
		"dru\tgs",
		"naïve",
		"drugs)",
	}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), "expected %q to be invalid", name)
	}
}

func TestRegisterTableIdempotent(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterTable(drugsDescriptor()))

	// Identical shape is a no-op
	require.NoError(t, registry.RegisterTable(drugsDescriptor()))

	// Different shape for the same name is a conflict
	conflicting := drugsDescriptor()
	conflicting.Fields[1].Type = FieldTypeInteger
	err := registry.RegisterTable(conflicting)
	require.Error(t, err)
	assert.Equal(t, ErrTableConflict.String(), errors.GetCode(err))
}

func TestRegisterTableRejectsBadDescriptors(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterTable(&TableDescriptor{Name: "bad name", Fields: []FieldDescriptor{{Name: "uid", Type: FieldTypeString}}})
	require.Error(t, err)
	assert.Equal(t, ErrInvalidIdentifier.String(), errors.GetCode(err))

	err = registry.RegisterTable(&TableDescriptor{Name: "empty"})
	require.Error(t, err)
	assert.Equal(t, ErrNoFields.String(), errors.GetCode(err))

	err = registry.RegisterTable(&TableDescriptor{
		Name: "dup",
		Fields: []FieldDescriptor{
			{Name: "uid", Type: FieldTypeString},
			{Name: "uid", Type: FieldTypeString},
		},
	})
	require.Error(t, err)
	assert.Equal(t, ErrTableConflict.String(), errors.GetCode(err))

	err = registry.RegisterTable(&TableDescriptor{
		Name:   "badtype",
		Fields: []FieldDescriptor{{Name: "uid", Type: "uuid"}},
	})
	require.Error(t, err)
	assert.Equal(t, ErrUnknownFieldType.String(), errors.GetCode(err))
}

func TestValidateTableAndColumn(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterTable(drugsDescriptor()))

	desc, err := registry.ValidateTable("drugs")
	require.NoError(t, err)
	assert.Equal(t, "drugs", desc.Name)

	_, err = registry.ValidateTable("missing")
	assert.Equal(t, ErrUnknownTable.String(), errors.GetCode(err))

	_, err = registry.ValidateTable("dr ugs")
	assert.Equal(t, ErrInvalidIdentifier.String(), errors.GetCode(err))

	field, err := registry.ValidateColumn("drugs", "name")
	require.NoError(t, err)
	assert.Equal(t, FieldTypeString, field.Type)

	_, err = registry.ValidateColumn("drugs", "dose")
	assert.Equal(t, ErrUnknownColumn.String(), errors.GetCode(err))

	_, err = registry.ValidateColumn("drugs", "name; drop table drugs")
	assert.Equal(t, ErrInvalidIdentifier.String(), errors.GetCode(err))
}

func TestDescriptorDerivedFields(t *testing.T) {
	desc := drugsDescriptor()

	pks := desc.PrimaryKeyFields()
	require.Len(t, pks, 1)
	assert.Equal(t, "uid", pks[0].Name)

	exportable := desc.ExportableFields()
	require.Len(t, exportable, 3)
	assert.Equal(t, []string{"uid", "name", "mfr"}, []string{exportable[0].Name, exportable[1].Name, exportable[2].Name})

	display, ok := desc.DisplayField()
	require.True(t, ok)
	assert.Equal(t, "name", display.Name)
}

func TestLoadRegistryFromConfig(t *testing.T) {
	cfg := config.LoadDefaultConfig()

	registry, err := LoadRegistry(cfg)
	require.NoError(t, err)

	names := registry.TableNames()
	assert.Contains(t, names, "drug_catalog")
	assert.Contains(t, names, "entity_relationships")

	desc, ok := registry.Table("dosing_routes")
	require.True(t, ok)
	assert.True(t, desc.HasField("drug_uid"))
}

func TestLoadRegistryRejectsBadCatalog(t *testing.T) {
	cfg := config.LoadDefaultConfig()
	cfg.Catalog.Tables[0].Fields[0].Type = "blob"

	_, err := LoadRegistry(cfg)
	require.Error(t, err)
	assert.Equal(t, ErrUnknownFieldType.String(), errors.GetCode(err))
}
