package migrations

import (
	"context"
	"fmt"

	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/storage/systypes"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Package-specific error codes for migrations
var (
	MigrationTableCreationFailed = errors.MustNewCode("migrations.table_creation_failed")
	MigrationIndexCreationFailed = errors.MustNewCode("migrations.index_creation_failed")
)

// Migration001 creates the relationship table and its indexes.
type Migration001 struct{}

// Version returns the migration version
func (m *Migration001) Version() int {
	return 1
}

// Name returns the migration name
func (m *Migration001) Name() string {
	return "entity_relationships"
}

// Description returns the migration description
func (m *Migration001) Description() string {
	return "Relationship table linking ancestor entities to child entities"
}

// Up runs the migration
func (m *Migration001) Up(ctx context.Context, tx bun.Tx) error {
	if _, err := tx.NewCreateTable().
		Model((*systypes.EntityRelationship)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.New(MigrationTableCreationFailed, "failed to create entity_relationships table", err)
	}

	// Both sides of the edge are hot lookup paths for tree assembly and
	// cascade deletes. mysql has no IF NOT EXISTS for indexes; reruns are
	// already prevented there by the version bookkeeping.
	guard := "IF NOT EXISTS "
	if tx.Dialect().Name() == dialect.MySQL {
		guard = ""
	}
	relationshipIndexes := []string{
		fmt.Sprintf(`CREATE INDEX %sidx_entity_relationships_ancestor ON entity_relationships(ancestor_uid)`, guard),
		fmt.Sprintf(`CREATE INDEX %sidx_entity_relationships_child ON entity_relationships(child_uid)`, guard),
	}
	for _, indexSQL := range relationshipIndexes {
		if _, err := tx.ExecContext(ctx, indexSQL); err != nil {
			return errors.New(MigrationIndexCreationFailed, "failed to create relationship index", err)
		}
	}

	return nil
}
