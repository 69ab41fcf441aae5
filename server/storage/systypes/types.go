// Package systypes holds the bun models for the tables the server itself
// owns. Domain tables (entity families, aggregates) are deployment-owned
// and declared through the catalog instead.
package systypes

import (
	"time"

	"github.com/uptrace/bun"
)

// EntityRelationship is the one table the server always owns: the explicit
// edge record linking an ancestor entity to a child entity. It is
// deliberately decoupled from both entity tables so relationships can be
// rebuilt independently; referential integrity is the repository's job.
type EntityRelationship struct {
	bun.BaseModel `bun:"table:entity_relationships"`

	UID         string    `bun:"uid,pk" json:"uid"`
	AncestorUID string    `bun:"ancestor_uid,notnull" json:"ancestorUid"`
	ChildUID    string    `bun:"child_uid,notnull" json:"childUid"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// SchemaMigration tracks applied migrations.
type SchemaMigration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version   int    `bun:"version,pk,type:integer" json:"version"`
	Name      string `bun:"name,type:text,notnull" json:"name"`
	AppliedAt string `bun:"applied_at,type:text,notnull" json:"applied_at"`
}
