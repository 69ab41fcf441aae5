// Package repository presents entities, child entities, and aggregate
// records as row-shaped structures, delegating all SQL construction and
// execution to the query engine. Not-found is an absent result here, never
// an error: callers translate absence into their own signal.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/aggregate"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/server/storage"
)

// Repository is the persistence facade for the entity family. It is safe
// for concurrent use; all state it holds is read-only after construction.
type Repository struct {
	store      *storage.Store
	engine     *query.Engine
	schemas    *schema.Registry
	aggregates *aggregate.Registry
	logger     zerolog.Logger

	ancestorTable     string
	childTable        string
	relationshipTable string
	cascadeOrder      []string
}

// New creates a repository over the given engine and registries. The
// entity configuration names the family tables and the cascade order.
func New(store *storage.Store, engine *query.Engine, schemas *schema.Registry, aggregates *aggregate.Registry, entities config.EntityConfig, logger zerolog.Logger) *Repository {
	return &Repository{
		store:             store,
		engine:            engine,
		schemas:           schemas,
		aggregates:        aggregates,
		logger:            logger.With().Str("component", "repository").Logger(),
		ancestorTable:     entities.AncestorTable,
		childTable:        entities.ChildTable,
		relationshipTable: entities.RelationshipTable,
		cascadeOrder:      entities.CascadeOrder,
	}
}

// AncestorTable returns the configured top-level entity table.
func (r *Repository) AncestorTable() string { return r.ancestorTable }

// ChildTable returns the configured child entity table.
func (r *Repository) ChildTable() string { return r.childTable }

// IsEntityTable reports whether the table belongs to the entity family and
// therefore requires a cascading delete.
func (r *Repository) IsEntityTable(table string) bool {
	return table == r.ancestorTable || table == r.childTable
}

// GetEntityByKey looks an entity up by its display field value. Absent
// rows return (nil, nil).
func (r *Repository) GetEntityByKey(ctx context.Context, table, key string) (query.Row, error) {
	displayColumn, err := r.displayColumn(table)
	if err != nil {
		return nil, err
	}
	return r.one(ctx, table, displayColumn, key)
}

// GetEntityByUID looks an entity up by primary key. Absent rows return
// (nil, nil).
func (r *Repository) GetEntityByUID(ctx context.Context, table, uid string) (query.Row, error) {
	pkColumn, err := r.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	return r.one(ctx, table, pkColumn, uid)
}

// SearchEntities finds entities whose display field contains term as a
// case-insensitive substring.
func (r *Repository) SearchEntities(ctx context.Context, table, term string) ([]query.Row, error) {
	displayColumn, err := r.displayColumn(table)
	if err != nil {
		return nil, err
	}
	return r.engine.SearchLike(ctx, table, displayColumn, term)
}

// CreateEntity inserts an entity row, assigning a fresh uid when the
// caller did not provide one. Returns the created row.
func (r *Repository) CreateEntity(ctx context.Context, table string, props map[string]any) (query.Row, error) {
	if err := r.validateProps(table, props); err != nil {
		return nil, err
	}
	pkColumn, err := r.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	props = cloneProps(props)
	if _, ok := props[pkColumn]; !ok {
		props[pkColumn] = uuid.NewString()
	}
	return r.engine.Insert(ctx, table, props)
}

// UpdateEntityByKey updates the entity identified by its display field
// value. Absent entities return (nil, nil).
func (r *Repository) UpdateEntityByKey(ctx context.Context, table, key string, props map[string]any) (query.Row, error) {
	if err := r.validateProps(table, props); err != nil {
		return nil, err
	}
	entity, err := r.GetEntityByKey(ctx, table, key)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	pkColumn, err := r.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	return r.engine.Update(ctx, table, stringValue(entity[pkColumn]), props)
}

// UpdateEntityByUID updates the entity identified by primary key. Absent
// entities return (nil, nil).
func (r *Repository) UpdateEntityByUID(ctx context.Context, table, uid string, props map[string]any) (query.Row, error) {
	if err := r.validateProps(table, props); err != nil {
		return nil, err
	}
	return r.engine.Update(ctx, table, uid, props)
}

// DeleteEntity removes a single entity row without cascading.
func (r *Repository) DeleteEntity(ctx context.Context, table, uid string) (int64, error) {
	return r.engine.Delete(ctx, table, uid)
}

// CreateChildEntity verifies the parent entity exists, then inserts the
// child row and its relationship record in one transaction. Either both
// rows land or neither does.
func (r *Repository) CreateChildEntity(ctx context.Context, parentKey string, props map[string]any) (query.Row, error) {
	if err := r.validateProps(r.childTable, props); err != nil {
		return nil, err
	}

	parent, err := r.GetEntityByKey(ctx, r.ancestorTable, parentKey)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, errors.Newf(ErrParentNotFound, "no parent entity with key %q", parentKey).
			AddContext("table", r.ancestorTable)
	}
	parentPK, err := r.primaryKeyColumn(r.ancestorTable)
	if err != nil {
		return nil, err
	}
	parentUID := stringValue(parent[parentPK])

	childPK, err := r.primaryKeyColumn(r.childTable)
	if err != nil {
		return nil, err
	}
	props = cloneProps(props)
	childUID, ok := props[childPK].(string)
	if !ok || childUID == "" {
		childUID = uuid.NewString()
		props[childPK] = childUID
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, errors.New(ErrTxFailed, "failed to begin transaction", err)
	}

	if err := r.engine.InsertTx(ctx, tx, r.childTable, props); err != nil {
		tx.Rollback()
		return nil, err
	}
	relationship := map[string]any{
		"uid":          uuid.NewString(),
		"ancestor_uid": parentUID,
		"child_uid":    childUID,
	}
	if err := r.engine.InsertTx(ctx, tx, r.relationshipTable, relationship); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.New(ErrTxFailed, "failed to commit child entity creation", err)
	}

	r.logger.Debug().
		Str("parent_uid", parentUID).
		Str("child_uid", childUID).
		Msg("Created child entity with relationship")
	return r.GetEntityByUID(ctx, r.childTable, childUID)
}

// one fetches at most one row by equality on a column.
func (r *Repository) one(ctx context.Context, table, column string, value string) (query.Row, error) {
	rows, err := r.engine.Select(ctx, query.SelectSpec{
		Table: table,
		Where: map[string]any{column: value},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// validateProps rejects unknown property keys before any SQL is built.
func (r *Repository) validateProps(table string, props map[string]any) error {
	desc, err := r.schemas.ValidateTable(table)
	if err != nil {
		return err
	}
	for key := range props {
		if !desc.HasField(key) {
			return errors.Newf(ErrUnknownProperty, "table %q has no column %q", table, key)
		}
	}
	return nil
}

func (r *Repository) displayColumn(table string) (string, error) {
	desc, err := r.schemas.ValidateTable(table)
	if err != nil {
		return "", err
	}
	display, ok := desc.DisplayField()
	if !ok {
		return "", errors.Newf(ErrUnknownProperty, "table %q has no display field", table)
	}
	return display.Name, nil
}

func (r *Repository) primaryKeyColumn(table string) (string, error) {
	desc, err := r.schemas.ValidateTable(table)
	if err != nil {
		return "", err
	}
	pks := desc.PrimaryKeyFields()
	if len(pks) != 1 {
		return "", errors.Newf(ErrUnknownProperty, "table %q needs exactly one primary key column, has %d", table, len(pks))
	}
	return pks[0].Name, nil
}

func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	return out
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
