package repository

import (
	"context"

	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/utils"
)

// CreateAggregateRecord inserts a record into the table resolved from the
// aggregate type name, owned by the given entity. Returns the new uid.
func (r *Repository) CreateAggregateRecord(ctx context.Context, typeName, entityUID string, data map[string]any) (string, error) {
	mapping, err := r.aggregates.Resolve(typeName)
	if err != nil {
		return "", err
	}
	pkColumn, err := r.primaryKeyColumn(mapping.Table)
	if err != nil {
		return "", err
	}

	props := cloneProps(data)
	uid := utils.GenerateULIDString()
	props[pkColumn] = uid
	props[mapping.OwnerColumn] = entityUID

	if _, err := r.engine.Insert(ctx, mapping.Table, props); err != nil {
		return "", err
	}
	return uid, nil
}

// UpdateAggregateRecord updates one record of the resolved aggregate
// table. Absent records return (nil, nil).
func (r *Repository) UpdateAggregateRecord(ctx context.Context, typeName, uid string, data map[string]any) (query.Row, error) {
	mapping, err := r.aggregates.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return r.engine.Update(ctx, mapping.Table, uid, data)
}

// DeleteAggregateRecord removes one record of the resolved aggregate table.
func (r *Repository) DeleteAggregateRecord(ctx context.Context, typeName, uid string) (int64, error) {
	mapping, err := r.aggregates.Resolve(typeName)
	if err != nil {
		return 0, err
	}
	return r.engine.Delete(ctx, mapping.Table, uid)
}

// GetAggregateRecordsByEntityUID returns every record the entity owns in
// the resolved aggregate table, sorted by the mapping's default order
// column. All columns are returned, not only the exportable ones, because
// the caller needs uids to edit and delete individual records.
func (r *Repository) GetAggregateRecordsByEntityUID(ctx context.Context, typeName, entityUID string) ([]query.Row, error) {
	mapping, err := r.aggregates.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	desc, err := r.schemas.ValidateTable(mapping.Table)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(desc.Fields))
	for _, f := range desc.Fields {
		columns = append(columns, f.Name)
	}

	spec := query.SelectSpec{
		Table:   mapping.Table,
		Columns: columns,
		Where:   map[string]any{mapping.OwnerColumn: entityUID},
	}
	if mapping.DefaultOrderColumn != "" {
		spec.OrderBy = []query.Order{{Column: mapping.DefaultOrderColumn, Direction: "asc"}}
	}
	return r.engine.Select(ctx, spec)
}
