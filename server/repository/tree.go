package repository

import (
	"context"

	"github.com/tablekit/tablekit/server/query"
)

// TreeData is the full entity hierarchy: every top-level entity plus its
// children grouped by ancestor uid.
type TreeData struct {
	Ancestors   []query.Row            `json:"ancestors"`
	ChildrenMap map[string][]query.Row `json:"childrenMap"`
}

// GetEntityTreeData loads all ancestors, relationship rows, and children,
// then joins them in memory. The relationship table is an independent
// index that can drift out of sync with the entity tables, so dangling
// edges are dropped from the tree and only surfaced by the orphan sweep.
func (r *Repository) GetEntityTreeData(ctx context.Context) (*TreeData, error) {
	ancestors, err := r.engine.Select(ctx, query.SelectSpec{Table: r.ancestorTable})
	if err != nil {
		return nil, err
	}
	relationships, err := r.engine.Select(ctx, query.SelectSpec{
		Table:   r.relationshipTable,
		Columns: []string{"ancestor_uid", "child_uid"},
	})
	if err != nil {
		return nil, err
	}
	children, err := r.engine.Select(ctx, query.SelectSpec{Table: r.childTable})
	if err != nil {
		return nil, err
	}

	ancestorPK, err := r.primaryKeyColumn(r.ancestorTable)
	if err != nil {
		return nil, err
	}
	childPK, err := r.primaryKeyColumn(r.childTable)
	if err != nil {
		return nil, err
	}

	// First pass: index both entity sets by uid.
	ancestorUIDs := make(map[string]struct{}, len(ancestors))
	for _, row := range ancestors {
		ancestorUIDs[stringValue(row[ancestorPK])] = struct{}{}
	}
	childByUID := make(map[string]query.Row, len(children))
	for _, row := range children {
		childByUID[stringValue(row[childPK])] = row
	}

	// Second pass: resolve each edge against the indexes.
	childrenMap := make(map[string][]query.Row)
	for _, rel := range relationships {
		ancestorUID := stringValue(rel["ancestor_uid"])
		childUID := stringValue(rel["child_uid"])

		if _, ok := ancestorUIDs[ancestorUID]; !ok {
			r.logger.Debug().
				Str("ancestor_uid", ancestorUID).
				Str("child_uid", childUID).
				Msg("Dropping relationship with missing ancestor from tree")
			continue
		}
		child, ok := childByUID[childUID]
		if !ok {
			r.logger.Debug().
				Str("ancestor_uid", ancestorUID).
				Str("child_uid", childUID).
				Msg("Dropping relationship with missing child from tree")
			continue
		}
		childrenMap[ancestorUID] = append(childrenMap[ancestorUID], child)
	}

	return &TreeData{Ancestors: ancestors, ChildrenMap: childrenMap}, nil
}
