package repository

import (
	"context"

	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/query"
)

// OrphanedRelationship is a relationship row whose ancestor or child no
// longer exists.
type OrphanedRelationship struct {
	UID         string `json:"uid"`
	AncestorUID string `json:"ancestorUid"`
	ChildUID    string `json:"childUid"`
	Reason      string `json:"reason"`
}

// FindOrphanedRelationships sweeps the relationship table against the
// current entity and child uid sets and reports every dangling edge. The
// tree builder silently skips these; this is the operation that makes
// them visible.
func (r *Repository) FindOrphanedRelationships(ctx context.Context) ([]OrphanedRelationship, error) {
	relationships, err := r.engine.Select(ctx, query.SelectSpec{
		Table:   r.relationshipTable,
		Columns: []string{"uid", "ancestor_uid", "child_uid"},
	})
	if err != nil {
		return nil, errors.New(ErrSweepFailed, "failed to load relationship rows", err)
	}

	ancestorUIDs, err := r.uidSet(ctx, r.ancestorTable)
	if err != nil {
		return nil, err
	}
	childUIDs, err := r.uidSet(ctx, r.childTable)
	if err != nil {
		return nil, err
	}

	var orphans []OrphanedRelationship
	for _, rel := range relationships {
		orphan := OrphanedRelationship{
			UID:         stringValue(rel["uid"]),
			AncestorUID: stringValue(rel["ancestor_uid"]),
			ChildUID:    stringValue(rel["child_uid"]),
		}
		_, ancestorOK := ancestorUIDs[orphan.AncestorUID]
		_, childOK := childUIDs[orphan.ChildUID]
		switch {
		case !ancestorOK && !childOK:
			orphan.Reason = "missing ancestor and child"
		case !ancestorOK:
			orphan.Reason = "missing ancestor"
		case !childOK:
			orphan.Reason = "missing child"
		default:
			continue
		}
		orphans = append(orphans, orphan)
	}
	return orphans, nil
}

// PruneOrphanedRelationships deletes every orphaned relationship row and
// reports how many went away.
func (r *Repository) PruneOrphanedRelationships(ctx context.Context) (int, error) {
	orphans, err := r.FindOrphanedRelationships(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, orphan := range orphans {
		affected, err := r.engine.Delete(ctx, r.relationshipTable, orphan.UID)
		if err != nil {
			return pruned, errors.New(ErrSweepFailed, "failed to prune orphaned relationship", err).
				AddContext("relationship_uid", orphan.UID)
		}
		pruned += int(affected)
	}
	if pruned > 0 {
		r.logger.Info().Int("pruned", pruned).Msg("Pruned orphaned relationship rows")
	}
	return pruned, nil
}

func (r *Repository) uidSet(ctx context.Context, table string) (map[string]struct{}, error) {
	pkColumn, err := r.primaryKeyColumn(table)
	if err != nil {
		return nil, err
	}
	rows, err := r.engine.Select(ctx, query.SelectSpec{
		Table:   table,
		Columns: []string{pkColumn},
	})
	if err != nil {
		return nil, errors.New(ErrSweepFailed, "failed to load entity uids", err).
			AddContext("table", table)
	}
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		set[stringValue(row[pkColumn])] = struct{}{}
	}
	return set, nil
}
