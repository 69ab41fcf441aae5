package repository

import (
	"context"
	"strings"

	"github.com/tablekit/tablekit/pkg/errors"
)

// DeleteEntityCascade removes an entity and everything that references it,
// strictly in the declared dependency order: each aggregate table in
// cascade order, then relationship rows on either side, then the entity
// row. The cascade is best-effort: a failing step stops the walk but does
// not undo the steps already completed, and the returned error names both.
func (r *Repository) DeleteEntityCascade(ctx context.Context, table, uid string) (int64, error) {
	var total int64
	var completed []string

	fail := func(step string, err error) (int64, error) {
		return total, errors.New(ErrPartialCascade, "cascade delete stopped partway", err).
			AddContext("failed_step", step).
			AddContext("completed_steps", strings.Join(completed, ",")).
			AddContext("uid", uid)
	}

	for _, aggTable := range r.cascadeOrder {
		ownerColumn, ok := r.aggregates.OwnerColumnFor(aggTable)
		if !ok {
			return fail(aggTable, errors.Newf(ErrPartialCascade, "no aggregate mapping declares table %q", aggTable))
		}
		affected, err := r.engine.DeleteWhere(ctx, aggTable, ownerColumn, uid)
		if err != nil {
			return fail(aggTable, err)
		}
		total += affected
		completed = append(completed, aggTable)
	}

	for _, column := range []string{"ancestor_uid", "child_uid"} {
		affected, err := r.engine.DeleteWhere(ctx, r.relationshipTable, column, uid)
		if err != nil {
			return fail(r.relationshipTable+"."+column, err)
		}
		total += affected
		completed = append(completed, r.relationshipTable+"."+column)
	}

	affected, err := r.engine.Delete(ctx, table, uid)
	if err != nil {
		return fail(table, err)
	}
	total += affected

	r.logger.Debug().
		Str("table", table).
		Str("uid", uid).
		Int64("rows_deleted", total).
		Msg("Cascade delete completed")
	return total, nil
}
