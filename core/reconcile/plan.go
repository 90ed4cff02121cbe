package reconcile

import (
	"context"

	"github.com/burakenal/data/core/table"
)

// BuildPlan lists the writes Sync would perform for t without touching the
// database. It applies the same preconditions as Sync.
func BuildPlan(tableName string, t *table.Table) (*Plan, error) {
	if err := validate(tableName, t); err != nil {
		return nil, err
	}

	plan := &Plan{Table: tableName, Actions: make([]Action, 0)}
	keys := t.PrimaryKey()

	for i, row := range t.Rows() {
		action := Action{Row: i, Key: make(map[string]any, len(keys))}
		switch row.State() {
		case table.Added:
			action.Type = ActionInsert
			action.Values = writableValues(t, row)
			plan.Summary.Inserts++
		case table.Modified:
			action.Type = ActionUpdate
			action.Values = writableValues(t, row)
			plan.Summary.Updates++
		case table.Deleted:
			action.Type = ActionDelete
			plan.Summary.Deletes++
		default:
			plan.Summary.Unchanged++
			continue
		}
		for _, k := range keys {
			if action.Type == ActionInsert && k.IsIdentity {
				continue
			}
			action.Key[k.Name] = row.Get(k.Name)
		}
		plan.Actions = append(plan.Actions, action)
	}
	return plan, nil
}

// Apply builds the plan for t and, when the options allow it, syncs the table.
// A dry run or an unconfirmed call returns the plan with zero affected rows
// and leaves every row state untouched.
func (r *Reconciler) Apply(ctx context.Context, tableName string, t *table.Table, opts Options) (*Plan, int64, error) {
	plan, err := BuildPlan(tableName, t)
	if err != nil {
		return nil, 0, err
	}
	if opts.DryRun || !opts.Confirmed {
		return plan, 0, nil
	}
	affected, err := r.Sync(ctx, tableName, t)
	return plan, affected, err
}

func writableValues(t *table.Table, row *table.Row) map[string]any {
	out := make(map[string]any)
	for _, c := range t.Columns() {
		if c.IsIdentity {
			continue
		}
		out[c.Name] = row.Get(c.Name)
	}
	return out
}
