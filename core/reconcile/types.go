package reconcile

import (
	"errors"
	"fmt"

	"github.com/burakenal/data/core/table"
)

var (
	ErrNilTable          = errors.New("table is nil")
	ErrEmptyTableName    = errors.New("target table name is empty")
	ErrMissingPrimaryKey = errors.New("table has no primary key")
)

// RowError reports the row whose command failed. Rows before it were applied
// and accepted; rows after it were not touched.
type RowError struct {
	// Index is the row's position in the table when the run started.
	Index int
	State table.RowState
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Index, e.State, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ActionType is the write a pending row needs.
type ActionType string

const (
	// ActionInsert inserts an Added row.
	ActionInsert ActionType = "insert"
	// ActionUpdate rewrites a Modified row by key.
	ActionUpdate ActionType = "update"
	// ActionDelete deletes a Deleted row by key.
	ActionDelete ActionType = "delete"
)

// Action is one planned write.
type Action struct {
	// Type specifies the write to perform.
	Type ActionType `json:"type"`

	// Row is the row's position in the table.
	Row int `json:"row"`

	// Key holds the primary key values the write is addressed by. Inserts of
	// rows with a generated key carry no value for it.
	Key map[string]any `json:"key"`

	// Values holds the written column values. Empty for deletes.
	Values map[string]any `json:"values,omitempty"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	Inserts   int `json:"inserts"`
	Updates   int `json:"updates"`
	Deletes   int `json:"deletes"`
	Unchanged int `json:"unchanged"`
}

// Total returns the number of planned writes.
func (s PlanSummary) Total() int {
	return s.Inserts + s.Updates + s.Deletes
}

// Plan lists the writes a Sync of the table would perform, in row order.
type Plan struct {
	Table   string      `json:"table"`
	Actions []Action    `json:"actions"`
	Summary PlanSummary `json:"summary"`
}

// Options controls Apply.
type Options struct {
	// DryRun builds the plan without executing it.
	DryRun bool

	// Confirmed indicates the caller approved the writes. If false, nothing
	// executes regardless of DryRun.
	Confirmed bool
}
