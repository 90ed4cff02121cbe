package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/query"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/result"
	"github.com/burakenal/data/core/server"
	"github.com/burakenal/data/core/table"
)

var (
	ErrTableNotAllowed = errors.New("table is not exposed")
	ErrReadOnly        = errors.New("server is read-only")
	ErrMissingKey      = errors.New("row is missing a primary key value")
	ErrRowNotFound     = errors.New("row not found")
)

// ListRequest describes a read of one table.
type ListRequest struct {
	Fields  []string
	Filters map[string]string
	OrderBy string
	Desc    bool
	Skip    int
	Take    int
}

// ChangeRequest is a batch of writes applied in one transaction.
type ChangeRequest struct {
	Insert []map[string]any `json:"insert"`
	Update []map[string]any `json:"update"`
	Delete []map[string]any `json:"delete"`
	DryRun bool             `json:"dry_run"`
}

// ChangeResult reports what a ChangeRequest did.
type ChangeResult struct {
	Plan     *reconcile.Plan  `json:"plan"`
	Affected int64            `json:"affected"`
	Inserted []map[string]any `json:"inserted,omitempty"`
}

// Service exposes tables of one database.
type Service struct {
	adapter *database.Adapter
	cfg     server.Config
	logger  *zap.Logger
}

// NewService creates a new tables service.
func NewService(adapter *database.Adapter, cfg server.Config, logger *zap.Logger) *Service {
	return &Service{adapter: adapter, cfg: cfg, logger: logger}
}

// List returns the rows matching req.
func (s *Service) List(ctx context.Context, name string, req ListRequest) ([]map[string]any, error) {
	sel, err := s.buildSelect(ctx, name, req)
	if err != nil {
		return nil, err
	}
	return s.adapter.ToDictionaryList(ctx, sel)
}

// First returns the first row matching req, or nil.
func (s *Service) First(ctx context.Context, name string, req ListRequest) (map[string]any, error) {
	sel, err := s.buildSelect(ctx, name, req)
	if err != nil {
		return nil, err
	}
	return s.adapter.ToDictionary(ctx, sel)
}

// Schema returns the stored column schema of name.
func (s *Service) Schema(ctx context.Context, name string) ([]result.ColumnSchema, error) {
	if !s.cfg.IsTableAllowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	cols, err := s.adapter.SchemaCache().TableSchema(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", database.ErrTableNotFound, name)
	}
	return cols, nil
}

// Apply writes req to name inside a transaction. A dry run reports the plan
// and rolls back.
func (s *Service) Apply(ctx context.Context, name string, req ChangeRequest) (*ChangeResult, error) {
	if s.cfg.ReadOnly {
		return nil, ErrReadOnly
	}
	t, err := s.newTable(ctx, name)
	if err != nil {
		return nil, err
	}

	tx, err := s.adapter.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	txa := s.adapter.WithTx(tx)

	for _, values := range req.Update {
		row, err := s.load(ctx, txa, t, values)
		if err != nil {
			return nil, err
		}
		coerced, err := coerceAll(t, values)
		if err != nil {
			return nil, err
		}
		for col, v := range coerced {
			if isKey(t, col) {
				continue
			}
			if err := row.Set(col, v); err != nil {
				return nil, err
			}
		}
	}
	for _, values := range req.Delete {
		row, err := s.load(ctx, txa, t, values)
		if err != nil {
			return nil, err
		}
		row.Delete()
	}
	var inserted []*table.Row
	for _, values := range req.Insert {
		coerced, err := coerceAll(t, values)
		if err != nil {
			return nil, err
		}
		row, err := t.AddMap(coerced)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, row)
	}

	plan, affected, err := txa.Apply(ctx, name, t, reconcile.Options{DryRun: req.DryRun, Confirmed: true})
	if err != nil {
		return nil, err
	}
	out := &ChangeResult{Plan: plan, Affected: affected}
	if req.DryRun {
		return out, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit changes: %w", err)
	}
	committed = true

	for _, row := range inserted {
		out.Inserted = append(out.Inserted, row.Values())
	}
	s.logger.Info("Changes applied",
		zap.String("table", name),
		zap.Int("inserts", plan.Summary.Inserts),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("deletes", plan.Summary.Deletes),
		zap.Int64("affected", affected))
	return out, nil
}

func (s *Service) newTable(ctx context.Context, name string) (*table.Table, error) {
	if !s.cfg.IsTableAllowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	return s.adapter.NewTable(ctx, name)
}

func (s *Service) buildSelect(ctx context.Context, name string, req ListRequest) (query.Select, error) {
	t, err := s.newTable(ctx, name)
	if err != nil {
		return query.Select{}, err
	}

	sel := query.From(name).WithSkip(req.Skip).WithTake(req.Take)
	for _, f := range req.Fields {
		if _, ok := t.Column(f); !ok {
			return query.Select{}, fmt.Errorf("%w: %s", table.ErrUnknownColumn, f)
		}
	}
	if len(req.Fields) > 0 {
		sel = sel.WithFields(req.Fields...)
	}

	var preds []query.Predicate
	for col, raw := range req.Filters {
		c, ok := t.Column(col)
		if !ok {
			return query.Select{}, fmt.Errorf("%w: %s", table.ErrUnknownColumn, col)
		}
		v, err := c.Coerce(raw)
		if err != nil {
			return query.Select{}, err
		}
		preds = append(preds, query.Eq(c.Name, v))
	}
	if len(preds) > 0 {
		sel = sel.WithWhere(query.And(preds...))
	}

	switch {
	case req.OrderBy != "":
		if _, ok := t.Column(req.OrderBy); !ok {
			return query.Select{}, fmt.Errorf("%w: %s", table.ErrUnknownColumn, req.OrderBy)
		}
		sel = sel.WithOrder(req.OrderBy, req.Desc)
	case len(t.PrimaryKey()) > 0:
		// stable paging
		for _, k := range t.PrimaryKey() {
			sel = sel.WithOrder(k.Name, false)
		}
	}
	return sel, nil
}

// load reads the row addressed by the key columns of values into t.
func (s *Service) load(ctx context.Context, a *database.Adapter, t *table.Table, values map[string]any) (*table.Row, error) {
	keys := t.PrimaryKey()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", reconcile.ErrMissingPrimaryKey, t.Name)
	}
	keyValues := make([]any, len(keys))
	preds := make([]query.Predicate, len(keys))
	for i, k := range keys {
		raw, ok := lookup(values, k.Name)
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, k.Name)
		}
		v, err := k.Coerce(raw)
		if err != nil {
			return nil, err
		}
		keyValues[i] = v
		preds[i] = query.Eq(k.Name, v)
	}

	if row := t.Find(keyValues...); row != nil {
		return row, nil
	}
	if _, err := a.Fill(ctx, query.From(t.Name).WithWhere(query.And(preds...)), t); err != nil {
		return nil, err
	}
	row := t.Find(keyValues...)
	if row == nil {
		return nil, fmt.Errorf("%w: %v", ErrRowNotFound, keyValues)
	}
	return row, nil
}

func coerceAll(t *table.Table, values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for name, v := range values {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", table.ErrUnknownColumn, name)
		}
		cv, err := c.Coerce(v)
		if err != nil {
			return nil, err
		}
		out[c.Name] = cv
	}
	return out, nil
}

func lookup(values map[string]any, name string) (any, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func isKey(t *table.Table, name string) bool {
	for _, k := range t.PrimaryKey() {
		if k.Name == name {
			return true
		}
	}
	return false
}
