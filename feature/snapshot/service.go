package snapshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/query"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/server"
	"github.com/burakenal/data/core/storage"
	"github.com/burakenal/data/core/table"
)

var (
	ErrTableNotAllowed  = errors.New("table is not exposed")
	ErrReadOnly         = errors.New("server is read-only")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrTableMismatch    = errors.New("snapshot belongs to another table")
)

// Snapshot is the stored form of a table.
type Snapshot struct {
	Table      string           `json:"table"`
	TakenAt    time.Time        `json:"taken_at"`
	Columns    []table.Column   `json:"columns"`
	PrimaryKey []string         `json:"primary_key"`
	Rows       []map[string]any `json:"rows"`
}

// ExportResult describes a stored snapshot.
type ExportResult struct {
	Table  string `json:"table"`
	Object string `json:"object"`
	Rows   int    `json:"rows"`
	Size   int64  `json:"size"`
}

// ImportOptions controls Import.
type ImportOptions struct {
	// Prune deletes rows that are absent from the snapshot.
	Prune bool
	// DryRun reports the plan without writing.
	DryRun bool
	// Confirmed must be set for any write to happen.
	Confirmed bool
}

// ImportResult reports what an import planned and did.
type ImportResult struct {
	Plan     *reconcile.Plan `json:"plan"`
	Affected int64           `json:"affected"`
	Applied  bool            `json:"applied"`
}

// Entry is a snapshot object found in the bucket.
type Entry struct {
	Table        string    `json:"table"`
	Object       string    `json:"object"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Service moves table contents between the database and object storage.
type Service struct {
	adapter *database.Adapter
	client  storage.Client
	storage storage.Config
	server  server.Config
	logger  *zap.Logger
}

// NewService creates a new snapshot service.
func NewService(adapter *database.Adapter, client storage.Client, storageCfg storage.Config, serverCfg server.Config, logger *zap.Logger) *Service {
	return &Service{
		adapter: adapter,
		client:  client,
		storage: storageCfg,
		server:  serverCfg,
		logger:  logger,
	}
}

// ObjectName returns the object key a snapshot of name is stored under.
func (s *Service) ObjectName(name string) string {
	return s.storage.Prefix + name + ".json"
}

// Export reads every row of name and stores it as a JSON snapshot.
func (s *Service) Export(ctx context.Context, name string) (*ExportResult, error) {
	t, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{
		Table:   name,
		TakenAt: time.Now().UTC(),
		Columns: t.Columns(),
		Rows:    make([]map[string]any, 0, t.Len()),
	}
	for _, k := range t.PrimaryKey() {
		snap.PrimaryKey = append(snap.PrimaryKey, k.Name)
	}
	for _, row := range t.Rows() {
		snap.Rows = append(snap.Rows, row.Values())
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot of %s: %w", name, err)
	}

	if err := storage.EnsureBucket(ctx, s.client, s.storage.Bucket, s.storage.Region); err != nil {
		return nil, err
	}
	object := s.ObjectName(name)
	info, err := s.client.PutObject(ctx, s.storage.Bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", object, err)
	}

	size := info.Size
	if size == 0 {
		size = int64(len(data))
	}
	s.logger.Info("Snapshot exported",
		zap.String("table", name),
		zap.String("object", object),
		zap.Int("rows", len(snap.Rows)),
		zap.Int64("size", size))
	return &ExportResult{Table: name, Object: object, Rows: len(snap.Rows), Size: size}, nil
}

// Import reconciles name with its stored snapshot. Rows missing from the
// table are inserted and differing rows are updated. With Prune, rows
// missing from the snapshot are deleted.
func (s *Service) Import(ctx context.Context, name string, opts ImportOptions) (*ImportResult, error) {
	write := opts.Confirmed && !opts.DryRun
	if write && s.server.ReadOnly {
		return nil, ErrReadOnly
	}

	snap, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	t, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := diff(t, snap, opts.Prune); err != nil {
		return nil, err
	}

	if !write {
		plan, err := s.adapter.Plan(name, t)
		if err != nil {
			return nil, err
		}
		return &ImportResult{Plan: plan}, nil
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

	plan, affected, err := s.adapter.WithTx(tx).Apply(ctx, name, t, reconcile.Options{Confirmed: true})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import of %s: %w", name, err)
	}
	committed = true

	s.logger.Info("Snapshot imported",
		zap.String("table", name),
		zap.Bool("prune", opts.Prune),
		zap.Int("inserts", plan.Summary.Inserts),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("deletes", plan.Summary.Deletes),
		zap.Int64("affected", affected))
	return &ImportResult{Plan: plan, Affected: affected, Applied: true}, nil
}

// Read downloads and decodes the snapshot of name.
func (s *Service) Read(ctx context.Context, name string) (*Snapshot, error) {
	if !s.server.IsTableAllowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	object := s.ObjectName(name)
	obj, err := s.client.GetObject(ctx, s.storage.Bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(object, err)
	}
	defer obj.Close()

	var snap Snapshot
	dec := json.NewDecoder(obj)
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return nil, notFound(object, err)
	}
	if !strings.EqualFold(snap.Table, name) {
		return nil, fmt.Errorf("%w: %s holds %s", ErrTableMismatch, object, snap.Table)
	}
	return &snap, nil
}

// List returns the snapshots stored under the configured prefix.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0)
	for obj := range s.client.ListObjects(ctx, s.storage.Bucket, minio.ListObjectsOptions{
		Prefix:    s.storage.Prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		entries = append(entries, Entry{
			Table:        strings.TrimSuffix(strings.TrimPrefix(obj.Key, s.storage.Prefix), ".json"),
			Object:       obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return entries, nil
}

// Delete removes the stored snapshot of name.
func (s *Service) Delete(ctx context.Context, name string) error {
	if !s.server.IsTableAllowed(name) {
		return fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	if s.server.ReadOnly {
		return ErrReadOnly
	}
	object := s.ObjectName(name)
	if err := s.client.RemoveObject(ctx, s.storage.Bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return notFound(object, err)
	}
	s.logger.Info("Snapshot deleted", zap.String("table", name), zap.String("object", object))
	return nil
}

// load reads the current contents of name with its stored schema.
func (s *Service) load(ctx context.Context, name string) (*table.Table, error) {
	if !s.server.IsTableAllowed(name) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, name)
	}
	t, err := s.adapter.NewTable(ctx, name)
	if err != nil {
		return nil, err
	}
	sel := query.From(name)
	for _, k := range t.PrimaryKey() {
		sel = sel.WithOrder(k.Name, false)
	}
	if _, err := s.adapter.Fill(ctx, sel, t); err != nil {
		return nil, err
	}
	return t, nil
}

// diff marks the rows of t so that syncing it makes the table match snap.
func diff(t *table.Table, snap *Snapshot, prune bool) error {
	keys := t.PrimaryKey()
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s", reconcile.ErrMissingPrimaryKey, t.Name)
	}

	existing := t.Rows()
	seen := make(map[*table.Row]bool, len(existing))

	for i, raw := range snap.Rows {
		values := make(map[string]any, len(raw))
		for name, v := range raw {
			c, ok := t.Column(name)
			if !ok {
				return fmt.Errorf("snapshot row %d: %w: %s", i, table.ErrUnknownColumn, name)
			}
			cv, err := decodeValue(c, v)
			if err != nil {
				return fmt.Errorf("snapshot row %d: %w", i, err)
			}
			values[c.Name] = cv
		}

		key := make([]any, len(keys))
		for j, k := range keys {
			key[j] = values[k.Name]
		}
		row := t.Find(key...)
		if row == nil || row.State() == table.Added {
			if _, err := t.AddMap(values); err != nil {
				return fmt.Errorf("snapshot row %d: %w", i, err)
			}
			continue
		}

		seen[row] = true
		for _, c := range t.Columns() {
			v, ok := values[c.Name]
			if !ok || c.IsIdentity || c.Equal(row.Get(c.Name), v) {
				continue
			}
			if err := row.Set(c.Name, v); err != nil {
				return fmt.Errorf("snapshot row %d: %w", i, err)
			}
		}
	}

	if prune {
		for _, row := range existing {
			if !seen[row] {
				row.Delete()
			}
		}
	}
	return nil
}

// decodeValue converts a JSON-decoded value to the column type.
func decodeValue(c table.Column, v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if c.Type == table.TypeAny {
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
			return x.Float64()
		}
		v = x.String()
	case string:
		// encoding/json writes byte slices as base64
		if c.Type == table.TypeBytes {
			b, err := base64.StdEncoding.DecodeString(x)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %w", table.ErrInvalidValue, c.Name, err)
			}
			return b, nil
		}
	}
	return c.Coerce(v)
}

func notFound(object string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, object)
	}
	return fmt.Errorf("failed to read %s: %w", object, err)
}
