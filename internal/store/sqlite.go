package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sortir/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db     *sql.DB
	log    logx.Logger
	notify NotifyFunc
}

func openSQLite(cfg Config, log logx.Logger, notify NotifyFunc) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, notify: notify}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Get(ctx context.Context, path string) (*Document, error) {
	clean, _, _, err := docPath(path)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, clean)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *sqliteStore) get(ctx context.Context, q querier, clean string) (*Document, error) {
	var (
		id, data, createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, data, created_at, updated_at FROM documents WHERE path = ?`, clean,
	).Scan(&id, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if err != nil {
		return nil, err
	}
	return rowToDoc(clean, id, data, createdAt, updatedAt)
}

func rowToDoc(path, id, data, createdAt, updatedAt string) (*Document, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", path, err)
	}
	ct, _ := time.Parse(time.RFC3339Nano, createdAt)
	ut, _ := time.Parse(time.RFC3339Nano, updatedAt)
	return &Document{Path: path, ID: id, Fields: fields, CreatedAt: ct, UpdatedAt: ut}, nil
}

func (s *sqliteStore) List(ctx context.Context, collection string) ([]*Document, error) {
	coll, err := collectionPath(collection)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, id, data, created_at, updated_at FROM documents
		 WHERE collection = ? ORDER BY created_at, path`, coll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		var path, id, data, createdAt, updatedAt string
		if err := rows.Scan(&path, &id, &data, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		d, err := rowToDoc(path, id, data, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Create(ctx context.Context, path string, fields map[string]any) error {
	clean, coll, id, err := docPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(copyFields(fields))
	if err != nil {
		return err
	}
	now := time.Now()
	ts := now.Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(path, collection, id, data, created_at, updated_at)
		 VALUES(?,?,?,?,?,?)`,
		clean, coll, id, string(data), ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrExists, clean)
		}
		return err
	}

	after, _ := rowToDoc(clean, id, string(data), ts, ts)
	s.notify(ChangeEvent{Kind: DocCreated, Path: clean, After: after, At: now})
	return nil
}

func (s *sqliteStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	coll, err := collectionPath(collection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.Create(ctx, coll+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqliteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	_, err := s.UpdateIf(ctx, path, fields, nil)
	return err
}

func (s *sqliteStore) UpdateIf(ctx context.Context, path string, fields map[string]any, cond Condition) (bool, error) {
	clean, _, _, err := docPath(path)
	if err != nil {
		return false, err
	}
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	before, err := s.get(ctx, tx, clean)
	if err != nil {
		return false, err
	}
	if cond != nil && !cond(before) {
		return false, nil
	}

	merged := copyFields(before.Fields)
	mergeFields(merged, fields)
	data, err := json.Marshal(merged)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE path = ?`,
		string(data), now.Format(time.RFC3339Nano), clean,
	); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	after := &Document{Path: clean, ID: before.ID, Fields: merged, CreatedAt: before.CreatedAt, UpdatedAt: now}
	s.notify(ChangeEvent{Kind: DocUpdated, Path: clean, Before: before, After: after, At: now})
	return true, nil
}

func (s *sqliteStore) Batch() Batch {
	return &sqliteBatch{store: s}
}

type sqliteBatch struct {
	store *sqliteStore
	ops   []batchOp
}

func (b *sqliteBatch) Set(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{set: true, path: path, fields: copyFields(fields)})
}

func (b *sqliteBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{path: path, fields: copyFields(fields)})
}

func (b *sqliteBatch) Commit(ctx context.Context) error {
	s := b.store
	now := time.Now()
	ts := now.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	events := make([]ChangeEvent, 0, len(b.ops))
	for _, op := range b.ops {
		clean, coll, id, err := docPath(op.path)
		if err != nil {
			return err
		}
		before, err := s.get(ctx, tx, clean)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		var fields map[string]any
		switch {
		case op.set:
			fields = op.fields
		case before == nil:
			return fmt.Errorf("%w: %s", ErrNotFound, clean)
		default:
			fields = copyFields(before.Fields)
			mergeFields(fields, op.fields)
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return err
		}

		if before == nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO documents(path, collection, id, data, created_at, updated_at)
				 VALUES(?,?,?,?,?,?)`,
				clean, coll, id, string(data), ts, ts,
			); err != nil {
				return err
			}
			after, _ := rowToDoc(clean, id, string(data), ts, ts)
			events = append(events, ChangeEvent{Kind: DocCreated, Path: clean, After: after, At: now})
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE documents SET data = ?, updated_at = ? WHERE path = ?`,
				string(data), ts, clean,
			); err != nil {
				return err
			}
			after, _ := rowToDoc(clean, id, string(data), before.CreatedAt.Format(time.RFC3339Nano), ts)
			events = append(events, ChangeEvent{Kind: DocUpdated, Path: clean, Before: before, After: after, At: now})
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, e := range events {
		s.notify(e)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures in the error text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
