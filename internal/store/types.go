package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrExists      = errors.New("document already exists")
	ErrInvalidPath = errors.New("invalid document path")
)

// Config configures the store.
//
// Driver values:
//   - "memory": in-process map backend (tests, dev)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Document is a snapshot of a stored document.
//
// Fields hold JSON-compatible values. Depending on the driver a timestamp
// field may surface as time.Time or as an RFC 3339 string; use Time() to
// read one uniformly.
type Document struct {
	Path   string
	ID     string
	Fields map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exists is nil-receiver safe so callers can write `if !doc.Exists()`.
func (d *Document) Exists() bool { return d != nil }

// Str returns a string field. Absent or non-string values report ok=false.
func (d *Document) Str(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	s, ok := d.Fields[key].(string)
	return s, ok
}

// Bool returns a boolean field; absent or non-bool values read as false.
func (d *Document) Bool(key string) bool {
	if d == nil {
		return false
	}
	b, _ := d.Fields[key].(bool)
	return b
}

// Time returns a timestamp field, accepting either a time.Time value or an
// RFC 3339 string (the sqlite driver stores timestamps as strings).
func (d *Document) Time(key string) (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	switch v := d.Fields[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// StrSlice returns a string-array field. Non-string elements are skipped.
func (d *Document) StrSlice(key string) []string {
	if d == nil {
		return nil
	}
	switch v := d.Fields[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Condition guards a conditional update. It receives the current snapshot
// (never nil) and reports whether the update should be applied.
type Condition func(*Document) bool

// ChangeKind discriminates document change events.
type ChangeKind string

const (
	DocCreated ChangeKind = "created"
	DocUpdated ChangeKind = "updated"
)

// ChangeEvent describes one committed document write.
//
// Before is nil for creations. Batch commits emit one event per document,
// in batch order, after the whole batch is durable.
type ChangeEvent struct {
	Kind   ChangeKind
	Path   string
	Before *Document
	After  *Document
	At     time.Time
}

// NotifyFunc receives committed change events. It must not block: it is
// called synchronously on the writer's goroutine.
type NotifyFunc func(ChangeEvent)

// Batch collects writes that commit atomically: either every operation is
// applied or none is.
type Batch interface {
	// Set creates or fully replaces a document.
	Set(path string, fields map[string]any)
	// Update merges fields into an existing document; the commit fails if
	// the document does not exist.
	Update(path string, fields map[string]any)
	Commit(ctx context.Context) error
}

// Store is the document persistence API used by handlers and the scan job.
type Store interface {
	Get(ctx context.Context, path string) (*Document, error)
	List(ctx context.Context, collection string) ([]*Document, error)
	Create(ctx context.Context, path string, fields map[string]any) error
	// Add creates a document with a generated ID and returns the ID.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	// UpdateIf merges fields only when cond holds for the current snapshot,
	// atomically with respect to concurrent writers. It reports whether the
	// update was applied.
	UpdateIf(ctx context.Context, path string, fields map[string]any, cond Condition) (bool, error)
	Batch() Batch
	Close() error
}
