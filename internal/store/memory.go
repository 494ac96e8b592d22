package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore keeps documents in a plain map. It is the test/dev backend
// and the reference semantics for the sqlite driver.
type memoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	notify NotifyFunc
}

func newMemory(notify NotifyFunc) *memoryStore {
	return &memoryStore{docs: map[string]*Document{}, notify: notify}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Get(ctx context.Context, path string) (*Document, error) {
	clean, _, _, err := docPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	return copyDoc(d), nil
}

func (m *memoryStore) List(ctx context.Context, collection string) ([]*Document, error) {
	coll, err := collectionPath(collection)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Document
	for _, d := range m.docs {
		if parentCollection(d.Path) == coll {
			out = append(out, copyDoc(d))
		}
	}
	sortDocs(out)
	return out, nil
}

func (m *memoryStore) Create(ctx context.Context, path string, fields map[string]any) error {
	clean, _, id, err := docPath(path)
	if err != nil {
		return err
	}
	now := time.Now()

	m.mu.Lock()
	if _, ok := m.docs[clean]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, clean)
	}
	d := &Document{Path: clean, ID: id, Fields: copyFields(fields), CreatedAt: now, UpdatedAt: now}
	m.docs[clean] = d
	after := copyDoc(d)
	m.mu.Unlock()

	m.notify(ChangeEvent{Kind: DocCreated, Path: clean, After: after, At: now})
	return nil
}

func (m *memoryStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	coll, err := collectionPath(collection)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := m.Create(ctx, coll+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *memoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	_, err := m.UpdateIf(ctx, path, fields, nil)
	return err
}

func (m *memoryStore) UpdateIf(ctx context.Context, path string, fields map[string]any, cond Condition) (bool, error) {
	clean, _, _, err := docPath(path)
	if err != nil {
		return false, err
	}
	now := time.Now()

	m.mu.Lock()
	d, ok := m.docs[clean]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if cond != nil && !cond(copyDoc(d)) {
		m.mu.Unlock()
		return false, nil
	}
	before := copyDoc(d)
	mergeFields(d.Fields, fields)
	d.UpdatedAt = now
	after := copyDoc(d)
	m.mu.Unlock()

	m.notify(ChangeEvent{Kind: DocUpdated, Path: clean, Before: before, After: after, At: now})
	return true, nil
}

func (m *memoryStore) Batch() Batch {
	return &memoryBatch{store: m}
}

type batchOp struct {
	set    bool // false = merge update
	path   string
	fields map[string]any
}

type memoryBatch struct {
	store *memoryStore
	ops   []batchOp
}

func (b *memoryBatch) Set(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{set: true, path: path, fields: copyFields(fields)})
}

func (b *memoryBatch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{path: path, fields: copyFields(fields)})
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	now := time.Now()
	m := b.store

	m.mu.Lock()
	// Validate first so the batch is all-or-nothing.
	for i := range b.ops {
		clean, _, _, err := docPath(b.ops[i].path)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		b.ops[i].path = clean
		if !b.ops[i].set {
			if _, ok := m.docs[clean]; !ok {
				m.mu.Unlock()
				return fmt.Errorf("%w: %s", ErrNotFound, clean)
			}
		}
	}
	events := make([]ChangeEvent, 0, len(b.ops))
	for _, op := range b.ops {
		_, _, id, _ := docPath(op.path)
		d, ok := m.docs[op.path]
		switch {
		case op.set && !ok:
			d = &Document{Path: op.path, ID: id, Fields: copyFields(op.fields), CreatedAt: now, UpdatedAt: now}
			m.docs[op.path] = d
			events = append(events, ChangeEvent{Kind: DocCreated, Path: op.path, After: copyDoc(d), At: now})
		case op.set:
			before := copyDoc(d)
			d.Fields = copyFields(op.fields)
			d.UpdatedAt = now
			events = append(events, ChangeEvent{Kind: DocUpdated, Path: op.path, Before: before, After: copyDoc(d), At: now})
		default:
			before := copyDoc(d)
			mergeFields(d.Fields, op.fields)
			d.UpdatedAt = now
			events = append(events, ChangeEvent{Kind: DocUpdated, Path: op.path, Before: before, After: copyDoc(d), At: now})
		}
	}
	m.mu.Unlock()

	for _, e := range events {
		m.notify(e)
	}
	return nil
}
