package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sortir/pkg/logx"
)

func openTempSQLite(t *testing.T) (Store, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	st, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "store.db"),
	}, logx.Nop(), rec.notify)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, rec
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	st, rec := openTempSQLite(t)
	ctx := context.Background()

	if err := st.Create(ctx, "users/u1", map[string]any{"name": "Alice"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Create(ctx, "users/u1", nil); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate create err = %v, want ErrExists", err)
	}
	if err := st.Update(ctx, "users/u1", map[string]any{"fcmToken": "tok"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, err := st.Get(ctx, "users/u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if name, _ := doc.Str("name"); name != "Alice" {
		t.Fatal("merge update dropped an existing field")
	}
	if tok, _ := doc.Str("fcmToken"); tok != "tok" {
		t.Fatalf("fcmToken = %q", tok)
	}

	if len(rec.all()) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.all()))
	}
}

func TestSQLiteTimestampsSurviveJSON(t *testing.T) {
	t.Parallel()
	st, _ := openTempSQLite(t)
	ctx := context.Background()

	when := time.Date(2026, 6, 1, 17, 30, 0, 0, time.UTC)
	if err := st.Create(ctx, "activites/a1", map[string]any{"date": when}); err != nil {
		t.Fatalf("create: %v", err)
	}

	doc, _ := st.Get(ctx, "activites/a1")
	got, ok := doc.Time("date")
	if !ok {
		t.Fatalf("date not readable as time, raw = %#v", doc.Fields["date"])
	}
	if !got.Equal(when) {
		t.Fatalf("date = %v, want %v", got, when)
	}
}

func TestSQLiteUpdateIf(t *testing.T) {
	t.Parallel()
	st, _ := openTempSQLite(t)
	ctx := context.Background()

	_ = st.Create(ctx, "activites/a1", map[string]any{"titre": "un"})
	cond := func(d *Document) bool { return !d.Bool("notified3hBefore") }

	applied, err := st.UpdateIf(ctx, "activites/a1", map[string]any{"notified3hBefore": true}, cond)
	if err != nil || !applied {
		t.Fatalf("first UpdateIf = %v, %v", applied, err)
	}
	applied, err = st.UpdateIf(ctx, "activites/a1", map[string]any{"notified3hBefore": true}, cond)
	if err != nil || applied {
		t.Fatalf("second UpdateIf = %v, %v", applied, err)
	}
}

func TestSQLiteBatchIsAtomic(t *testing.T) {
	t.Parallel()
	st, _ := openTempSQLite(t)
	ctx := context.Background()

	b := st.Batch()
	b.Set("users/u1/amis/u2", map[string]any{"accepted": true})
	b.Update("notifications/missing", map[string]any{"processedAt": time.Now()})
	if err := b.Commit(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("commit err = %v, want ErrNotFound", err)
	}
	if _, err := st.Get(ctx, "users/u1/amis/u2"); !errors.Is(err, ErrNotFound) {
		t.Fatal("failed batch left a partial write behind")
	}
}

func TestSQLiteListOrder(t *testing.T) {
	t.Parallel()
	st, _ := openTempSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		if err := st.Create(ctx, "chats/c1/messages/"+id, map[string]any{"message": id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	docs, err := st.List(ctx, "chats/c1/messages")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if docs[i].ID != want {
			t.Fatalf("docs[%d].ID = %q, want %q", i, docs[i].ID, want)
		}
	}
}
