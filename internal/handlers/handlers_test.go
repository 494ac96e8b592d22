package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"sortir/internal/push"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []push.Message
}

func (f *fakeSender) Send(ctx context.Context, m push.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeSender) messages() []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]push.Message, len(f.sent))
	copy(out, f.sent)
	return out
}

func memStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Driver: "memory"}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func seedUser(t *testing.T, st store.Store, id, name, token string) {
	t.Helper()
	fields := map[string]any{"name": name}
	if token != "" {
		fields["fcmToken"] = token
	}
	if err := st.Create(context.Background(), "users/"+id, fields); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func createdEvent(path string, fields map[string]any) store.ChangeEvent {
	return store.ChangeEvent{
		Kind: store.DocCreated,
		Path: path,
		After: &store.Document{
			Path:   path,
			ID:     path[strings.LastIndexByte(path, '/')+1:],
			Fields: fields,
		},
		At: time.Now(),
	}
}

func updatedEvent(path string, before, after map[string]any) store.ChangeEvent {
	return store.ChangeEvent{
		Kind:   store.DocUpdated,
		Path:   path,
		Before: &store.Document{Path: path, Fields: before},
		After:  &store.Document{Path: path, Fields: after},
		At:     time.Now(),
	}
}

func TestPrivateMessageNotifiesReceiver(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u1", "Alice", "")
	seedUser(t, st, "u2", "Bruno", "tok-u2")

	sender := &fakeSender{}
	h := NewPrivateMessage(st, sender, logx.Nop())

	ev := createdEvent("chats/c1/messages/m1", map[string]any{
		"senderId":   "u1",
		"receiverId": "u2",
		"text":       "On se retrouve où ?",
	})
	if err := h.Handle(context.Background(), ev, map[string]string{"chatId": "c1", "messageId": "m1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(msgs))
	}
	m := msgs[0]
	if len(m.Tokens) != 1 || m.Tokens[0] != "tok-u2" {
		t.Fatalf("tokens = %v, want [tok-u2]", m.Tokens)
	}
	if !strings.HasPrefix(m.Notification.Title, "Alice") {
		t.Fatalf("title = %q, want sender name prefix", m.Notification.Title)
	}
	if m.Notification.Body != "On se retrouve où ?" {
		t.Fatalf("body = %q", m.Notification.Body)
	}
	if m.Data["senderId"] != "u1" || m.Data["chatId"] != "c1" {
		t.Fatalf("data = %v", m.Data)
	}
}

func TestPrivateMessageNoTokenIsNoop(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u1", "Alice", "tok-u1")
	seedUser(t, st, "u2", "Bruno", "") // no fcmToken

	sender := &fakeSender{}
	h := NewPrivateMessage(st, sender, logx.Nop())

	ev := createdEvent("chats/c1/messages/m1", map[string]any{
		"senderId":   "u1",
		"receiverId": "u2",
		"text":       "salut",
	})
	if err := h.Handle(context.Background(), ev, map[string]string{"chatId": "c1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Fatal("expected no dispatch for tokenless receiver")
	}
}

func TestPrivateMessageUnknownSenderFallsBack(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u2", "Bruno", "tok-u2")

	sender := &fakeSender{}
	h := NewPrivateMessage(st, sender, logx.Nop())

	ev := createdEvent("chats/c1/messages/m1", map[string]any{
		"senderId":   "ghost",
		"receiverId": "u2",
		"text":       "hello",
	})
	if err := h.Handle(context.Background(), ev, map[string]string{"chatId": "c1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].Notification.Title, "Quelqu’un") {
		t.Fatalf("title = %q, want fallback name", msgs[0].Notification.Title)
	}
}

func TestActivityChatNotifiesOtherMembers(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u3", "Chloé", "tok-u3")
	seedUser(t, st, "u4", "David", "tok-u4")
	seedUser(t, st, "u5", "Emma", "") // no token
	if err := st.Create(context.Background(), "conversations/conv1", map[string]any{
		"users":        []string{"u3", "u4", "u5"},
		"fromActivite": "Randonnée au Canigou",
	}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	sender := &fakeSender{}
	h := NewActivityChat(st, sender, logx.Nop())

	long := strings.Repeat("a", 100)
	ev := createdEvent("conversations/conv1/messages/m1", map[string]any{
		"userId": "u3",
		"text":   long,
	})
	if err := h.Handle(context.Background(), ev, map[string]string{"conversationId": "conv1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(msgs))
	}
	m := msgs[0]
	// Sender excluded, tokenless member skipped.
	if len(m.Tokens) != 1 || m.Tokens[0] != "tok-u4" {
		t.Fatalf("tokens = %v, want [tok-u4]", m.Tokens)
	}
	if want := "💬 Chloé - Randonnée au Canigou"; m.Notification.Title != want {
		t.Fatalf("title = %q, want %q", m.Notification.Title, want)
	}
	if want := strings.Repeat("a", 80) + "…"; m.Notification.Body != want {
		t.Fatalf("body = %q, want 80 runes + ellipsis", m.Notification.Body)
	}
	if m.Data["conversationId"] != "conv1" || m.Data["fromUserId"] != "u3" {
		t.Fatalf("data = %v", m.Data)
	}
}

func TestActivityChatShortCircuits(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u3", "Chloé", "tok-u3")

	sender := &fakeSender{}
	h := NewActivityChat(st, sender, logx.Nop())

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{name: "missing text", fields: map[string]any{"userId": "u3"}},
		{name: "missing userId", fields: map[string]any{"text": "coucou"}},
		{name: "conversation absent", fields: map[string]any{"userId": "u3", "text": "coucou"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ev := createdEvent("conversations/nope/messages/m1", tt.fields)
			if err := h.Handle(context.Background(), ev, map[string]string{"conversationId": "nope"}); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(sender.messages()) != 0 {
				t.Fatal("expected no dispatch")
			}
		})
	}
}

func TestFriendAcceptWritesMutualRelation(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	ctx := context.Background()
	if err := st.Create(ctx, "notifications/n1", map[string]any{
		"fromUserId": "u1",
		"toUserId":   "u2",
		"status":     "pending",
	}); err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	h := NewFriendAccept(st, logx.Nop())
	ev := updatedEvent("notifications/n1",
		map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": "pending"},
		map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": "accepted"},
	)
	if err := h.Handle(ctx, ev, map[string]string{"notifId": "n1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, path := range []string{"users/u1/amis/u2", "users/u2/amis/u1"} {
		doc, err := st.Get(ctx, path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		if !doc.Bool("accepted") {
			t.Fatalf("%s: accepted flag not set", path)
		}
		if _, ok := doc.Time("addedAt"); !ok {
			t.Fatalf("%s: addedAt missing", path)
		}
	}
	notif, err := st.Get(ctx, "notifications/n1")
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if _, ok := notif.Time("processedAt"); !ok {
		t.Fatal("processedAt missing on notification")
	}
}

func TestFriendAcceptIgnoresOtherTransitions(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	ctx := context.Background()

	h := NewFriendAccept(st, logx.Nop())

	tests := []struct {
		name          string
		before, after string
	}{
		{name: "no change", before: "accepted", after: "accepted"},
		{name: "rejected", before: "pending", after: "rejected"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ev := updatedEvent("notifications/n1",
				map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": tt.before},
				map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": tt.after},
			)
			if err := h.Handle(ctx, ev, map[string]string{"notifId": "n1"}); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if _, err := st.Get(ctx, "users/u1/amis/u2"); err == nil {
				t.Fatal("relation written for a non-acceptance transition")
			}
		})
	}
}

func TestFriendAcceptBatchIsAtomic(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	ctx := context.Background()
	// The notification document does not exist, so the batch's Update must
	// fail and roll back the relation writes with it.
	h := NewFriendAccept(st, logx.Nop())
	ev := updatedEvent("notifications/missing",
		map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": "pending"},
		map[string]any{"fromUserId": "u1", "toUserId": "u2", "status": "accepted"},
	)
	if err := h.Handle(ctx, ev, map[string]string{"notifId": "missing"}); err == nil {
		t.Fatal("expected batch commit error")
	}
	for _, path := range []string{"users/u1/amis/u2", "users/u2/amis/u1"} {
		if _, err := st.Get(ctx, path); err == nil {
			t.Fatalf("%s written despite failed batch", path)
		}
	}
}

func TestNewParticipantAnnouncesFirstAddedOnly(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	seedUser(t, st, "u3", "Chloé", "tok-u3")
	seedUser(t, st, "u4", "David", "tok-u4")
	seedUser(t, st, "u5", "Emma", "tok-u5")
	seedUser(t, st, "u6", "Farid", "tok-u6")

	sender := &fakeSender{}
	h := NewNewParticipant(st, sender, logx.Nop())

	ev := updatedEvent("activites/a1",
		map[string]any{"titre": "Tournoi de pétanque", "participants": []string{"u3", "u4"}},
		map[string]any{"titre": "Tournoi de pétanque", "participants": []string{"u3", "u4", "u5", "u6"}},
	)
	if err := h.Handle(context.Background(), ev, map[string]string{"activiteId": "a1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d dispatches, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Data["newUserId"] != "u5" {
		t.Fatalf("announced %q, want first added u5", m.Data["newUserId"])
	}
	// u6 was added in the same write: not announced, but still a recipient.
	wantTokens := map[string]bool{"tok-u3": true, "tok-u4": true, "tok-u6": true}
	if len(m.Tokens) != len(wantTokens) {
		t.Fatalf("tokens = %v, want %v", m.Tokens, wantTokens)
	}
	for _, tok := range m.Tokens {
		if !wantTokens[tok] {
			t.Fatalf("unexpected token %q (announced user must be excluded)", tok)
		}
	}
	if want := "Emma a rejoint \"Tournoi de pétanque\""; m.Notification.Body != want {
		t.Fatalf("body = %q, want %q", m.Notification.Body, want)
	}
}

func TestNewParticipantNoAdditionIsNoop(t *testing.T) {
	t.Parallel()
	st := memStore(t)
	sender := &fakeSender{}
	h := NewNewParticipant(st, sender, logx.Nop())

	ev := updatedEvent("activites/a1",
		map[string]any{"participants": []string{"u3", "u4"}},
		map[string]any{"participants": []string{"u3", "u4"}, "notified3hBefore": true},
	)
	if err := h.Handle(context.Background(), ev, map[string]string{"activiteId": "a1"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.messages()) != 0 {
		t.Fatal("expected no dispatch when participants are unchanged")
	}
}
