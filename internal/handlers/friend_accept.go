package handlers

import (
	"context"
	"time"

	"sortir/internal/store"
	"sortir/pkg/logx"
)

const statusAccepted = "accepted"

// FriendAccept reacts to a friend-request notification switching to
// "accepted": it records the mutual friend relation for both users and
// timestamps the notification, all in one atomic batch. No push is sent.
type FriendAccept struct {
	store store.Store
	log   logx.Logger
	now   func() time.Time
}

func NewFriendAccept(st store.Store, log logx.Logger) *FriendAccept {
	return &FriendAccept{store: st, log: log, now: time.Now}
}

func (h *FriendAccept) Handle(ctx context.Context, ev store.ChangeEvent, params map[string]string) error {
	before, after := ev.Before, ev.After
	if !before.Exists() || !after.Exists() {
		return nil
	}

	prev, _ := before.Str("status")
	cur, _ := after.Str("status")
	if prev == cur || cur != statusAccepted {
		return nil
	}

	fromID, okFrom := after.Str("fromUserId")
	toID, okTo := after.Str("toUserId")
	if !okFrom || fromID == "" || !okTo || toID == "" {
		return nil
	}

	now := h.now()
	relation := map[string]any{"addedAt": now, "accepted": true}

	b := h.store.Batch()
	b.Set("users/"+fromID+"/amis/"+toID, relation)
	b.Set("users/"+toID+"/amis/"+fromID, relation)
	b.Update("notifications/"+params["notifId"], map[string]any{"processedAt": now})
	if err := b.Commit(ctx); err != nil {
		return err
	}

	h.log.Info("mutual friendship recorded",
		logx.String("from", fromID),
		logx.String("to", toID),
	)
	return nil
}
