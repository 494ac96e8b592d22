package handlers

import (
	"context"

	"sortir/internal/push"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// ActivityChat notifies the other members of a group conversation when a
// new message lands in it.
type ActivityChat struct {
	store store.Store
	push  push.Sender
	log   logx.Logger
}

func NewActivityChat(st store.Store, sender push.Sender, log logx.Logger) *ActivityChat {
	return &ActivityChat{store: st, push: sender, log: log}
}

func (h *ActivityChat) Handle(ctx context.Context, ev store.ChangeEvent, params map[string]string) error {
	msg := ev.After
	if !msg.Exists() {
		return nil
	}

	text, okText := msg.Str("text")
	senderID, okUser := msg.Str("userId")
	if !okText || text == "" || !okUser || senderID == "" {
		return nil
	}

	convID := params["conversationId"]
	conv, err := h.store.Get(ctx, "conversations/"+convID)
	if err != nil {
		// A message in a conversation that no longer exists is a no-op.
		return nil
	}

	members := conv.StrSlice("users")
	label, ok := conv.Str("fromActivite")
	if !ok || label == "" {
		label = "Activité"
	}

	senderName := displayName(ctx, h.store, senderID)

	tokens := collectTokens(ctx, h.store, members, senderID)
	if len(tokens) == 0 {
		return nil
	}

	return push.Dispatch(ctx, h.push, tokens,
		activityChatPayload(senderName, label, text),
		map[string]string{
			"conversationId": convID,
			"fromUserId":     senderID,
		},
	)
}
