package handlers

import (
	"context"

	"sortir/internal/push"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// PrivateMessage notifies the receiver of a new direct-chat message.
type PrivateMessage struct {
	store store.Store
	push  push.Sender
	log   logx.Logger
}

func NewPrivateMessage(st store.Store, sender push.Sender, log logx.Logger) *PrivateMessage {
	return &PrivateMessage{store: st, push: sender, log: log}
}

func (h *PrivateMessage) Handle(ctx context.Context, ev store.ChangeEvent, params map[string]string) error {
	msg := ev.After
	if !msg.Exists() {
		return nil
	}

	senderID, _ := msg.Str("senderId")
	receiverID, ok := msg.Str("receiverId")
	if !ok || receiverID == "" {
		return nil
	}
	text, _ := msg.Str("text")

	senderName := displayName(ctx, h.store, senderID)

	token, ok := pushToken(ctx, h.store, receiverID)
	if !ok {
		h.log.Debug("no push token, skipping", logx.String("user", receiverID))
		return nil
	}

	return push.Dispatch(ctx, h.push, []string{token},
		privateMessagePayload(senderName, text),
		map[string]string{
			"senderId": senderID,
			"chatId":   params["chatId"],
		},
	)
}
