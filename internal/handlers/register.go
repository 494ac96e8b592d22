package handlers

import (
	"sortir/internal/push"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// Path templates of the document triggers.
const (
	PatternPrivateMessages      = "chats/{chatId}/messages/{messageId}"
	PatternConversationMessages = "conversations/{conversationId}/messages/{messageId}"
	PatternNotifications        = "notifications/{notifId}"
	PatternActivities           = "activites/{activiteId}"
)

// Register wires the four document handlers onto the router.
func Register(r *Router, st store.Store, sender push.Sender, log logx.Logger) {
	pm := NewPrivateMessage(st, sender, log.With(logx.String("handler", "private_message")))
	ac := NewActivityChat(st, sender, log.With(logx.String("handler", "activity_chat")))
	fa := NewFriendAccept(st, log.With(logx.String("handler", "friend_accept")))
	np := NewNewParticipant(st, sender, log.With(logx.String("handler", "new_participant")))

	r.OnCreated("private_message", PatternPrivateMessages, pm.Handle)
	r.OnCreated("activity_chat", PatternConversationMessages, ac.Handle)
	r.OnUpdated("friend_accept", PatternNotifications, fa.Handle)
	r.OnUpdated("new_participant", PatternActivities, np.Handle)
}
