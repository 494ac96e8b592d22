package handlers

import (
	"fmt"

	"sortir/internal/push"
)

// maxBodyRunes caps notification bodies; longer message texts are cut.
const maxBodyRunes = 80

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// truncateEllipsis cuts s to at most n runes and appends an ellipsis when
// something was cut.
func truncateEllipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Payload builders are pure so they can be tested without a store or a
// network. The strings are the product's French copy.

func privateMessagePayload(sender, text string) push.Notification {
	return push.Notification{
		Title: sender + " t’a envoyé un message 💬",
		Body:  truncate(text, maxBodyRunes),
	}
}

func activityChatPayload(sender, activityLabel, text string) push.Notification {
	return push.Notification{
		Title: "💬 " + sender + " - " + activityLabel,
		Body:  truncateEllipsis(text, maxBodyRunes),
	}
}

func newParticipantPayload(name, activityTitle string) push.Notification {
	return push.Notification{
		Title: "👋 Nouveau participant",
		Body:  fmt.Sprintf("%s a rejoint \"%s\"", name, activityTitle),
	}
}
