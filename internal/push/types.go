package push

import "context"

// Notification is the user-visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message targets one or more delivery tokens with a notification plus an
// auxiliary data block the client app uses for routing taps.
type Message struct {
	Tokens       []string          `json:"registration_ids"`
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Sender delivers a push message. Delivery is fire-and-forget: per-token
// results are not inspected, only transport-level failures are reported.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Dispatch sends a notification to the given tokens. It is a no-op when
// the token set is empty, which is the normal outcome for events whose
// recipients have no registered device.
func Dispatch(ctx context.Context, s Sender, tokens []string, n Notification, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.Send(ctx, Message{Tokens: tokens, Notification: n, Data: data})
}
