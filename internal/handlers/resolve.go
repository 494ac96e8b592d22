package handlers

import (
	"context"

	"sortir/internal/store"
)

// fallbackName is what the client app shows when a profile has no name.
const fallbackName = "Quelqu’un"

// displayName reads users/<id>.name, falling back when the profile or the
// field is missing.
func displayName(ctx context.Context, st store.Store, userID string) string {
	doc, err := st.Get(ctx, "users/"+userID)
	if err != nil {
		return fallbackName
	}
	if name, ok := doc.Str("name"); ok && name != "" {
		return name
	}
	return fallbackName
}

// pushToken reads users/<id>.fcmToken. A missing profile or token reads as
// absent, never as an error.
func pushToken(ctx context.Context, st store.Store, userID string) (string, bool) {
	doc, err := st.Get(ctx, "users/"+userID)
	if err != nil {
		return "", false
	}
	tok, ok := doc.Str("fcmToken")
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// collectTokens resolves tokens for the given users, skipping excluded IDs
// and anyone without a token. Lookups are sequential, matching the
// original handlers.
func collectTokens(ctx context.Context, st store.Store, userIDs []string, exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var tokens []string
	for _, id := range userIDs {
		if _, excluded := skip[id]; excluded {
			continue
		}
		if tok, ok := pushToken(ctx, st, id); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
