package handlers

import (
	"context"

	"sortir/internal/push"
	"sortir/internal/store"
	"sortir/pkg/logx"
)

// NewParticipant announces a user joining an activity to the existing
// participants.
//
// When several participants are appended in one write, only the first new
// ID is announced; the rest still receive the announcement as recipients.
// That quirk is kept from the original flow, where joins arrive one per
// write in practice.
type NewParticipant struct {
	store store.Store
	push  push.Sender
	log   logx.Logger
}

func NewNewParticipant(st store.Store, sender push.Sender, log logx.Logger) *NewParticipant {
	return &NewParticipant{store: st, push: sender, log: log}
}

func (h *NewParticipant) Handle(ctx context.Context, ev store.ChangeEvent, params map[string]string) error {
	before, after := ev.Before, ev.After
	if !before.Exists() || !after.Exists() {
		return nil
	}

	beforeList := before.StrSlice("participants")
	afterList := after.StrSlice("participants")

	added := diffAdded(beforeList, afterList)
	if len(added) == 0 {
		return nil
	}
	newUserID := added[0]

	name := displayName(ctx, h.store, newUserID)
	title, _ := after.Str("titre")

	tokens := collectTokens(ctx, h.store, afterList, newUserID)
	if len(tokens) == 0 {
		return nil
	}

	return push.Dispatch(ctx, h.push, tokens,
		newParticipantPayload(name, title),
		map[string]string{
			"activiteId": params["activiteId"],
			"newUserId":  newUserID,
		},
	)
}

// diffAdded returns the elements of after that are not in before,
// preserving after's order.
func diffAdded(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}
	var added []string
	for _, id := range after {
		if _, ok := seen[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}
