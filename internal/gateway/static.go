package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventia/tickets-service/internal/model"
)

// StaticAvailability serves event snapshots from memory. It doubles the
// availability port in tests and in local setups without an events service.
type StaticAvailability struct {
	events map[uuid.UUID]model.EventSnapshot
}

// NewStaticAvailability constructs a StaticAvailability holding the given
// snapshots.
func NewStaticAvailability(events ...model.EventSnapshot) *StaticAvailability {
	m := make(map[uuid.UUID]model.EventSnapshot, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	return &StaticAvailability{events: m}
}

// Put adds or replaces a snapshot.
func (a *StaticAvailability) Put(e model.EventSnapshot) {
	a.events[e.ID] = e
}

// FetchEvent returns the stored snapshot or model.ErrNotFound.
func (a *StaticAvailability) FetchEvent(ctx context.Context, eventID uuid.UUID) (*model.EventSnapshot, error) {
	e, ok := a.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", model.ErrNotFound, eventID)
	}
	snapshot := e
	return &snapshot, nil
}
