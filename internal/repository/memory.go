package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eventia/tickets-service/internal/model"
)

// MemoryTicketStore is an in-memory implementation of the ticket store port.
// It mirrors the Postgres adapter's semantics, including the unique QR value
// constraint, and backs unit tests that need no database.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]model.Ticket
}

// NewMemoryTicketStore constructs an empty MemoryTicketStore.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[uuid.UUID]model.Ticket)}
}

// Add stores a copy of the ticket. A duplicate id or QR value fails the way
// the database constraint would.
func (s *MemoryTicketStore) Add(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; ok {
		return fmt.Errorf("%w: duplicate ticket id %s", model.ErrPersistence, t.ID)
	}
	for _, existing := range s.tickets {
		if existing.QR.Value == t.QR.Value {
			return fmt.Errorf("%w: duplicate qr value %q", model.ErrPersistence, t.QR.Value)
		}
	}
	s.tickets[t.ID] = *t
	return nil
}

// GetByID returns the ticket or model.ErrNotFound.
func (s *MemoryTicketStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s", model.ErrNotFound, id)
	}
	return model.RestoreTicket(t), nil
}

// GetByQRCode returns the ticket holding the QR value or model.ErrNotFound.
func (s *MemoryTicketStore) GetByQRCode(ctx context.Context, value string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.QR.Value == value {
			return model.RestoreTicket(t), nil
		}
	}
	return nil, fmt.Errorf("%w: qr value %q", model.ErrNotFound, value)
}

// Update replaces the stored state of an already-stored ticket.
func (s *MemoryTicketStore) Update(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[t.ID]; !ok {
		return fmt.Errorf("%w: ticket %s", model.ErrNotFound, t.ID)
	}
	s.tickets[t.ID] = *t
	return nil
}

// CountActive counts Pending and Confirmed tickets for the event, optionally
// scoped to a section.
func (s *MemoryTicketStore) CountActive(ctx context.Context, eventID uuid.UUID, section *string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filterSection := section != nil && strings.TrimSpace(*section) != ""
	count := 0
	for _, t := range s.tickets {
		if t.EventID != eventID || !t.IsActive() {
			continue
		}
		if filterSection && (t.Section == nil || *t.Section != *section) {
			continue
		}
		count++
	}
	return count, nil
}

// GetForAccess returns the most recently issued Confirmed or Used ticket for
// the (event, attendee) pair, or model.ErrNotFound.
func (s *MemoryTicketStore) GetForAccess(ctx context.Context, eventID, attendeeID uuid.UUID) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Ticket
	for _, t := range s.tickets {
		if t.EventID != eventID || t.AttendeeID != attendeeID {
			continue
		}
		if t.Status != model.StatusConfirmed && t.Status != model.StatusUsed {
			continue
		}
		if latest == nil || t.IssuedAt.After(latest.IssuedAt) {
			latest = model.RestoreTicket(t)
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no confirmed or used ticket for attendee %s", model.ErrNotFound, attendeeID)
	}
	return latest, nil
}
