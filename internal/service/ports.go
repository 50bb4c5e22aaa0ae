package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/eventia/tickets-service/internal/model"
)

// TicketStore is the persistence port for the ticket aggregate. Lookup
// operations return model.ErrNotFound when nothing matches; storage failures
// wrap model.ErrPersistence.
type TicketStore interface {
	// Add persists a newly created ticket.
	Add(ctx context.Context, t *model.Ticket) error
	// GetByID loads a ticket by its identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	// GetByQRCode loads a ticket by its QR code value.
	GetByQRCode(ctx context.Context, value string) (*model.Ticket, error)
	// Update persists the full current state of an already-stored ticket.
	// Returns model.ErrNotFound when the id is unknown to the store.
	Update(ctx context.Context, t *model.Ticket) error
	// CountActive counts Pending and Confirmed tickets for the event,
	// optionally scoped to a section.
	CountActive(ctx context.Context, eventID uuid.UUID, section *string) (int, error)
	// GetForAccess returns the most recently issued Confirmed or Used ticket
	// for the (event, attendee) pair.
	GetForAccess(ctx context.Context, eventID, attendeeID uuid.UUID) (*model.Ticket, error)
}

// EventAvailability is the port towards the events service. It fetches a
// read-only snapshot of the event's publication status and section
// declarations; the admission workflow makes the decisions.
type EventAvailability interface {
	FetchEvent(ctx context.Context, eventID uuid.UUID) (*model.EventSnapshot, error)
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event model.DomainEvent) error
}
