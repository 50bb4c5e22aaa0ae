package model

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an append-only fact raised by an aggregate transition.
// Events are intended for downstream notification, not as a source of truth,
// and must be published only after the originating mutation persists.
type DomainEvent interface {
	EventName() string
	OccurredOn() time.Time
}

// TicketsGenerated is raised when a ticket is created in the Pending state.
type TicketsGenerated struct {
	ReservationID uuid.UUID   `json:"reservation_id"`
	EventID       uuid.UUID   `json:"event_id"`
	TicketIDs     []uuid.UUID `json:"ticket_ids"`
	Count         int         `json:"count"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (e TicketsGenerated) EventName() string     { return "tickets.generated" }
func (e TicketsGenerated) OccurredOn() time.Time { return e.OccurredAt }

// TicketsConfirmed is raised when a pending ticket is confirmed after
// payment.
type TicketsConfirmed struct {
	ReservationID uuid.UUID   `json:"reservation_id"`
	AttendeeID    uuid.UUID   `json:"attendee_id"`
	PaymentID     uuid.UUID   `json:"payment_id"`
	TicketIDs     []uuid.UUID `json:"ticket_ids"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (e TicketsConfirmed) EventName() string     { return "tickets.confirmed" }
func (e TicketsConfirmed) OccurredOn() time.Time { return e.OccurredAt }

// TicketValidated is raised when a confirmed ticket passes check-in.
type TicketValidated struct {
	TicketID    uuid.UUID `json:"ticket_id"`
	EventID     uuid.UUID `json:"event_id"`
	Location    string    `json:"location"`
	ValidatorID uuid.UUID `json:"validator_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e TicketValidated) EventName() string     { return "ticket.validated" }
func (e TicketValidated) OccurredOn() time.Time { return e.OccurredAt }

// TicketCancelled is raised when a pending or confirmed ticket is voided.
type TicketCancelled struct {
	TicketID   uuid.UUID  `json:"ticket_id"`
	SeatID     *uuid.UUID `json:"seat_id,omitempty"`
	Reason     string     `json:"reason"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func (e TicketCancelled) EventName() string     { return "ticket.cancelled" }
func (e TicketCancelled) OccurredOn() time.Time { return e.OccurredAt }
