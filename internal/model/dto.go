package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CapacityRequest describes one requested admission against an event's
// capacity, optionally scoped to a section or seat. Built per admission
// call, never persisted.
type CapacityRequest struct {
	Section  *string
	SeatID   *uuid.UUID
	Quantity int
}

// EventSnapshot is the read-only view of an event fetched from the events
// service: its publication status and declared capacity pools.
type EventSnapshot struct {
	ID       uuid.UUID
	Status   string
	Sections []EventSection
}

// EventSection is a named capacity pool within an event.
type EventSection struct {
	ID       uuid.UUID
	Name     string
	Capacity int
}

// GenerateTicketsRequest is the payload for generating a batch of tickets
// for one reservation. IssuedAt defaults to the current time when omitted.
type GenerateTicketsRequest struct {
	EventID       uuid.UUID            `json:"event_id"`
	ReservationID uuid.UUID            `json:"reservation_id"`
	AttendeeID    uuid.UUID            `json:"attendee_id"`
	IssuedAt      *time.Time           `json:"issued_at,omitempty"`
	Items         []GenerateTicketItem `json:"items"`
}

// GenerateTicketItem is one ticket line within a generation request.
type GenerateTicketItem struct {
	Type    string          `json:"type"`
	Price   decimal.Decimal `json:"price"`
	SeatID  *uuid.UUID      `json:"seat_id,omitempty"`
	Section *string         `json:"section,omitempty"`
	QRValue string          `json:"qr_value"`
	QRImage []byte          `json:"qr_image"`
}

// GenerateTicketsResult lists the ids of the tickets created by a
// generation call.
type GenerateTicketsResult struct {
	TicketIDs []uuid.UUID `json:"ticket_ids"`
}

// ConfirmTicketsRequest links a batch of pending tickets to a payment.
type ConfirmTicketsRequest struct {
	PaymentID   uuid.UUID   `json:"payment_id"`
	ConfirmedAt time.Time   `json:"confirmed_at,omitempty"`
	TicketIDs   []uuid.UUID `json:"ticket_ids"`
}

// ValidateTicketRequest checks a ticket in by its QR code value.
type ValidateTicketRequest struct {
	QRValue     string    `json:"qr_value"`
	Location    string    `json:"location"`
	ValidatorID uuid.UUID `json:"validator_id"`
	ValidatedAt time.Time `json:"validated_at,omitempty"`
}

// CancelTicketRequest voids a single ticket.
type CancelTicketRequest struct {
	TicketID    uuid.UUID `json:"ticket_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at,omitempty"`
}

// AccessResult answers the check-access query. Status is "None" and
// HasAccess false when no confirmed or used ticket exists for the pair.
type AccessResult struct {
	HasAccess  bool       `json:"hasAccess"`
	TicketID   *uuid.UUID `json:"ticketId,omitempty"`
	TicketType *string    `json:"ticketType,omitempty"`
	Status     string     `json:"status"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
