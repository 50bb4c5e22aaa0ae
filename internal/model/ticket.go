// Package model defines the ticket aggregate, its lifecycle state machine,
// the domain events raised by transitions, and the error taxonomy shared by
// all layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a ticket. The integer codes are the
// persisted representation and must not be reordered.
type TicketStatus int

const (
	StatusPending TicketStatus = iota
	StatusConfirmed
	StatusCancelled
	StatusUsed
)

func (s TicketStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCancelled:
		return "Cancelled"
	case StatusUsed:
		return "Used"
	default:
		return fmt.Sprintf("TicketStatus(%d)", int(s))
	}
}

// TicketType is the admission class of a ticket. The integer codes are the
// persisted representation and must not be reordered.
type TicketType int

const (
	TypeGeneral TicketType = iota
	TypeVIP
	TypeFrontRow
	TypeFullAccess
	TypeComplimentary
)

func (t TicketType) String() string {
	switch t {
	case TypeGeneral:
		return "General"
	case TypeVIP:
		return "VIP"
	case TypeFrontRow:
		return "FrontRow"
	case TypeFullAccess:
		return "FullAccess"
	case TypeComplimentary:
		return "Complimentary"
	default:
		return fmt.Sprintf("TicketType(%d)", int(t))
	}
}

// ParseTicketType converts the wire name of a ticket type to its enum value.
func ParseTicketType(s string) (TicketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general":
		return TypeGeneral, nil
	case "vip":
		return TypeVIP, nil
	case "frontrow":
		return TypeFrontRow, nil
	case "fullaccess":
		return TypeFullAccess, nil
	case "complimentary":
		return TypeComplimentary, nil
	default:
		return 0, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, s)
	}
}

// QRCode pairs the scannable value with its rendered image payload.
type QRCode struct {
	Value string `json:"value"`
	Image []byte `json:"image"`
}

// NewQRCode validates both halves of the code.
func NewQRCode(value string, image []byte) (QRCode, error) {
	if strings.TrimSpace(value) == "" {
		return QRCode{}, fmt.Errorf("%w: qr code value is required", ErrInvalidInput)
	}
	if len(image) == 0 {
		return QRCode{}, fmt.Errorf("%w: qr code image is required", ErrInvalidInput)
	}
	return QRCode{Value: value, Image: image}, nil
}

// Ticket is the aggregate root for one admission right. Fields are written
// only through NewTicket, RestoreTicket and the transition methods; callers
// must persist every mutation back through the store.
type Ticket struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	AttendeeID    uuid.UUID       `json:"attendee_id"`
	Type          TicketType      `json:"type"`
	QR            QRCode          `json:"qr"`
	PricePaid     decimal.Decimal `json:"price_paid"`
	SeatID        *uuid.UUID      `json:"seat_id,omitempty"`
	Section       *string         `json:"section,omitempty"`
	Status        TicketStatus    `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`

	PaymentID          *uuid.UUID `json:"payment_id,omitempty"`
	ValidatedAt        *time.Time `json:"validated_at,omitempty"`
	ValidationLocation *string    `json:"validation_location,omitempty"`
	ValidatorID        *uuid.UUID `json:"validator_id,omitempty"`
}

// NewTicketParams carries the immutable-at-creation attributes of a ticket.
type NewTicketParams struct {
	EventID       uuid.UUID
	ReservationID uuid.UUID
	AttendeeID    uuid.UUID
	Type          TicketType
	QR            QRCode
	Price         decimal.Decimal
	SeatID        *uuid.UUID
	Section       *string
	IssuedAt      time.Time
}

// NewTicket creates a pending ticket and returns the TicketsGenerated event
// it raises. The event must be published only after the ticket persists.
func NewTicket(p NewTicketParams) (*Ticket, TicketsGenerated, error) {
	if p.EventID == uuid.Nil {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	if p.ReservationID == uuid.Nil {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: reservation id is required", ErrInvalidInput)
	}
	if p.AttendeeID == uuid.Nil {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: attendee id is required", ErrInvalidInput)
	}
	if p.QR.Value == "" || len(p.QR.Image) == 0 {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: qr code is required", ErrInvalidInput)
	}
	if p.Price.Sign() <= 0 {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidInput)
	}
	if p.SeatID != nil && (p.Section == nil || strings.TrimSpace(*p.Section) == "") {
		return nil, TicketsGenerated{}, fmt.Errorf("%w: a numbered seat requires a section", ErrInvariantViolation)
	}

	t := &Ticket{
		ID:            uuid.New(),
		EventID:       p.EventID,
		ReservationID: p.ReservationID,
		AttendeeID:    p.AttendeeID,
		Type:          p.Type,
		QR:            p.QR,
		PricePaid:     p.Price,
		SeatID:        p.SeatID,
		Section:       p.Section,
		Status:        StatusPending,
		IssuedAt:      p.IssuedAt,
	}

	event := TicketsGenerated{
		ReservationID: t.ReservationID,
		EventID:       t.EventID,
		TicketIDs:     []uuid.UUID{t.ID},
		Count:         1,
		OccurredAt:    p.IssuedAt,
	}
	return t, event, nil
}

// RestoreTicket rehydrates a ticket from persisted field values without
// raising events. The store adapter is the only intended caller; the input
// is trusted and no validation is applied.
func RestoreTicket(t Ticket) *Ticket {
	restored := t
	return &restored
}

// Confirm moves a pending ticket to Confirmed and records the payment.
func (t *Ticket) Confirm(paymentID uuid.UUID, at time.Time) (TicketsConfirmed, error) {
	if paymentID == uuid.Nil {
		return TicketsConfirmed{}, fmt.Errorf("%w: payment id is required", ErrInvalidInput)
	}
	if t.Status != StatusPending {
		return TicketsConfirmed{}, fmt.Errorf("%w: only pending tickets can be confirmed (status: %s)", ErrIllegalTransition, t.Status)
	}

	t.Status = StatusConfirmed
	t.PaymentID = &paymentID

	return TicketsConfirmed{
		ReservationID: t.ReservationID,
		AttendeeID:    t.AttendeeID,
		PaymentID:     paymentID,
		TicketIDs:     []uuid.UUID{t.ID},
		OccurredAt:    at,
	}, nil
}

// Validate marks a confirmed ticket as used during check-in. Used is
// terminal; a ticket cannot be validated twice.
func (t *Ticket) Validate(location string, validatorID uuid.UUID, at time.Time) (TicketValidated, error) {
	if t.Status != StatusConfirmed {
		return TicketValidated{}, fmt.Errorf("%w: only confirmed tickets can be validated (status: %s)", ErrIllegalTransition, t.Status)
	}
	if strings.TrimSpace(location) == "" {
		return TicketValidated{}, fmt.Errorf("%w: validation location is required", ErrInvalidInput)
	}
	if validatorID == uuid.Nil {
		return TicketValidated{}, fmt.Errorf("%w: validator id is required", ErrInvalidInput)
	}

	t.Status = StatusUsed
	t.ValidationLocation = &location
	t.ValidatorID = &validatorID
	t.ValidatedAt = &at

	return TicketValidated{
		TicketID:    t.ID,
		EventID:     t.EventID,
		Location:    location,
		ValidatorID: validatorID,
		OccurredAt:  at,
	}, nil
}

// Cancel voids a pending or confirmed ticket. There is no reversal from
// Cancelled.
func (t *Ticket) Cancel(reason string, at time.Time) (TicketCancelled, error) {
	if t.Status == StatusUsed {
		return TicketCancelled{}, fmt.Errorf("%w: a used ticket cannot be cancelled", ErrIllegalTransition)
	}
	if t.Status == StatusCancelled {
		return TicketCancelled{}, fmt.Errorf("%w: the ticket is already cancelled", ErrIllegalTransition)
	}
	if strings.TrimSpace(reason) == "" {
		return TicketCancelled{}, fmt.Errorf("%w: a cancellation reason is required", ErrInvalidInput)
	}

	t.Status = StatusCancelled

	return TicketCancelled{
		TicketID:   t.ID,
		SeatID:     t.SeatID,
		Reason:     reason,
		OccurredAt: at,
	}, nil
}

// IsActive reports whether the ticket counts against event capacity.
func (t *Ticket) IsActive() bool {
	return t.Status == StatusPending || t.Status == StatusConfirmed
}
