// Package repository implements the ticket store port. The primary adapter
// uses pgx directly (no ORM); an in-memory adapter backs fast tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/tickets-service/internal/model"
)

const ticketColumns = `id, event_id, reservation_id, attendee_id, type, qr_value, qr_image,
	price_paid, seat_id, section_name, status, issued_at,
	payment_id, validated_at, validation_location, validator_id`

// TicketRepository persists tickets in PostgreSQL. One flattened row per
// ticket; enums stored as smallint, the QR image as bytea, the QR value
// under a unique constraint.
type TicketRepository struct {
	db *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

// Add inserts a newly created ticket.
func (r *TicketRepository) Add(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (`+ticketColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.EventID, t.ReservationID, t.AttendeeID, int16(t.Type), t.QR.Value, t.QR.Image,
		t.PricePaid, t.SeatID, t.Section, int16(t.Status), t.IssuedAt,
		t.PaymentID, t.ValidatedAt, t.ValidationLocation, t.ValidatorID,
	)
	if err != nil {
		return fmt.Errorf("%w: insert ticket: %v", model.ErrPersistence, err)
	}
	return nil
}

// GetByID returns the ticket or model.ErrNotFound.
func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// GetByQRCode returns the ticket holding the QR value or model.ErrNotFound.
func (r *TicketRepository) GetByQRCode(ctx context.Context, value string) (*model.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE qr_value = $1`, value)
	return scanTicket(row)
}

// Update persists the full current state of an already-stored ticket. An
// unknown id is a hard error, never a silent no-op.
func (r *TicketRepository) Update(ctx context.Context, t *model.Ticket) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tickets
		 SET type = $2, qr_value = $3, qr_image = $4, price_paid = $5,
		     seat_id = $6, section_name = $7, status = $8, issued_at = $9,
		     payment_id = $10, validated_at = $11, validation_location = $12, validator_id = $13
		 WHERE id = $1`,
		t.ID, int16(t.Type), t.QR.Value, t.QR.Image, t.PricePaid,
		t.SeatID, t.Section, int16(t.Status), t.IssuedAt,
		t.PaymentID, t.ValidatedAt, t.ValidationLocation, t.ValidatorID,
	)
	if err != nil {
		return fmt.Errorf("%w: update ticket: %v", model.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: ticket %s", model.ErrNotFound, t.ID)
	}
	return nil
}

// CountActive counts Pending and Confirmed tickets for the event, optionally
// scoped to a section. Cancelled and Used tickets never count against
// capacity.
func (r *TicketRepository) CountActive(ctx context.Context, eventID uuid.UUID, section *string) (int, error) {
	query := `SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status IN ($2, $3)`
	args := []any{eventID, int16(model.StatusPending), int16(model.StatusConfirmed)}
	if section != nil && strings.TrimSpace(*section) != "" {
		query += ` AND section_name = $4`
		args = append(args, *section)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count active tickets: %v", model.ErrPersistence, err)
	}
	return count, nil
}

// GetForAccess returns the most recently issued Confirmed or Used ticket for
// the (event, attendee) pair, or model.ErrNotFound.
func (r *TicketRepository) GetForAccess(ctx context.Context, eventID, attendeeID uuid.UUID) (*model.Ticket, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketColumns+`
		 FROM tickets
		 WHERE event_id = $1 AND attendee_id = $2 AND status IN ($3, $4)
		 ORDER BY issued_at DESC
		 LIMIT 1`,
		eventID, attendeeID, int16(model.StatusConfirmed), int16(model.StatusUsed))
	return scanTicket(row)
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var (
		t          model.Ticket
		typeCode   int16
		statusCode int16
	)
	err := row.Scan(
		&t.ID, &t.EventID, &t.ReservationID, &t.AttendeeID, &typeCode, &t.QR.Value, &t.QR.Image,
		&t.PricePaid, &t.SeatID, &t.Section, &statusCode, &t.IssuedAt,
		&t.PaymentID, &t.ValidatedAt, &t.ValidationLocation, &t.ValidatorID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan ticket: %v", model.ErrPersistence, err)
	}
	t.Type = model.TicketType(typeCode)
	t.Status = model.TicketStatus(statusCode)
	return model.RestoreTicket(t), nil
}
