// Package service implements the ticket use cases: generation behind the
// capacity admission workflow, lifecycle transitions, and the access-check
// query. It defines the ports towards persistence, the events service and
// the event broker.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eventia/tickets-service/internal/model"
	"github.com/eventia/tickets-service/internal/monitoring"
)

// TicketService orchestrates the ticket lifecycle against the store, the
// admission workflow and the event publisher.
type TicketService struct {
	store     TicketStore
	admission *AdmissionService
	publisher EventPublisher
	logger    *logrus.Logger

	genLocks eventLocks
}

// NewTicketService constructs a TicketService with its dependencies.
func NewTicketService(store TicketStore, admission *AdmissionService, publisher EventPublisher, logger *logrus.Logger) *TicketService {
	return &TicketService{
		store:     store,
		admission: admission,
		publisher: publisher,
		logger:    logger,
	}
}

// Generate admits and creates one pending ticket per request item.
//
// Generation for the same event is serialized by an in-process lock held
// across the admission check and the inserts, so concurrent calls cannot
// both read a stale active-count and admit past capacity. Items persist
// independently: a mid-batch failure leaves earlier tickets stored and
// their events published, and the error names the failing item.
func (s *TicketService) Generate(ctx context.Context, req model.GenerateTicketsRequest) (*model.GenerateTicketsResult, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one ticket item is required", model.ErrInvalidInput)
	}

	types := make([]model.TicketType, len(req.Items))
	for i, item := range req.Items {
		tt, err := model.ParseTicketType(item.Type)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		types[i] = tt
	}

	issuedAt := time.Now().UTC()
	if req.IssuedAt != nil && !req.IssuedAt.IsZero() {
		issuedAt = req.IssuedAt.UTC()
	}

	unlock := s.genLocks.lock(req.EventID)
	defer unlock()

	capacity := make([]model.CapacityRequest, len(req.Items))
	for i, item := range req.Items {
		capacity[i] = model.CapacityRequest{Section: item.Section, SeatID: item.SeatID, Quantity: 1}
	}
	if err := s.admission.Admit(ctx, req.EventID, capacity); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for i, item := range req.Items {
		qr, err := model.NewQRCode(item.QRValue, item.QRImage)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		ticket, event, err := model.NewTicket(model.NewTicketParams{
			EventID:       req.EventID,
			ReservationID: req.ReservationID,
			AttendeeID:    req.AttendeeID,
			Type:          types[i],
			QR:            qr,
			Price:         item.Price,
			SeatID:        item.SeatID,
			Section:       item.Section,
			IssuedAt:      issuedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		if err := s.store.Add(ctx, ticket); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		s.publish(ctx, event)
		monitoring.TicketIssued()
		ids = append(ids, ticket.ID)
	}

	return &model.GenerateTicketsResult{TicketIDs: ids}, nil
}

// Confirm links each listed ticket to the payment, one at a time. A failure
// leaves previously confirmed tickets confirmed.
func (s *TicketService) Confirm(ctx context.Context, req model.ConfirmTicketsRequest) error {
	if len(req.TicketIDs) == 0 {
		return fmt.Errorf("%w: at least one ticket id is required", model.ErrInvalidInput)
	}
	if req.PaymentID == uuid.Nil {
		return fmt.Errorf("%w: payment id is required", model.ErrInvalidInput)
	}
	at := orNow(req.ConfirmedAt)

	for _, id := range req.TicketIDs {
		ticket, err := s.store.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("ticket %s: %w", id, err)
		}

		event, err := ticket.Confirm(req.PaymentID, at)
		if err != nil {
			return fmt.Errorf("ticket %s: %w", id, err)
		}

		if err := s.store.Update(ctx, ticket); err != nil {
			return fmt.Errorf("ticket %s: %w", id, err)
		}
		s.publish(ctx, event)
		monitoring.TicketConfirmed()
	}
	return nil
}

// Validate checks a ticket in by its QR code value.
func (s *TicketService) Validate(ctx context.Context, req model.ValidateTicketRequest) error {
	if strings.TrimSpace(req.QRValue) == "" {
		return fmt.Errorf("%w: qr code value is required", model.ErrInvalidInput)
	}

	ticket, err := s.store.GetByQRCode(ctx, req.QRValue)
	if err != nil {
		return err
	}

	event, err := ticket.Validate(req.Location, req.ValidatorID, orNow(req.ValidatedAt))
	if err != nil {
		return err
	}

	if err := s.store.Update(ctx, ticket); err != nil {
		return err
	}
	s.publish(ctx, event)
	monitoring.TicketValidated()
	return nil
}

// Cancel voids a single ticket.
func (s *TicketService) Cancel(ctx context.Context, req model.CancelTicketRequest) error {
	if req.TicketID == uuid.Nil {
		return fmt.Errorf("%w: ticket id is required", model.ErrInvalidInput)
	}

	ticket, err := s.store.GetByID(ctx, req.TicketID)
	if err != nil {
		return err
	}

	event, err := ticket.Cancel(req.Reason, orNow(req.CancelledAt))
	if err != nil {
		return err
	}

	if err := s.store.Update(ctx, ticket); err != nil {
		return err
	}
	s.publish(ctx, event)
	monitoring.TicketCancelled()
	return nil
}

// CheckAccess reports whether the attendee currently holds valid access to
// the event. Finding no ticket is a normal answer, not an error.
func (s *TicketService) CheckAccess(ctx context.Context, eventID, attendeeID uuid.UUID) (*model.AccessResult, error) {
	if eventID == uuid.Nil {
		return nil, fmt.Errorf("%w: event id is required", model.ErrInvalidInput)
	}
	if attendeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	ticket, err := s.store.GetForAccess(ctx, eventID, attendeeID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return &model.AccessResult{HasAccess: false, Status: "None"}, nil
		}
		return nil, err
	}

	ticketType := ticket.Type.String()
	return &model.AccessResult{
		HasAccess:  true,
		TicketID:   &ticket.ID,
		TicketType: &ticketType,
		Status:     ticket.Status.String(),
	}, nil
}

// publish delivers a domain event after its mutation persisted. Broker
// failures are logged and never fail the operation.
func (s *TicketService) publish(ctx context.Context, event model.DomainEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", event.EventName()).Warn("domain event publish failed")
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// eventLocks serializes ticket generation per event id.
type eventLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (l *eventLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
