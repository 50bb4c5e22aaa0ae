package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventia/tickets-service/internal/gateway"
	"github.com/eventia/tickets-service/internal/model"
	"github.com/eventia/tickets-service/internal/repository"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []model.DomainEvent
}

func (p *capturePublisher) Publish(ctx context.Context, event model.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) names() []string {
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.EventName()
	}
	return names
}

// brokenPublisher fails every publish.
type brokenPublisher struct{}

func (brokenPublisher) Publish(ctx context.Context, event model.DomainEvent) error {
	return errors.New("broker gone")
}

// flakyStore lets a fixed number of inserts through, then fails.
type flakyStore struct {
	TicketStore
	allowed int
	calls   int
}

func (s *flakyStore) Add(ctx context.Context, t *model.Ticket) error {
	s.calls++
	if s.calls > s.allowed {
		return fmt.Errorf("%w: connection reset", model.ErrPersistence)
	}
	return s.TicketStore.Add(ctx, t)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func ptr(s string) *string { return &s }

func publishedEvent(sections ...model.EventSection) model.EventSnapshot {
	return model.EventSnapshot{ID: uuid.New(), Status: "Publicado", Sections: sections}
}

func item(qrValue string, section *string) model.GenerateTicketItem {
	return model.GenerateTicketItem{
		Type:    "General",
		Price:   decimal.NewFromInt(50),
		Section: section,
		QRValue: qrValue,
		QRImage: []byte{0xAB},
	}
}

type fixture struct {
	svc       *TicketService
	store     *repository.MemoryTicketStore
	publisher *capturePublisher
}

func newFixture(snapshots ...model.EventSnapshot) *fixture {
	store := repository.NewMemoryTicketStore()
	publisher := &capturePublisher{}
	admission := NewAdmissionService(gateway.NewStaticAvailability(snapshots...), store)
	return &fixture{
		svc:       NewTicketService(store, admission, publisher, testLogger()),
		store:     store,
		publisher: publisher,
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending tickets and publishes per ticket", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)

		issuedAt := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
		result, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			IssuedAt:      &issuedAt,
			Items:         []model.GenerateTicketItem{item("QR-1", nil), item("QR-2", nil)},
		})
		require.NoError(t, err)
		require.Len(t, result.TicketIDs, 2)

		for _, id := range result.TicketIDs {
			ticket, err := f.store.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, model.StatusPending, ticket.Status)
			assert.Equal(t, issuedAt, ticket.IssuedAt)
		}
		assert.Equal(t, []string{"tickets.generated", "tickets.generated"}, f.publisher.names())
	})

	t.Run("requires at least one item", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)

		_, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("rejects unknown ticket type before admitting", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)

		bad := item("QR-1", nil)
		bad.Type = "backstage"
		_, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{bad},
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("rejects unpublished events", func(t *testing.T) {
		event := model.EventSnapshot{ID: uuid.New(), Status: "Borrador"}
		f := newFixture(event)

		_, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		assert.ErrorIs(t, err, model.ErrEventNotPublished)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("rejects a full section before any insert", func(t *testing.T) {
		event := publishedEvent(model.EventSection{ID: uuid.New(), Name: "VIP", Capacity: 1})
		f := newFixture(event)

		_, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", ptr("VIP"))},
		})
		require.NoError(t, err)

		_, err = f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-2", ptr("VIP"))},
		})
		assert.ErrorIs(t, err, model.ErrCapacityExceeded)

		var capErr *model.CapacityExceededError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "VIP", capErr.Section)
		assert.Equal(t, 0, capErr.Remaining)
		assert.Equal(t, 1, capErr.Requested)
	})

	t.Run("mid-batch failure keeps earlier tickets", func(t *testing.T) {
		event := publishedEvent()
		store := repository.NewMemoryTicketStore()
		flaky := &flakyStore{TicketStore: store, allowed: 1}
		publisher := &capturePublisher{}
		admission := NewAdmissionService(gateway.NewStaticAvailability(event), store)
		svc := NewTicketService(flaky, admission, publisher, testLogger())

		_, err := svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil), item("QR-2", nil)},
		})
		require.ErrorIs(t, err, model.ErrPersistence)
		assert.Contains(t, err.Error(), "item 1")

		first, err := store.GetByQRCode(ctx, "QR-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, first.Status)
		_, err = store.GetByQRCode(ctx, "QR-2")
		assert.ErrorIs(t, err, model.ErrNotFound)

		assert.Equal(t, []string{"tickets.generated"}, publisher.names())
	})

	t.Run("issuance time defaults to now", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)

		result, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)

		ticket, err := f.store.GetByID(ctx, result.TicketIDs[0])
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), ticket.IssuedAt, time.Minute)
	})

	t.Run("broker failure does not fail generation", func(t *testing.T) {
		event := publishedEvent()
		store := repository.NewMemoryTicketStore()
		admission := NewAdmissionService(gateway.NewStaticAvailability(event), store)
		svc := NewTicketService(store, admission, brokenPublisher{}, testLogger())

		result, err := svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)
		require.Len(t, result.TicketIDs, 1)
	})
}

func TestConfirmService(t *testing.T) {
	ctx := context.Background()

	generate := func(t *testing.T, f *fixture, eventID uuid.UUID, qrValues ...string) []uuid.UUID {
		items := make([]model.GenerateTicketItem, len(qrValues))
		for i, qr := range qrValues {
			items[i] = item(qr, nil)
		}
		result, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       eventID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         items,
		})
		require.NoError(t, err)
		return result.TicketIDs
	}

	t.Run("confirms the whole batch", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)
		ids := generate(t, f, event.ID, "QR-1", "QR-2")
		paymentID := uuid.New()

		err := f.svc.Confirm(ctx, model.ConfirmTicketsRequest{PaymentID: paymentID, TicketIDs: ids})
		require.NoError(t, err)

		for _, id := range ids {
			ticket, err := f.store.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, model.StatusConfirmed, ticket.Status)
			require.NotNil(t, ticket.PaymentID)
			assert.Equal(t, paymentID, *ticket.PaymentID)
		}
		assert.Equal(t,
			[]string{"tickets.generated", "tickets.generated", "tickets.confirmed", "tickets.confirmed"},
			f.publisher.names())
	})

	t.Run("unknown id aborts but keeps earlier confirmations", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)
		ids := generate(t, f, event.ID, "QR-1")

		err := f.svc.Confirm(ctx, model.ConfirmTicketsRequest{
			PaymentID: uuid.New(),
			TicketIDs: []uuid.UUID{ids[0], uuid.New()},
		})
		assert.ErrorIs(t, err, model.ErrNotFound)

		ticket, err := f.store.GetByID(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, ticket.Status)
	})

	t.Run("validates the request", func(t *testing.T) {
		f := newFixture()

		err := f.svc.Confirm(ctx, model.ConfirmTicketsRequest{PaymentID: uuid.New()})
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		err = f.svc.Confirm(ctx, model.ConfirmTicketsRequest{TicketIDs: []uuid.UUID{uuid.New()}})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func TestValidateService(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, uuid.UUID) {
		event := publishedEvent()
		f := newFixture(event)
		result, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)
		return f, result.TicketIDs[0]
	}

	t.Run("checks a confirmed ticket in by qr value", func(t *testing.T) {
		f, id := setup(t)
		require.NoError(t, f.svc.Confirm(ctx, model.ConfirmTicketsRequest{
			PaymentID: uuid.New(),
			TicketIDs: []uuid.UUID{id},
		}))

		err := f.svc.Validate(ctx, model.ValidateTicketRequest{
			QRValue:     "QR-1",
			Location:    "Gate A",
			ValidatorID: uuid.New(),
		})
		require.NoError(t, err)

		ticket, err := f.store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusUsed, ticket.Status)
		require.NotNil(t, ticket.ValidationLocation)
		assert.Equal(t, "Gate A", *ticket.ValidationLocation)
	})

	t.Run("pending ticket cannot be checked in", func(t *testing.T) {
		f, _ := setup(t)

		err := f.svc.Validate(ctx, model.ValidateTicketRequest{
			QRValue:     "QR-1",
			Location:    "Gate A",
			ValidatorID: uuid.New(),
		})
		assert.ErrorIs(t, err, model.ErrIllegalTransition)
	})

	t.Run("unknown qr value", func(t *testing.T) {
		f, _ := setup(t)

		err := f.svc.Validate(ctx, model.ValidateTicketRequest{
			QRValue:     "QR-MISSING",
			Location:    "Gate A",
			ValidatorID: uuid.New(),
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("qr value is required", func(t *testing.T) {
		f, _ := setup(t)

		err := f.svc.Validate(ctx, model.ValidateTicketRequest{
			QRValue:     "  ",
			Location:    "Gate A",
			ValidatorID: uuid.New(),
		})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func TestCancelService(t *testing.T) {
	ctx := context.Background()
	event := publishedEvent()

	t.Run("cancels a pending ticket", func(t *testing.T) {
		f := newFixture(event)
		result, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    uuid.New(),
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)

		err = f.svc.Cancel(ctx, model.CancelTicketRequest{
			TicketID: result.TicketIDs[0],
			Reason:   "payment expired",
		})
		require.NoError(t, err)

		ticket, err := f.store.GetByID(ctx, result.TicketIDs[0])
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, ticket.Status)
	})

	t.Run("ticket id is required", func(t *testing.T) {
		f := newFixture(event)
		err := f.svc.Cancel(ctx, model.CancelTicketRequest{Reason: "whatever"})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		f := newFixture(event)
		err := f.svc.Cancel(ctx, model.CancelTicketRequest{TicketID: uuid.New(), Reason: "whatever"})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestCheckAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("no ticket answers none", func(t *testing.T) {
		f := newFixture()

		result, err := f.svc.CheckAccess(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.False(t, result.HasAccess)
		assert.Equal(t, "None", result.Status)
		assert.Nil(t, result.TicketID)
		assert.Nil(t, result.TicketType)
	})

	t.Run("pending tickets grant no access", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)
		attendee := uuid.New()

		_, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    attendee,
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)

		result, err := f.svc.CheckAccess(ctx, event.ID, attendee)
		require.NoError(t, err)
		assert.False(t, result.HasAccess)
		assert.Equal(t, "None", result.Status)
	})

	t.Run("confirmed ticket grants access", func(t *testing.T) {
		event := publishedEvent()
		f := newFixture(event)
		attendee := uuid.New()

		generated, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
			EventID:       event.ID,
			ReservationID: uuid.New(),
			AttendeeID:    attendee,
			Items:         []model.GenerateTicketItem{item("QR-1", nil)},
		})
		require.NoError(t, err)
		require.NoError(t, f.svc.Confirm(ctx, model.ConfirmTicketsRequest{
			PaymentID: uuid.New(),
			TicketIDs: generated.TicketIDs,
		}))

		result, err := f.svc.CheckAccess(ctx, event.ID, attendee)
		require.NoError(t, err)
		assert.True(t, result.HasAccess)
		require.NotNil(t, result.TicketID)
		assert.Equal(t, generated.TicketIDs[0], *result.TicketID)
		require.NotNil(t, result.TicketType)
		assert.Equal(t, "General", *result.TicketType)
		assert.Equal(t, "Confirmed", result.Status)
	})

	t.Run("nil ids are rejected", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.CheckAccess(ctx, uuid.Nil, uuid.New())
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		_, err = f.svc.CheckAccess(ctx, uuid.New(), uuid.Nil)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

// Walks one ticket through the whole lifecycle against a sectioned event.
func TestTicketLifecycle(t *testing.T) {
	ctx := context.Background()
	event := publishedEvent(model.EventSection{ID: uuid.New(), Name: "General", Capacity: 100})
	f := newFixture(event)
	attendee := uuid.New()

	generated, err := f.svc.Generate(ctx, model.GenerateTicketsRequest{
		EventID:       event.ID,
		ReservationID: uuid.New(),
		AttendeeID:    attendee,
		Items:         []model.GenerateTicketItem{item("Q1", ptr("General"))},
	})
	require.NoError(t, err)
	require.Len(t, generated.TicketIDs, 1)

	require.NoError(t, f.svc.Confirm(ctx, model.ConfirmTicketsRequest{
		PaymentID: uuid.New(),
		TicketIDs: generated.TicketIDs,
	}))

	require.NoError(t, f.svc.Validate(ctx, model.ValidateTicketRequest{
		QRValue:     "Q1",
		Location:    "Gate A",
		ValidatorID: uuid.New(),
	}))

	result, err := f.svc.CheckAccess(ctx, event.ID, attendee)
	require.NoError(t, err)
	assert.True(t, result.HasAccess)
	assert.Equal(t, "Used", result.Status)

	// A used ticket can no longer be cancelled.
	err = f.svc.Cancel(ctx, model.CancelTicketRequest{
		TicketID: generated.TicketIDs[0],
		Reason:   "refund",
	})
	assert.ErrorIs(t, err, model.ErrIllegalTransition)

	assert.Equal(t,
		[]string{"tickets.generated", "tickets.confirmed", "ticket.validated"},
		f.publisher.names())
}
