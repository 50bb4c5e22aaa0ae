package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eventia/tickets-service/internal/model"
	"github.com/eventia/tickets-service/internal/monitoring"
)

// publishedStatus is the events-service status required for admission. The
// external contract is Spanish; the comparison is case-insensitive.
const publishedStatus = "Publicado"

// AdmissionService decides whether a batch of requested ticket lines for one
// event may be admitted, before any ticket is constructed. Requests are
// evaluated left to right; the first failure aborts the whole call.
type AdmissionService struct {
	availability EventAvailability
	store        TicketStore
}

// NewAdmissionService constructs an AdmissionService with its dependencies.
func NewAdmissionService(availability EventAvailability, store TicketStore) *AdmissionService {
	return &AdmissionService{availability: availability, store: store}
}

// Admit checks the event's publication status and, per request, that the
// active ticket count plus the requested quantity fits the resolved
// capacity. It performs no mutation and no retry; transport failures from
// the availability port surface as model.ErrAvailabilityCheck.
func (s *AdmissionService) Admit(ctx context.Context, eventID uuid.UUID, requests []model.CapacityRequest) error {
	snapshot, err := s.availability.FetchEvent(ctx, eventID)
	if err != nil {
		return err
	}

	if !strings.EqualFold(snapshot.Status, publishedStatus) {
		monitoring.AdmissionRejected("not_published")
		return &model.NotPublishedError{EventID: eventID, Status: snapshot.Status}
	}

	for _, req := range requests {
		capacity, unbounded, err := resolveCapacity(eventID, snapshot, req)
		if err != nil {
			return err
		}

		active, err := s.store.CountActive(ctx, eventID, req.Section)
		if err != nil {
			return err
		}

		if unbounded {
			continue
		}
		if active+req.Quantity > capacity {
			monitoring.AdmissionRejected("capacity_exceeded")
			section := ""
			if req.Section != nil {
				section = *req.Section
			}
			return &model.CapacityExceededError{
				Section:   section,
				Remaining: capacity - active,
				Requested: req.Quantity,
			}
		}
	}
	return nil
}

// resolveCapacity maps one capacity request to its total capacity. A named
// section must exist on the event (case-insensitive). Without a section the
// event must declare none at all, in which case capacity is unbounded;
// section-scoped events reject unscoped requests.
func resolveCapacity(eventID uuid.UUID, snapshot *model.EventSnapshot, req model.CapacityRequest) (int, bool, error) {
	if req.Section != nil && strings.TrimSpace(*req.Section) != "" {
		for _, section := range snapshot.Sections {
			if strings.EqualFold(section.Name, *req.Section) {
				return section.Capacity, false, nil
			}
		}
		monitoring.AdmissionRejected("unknown_section")
		return 0, false, &model.UnknownSectionError{EventID: eventID, Section: *req.Section}
	}

	if len(snapshot.Sections) > 0 {
		monitoring.AdmissionRejected("section_required")
		return 0, false, fmt.Errorf("%w: event %s declares sections, the request must name one", model.ErrSectionRequired, eventID)
	}
	return 0, true, nil
}
