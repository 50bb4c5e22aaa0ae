// Package gateway implements the event availability port against the
// external events service.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eventia/tickets-service/internal/model"
)

// eventDTO mirrors the events-service wire contract, which is Spanish.
type eventDTO struct {
	ID        uuid.UUID    `json:"id"`
	Estado    string       `json:"estado"`
	Secciones []sectionDTO `json:"secciones"`
}

type sectionDTO struct {
	ID        uuid.UUID `json:"id"`
	Nombre    string    `json:"nombre"`
	Capacidad int       `json:"capacidad"`
}

// EventsGateway fetches event snapshots over HTTP, with an optional redis
// cache in front. Cache failures degrade silently to a direct fetch; the
// cache is an optimization, never a source of truth.
type EventsGateway struct {
	baseURL  string
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewEventsGateway constructs an EventsGateway. A nil client gets a default
// with a 10 second timeout; a nil cache disables caching.
func NewEventsGateway(baseURL string, client *http.Client, cache *redis.Client, cacheTTL time.Duration) *EventsGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &EventsGateway{
		baseURL:  baseURL,
		client:   client,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// FetchEvent returns the event's publication status and section
// declarations. A 404 from the events service maps to model.ErrNotFound;
// any transport failure or unexpected status maps to
// model.ErrAvailabilityCheck and is not retried here.
func (g *EventsGateway) FetchEvent(ctx context.Context, eventID uuid.UUID) (*model.EventSnapshot, error) {
	key := "eventos:snapshot:" + eventID.String()

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, key).Bytes(); err == nil {
			var dto eventDTO
			if err := json.Unmarshal(cached, &dto); err == nil {
				return toSnapshot(dto), nil
			}
		}
	}

	url := fmt.Sprintf("%s/api/eventos/%s", g.baseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrAvailabilityCheck, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query events service: %v", model.ErrAvailabilityCheck, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: event %s", model.ErrNotFound, eventID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: events service returned %d", model.ErrAvailabilityCheck, resp.StatusCode)
	}

	var dto eventDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: decode event response: %v", model.ErrAvailabilityCheck, err)
	}

	if g.cache != nil {
		if body, err := json.Marshal(dto); err == nil {
			g.cache.Set(ctx, key, body, g.cacheTTL)
		}
	}

	return toSnapshot(dto), nil
}

func toSnapshot(dto eventDTO) *model.EventSnapshot {
	snapshot := &model.EventSnapshot{
		ID:     dto.ID,
		Status: dto.Estado,
	}
	for _, s := range dto.Secciones {
		snapshot.Sections = append(snapshot.Sections, model.EventSection{
			ID:       s.ID,
			Name:     s.Nombre,
			Capacity: s.Capacidad,
		})
	}
	return snapshot
}
