// Package handler contains the chi HTTP handlers that translate requests
// and responses to and from the ticket service.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventia/tickets-service/internal/model"
	"github.com/eventia/tickets-service/internal/service"
)

// TicketHandler holds the HTTP handlers for the tickets API.
type TicketHandler struct {
	svc *service.TicketService
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// Mount registers the ticket routes on the given router. Main mounts it
// under /api/tickets.
func (h *TicketHandler) Mount(r chi.Router) {
	r.Post("/generar", h.Generate)
	r.Post("/confirmar", h.Confirm)
	r.Post("/validar", h.Validate)
	r.Post("/cancelar", h.Cancel)
	r.Get("/check-access", h.CheckAccess)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	// 8 MB limit; generation requests carry QR image payloads.
	r.Body = http.MaxBytesReader(nil, r.Body, 8<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps the error taxonomy to HTTP statuses. Caller errors
// are 400, missing resources 404, state-machine and admission rejections
// 409, availability failures 502, storage failures 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvariantViolation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrIllegalTransition),
		errors.Is(err, model.ErrEventNotPublished),
		errors.Is(err, model.ErrUnknownSection),
		errors.Is(err, model.ErrSectionRequired),
		errors.Is(err, model.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrAvailabilityCheck):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Generate handles POST /api/tickets/generar.
func (h *TicketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateTicketsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Confirm handles POST /api/tickets/confirmar.
func (h *TicketHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmTicketsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Confirm(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /api/tickets/validar.
func (h *TicketHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Validate(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Cancel handles POST /api/tickets/cancelar.
func (h *TicketHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Cancel(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckAccess handles GET /api/tickets/check-access?eventId=&userId=.
// Finding no ticket is a normal 200 answer with hasAccess=false.
func (h *TicketHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(r.URL.Query().Get("eventId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "eventId must be a valid uuid")
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId must be a valid uuid")
		return
	}

	result, err := h.svc.CheckAccess(r.Context(), eventID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
