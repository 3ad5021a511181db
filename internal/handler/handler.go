// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/model"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// EventHandler serves event creation, lookup and admission.
type EventHandler struct {
	events *service.EventService
	regs   *service.RegistrationService
	log    *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, regs *service.RegistrationService, log *zap.Logger) *EventHandler {
	return &EventHandler{events: events, regs: regs, log: log}
}

// RegistrationHandler serves the payment workflow and ticket endpoints.
type RegistrationHandler struct {
	regs *service.RegistrationService
	log  *zap.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(regs *service.RegistrationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{regs: regs, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
	}
	return a, ok
}

// writeServiceError maps a domain error onto a status code and error code.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	resp := model.ErrorResponse{Error: err.Error()}
	status := http.StatusConflict

	var (
		stockErr *model.StockError
		stateErr *model.StateError
		scanErr  *model.ScanError
		invalid  validation.Errors
	)
	switch {
	case errors.As(err, &invalid):
		status, resp.Code = http.StatusBadRequest, "VALIDATION_FAILED"
		details := make(map[string]any, len(invalid))
		for field, fe := range invalid {
			details[field] = fe.Error()
		}
		resp.Error, resp.Details = "validation failed", details
	case errors.Is(err, model.ErrEmptyReason):
		status, resp.Code = http.StatusBadRequest, "EMPTY_REASON"
	case errors.Is(err, model.ErrMissingProof):
		status, resp.Code = http.StatusBadRequest, "MISSING_PROOF"
	case errors.Is(err, model.ErrUnauthorized):
		status, resp.Code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, model.ErrTicketNotFound):
		status, resp.Code = http.StatusNotFound, "TICKET_NOT_FOUND"
	case errors.Is(err, model.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, model.ErrEventNotOpen):
		resp.Code = "EVENT_NOT_OPEN"
	case errors.Is(err, model.ErrRegistrationClosed):
		resp.Code = "REGISTRATION_CLOSED"
	case errors.Is(err, model.ErrAlreadyRegistered):
		resp.Code = "ALREADY_REGISTERED"
	case errors.Is(err, model.ErrCapacityReached):
		resp.Code = "CAPACITY_REACHED"
	case errors.Is(err, model.ErrNotEligible):
		status, resp.Code = http.StatusForbidden, "NOT_ELIGIBLE"
	case errors.As(err, &stockErr):
		resp.Code = "INSUFFICIENT_STOCK"
		resp.Details = map[string]any{
			"variant_id": stockErr.VariantID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		}
	case errors.Is(err, model.ErrInsufficientStock):
		resp.Code = "INSUFFICIENT_STOCK"
	case errors.Is(err, model.ErrInvalidSelection):
		status, resp.Code = http.StatusUnprocessableEntity, "INVALID_SELECTION"
	case errors.As(err, &stateErr):
		resp.Code = "INVALID_STATE"
		resp.Details = map[string]any{
			"status":         stateErr.Status,
			"payment_status": stateErr.PaymentStatus,
		}
	case errors.Is(err, model.ErrInvalidState):
		resp.Code = "INVALID_STATE"
	case errors.As(err, &scanErr):
		resp.Code = "ALREADY_SCANNED"
		resp.Details = map[string]any{
			"ticket_id":   scanErr.TicketID,
			"scanned_at":  scanErr.ScannedAt,
			"scanned_by":  scanErr.ScannedBy,
			"participant": scanErr.Participant,
		}
	case errors.Is(err, model.ErrTicketInvalid):
		status, resp.Code = http.StatusUnprocessableEntity, "TICKET_INVALID"
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, status, resp)
}

// ─── Event handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), a, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/registrations
// Admission, stock reservation and the free-event ticket all happen in one
// store transaction.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.regs.CreateRegistration(r.Context(), chi.URLParam(r, "id"), a, req.Selection())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /events/{id}/registrations
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	regs, err := h.regs.ListRegistrations(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Registration handlers ────────────────────────────────────────────────────

// GetRegistration handles GET /registrations/{id}
func (h *RegistrationHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	reg, err := h.regs.GetRegistration(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// History handles GET /registrations/{id}/history
func (h *RegistrationHandler) History(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	trail, err := h.regs.History(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if trail == nil {
		trail = []model.Transition{}
	}
	writeJSON(w, http.StatusOK, trail)
}

// SubmitProof handles POST /registrations/{id}/proof
func (h *RegistrationHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.ProofRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	reg, err := h.regs.SubmitPaymentProof(r.Context(), chi.URLParam(r, "id"), a, req.ProofRef)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Approve handles POST /registrations/{id}/approve
func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	reg, err := h.regs.ApprovePayment(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Reject handles POST /registrations/{id}/reject
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.RejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.regs.RejectPayment(r.Context(), chi.URLParam(r, "id"), a, req.Reason)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// Cancel handles POST /registrations/{id}/cancel
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	reg, err := h.regs.CancelRegistration(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// TicketQR handles GET /registrations/{id}/ticket/qr
func (h *RegistrationHandler) TicketQR(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	png, err := h.regs.TicketQR(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Verify handles POST /tickets/verify
func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req model.VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	res, err := h.regs.VerifyTicket(r.Context(), req.Credential, a)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
