package expense

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wanderly/tripmate/pkg/middleware"
	"github.com/wanderly/tripmate/pkg/response"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates a new expense handler
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}", h.Update)
	r.Post("/{id}/void", h.Void)
	r.Get("/{id}/audit", h.ListAudit)

	// Trip-based listing
	r.Get("/trip/{tripId}", h.ListByTrip)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create a trip expense with an equal split; remainder cents go to the payer
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}
	payerID, err := uuid.Parse(req.PayerUserID)
	if err != nil {
		response.BadRequest(w, "Invalid payer user ID")
		return
	}
	if len(req.ParticipantIDs) == 0 {
		response.BadRequest(w, "At least one participant is required")
		return
	}
	participants := make([]uuid.UUID, len(req.ParticipantIDs))
	for i, raw := range req.ParticipantIDs {
		participants[i], err = uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid participant user ID: "+raw)
			return
		}
	}
	var adjusts *uuid.UUID
	if req.AdjustsExpenseID != nil {
		id, err := uuid.Parse(*req.AdjustsExpenseID)
		if err != nil {
			response.BadRequest(w, "Invalid adjusts_expense_id")
			return
		}
		adjusts = &id
	}

	result, err := h.service.Create(r.Context(), actor, CreateInput{
		TripID:           tripID,
		PayerID:          payerID,
		ParticipantIDs:   participants,
		Amount:           req.Amount,
		Description:      req.Description,
		Type:             Type(req.Type),
		AdjustsExpenseID: adjusts,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toExpenseResponse(result))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	result, err := h.service.GetByID(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, toExpenseResponse(result))
}

// Update handles PATCH /expenses/{id}
// @Summary      Edit an expense
// @Description  Partial patch; amount, payer or participant changes recompute splits
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path string true "Expense ID"
// @Param        request body UpdateExpenseRequest true "Expense patch"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	in := EditInput{
		Amount:      req.Amount,
		Description: req.Description,
		Reason:      req.Reason,
	}
	if req.PayerUserID != nil {
		payerID, err := uuid.Parse(*req.PayerUserID)
		if err != nil {
			response.BadRequest(w, "Invalid payer user ID")
			return
		}
		in.PayerID = &payerID
	}
	if req.ParticipantIDs != nil {
		in.ParticipantIDs = make([]uuid.UUID, len(req.ParticipantIDs))
		for i, raw := range req.ParticipantIDs {
			in.ParticipantIDs[i], err = uuid.Parse(raw)
			if err != nil {
				response.BadRequest(w, "Invalid participant user ID: "+raw)
				return
			}
		}
	}

	result, err := h.service.Edit(r.Context(), id, actor, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, toExpenseResponse(result))
}

// Void handles POST /expenses/{id}/void
// @Summary      Void an expense
// @Description  Creator may void within 15 minutes of creation; trip owner at any time
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id}/void [post]
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	exp, err := h.service.Void(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, exp.ToResponse())
}

// ListByTrip handles GET /expenses/trip/{tripId}
// @Summary      List trip expenses
// @Description  Newest first; voided expenses excluded unless include_void=true
// @Tags         expenses
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Param        include_void query bool false "Include voided expenses"
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses/trip/{tripId} [get]
func (h *Handler) ListByTrip(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	tripID, err := uuid.Parse(chi.URLParam(r, "tripId"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}
	includeVoid := r.URL.Query().Get("include_void") == "true"

	results, err := h.service.ListByTrip(r.Context(), tripID, actor, includeVoid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*ExpenseResponse, len(results))
	for i, res := range results {
		out[i] = toExpenseResponse(res)
	}
	response.JSON(w, http.StatusOK, out)
}

// ListAudit handles GET /expenses/{id}/audit
// @Summary      List the audit trail of an expense
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=[]AuditEntryResponse}
// @Router       /expenses/{id}/audit [get]
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	entries, err := h.service.ListAudit(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*AuditEntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = entry.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// writeError maps service errors onto the response taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrTripNotFound), errors.Is(err, ErrAdjustsNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotTripParticipant), errors.Is(err, ErrNotTripMember),
		errors.Is(err, ErrEditForbidden), errors.Is(err, ErrVoidForbidden), errors.Is(err, ErrVoidWindowExpired):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrExpenseLocked), errors.Is(err, ErrExpenseNotActive):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrSplitSumMismatch):
		h.log.Error("split sum invariant violated", zap.Error(err))
		response.InternalError(w, "Internal error")
	case isValidationError(err):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("expense operation failed", zap.Error(err))
		response.InternalError(w, "Internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrPayerNotAccepted, ErrParticipantNotAccepted, ErrDuplicateParticipant,
		ErrPayerNotInParticipants, ErrInvalidExpenseType, ErrAdjustsTripMismatch,
		ErrAmountEmpty, ErrAmountNegative, ErrAmountNotNumeric, ErrAmountMultipleDots,
		ErrAmountInvalid, ErrAmountNotPositive, ErrAmountTooPrecise,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toExpenseResponse(res *ExpenseWithSplits) *ExpenseResponse {
	out := res.Expense.ToResponse()
	out.Splits = make([]*SplitResponse, len(res.Splits))
	for i, sp := range res.Splits {
		out.Splits[i] = sp.ToResponse()
	}
	return out
}
