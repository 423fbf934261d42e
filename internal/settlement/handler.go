package settlement

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

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/mark-paid", h.MarkPaid)

	// Trip-based listing
	r.Get("/trip/{tripId}", h.ListByTrip)

	return r
}

// Create handles POST /settlements
// @Summary      Create a settlement
// @Description  Group active expenses of one trip into a PENDING settlement
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body CreateSettlementRequest true "Settlement creation request"
// @Success      201 {object} response.APIResponse{data=SettlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	expenseIDs := make([]uuid.UUID, len(req.ExpenseIDs))
	for i, raw := range req.ExpenseIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid expense ID: "+raw)
			return
		}
		expenseIDs[i] = id
	}

	result, err := h.service.Create(r.Context(), actor, expenseIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, result.ToResponse())
}

// GetByID handles GET /settlements/{id}
// @Summary      Get settlement by ID
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	result, err := h.service.GetByID(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result.ToResponse())
}

// MarkPaid handles POST /settlements/{id}/mark-paid
// @Summary      Mark a settlement as paid
// @Description  Owner-only; atomically flips the settlement to PAID and locks all linked expenses
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/{id}/mark-paid [post]
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	result, err := h.service.MarkPaid(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result.ToResponse())
}

// ListByTrip handles GET /settlements/trip/{tripId}
// @Summary      List trip settlements
// @Description  Newest first
// @Tags         settlements
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]SettlementResponse}
// @Router       /settlements/trip/{tripId} [get]
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

	results, err := h.service.ListByTrip(r.Context(), tripID, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]*SettlementResponse, len(results))
	for i, res := range results {
		out[i] = res.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// writeError maps service errors onto the response taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSettlementNotFound), errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrTripNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotTripParticipant), errors.Is(err, ErrNotTripMember), errors.Is(err, ErrNotTripOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrExpenseNotActive),
		errors.Is(err, ErrNoLinkedExpenses), errors.Is(err, ErrExpenseAlreadySettled):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrNoExpenses), errors.Is(err, ErrTripMismatch):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("settlement operation failed", zap.Error(err))
		response.InternalError(w, "Internal error")
	}
}
