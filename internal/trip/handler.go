package trip

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wanderly/tripmate/pkg/middleware"
	"github.com/wanderly/tripmate/pkg/response"
)

// Handler handles HTTP requests for trip operations
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates a new trip handler
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router for trip endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	r.Get("/{id}/participants", h.Participants)
	r.Post("/{id}/participants", h.Invite)
	r.Post("/{id}/participants/accept", h.Accept)
	r.Post("/{id}/participants/decline", h.Decline)

	return r
}

// Create handles POST /trips
// @Summary      Create a trip
// @Description  Creates a trip in planning status; the creator becomes its owner
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request body CreateTripRequest true "Trip creation request"
// @Success      201 {object} response.APIResponse{data=Trip}
// @Failure      400 {object} response.APIResponse
// @Router       /trips [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, t)
}

// ListMine handles GET /trips
// @Summary      List my trips
// @Tags         trips
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Trip}
// @Router       /trips [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	trips, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, trips)
}

// GetByID handles GET /trips/{id}
// @Summary      Get trip by ID
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=Trip}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	t, err := h.service.GetByID(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Update handles PATCH /trips/{id}
// @Summary      Update a trip
// @Description  Owner-only partial patch of title, description, dates or status
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        id path string true "Trip ID"
// @Param        request body UpdateTripRequest true "Trip patch"
// @Success      200 {object} response.APIResponse{data=Trip}
// @Failure      403 {object} response.APIResponse
// @Router       /trips/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	var req UpdateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Update(r.Context(), id, actor, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Delete handles DELETE /trips/{id}
// @Summary      Delete a trip
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /trips/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	if err := h.service.Delete(r.Context(), id, actor); err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Trip deleted"})
}

// Participants handles GET /trips/{id}/participants
// @Summary      List trip participants
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]Participant}
// @Router       /trips/{id}/participants [get]
func (h *Handler) Participants(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	participants, err := h.service.Participants(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, participants)
}

// Invite handles POST /trips/{id}/participants
// @Summary      Invite a user to a trip
// @Description  Owner-only; creates a pending participant
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        id path string true "Trip ID"
// @Param        request body InviteRequest true "Invitation"
// @Success      201 {object} response.APIResponse{data=Participant}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants [post]
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	inviteeID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	p, err := h.service.Invite(r.Context(), id, actor, inviteeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

// Accept handles POST /trips/{id}/participants/accept
// @Summary      Accept a trip invitation
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Accept)
}

// Decline handles POST /trips/{id}/participants/decline
// @Summary      Decline a trip invitation
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Decline)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, tripID, actor uuid.UUID) (*Participant, error)) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	p, err := fn(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// writeError maps service errors onto the response taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTripNotFound), errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotTripOwner), errors.Is(err, ErrNotTripMember):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyParticipant), errors.Is(err, ErrNoPendingInvite):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidDates):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("trip operation failed", zap.Error(err))
		response.InternalError(w, "Internal error")
	}
}
