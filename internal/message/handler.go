package message

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wanderly/tripmate/pkg/middleware"
	"github.com/wanderly/tripmate/pkg/response"
)

// Handler handles HTTP requests for messaging
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates a new message handler
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router for message endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Send)
	r.Get("/trip/{tripId}", h.ListTrip)
	r.Get("/direct/{userId}", h.ListDirect)

	return r
}

// Send handles POST /messages
// @Summary      Send a message
// @Description  Posts to a trip conversation (trip_id) or a single user (recipient_id)
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        request body SendMessageRequest true "Message"
// @Success      201 {object} response.APIResponse{data=Message}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /messages [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if (req.TripID == nil) == (req.RecipientID == nil) {
		response.BadRequest(w, ErrBadTarget.Error())
		return
	}

	var (
		m   *Message
		err error
	)
	if req.TripID != nil {
		tripID, parseErr := uuid.Parse(*req.TripID)
		if parseErr != nil {
			response.BadRequest(w, "Invalid trip ID")
			return
		}
		m, err = h.service.SendToTrip(r.Context(), actor, tripID, req.Body)
	} else {
		recipient, parseErr := uuid.Parse(*req.RecipientID)
		if parseErr != nil {
			response.BadRequest(w, "Invalid recipient ID")
			return
		}
		m, err = h.service.SendDirect(r.Context(), actor, recipient, req.Body)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, m)
}

// ListTrip handles GET /messages/trip/{tripId}
// @Summary      List a trip's conversation
// @Description  Oldest first; paged with page and per_page
// @Tags         messages
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Param        page query int false "Page number"
// @Param        per_page query int false "Messages per page"
// @Success      200 {object} response.APIResponse{data=[]Message}
// @Router       /messages/trip/{tripId} [get]
func (h *Handler) ListTrip(w http.ResponseWriter, r *http.Request) {
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
	page, perPage := pageParams(r)

	messages, err := h.service.ListTrip(r.Context(), actor, tripID, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, messages)
}

// ListDirect handles GET /messages/direct/{userId}
// @Summary      List a 1:1 conversation
// @Description  Oldest first; paged with page and per_page
// @Tags         messages
// @Produce      json
// @Param        userId path string true "Other user's ID"
// @Param        page query int false "Page number"
// @Param        per_page query int false "Messages per page"
// @Success      200 {object} response.APIResponse{data=[]Message}
// @Router       /messages/direct/{userId} [get]
func (h *Handler) ListDirect(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	other, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	page, perPage := pageParams(r)

	messages, err := h.service.ListDirect(r.Context(), actor, other, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, messages)
}

func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}

// writeError maps service errors onto the response taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTripNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotTripParticipant), errors.Is(err, ErrNotConnected):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrBodyRequired), errors.Is(err, ErrBodyTooLong),
		errors.Is(err, ErrBadTarget), errors.Is(err, ErrSelfMessage):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("message operation failed", zap.Error(err))
		response.InternalError(w, "Internal error")
	}
}
