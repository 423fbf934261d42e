package connection

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

// Handler handles HTTP requests for connection operations
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates a new connection handler
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router for connection endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Request)
	r.Get("/", h.List)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/decline", h.Decline)
	r.Delete("/{id}", h.Remove)

	return r
}

// Request handles POST /connections
// @Summary      Request a connection
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        request body RequestConnectionRequest true "Connection request"
// @Success      201 {object} response.APIResponse{data=Connection}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /connections [post]
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RequestConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	addressee, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	c, err := h.service.Request(r.Context(), actor, addressee)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, c)
}

// List handles GET /connections
// @Summary      List my connections
// @Tags         connections
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Connection}
// @Router       /connections [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	connections, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, connections)
}

// Accept handles POST /connections/{id}/accept
// @Summary      Accept a connection request
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} response.APIResponse{data=Connection}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /connections/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Accept)
}

// Decline handles POST /connections/{id}/decline
// @Summary      Decline a connection request
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} response.APIResponse{data=Connection}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /connections/{id}/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Decline)
}

// Remove handles DELETE /connections/{id}
// @Summary      Remove a connection
// @Tags         connections
// @Produce      json
// @Param        id path string true "Connection ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /connections/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid connection ID")
		return
	}

	if err := h.service.Remove(r.Context(), id, actor); err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Connection removed"})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, connectionID, actor uuid.UUID) (*Connection, error)) {
	actor, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid connection ID")
		return
	}

	c, err := fn(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, c)
}

// writeError maps service errors onto the response taxonomy
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrConnectionNotFound), errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotAddressee), errors.Is(err, ErrNotInvolved):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyConnected), errors.Is(err, ErrNotPending):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrSelfConnection):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("connection operation failed", zap.Error(err))
		response.InternalError(w, "Internal error")
	}
}
