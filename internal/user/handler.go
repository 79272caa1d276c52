package user

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/transport"
)

type ServiceAPI interface {
	Register(actorID int64, dto RegisterDTO) (*View, error)
	Get(userID int64) (*View, error)
	List(limit, offset int) ([]View, error)
	Search(query string, limit, offset int) ([]View, error)
	Update(actorID, userID int64, dto UpdateDTO) (*View, error)
	AssignPermissions(actorID, userID int64, dto AssignPermissionsDTO) error
	Permissions(userID int64) ([]PermissionView, error)
}

type Handler struct {
	*transport.BaseHandler
	service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		service:     service,
	}
}

// Register creates a user account with the default password.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/users/new")
		return
	}

	view, err := h.service.Register(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/users/new")
		return
	}

	h.WriteJSON(w, http.StatusCreated, view)
}

// List returns the user panel listing, optionally filtered by ?q=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	query := r.URL.Query().Get("q")

	var (
		views []View
		err   error
	)
	if query != "" {
		views, err = h.service.Search(query, limit, offset)
	} else {
		views, err = h.service.List(limit, offset)
	}
	if err != nil {
		h.WriteAppError(w, err, "/users")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]any{"users": views})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	view, err := h.service.Get(userID)
	if err != nil {
		h.WriteAppError(w, err, "/users")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/users")
		return
	}

	view, err := h.service.Update(actor.ID, userID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/users")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

// AssignPermissions replaces the user's permission set wholesale.
func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	var dto AssignPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/users")
		return
	}

	if err := h.service.AssignPermissions(actor.ID, userID, dto); err != nil {
		h.WriteAppError(w, err, "/users")
		return
	}

	h.WriteNotice(w, transport.SeveritySuccess, "Permissions have been updated.", "/users")
}

func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}

	views, err := h.service.Permissions(userID)
	if err != nil {
		h.WriteAppError(w, err, "/users")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"permissions": views})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.WriteNotice(w, transport.SeverityWarning, "Page you attempt to visit does not exist", "/")
		return 0, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
