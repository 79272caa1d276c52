package group

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
	Create(actorID int64, dto CreateDTO) (*View, error)
	Get(groupID int64) (*View, error)
	List(limit, offset int) ([]View, error)
	Update(actorID, groupID int64, dto UpdateDTO) (*View, error)
	Members(groupID int64) ([]MemberView, error)
	AssignPermissions(actorID, groupID int64, dto AssignPermissionsDTO) error
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	var dto CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/groups/new")
		return
	}

	view, err := h.service.Create(actor.ID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/groups/new")
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	views, err := h.service.List(limit, offset)
	if err != nil {
		h.WriteAppError(w, err, "/groups")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"groups": views})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	view, err := h.service.Get(groupID)
	if err != nil {
		h.WriteAppError(w, err, "/groups")
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

	groupID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/groups")
		return
	}

	view, err := h.service.Update(actor.ID, groupID, dto)
	if err != nil {
		h.WriteAppError(w, err, "/groups")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	views, err := h.service.Members(groupID)
	if err != nil {
		h.WriteAppError(w, err, "/groups")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"members": views})
}

func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	groupID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var dto AssignPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/groups")
		return
	}

	if err := h.service.AssignPermissions(actor.ID, groupID, dto); err != nil {
		h.WriteAppError(w, err, "/groups")
		return
	}
	h.WriteNotice(w, transport.SeveritySuccess, "Permissions have been updated.", "/groups")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteNotice(w, transport.SeverityWarning, "Page you attempt to visit does not exist", "/")
		return 0, false
	}
	return id, true
}
