package notification

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openlearn/learning-management/internal/auth"
	"github.com/openlearn/learning-management/internal/transport"
)

type ServiceAPI interface {
	Notifications(userID int64, unreadOnly bool) ([]View, error)
	MarkRead(userID, notificationID int64) (*View, error)
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

// List returns the authenticated user's inbox; ?unread=true filters it.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	views, err := h.service.Notifications(actor.ID, unreadOnly)
	if err != nil {
		h.WriteAppError(w, err, "/")
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]any{"notifications": views})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.principal(w, r)
	if !ok {
		return
	}
	notificationID, ok := h.pathID(w, r, "notificationID")
	if !ok {
		return
	}

	view, err := h.service.MarkRead(actor.ID, notificationID)
	if err != nil {
		h.WriteAppError(w, err, "/notifications")
		return
	}
	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return nil, false
	}
	return actor, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.WriteNotice(w, transport.SeverityWarning, "Page you attempt to visit does not exist", "/")
		return 0, false
	}
	return id, true
}
