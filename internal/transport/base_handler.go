package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/pkg/logger"
)

// Notice severities, mirroring the categories the UI layer understands.
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// Notice is a user-visible message classified by severity. Denials and
// conflicts are always delivered as a notice plus a redirect target, never as
// a bare status code.
type Notice struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type NoticeResponse struct {
	Notice     Notice `json:"notice"`
	RedirectTo string `json:"redirect_to"`
}

// WriteNotice emits the notice body with a See Other redirect so browser and
// API clients land on the same page.
func WriteNotice(w http.ResponseWriter, severity, message, redirectTo string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", redirectTo)
	w.WriteHeader(http.StatusSeeOther)

	resp := NoticeResponse{
		Notice:     Notice{Severity: severity, Message: message},
		RedirectTo: redirectTo,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.LoggerWrapper().Error("failed to encode notice response", "error", err)
	}
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := map[string]interface{}{
		"code":    status,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// WriteNotice emits a notice + redirect through the handler's logger context.
func (h *BaseHandler) WriteNotice(w http.ResponseWriter, severity, message, redirectTo string) {
	WriteNotice(w, severity, message, redirectTo)
}

// WriteAppError converts a service error into the notice contract. Validation,
// not-found and conflict outcomes surface as warnings pointing back at the
// originating form; anything unexpected becomes the generic retry notice and
// the underlying cause is only logged.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error, backTo string) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unexpected error at handler boundary", "error", err)
		WriteNotice(w, SeverityDanger, "Something went wrong, Please try again later.", backTo)
		return
	}

	switch appErr.Type {
	case internal.ErrorTypeValidation, internal.ErrorTypeNotFound, internal.ErrorTypeConflict:
		WriteNotice(w, SeverityWarning, appErr.GetDetailedMessage(), backTo)
	case internal.ErrorTypeUnauthorized:
		WriteNotice(w, SeverityWarning, "You need to login to access this page.", "/login")
	case internal.ErrorTypeForbidden:
		// presented exactly like a missing page so gated functionality
		// cannot be probed
		WriteNotice(w, SeverityWarning, "Page you attempt to visit does not exist", "/")
	default:
		h.Logger.Error("persistence failure at handler boundary", "error", appErr.Error())
		WriteNotice(w, SeverityDanger, "Something went wrong, Please try again later.", backTo)
	}
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}
