package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openlearn/learning-management/internal/transport"
)

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

// Login authenticates credentials and returns a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/login")
		return
	}

	tokens, err := h.service.Authenticate(dto)
	if err != nil {
		h.WriteAppError(w, err, "/login")
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// RefreshToken exchanges a valid refresh token for a fresh pair.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.WriteAppError(w, err, "/login")
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout is stateless on the server side; the client discards its tokens. The
// endpoint exists so the UI has a concrete target and lands on the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.WriteNotice(w, transport.SeverityInfo, "You have been logged out.", "/login")
}

// ChangePassword lets the authenticated principal rotate its own password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteNotice(w, transport.SeverityWarning, "Invalid request body.", "/account/password")
		return
	}

	if err := h.service.ChangePassword(user.ID, dto); err != nil {
		h.WriteAppError(w, err, "/account/password")
		return
	}

	h.WriteNotice(w, transport.SeveritySuccess, "Your password has been updated.", "/")
}

// Me returns the authenticated principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
		return
	}
	h.WriteJSON(w, http.StatusOK, user)
}

// Middleware authenticates the bearer token and loads the principal into the
// request context. Routes behind it can rely on UserFromContext.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := h.ExtractTokenFromHeader(r)
		if tokenString == "" {
			h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
			return
		}

		claims, err := h.service.ValidateAccessToken(tokenString)
		if err != nil {
			h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
			return
		}

		userID, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
			return
		}

		user, err := h.service.GetUser(userID)
		if err != nil || !user.IsActive {
			h.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}
