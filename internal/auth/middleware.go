package auth

import (
	"net/http"

	"github.com/openlearn/learning-management/internal/transport"
)

// writeDecision maps a denial onto the notice contract. Unauthenticated
// callers are pointed at the login page; everything else is indistinguishable
// from a page that does not exist.
func writeDecision(w http.ResponseWriter, d Decision) {
	switch d {
	case DeniedUnauthenticated:
		transport.WriteNotice(w, transport.SeverityWarning, "You need to login to access this page.", "/login")
	default:
		transport.WriteNotice(w, transport.SeverityWarning, "Page you attempt to visit does not exist", "/")
	}
}

// RequireAuthenticated guards routes that only need a logged in principal.
func (g *Gate) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if d := g.CheckAuthenticated(user); d != Allowed {
			writeDecision(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if d := g.CheckStaff(user); d != Allowed {
			writeDecision(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if d := g.CheckSuperuser(user); d != Allowed {
			writeDecision(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route behind a catalog codename.
func (g *Gate) RequirePermission(codename string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if d := g.CheckPermission(user, codename); d != Allowed {
				writeDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
