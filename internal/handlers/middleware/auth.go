package middleware

import (
	"net/http"

	"github.com/generalbusiness/allodakar/internal/apperrors"
	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/handlers/userctx"
	"github.com/generalbusiness/allodakar/internal/models"
)

type authService interface {
	Authenticate(r *http.Request) (models.Session, error)
}

type errorLogger interface {
	Error(msg string, args ...any)
}

// Put session of the caller into request context
// Requests without valid access token are rejected with 401
func AuthMiddleware(as authService, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := as.Authenticate(r)
			if err != nil {
				render.Error(w, r, l, err)
				return
			}
			ctx := userctx.New(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Let through only sessions with the role. Has to run after AuthMiddleware
func RoleMiddleware(role models.Role, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := userctx.FromContext(r.Context())
			if !ok {
				render.Error(w, r, l, apperrors.ErrTokenInvalid)
				return
			}

			switch session.Role {
			case models.RoleClient, models.RoleDriver:
				if session.Role != role {
					render.Error(w, r, l, apperrors.ErrRoleNotAllowed)
					return
				}
			default:
				render.Error(w, r, l, apperrors.ErrRoleNotAllowed)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
