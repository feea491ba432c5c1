package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/handlers/render"
	"github.com/generalbusiness/allodakar/internal/logger"
)

func handleHealth() http.Handler {
	type response struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, response{Status: "ok", Timestamp: time.Now().UTC()})
	})
}

// Delete user by phone so end-to-end suites can rerun with the same data
// Registered only when test routes are enabled
func handleTestCleanup(userService userService, secret string, l logger.Logger) http.Handler {
	type request struct {
		Phone  string `json:"phone" validate:"required"`
		Secret string `json:"secret" validate:"required"`
	}
	type response struct {
		Message string     `json:"message"`
		ID      *uuid.UUID `json:"id,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if subtle.ConstantTimeCompare([]byte(data.Secret), []byte(secret)) != 1 {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, deleted, err := userService.DeleteByPhone(r.Context(), data.Phone)
		if err != nil {
			render.Error(w, r, l, err)
			return
		}
		if !deleted {
			render.JSON(w, response{Message: "no-op"})
			return
		}

		render.JSON(w, response{Message: "deleted", ID: &id})
	})
}
