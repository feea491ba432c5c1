package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/generalbusiness/allodakar/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// Longer ids sent by clients are replaced
const maxRequestIDLen = 64

type recorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *recorder) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *recorder) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// LoggerMiddleware tags every request with an id and logs its outcome
// Server errors are logged at error level, client errors at warn.
// Handlers find the request scoped logger with logger.FromContext
func LoggerMiddleware(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLen {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rl := l.With("request_id", requestID)
			r = r.WithContext(logger.NewContext(r.Context(), rl))

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log := rl.Info
			switch {
			case rec.status >= http.StatusInternalServerError:
				log = rl.Error
			case rec.status >= http.StatusBadRequest:
				log = rl.Warn
			}

			log(
				"HTTP request",
				"method", r.Method,
				"route", r.Pattern,
				"uri", r.RequestURI,
				"remote_ip", clientIP(r),
				"duration", time.Since(start),
				"status", rec.status,
				"size", rec.size,
			)
		})
	}
}
