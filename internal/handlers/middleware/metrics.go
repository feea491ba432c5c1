package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/generalbusiness/allodakar/internal/metrics"
)

// Count requests and their latency
// route reports the registered pattern to keep label cardinality bounded
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}
