// Package middleware provides HTTP middleware for the metrics endpoint.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/canvas-etl/internal/logging"
)

// Logger logs one debug entry per request. Scrapes are frequent, so they stay
// below the default level; failures are logged as warnings.
//
// Log fields:
//   - method, path, status
//   - duration_ms: request processing time in milliseconds
//   - request_id: added by logging.FromContext when chi's RequestID ran first
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		logger := logging.WithFields(r.Context(),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if ww.status >= http.StatusInternalServerError {
			logger.Warn("request failed")
			return
		}
		logger.Debug("request")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying ResponseWriter to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
