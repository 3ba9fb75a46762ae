package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/cutline/pkg/logger"
	"github.com/okian/cutline/pkg/metrics"
)

// errorCodeHeader carries the error code written by writeError so the
// middleware can label failures without parsing bodies.
const errorCodeHeader = "X-Error-Code"

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics and a
// debug access log line per request.
func MetricsMiddleware(next http.HandlerFunc, endpoint string, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		status := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(elapsed.Milliseconds()))

		if wrapped.statusCode >= http.StatusBadRequest {
			errType := wrapped.Header().Get(errorCodeHeader)
			if errType == "" {
				errType = errorType(wrapped.statusCode)
			}
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errType)
		}

		log.Debug(r.Context(), "http request",
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.Int("status", wrapped.statusCode),
			logger.Duration("elapsed", elapsed),
		)
	}
}

// errorType labels statuses written without an error code.
func errorType(statusCode int) string {
	switch {
	case statusCode == http.StatusGatewayTimeout:
		return "timeout"
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusTooManyRequests:
		return "backpressure"
	case statusCode == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
