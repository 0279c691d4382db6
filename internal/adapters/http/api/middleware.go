package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/curio/pkg/logger"
	"github.com/okian/curio/pkg/metrics"
)

// MetricsMiddleware records request count and latency for endpoint and
// logs responses that failed on the server side.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		elapsedMs := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, elapsedMs)

		kind := errorKind(rec.status)
		if kind == "" {
			return
		}
		metrics.RecordErrorByComponent("http_"+endpoint, kind)
		if rec.status >= http.StatusInternalServerError {
			logRequestFailure(r.Context(), endpoint, r, rec.status, elapsedMs)
		}
	}
}

func logRequestFailure(ctx context.Context, endpoint string, r *http.Request, status int, elapsedMs float64) {
	logger.Get().Named("http").Error(ctx, "request failed",
		logger.String("endpoint", endpoint),
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.Int("status", status),
		logger.Float64("elapsed_ms", elapsedMs))
}

// errorKind classifies a response status; empty means success.
func errorKind(status int) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return ""
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Flush lets streaming handlers such as promhttp flush through the recorder.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
