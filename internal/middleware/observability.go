package middleware

import (
	"net/http"
	"time"

	"github.com/yudistirasd/baileys-api/internal/httputil"
	"github.com/yudistirasd/baileys-api/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// responseWrapper captures the status code and body size written by the
// wrapped handler.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Observability attaches a request ID, an OpenTelemetry span and an
// access log entry to every request. The log level follows the response
// status class.
func Observability(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = tracing.NewRequestID()
			}

			ctx := tracing.WithRequestID(r.Context(), requestID)
			ctx = tracing.WithStartTime(ctx, time.Now())

			ctx, span := tracing.StartSpan(ctx, r.Method+" "+r.URL.Path,
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.client_ip", httputil.GetClientIP(r)),
				attribute.String("request.id", requestID),
			)
			defer span.End()

			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			tracing.AddSpanAttributes(ctx,
				attribute.Int("http.status_code", wrapped.statusCode),
				attribute.Int("http.response_size", wrapped.size),
			)
			if wrapped.statusCode >= http.StatusInternalServerError {
				tracing.SetSpanStatus(ctx, codes.Error, http.StatusText(wrapped.statusCode))
			}

			entry := logger.WithFields(logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"size":        wrapped.size,
				"duration_ms": tracing.Duration(ctx).Milliseconds(),
				"client_ip":   httputil.GetClientIP(r),
			})
			if traceID := tracing.GetTraceID(ctx); traceID != "" {
				entry = entry.WithField("trace_id", traceID)
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				entry.Error("Request completed")
			case wrapped.statusCode >= http.StatusBadRequest:
				entry.Warn("Request completed")
			default:
				entry.Info("Request completed")
			}
		})
	}
}

// Recovery converts handler panics into 500 responses instead of tearing
// down the connection.
func Recovery(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithFields(logrus.Fields{
						"panic": rec,
						"path":  r.URL.Path,
					}).Error("Handler panicked")
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
