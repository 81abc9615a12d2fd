package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// RequestID returns the id stored in ctx by [WithRequestID], or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID assigns every request an id, reusing the caller's X-Request-ID when present.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// WithLogging writes one access log line per request.
//
// API requests are logged at info as "METHOD path status in Nms"; asset requests at debug.
func WithLogging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			line := fmt.Sprintf("%s %s %d in %dms", r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
			kv := []any{"request_id", RequestID(r.Context()), "bytes", rec.bytes}

			switch {
			case !strings.HasPrefix(r.URL.Path, "/api"):
				logger.Debug(line, kv...)
			case rec.status >= http.StatusInternalServerError:
				logger.Error(line, kv...)
			default:
				logger.Info(line, kv...)
			}
		})
	}
}

// WithRecovery turns a panicking handler into a 500 response.
func WithRecovery(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"request_id", RequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, r, logger, fmt.Errorf("%w: panic: %v", shared.ErrInternal, rec))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Throttle rejects requests with 429 once limiter runs out of tokens.
//
// A nil limiter disables throttling.
func Throttle(limiter *rate.Limiter, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, logger, fmt.Errorf("%w: slow down and retry shortly", shared.ErrTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiter builds an upload limiter from cfg, or nil when the rate is not positive.
func NewLimiter(cfg shared.ServerConfig) *rate.Limiter {
	if cfg.UploadRate <= 0 {
		return nil
	}
	burst := max(cfg.UploadBurst, 1)
	return rate.NewLimiter(rate.Limit(cfg.UploadRate), burst)
}
