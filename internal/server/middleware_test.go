package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebox/internal/shared"
	"golang.org/x/time/rate"
)

func TestBasicRouter(t *testing.T) {
	t.Run("method patterns", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/things/{id}", func(w http.ResponseWriter, req *http.Request) {
			io.WriteString(w, "thing "+req.PathValue("id"))
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/7", nil))
		if rec.Body.String() != "thing 7" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/things/7", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc("", "/", func(http.ResponseWriter, *http.Request) { order = append(order, "handler") })

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("handler routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(routedHandler{"GET /a", "GET /b"})

		for _, path := range []string{"/a", "/b"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusTeapot {
				t.Errorf("%s: expected 418, got %d", path, rec.Code)
			}
		}
	})
}

type routedHandler []string

func (h routedHandler) Routes() []string { return h }

func (routedHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("expected generated id echoed, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
			t.Errorf("expected caller id, got %q", seen)
		}
	})
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	logger.SetLevel(log.DebugLevel)

	h := WithRequestID()(WithLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, "ok")
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/songs", nil))

	out := buf.String()
	for _, want := range []string{"GET /api/missing 404 in", "POST /api/songs 200 in", "request_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWithRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)

	h := WithRequestID()(WithRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/songs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Internal Server Error" || body.RequestID == "" {
		t.Errorf("unexpected body %+v", body)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got:\n%s", buf.String())
	}
}

func TestThrottle(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("limits", func(t *testing.T) {
		h := Throttle(rate.NewLimiter(rate.Limit(0.001), 2), logger)(ok)

		codes := make([]int, 3)
		for i := range codes {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			codes[i] = rec.Code
		}
		if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
			t.Errorf("unexpected codes %v", codes)
		}
	})

	t.Run("nil limiter", func(t *testing.T) {
		h := Throttle(nil, logger)(ok)
		for range 10 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		}
	})

	t.Run("from config", func(t *testing.T) {
		if NewLimiter(shared.ServerConfig{}) != nil {
			t.Error("expected nil limiter for zero rate")
		}
		l := NewLimiter(shared.ServerConfig{UploadRate: 2})
		if l == nil || l.Burst() != 1 {
			t.Errorf("expected burst 1, got %+v", l)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrValidation, http.StatusBadRequest},
		{shared.ErrInvalidArgument, http.StatusBadRequest},
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrTooManyRequests, http.StatusTooManyRequests},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{shared.ErrInternal, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
