package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	got := rec.Header().Get("X-Request-ID")
	if !strings.HasPrefix(got, "req-") || len(got) != len("req-")+26 {
		t.Errorf("generated id = %q", got)
	}
	if seen != got {
		t.Errorf("context id = %q, header id = %q", seen, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("client id not kept: %q", got)
	}
}

func TestNewRequestID_Ordered(t *testing.T) {
	prev := NewRequestID()
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if id <= prev {
			t.Fatalf("ids out of order: %s after %s", id, prev)
		}
		prev = id
	}
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler, mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("order = %v, want a,b,c", order)
	}
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID(), Recover(discardLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", rec.Body.String(), err)
	}
	if body["code"] != domain.ErrInternal.Code || body["request_id"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestRecover_AbortHandler(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", r)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(rate.Limit(1), 2)(okHandler)

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("burst exceeded status = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", code)
	}
}

func TestRateLimit_Concurrent(t *testing.T) {
	h := RateLimit(rate.Limit(1), 10)(okHandler)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.9:1"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	// One token may refill while the goroutines run.
	if allowed < 10 || allowed > 11 {
		t.Errorf("allowed = %d, want about 10", allowed)
	}
}

func TestIPLimiters_Sweep(t *testing.T) {
	l := newIPLimiters(rate.Limit(1), 1, time.Minute)
	now := time.Now()
	l.allow("a", now)
	l.allow("b", now)
	if l.len() != 2 {
		t.Fatalf("len = %d, want 2", l.len())
	}
	l.allow("c", now.Add(2*time.Minute))
	if l.len() != 1 {
		t.Errorf("len after sweep = %d, want 1", l.len())
	}
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	h := BodyLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	// Declared length over the limit is refused up front.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}

	// Unknown length is cut off while reading.
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("too long")))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Errorf("read err = %v, want *http.MaxBytesError", readErr)
	}

	readErr = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	if readErr != nil {
		t.Errorf("small body err = %v", readErr)
	}
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		value  string
		want   int
	}{
		{"open", "", "", "", http.StatusOK},
		{"missing", "secret", "", "", http.StatusUnauthorized},
		{"wrong", "secret", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header", "secret", "X-API-Key", "secret", http.StatusOK},
		{"bearer", "secret", "Authorization", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chains", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			APIKey(tt.key)(okHandler).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("X-Error-Code") != domain.ErrUnauthorized.Code {
				t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
			}
		})
	}
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}), RequestID(), Audit(log))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chains/x", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit line %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" || entry["path"] != "/chains/x" {
		t.Errorf("entry = %v", entry)
	}
	if entry["status"] != float64(404) || entry["bytes"] != float64(7) {
		t.Errorf("status/bytes = %v/%v", entry["status"], entry["bytes"])
	}
	if id, _ := entry["request_id"].(string); !strings.HasPrefix(id, "req-") {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := wrapResponseWriter(rec)
	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte("abc"))
	w.Flush()

	if w.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want first status", w.statusCode)
	}
	if w.written != 3 {
		t.Errorf("written = %d", w.written)
	}
	if !rec.Flushed {
		t.Error("Flush not forwarded")
	}
	if w.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.1:1234", nil, "192.168.1.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"no port", "10.0.0.1", nil, "10.0.0.1"},
		{"forwarded for", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "1.2.3.4"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
