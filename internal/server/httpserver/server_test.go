package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/pcompress-go/internal/core/domain"
	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

var sampleChain = []byte{
	0x00, 0x00, 0x00, 0x01, 0xFF, 0xFE, 0x01, 0x00, 0x02, 0xFF, 0xFF,
	0xFF, 0xFE, 0x01, 0x00, 0x01, 0xFF, 0xFF,
}

func TestNew(t *testing.T) {
	s := New(":8080", okHandler)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.httpServer == nil || s.handler == nil {
		t.Fatal("server not initialized")
	}
	if s.httpServer.ReadHeaderTimeout == 0 {
		t.Error("ReadHeaderTimeout should be set")
	}
}

func TestServer_ServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := New(ln.Addr().String(), okHandler)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve returned %v, want nil after Shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg.RateLimit <= 0 || cfg.RateBurst <= 0 {
		t.Error("rate limiting should be on by default")
	}
	if cfg.MaxUploadBytes <= 0 {
		t.Error("MaxUploadBytes should be positive")
	}
}

type testServer struct {
	*httptest.Server
	reg *metric.Registry
}

func newTestServer(t *testing.T, apiKey string, maxUpload int64) *testServer {
	t.Helper()
	cfg := catalog.DefaultConfig(t.TempDir())
	cfg.Badger.GCInterval = "1h"
	cfg.Badger.SyncWrites = false
	cat, err := catalog.Open(cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })

	reg := metric.NewRegistry()
	if err := reg.Register(metric.NewCollector(cat)); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(&RouterConfig{
		Catalog:        cat,
		Service:        service.NewChainService(logger.Discard(), reg),
		Metrics:        reg,
		Logger:         discardLogger(),
		UploadAPIKey:   apiKey,
		MaxUploadBytes: maxUpload,
		EnableAudit:    true,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, reg: reg}
}

func (s *testServer) upload(t *testing.T, key string, file []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("user", "alice")
	mw.WriteField("graph_hash", "g1")
	part, _ := mw.CreateFormFile("file", "run.chain")
	part.Write(file)
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, s.URL+"/chains", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestRouter_UploadAndReplay(t *testing.T) {
	s := newTestServer(t, "secret", 1<<20)

	if resp := s.upload(t, "", sampleChain); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("upload without key status = %d, want 401", resp.StatusCode)
	}

	resp := s.upload(t, "secret", sampleChain)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status = %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var created struct {
		Data domain.Chain `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	id := created.Data.ID

	if resp, body := s.get(t, "/chains/"+id+"/replay"); resp.StatusCode != http.StatusOK || body != "[0,0,1]\n[0,1,1]\n" {
		t.Errorf("replay = %d %q", resp.StatusCode, body)
	}
	if resp, body := s.get(t, "/chains?user=alice"); resp.StatusCode != http.StatusOK || !strings.Contains(body, id) {
		t.Errorf("list = %d %q", resp.StatusCode, body)
	}
	if resp, _ := s.get(t, "/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if resp, _ := s.get(t, "/nowhere"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d", resp.StatusCode)
	}

	_, metrics := s.get(t, "/metrics")
	for _, want := range []string{
		`pcompress_requests_total{method="POST",route="/chains",status="201"} 1`,
		`pcompress_requests_total{method="POST",route="/chains",status="401"} 1`,
		`pcompress_requests_total{method="GET",route="/chains/{id}/replay",status="200"} 1`,
		`pcompress_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`pcompress_catalog_chains 1`,
		`pcompress_records_decoded_total 2`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestRouter_UploadTooLarge(t *testing.T) {
	s := newTestServer(t, "", 64)

	big := bytes.Repeat(sampleChain, 20)
	resp := s.upload(t, "", big)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Error-Code"); got != domain.ErrPayloadTooLarge.Code {
		t.Errorf("X-Error-Code = %q", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := catalog.DefaultConfig(t.TempDir())
	cfg.Badger.GCInterval = "1h"
	cat, err := catalog.Open(cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	router := NewRouter(&RouterConfig{
		Catalog:   cat,
		Service:   service.NewChainService(logger.Discard(), metric.NewRegistry()),
		Metrics:   metric.NewRegistry(),
		Logger:    discardLogger(),
		RateLimit: 1,
		RateBurst: 1,
	})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 200 then 429", codes)
	}
}
