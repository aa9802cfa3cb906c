package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.RecordsEncoded == nil || r.RequestsTotal == nil || r.RequestDuration == nil {
		t.Fatal("metrics not initialized")
	}

	body := scrape(t, r)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
	if Handler() == nil {
		t.Error("Handler() returned nil")
	}
}

func TestCodecMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordsEncoded.Add(3)
	r.NodesChanged.Add(12)
	r.RelabelSwaps.Inc()
	r.SkipEscapes.Add(2)
	r.BytesEncoded.Add(40)
	r.RecordsDecoded.Inc()

	body := scrape(t, r)
	for _, want := range []string{
		"pcompress_records_encoded_total 3",
		"pcompress_nodes_changed_total 12",
		"pcompress_relabel_swaps_total 1",
		"pcompress_skip_escapes_total 2",
		"pcompress_bytes_encoded_total 40",
		"pcompress_records_decoded_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape", want)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("GET", "/chains", "200")
	r.RecordRequest("POST", "/chains", "201")
	r.ObserveRequestDuration("GET", "/chains", 0.005)

	body := scrape(t, r)
	if !strings.Contains(body, `pcompress_requests_total{method="GET",route="/chains",status="200"} 1`) {
		t.Error("expected pcompress_requests_total for GET /chains 200")
	}
	if !strings.Contains(body, "pcompress_request_duration_seconds_count") {
		t.Error("expected pcompress_request_duration_seconds_count")
	}
}

type fakeCatalog struct {
	chains int
	bytes  int64
	err    error
}

func (f *fakeCatalog) Stats() (int, int64, error) { return f.chains, f.bytes, f.err }

func TestCollector(t *testing.T) {
	src := &fakeCatalog{chains: 4, bytes: 2048}
	r := NewRegistry()
	if err := r.Register(NewCollector(src)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := scrape(t, r)
	if !strings.Contains(body, "pcompress_catalog_chains 4") {
		t.Error("expected pcompress_catalog_chains 4")
	}
	if !strings.Contains(body, "pcompress_catalog_bytes 2048") {
		t.Error("expected pcompress_catalog_bytes 2048")
	}

	src.err = errors.New("closed")
	body = scrape(t, r)
	if !strings.Contains(body, "pcompress_catalog_scrape_error 1") {
		t.Error("expected scrape error gauge")
	}

	if err := r.Register(NewCollector(src)); err == nil {
		t.Error("registering the same collector twice should fail")
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordsEncoded.Add(7)

	path := filepath.Join(t.TempDir(), "pcompress.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "pcompress_records_encoded_total 7") {
		t.Errorf("textfile missing counter:\n%s", data)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordsEncoded.Inc()
				r.RecordRequest("GET", "/health", "200")
				r.ObserveRequestDuration("GET", "/health", 0.001)
			}
		}()
	}
	wg.Wait()

	if !strings.Contains(scrape(t, r), "pcompress_records_encoded_total 1000") {
		t.Error("expected 1000 encoded records after concurrent updates")
	}
}
