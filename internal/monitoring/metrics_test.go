// internal/monitoring/metrics_test.go
package monitoring

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestManager_NilIsSafe(t *testing.T) {
	var mm *Manager

	mm.RecordExtraction("done", 3, time.Second)
	mm.RecordDiscovery(100)
	mm.RecordLevelScanned()
	mm.RecordPatterns(2)
	mm.RecordDrop("duplicate")
	mm.RecordFastPath(true)
	mm.RecordSelectorsLearned(4)
	mm.RecordReliabilityUpdate()
	mm.RecordSweepBatch("table", 10)
	mm.RecordSweepDuration(time.Second)
	mm.RecordTimeout("extract")
	mm.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	if mm.Registry() != nil {
		t.Error("nil manager returned a registry")
	}

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil manager handler status = %d, want 404", rec.Code)
	}
}

func TestManager_RegistersAndGathers(t *testing.T) {
	mm := NewManager()

	mm.RecordExtraction("done", 5, 120*time.Millisecond)
	mm.RecordExtraction("timeout", 2, time.Second)
	mm.RecordFastPath(true)
	mm.RecordFastPath(false)
	mm.RecordSweepBatch("table", 3)
	mm.RecordTimeout("sweep")
	mm.RecordHTTPRequest("POST", "/api/v1/extract", 200, 30*time.Millisecond)

	families, err := mm.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"karyakarta_engine_extractions_total",
		"karyakarta_engine_extraction_duration_seconds",
		"karyakarta_engine_fastpath_hits_total",
		"karyakarta_engine_fastpath_misses_total",
		"karyakarta_engine_sweep_records_total",
		"karyakarta_engine_timeouts_total",
		"karyakarta_http_requests_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

// Two managers in one process must not collide. Each carries its own
// registry instead of the package-global default.
func TestManager_InstancesAreIndependent(t *testing.T) {
	first := NewManager()
	second := NewManager()

	first.RecordExtraction("done", 1, time.Millisecond)

	families, err := second.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "karyakarta_engine_extractions_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			if m.GetCounter().GetValue() != 0 {
				t.Errorf("second registry observed first registry's counts")
			}
		}
	}
}

func TestManager_MetricsHandlerServesText(t *testing.T) {
	mm := NewManager()
	mm.RecordExtraction("done", 1, time.Millisecond)

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("metrics endpoint status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics endpoint served an empty body")
	}
}
