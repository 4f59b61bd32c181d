// internal/monitoring/health_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthMonitor_NoProbesReportsHealthy(t *testing.T) {
	hm := NewHealthMonitor()

	report := hm.Check(context.Background())

	if report.Status != HealthStatusHealthy {
		t.Fatalf("empty monitor status = %s, want %s", report.Status, HealthStatusHealthy)
	}
	if len(report.Checks) != 0 {
		t.Errorf("empty monitor reported %d checks", len(report.Checks))
	}
	if report.Runtime.Goroutines <= 0 {
		t.Errorf("runtime stats missing: goroutines = %d", report.Runtime.Goroutines)
	}
}

func TestHealthMonitor_CriticalFailureIsUnhealthy(t *testing.T) {
	hm := NewHealthMonitor()
	hm.Register("store", true, func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	hm.Register("browser", false, func(ctx context.Context) error {
		return nil
	})

	report := hm.Check(context.Background())

	if report.Status != HealthStatusUnhealthy {
		t.Fatalf("status = %s, want %s", report.Status, HealthStatusUnhealthy)
	}
	storeResult, ok := report.Checks["store"]
	if !ok {
		t.Fatal("store check missing from report")
	}
	if storeResult.Status != HealthStatusUnhealthy {
		t.Errorf("store status = %s, want %s", storeResult.Status, HealthStatusUnhealthy)
	}
	if storeResult.Error != "database is locked" {
		t.Errorf("store error = %q", storeResult.Error)
	}
	if browser := report.Checks["browser"]; browser.Status != HealthStatusHealthy {
		t.Errorf("browser status = %s, want %s", browser.Status, HealthStatusHealthy)
	}
}

func TestHealthMonitor_NonCriticalFailureDegrades(t *testing.T) {
	hm := NewHealthMonitor()
	hm.Register("browser", false, func(ctx context.Context) error {
		return errors.New("chrome not reachable")
	})

	report := hm.Check(context.Background())

	if report.Status != HealthStatusDegraded {
		t.Fatalf("status = %s, want %s", report.Status, HealthStatusDegraded)
	}
}

func TestHealthMonitor_ProbeTimeoutCountsAsFailure(t *testing.T) {
	hm := NewHealthMonitor()
	hm.timeout = 10 * time.Millisecond
	hm.Register("slow", true, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	report := hm.Check(context.Background())

	if report.Status != HealthStatusUnhealthy {
		t.Fatalf("status = %s, want %s", report.Status, HealthStatusUnhealthy)
	}
}

func TestHealthMonitor_HandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		fail     bool
		want     int
	}{
		{"healthy", false, false, 200},
		{"degraded still serves", false, true, 200},
		{"unhealthy responds 503", true, true, 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthMonitor()
			hm.Register("probe", tt.critical, func(ctx context.Context) error {
				if tt.fail {
					return errors.New("probe failed")
				}
				return nil
			})

			rec := httptest.NewRecorder()
			hm.Handler()(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != tt.want {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.want)
			}
			var report SystemHealth
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("health body is not JSON: %v", err)
			}
		})
	}
}

func TestHealthMonitor_LiveHandlerSkipsProbes(t *testing.T) {
	hm := NewHealthMonitor()
	probed := false
	hm.Register("store", true, func(ctx context.Context) error {
		probed = true
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	hm.LiveHandler()(rec, httptest.NewRequest("GET", "/live", nil))

	if rec.Code != 200 {
		t.Fatalf("liveness status = %d, want 200", rec.Code)
	}
	if probed {
		t.Error("liveness handler ran component probes")
	}
}

func TestHealthMonitor_ReadyHandlerRejectsUnhealthy(t *testing.T) {
	hm := NewHealthMonitor()
	hm.Register("store", true, func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	hm.ReadyHandler()(rec, httptest.NewRequest("GET", "/ready", nil))

	if rec.Code != 503 {
		t.Fatalf("readiness status = %d, want 503", rec.Code)
	}
}

func TestGoroutineCheck(t *testing.T) {
	if err := GoroutineCheck(1)(context.Background()); err == nil {
		t.Error("limit of 1 goroutine should fail in any test process")
	}
	if err := GoroutineCheck(1 << 20)(context.Background()); err != nil {
		t.Errorf("generous limit failed: %v", err)
	}
}

func TestHeapCheck(t *testing.T) {
	if err := HeapCheck(1)(context.Background()); err == nil {
		t.Error("limit of 1 byte should fail in any test process")
	}
	if err := HeapCheck(1 << 40)(context.Background()); err != nil {
		t.Errorf("generous limit failed: %v", err)
	}
}
