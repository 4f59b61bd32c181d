// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus grades a component or the whole process.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc probes one component. nil means the component is healthy.
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	name     string
	critical bool
	fn       CheckFunc
}

// CheckResult is the outcome of a single component probe.
type CheckResult struct {
	Status   HealthStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Duration string       `json:"duration"`
	Critical bool         `json:"critical"`
}

// RuntimeStats is the process-level snapshot attached to every report.
type RuntimeStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	HeapSys    uint64 `json:"heap_sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

// SystemHealth is the aggregate report served at the health endpoint.
type SystemHealth struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Runtime   RuntimeStats           `json:"runtime"`
}

// HealthMonitor runs registered component probes on demand and folds
// the outcomes into one status. A failed critical probe makes the
// process unhealthy; a failed non-critical probe only degrades it.
type HealthMonitor struct {
	mu      sync.RWMutex
	checks  []healthCheck
	timeout time.Duration
	started time.Time
}

const defaultProbeTimeout = 5 * time.Second

// NewHealthMonitor creates a monitor with no registered probes. A
// probe-less monitor reports healthy, which is what a bare CLI run
// wants.
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		timeout: defaultProbeTimeout,
		started: time.Now(),
	}
}

// Register adds a named probe. Registration order is preserved so
// reports stay comparable between scrapes.
func (hm *HealthMonitor) Register(name string, critical bool, fn CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks = append(hm.checks, healthCheck{name: name, critical: critical, fn: fn})
}

// Check runs every registered probe concurrently, each under its own
// timeout, and aggregates the outcomes.
func (hm *HealthMonitor) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]healthCheck, len(hm.checks))
	copy(checks, hm.checks)
	hm.mu.RUnlock()

	report := SystemHealth{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
		Runtime:   readRuntimeStats(),
	}
	if len(checks) == 0 {
		return report
	}

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c healthCheck) {
			defer wg.Done()
			results[i] = hm.runProbe(ctx, c)
		}(i, c)
	}
	wg.Wait()

	report.Checks = make(map[string]CheckResult, len(checks))
	for i, c := range checks {
		res := results[i]
		report.Checks[c.name] = res
		if res.Status != HealthStatusUnhealthy {
			continue
		}
		if c.critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}
	return report
}

func (hm *HealthMonitor) runProbe(ctx context.Context, c healthCheck) CheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	start := time.Now()
	err := c.fn(probeCtx)
	result := CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start).Round(time.Microsecond).String(),
		Critical: c.critical,
	}
	if err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

func readRuntimeStats() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return RuntimeStats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		NumGC:      m.NumGC,
	}
}

// Handler serves the full report. Unhealthy responds 503 so load
// balancers stop routing; degraded still takes traffic.
func (hm *HealthMonitor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// LiveHandler reports process liveness without running probes, so a
// wedged store cannot make an orchestrator restart-loop the process.
func (hm *HealthMonitor) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": string(HealthStatusHealthy),
			"uptime": time.Since(hm.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers readiness probes: 200 while the service can
// take traffic, 503 once any probe reports unhealthy. Degraded counts
// as ready.
func (hm *HealthMonitor) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		if report.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"status": string(report.Status)})
	}
}

// GoroutineCheck flags runaway goroutine growth, which in this engine
// almost always means worker pool leakage.
func GoroutineCheck(max int) CheckFunc {
	return func(ctx context.Context) error {
		if count := runtime.NumGoroutine(); count > max {
			return fmt.Errorf("goroutine count %d exceeds limit %d", count, max)
		}
		return nil
	}
}

// HeapCheck flags heap allocation above the given byte ceiling.
func HeapCheck(maxBytes uint64) CheckFunc {
	return func(ctx context.Context) error {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		if m.HeapAlloc > maxBytes {
			return fmt.Errorf("heap allocation %d bytes exceeds limit %d", m.HeapAlloc, maxBytes)
		}
		return nil
	}
}
