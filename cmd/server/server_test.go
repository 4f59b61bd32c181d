// cmd/server/server_test.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Discovery.MaxDepth = 8
	cfg.Store.Driver = "memory"
	cfg.Server.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	t.Cleanup(srv.close)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func catalogDoc() string {
	rows := [][3]string{
		{"Meridian Desk Lamp", "$39", "In stock"},
		{"Nimbus Air Purifier", "$129", "In stock"},
		{"Orchard Bookshelf", "$249", "Sold out"},
		{"Pinnacle Desk Chair", "$399", "In stock"},
		{"Quarry Side Table", "$89", "In stock"},
		{"Rushmore Floor Mat", "$29", "Sold out"},
	}
	var b strings.Builder
	b.WriteString(`<html><head></head><body><table>`)
	b.WriteString(`<thead><tr><th>Product</th><th>Price</th><th>Stock</th></tr></thead><tbody>`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`, row[0], row[1], row[2])
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestExtractEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/extract", extractRequest{
		HTML:   catalogDoc(),
		Fields: []string{"product", "price", "stock"},
		Limit:  4,
	})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("extract = %d, body: %s", resp.StatusCode, body)
	}

	var out extractResponse
	decodeBody(t, resp, &out)

	if len(out.Records) != 4 {
		t.Fatalf("got %d records, want 4", len(out.Records))
	}
	// Table cells carry no field-named keys, so fields resolve to the
	// row's accumulated text.
	if got := out.Records[0].Get("product"); got != "Meridian Desk Lamp $39 In stock" {
		t.Errorf("first product = %q", got)
	}
	if out.Partial || out.TimedOut {
		t.Errorf("partial/timed_out = %v/%v, want false/false", out.Partial, out.TimedOut)
	}
	if out.Report == nil || !out.Report.Complete {
		t.Errorf("report = %+v, want complete", out.Report)
	}
}

func TestExtractEndpoint_ReportsMissingFields(t *testing.T) {
	ts := newTestServer(t, nil)

	// Image-only cards carry no text, so a field with no key or
	// semantic source stays at the sentinel and reads as missing.
	var b strings.Builder
	b.WriteString(`<html><head></head><body><div class="gallery">`)
	for _, name := range []string{"aurora", "borealis", "cirrus", "drift"} {
		fmt.Fprintf(&b, `<div class="card"><a href="/photos/%s"><img src="/img/%s.jpg" alt=""></a></div>`, name, name)
	}
	b.WriteString(`</div></body></html>`)

	resp := postJSON(t, ts.URL+"/api/v1/extract", extractRequest{
		HTML:   b.String(),
		Fields: []string{"url", "image", "rating"},
	})
	var out extractResponse
	decodeBody(t, resp, &out)

	if out.Report == nil {
		t.Fatal("no completeness report")
	}
	if out.Report.Complete {
		t.Error("report complete despite the rating field missing")
	}
	if len(out.Report.MissingFields) != 1 || out.Report.MissingFields[0] != "rating" {
		t.Errorf("missing fields = %v, want [rating]", out.Report.MissingFields)
	}
	found := false
	for _, action := range out.Report.SuggestedActions {
		if action.Field == "rating" && action.Priority == types.PriorityMedium {
			found = true
		}
	}
	if !found {
		t.Errorf("no medium-priority suggestion for rating: %+v", out.Report.SuggestedActions)
	}
}

func TestExtractEndpoint_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/extract", extractRequest{HTML: "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty html = %d, want 400", resp.StatusCode)
	}

	raw, err := http.Post(ts.URL+"/api/v1/extract", "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("broken json = %d, want 400", raw.StatusCode)
	}
}

func TestExtractEndpoint_NoRepeatsIsEmptyNotError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/extract", extractRequest{
		HTML:   `<html><body><p>A single paragraph about one desk lamp.</p></body></html>`,
		Fields: []string{"product"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extract = %d, want 200", resp.StatusCode)
	}
	var out extractResponse
	decodeBody(t, resp, &out)
	if len(out.Records) != 0 {
		t.Errorf("got %d records from a repeat-free page, want 0", len(out.Records))
	}
}

func TestSelectorsEndpoint_UnknownDomain(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/selectors/unknown.example.com?fields=product,price")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown domain = %d, want 404", resp.StatusCode)
	}
}

func TestOutcomesFeedFallbackChain(t *testing.T) {
	ts := newTestServer(t, nil)

	report := func(tool string, success bool) {
		resp := postJSON(t, ts.URL+"/api/v1/outcomes", outcomeRequest{
			Site:      "shelf.example.com",
			Tool:      tool,
			Success:   success,
			LatencyMS: 42,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("outcome = %d, want 204", resp.StatusCode)
		}
	}
	for i := 0; i < 4; i++ {
		report("render-browser", true)
	}
	for i := 0; i < 4; i++ {
		report("plain-fetch", i == 0)
	}

	resp, err := http.Get(ts.URL + "/api/v1/fallback?site=shelf.example.com&tools=plain-fetch,render-browser")
	if err != nil {
		t.Fatalf("GET fallback failed: %v", err)
	}
	var out struct {
		Site  string   `json:"site"`
		Chain []string `json:"chain"`
		Best  string   `json:"best"`
		Score float64  `json:"score"`
	}
	decodeBody(t, resp, &out)

	if len(out.Chain) != 2 || out.Chain[0] != "render-browser" {
		t.Errorf("chain = %v, want render-browser first", out.Chain)
	}
	if out.Best != "render-browser" {
		t.Errorf("best = %q, want render-browser", out.Best)
	}
	if out.Score <= 0 || out.Score > 1 {
		t.Errorf("score = %g, want within (0, 1]", out.Score)
	}
}

func TestFallbackEndpoint_RequiresParams(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/fallback?site=shelf.example.com")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("fallback without tools = %d, want 400", resp.StatusCode)
	}
}

func TestOutcomeEndpoint_RejectsMissingSite(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/api/v1/outcomes", outcomeRequest{Tool: "plain-fetch", Success: true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("outcome without site = %d, want 400", resp.StatusCode)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.APIToken = "secret-token"
	})

	// Health probes stay open.
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unauthenticated health = %d, want 200", resp.StatusCode)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-token", http.StatusUnauthorized},
		{"wrong token", "Bearer guessing", http.StatusUnauthorized},
		{"valid token", "Bearer secret-token", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", ts.URL+"/api/v1/selectors/x.example.com", nil)
			if err != nil {
				t.Fatalf("NewRequest failed: %v", err)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestApplyConfig_RotatesToken(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.MaxDepth = 8
	cfg.Store.Driver = "memory"
	cfg.Server.RateLimit = 0
	cfg.Server.APIToken = "old-token"

	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	t.Cleanup(srv.close)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	status := func(token string) int {
		req, err := http.NewRequest("GET", ts.URL+"/api/v1/selectors/x.example.com", nil)
		if err != nil {
			t.Fatalf("NewRequest failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := status("old-token"); code == http.StatusUnauthorized {
		t.Fatal("startup token rejected")
	}

	next := config.Default()
	next.Discovery.MaxDepth = 8
	next.Store.Driver = "memory"
	next.Server.RateLimit = 0
	next.Server.APIToken = "new-token"
	srv.applyConfig(next)

	if code := status("old-token"); code != http.StatusUnauthorized {
		t.Errorf("stale token after reload = %d, want 401", code)
	}
	if code := status("new-token"); code == http.StatusUnauthorized {
		t.Error("reloaded token rejected")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 0.001
		cfg.Server.Burst = 1
	})

	url := ts.URL + "/api/v1/selectors/x.example.com"
	first, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	first.Body.Close()
	if first.StatusCode == http.StatusTooManyRequests {
		t.Fatal("first request already rate-limited")
	}

	second, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", second.StatusCode)
	}

	// Health probes are not rate limited.
	health, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health during limit = %d, want 200", health.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	// One extraction populates the counters.
	resp := postJSON(t, ts.URL+"/api/v1/extract", extractRequest{
		HTML:   catalogDoc(),
		Fields: []string{"product"},
		Limit:  2,
	})
	resp.Body.Close()

	metrics, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", metrics.StatusCode)
	}

	body, err := io.ReadAll(metrics.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{"karyakarta_engine_extractions_total", "karyakarta_http_requests_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
