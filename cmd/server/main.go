// cmd/server/main.go

// The server exposes the extraction engine over HTTP: synchronous
// extraction, the learned selector cache, and tool reliability scores,
// plus health probes and Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/engine"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/errors"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/monitoring"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	configPath := ""
	for _, arg := range args {
		switch arg {
		case "version", "--version":
			fmt.Printf("karyakarta-server %s (built %s, commit %s)\n", version, buildTime, gitCommit)
			return errors.ExitOK
		case "help", "--help", "-h":
			fmt.Println("usage: karyakarta-server [config.yaml]")
			return errors.ExitOK
		default:
			configPath = arg
		}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return errors.ExitConfig
		}
		cfg = loaded
	}

	srv, err := newServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return errors.ExitCode(err)
	}
	defer srv.close()

	if configPath != "" {
		watcher, werr := config.NewWatcher(configPath, srv.logger)
		if werr != nil {
			srv.logger.Warnf("config watching disabled: %v", werr)
		} else {
			watcher.OnChange(srv.applyConfig)
			defer watcher.Close()
		}
	}

	if err := srv.listenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return errors.ExitError
	}
	return errors.ExitOK
}

// server owns one engine and serves it to many callers. The engine is
// safe for sequential reuse; handlers serialize nothing themselves
// because each request carries its own document.
type server struct {
	cfgMu   sync.RWMutex
	cfg     *config.Config
	engine  *engine.Engine
	metrics *monitoring.Manager
	health  *monitoring.HealthMonitor
	logger  utils.Logger
	limiter *rate.Limiter
}

func newServer(cfg *config.Config) (*server, error) {
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))
	metrics := monitoring.NewManager()

	eng, err := engine.New(cfg, engine.WithLogger(logger), engine.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthMonitor()
	health.Register("goroutines", false, monitoring.GoroutineCheck(10_000))
	health.Register("heap", false, monitoring.HeapCheck(2<<30))

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst)
	}

	return &server{
		cfg:     cfg,
		engine:  eng,
		metrics: metrics,
		health:  health,
		logger:  logger,
		limiter: limiter,
	}, nil
}

func (s *server) close() {
	if err := s.engine.Close(); err != nil {
		s.logger.Warnf("engine close failed: %v", err)
	}
}

func (s *server) currentConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// applyConfig installs the settings a reload can change without
// rebuilding the engine: the API token, default fields, and the rate
// limit. Listen address, store, and engine tuning need a restart, and
// a limiter disabled at startup stays disabled.
func (s *server) applyConfig(next *config.Config) {
	s.cfgMu.Lock()
	s.cfg = next
	s.cfgMu.Unlock()

	if s.limiter != nil {
		limit := rate.Inf
		if next.Server.RateLimit > 0 {
			limit = rate.Limit(next.Server.RateLimit)
		}
		s.limiter.SetLimit(limit)
		if next.Server.Burst > 0 {
			s.limiter.SetBurst(next.Server.Burst)
		}
	}
}

func (s *server) listenAndServe() error {
	cfg := s.currentConfig()
	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      s.routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		done <- httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("address", cfg.Server.Listen).Info("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return <-done
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/health", s.health.Handler()).Methods("GET")
	r.HandleFunc("/health/live", s.health.LiveHandler()).Methods("GET")
	r.HandleFunc("/health/ready", s.health.ReadyHandler()).Methods("GET")

	metricsPath := s.currentConfig().Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r.Handle(metricsPath, s.metrics.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware, s.authMiddleware)
	api.HandleFunc("/extract", s.handleExtract).Methods("POST")
	api.HandleFunc("/selectors/{domain}", s.handleSelectors).Methods("GET")
	api.HandleFunc("/outcomes", s.handleOutcome).Methods("POST")
	api.HandleFunc("/fallback", s.handleFallback).Methods("GET")

	return r
}

// authMiddleware checks the bearer token when one is configured.
// Health and metrics stay open; only the API subrouter runs this.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.currentConfig().Server.APIToken
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if strings.TrimPrefix(header, "Bearer ") != token {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request metric.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The route template keeps the path label low-cardinality.
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				tpl = strings.TrimSpace(tpl)
				if tpl != "" {
					path = tpl
				}
			}
		}
		s.metrics.RecordHTTPRequest(r.Method, path, rec.status, time.Since(start))
	})
}

// maxExtractBody bounds request documents; pages past this size are
// almost certainly not what this service is for.
const maxExtractBody = 32 << 20

type extractRequest struct {
	HTML   string   `json:"html"`
	Domain string   `json:"domain,omitempty"`
	Fields []string `json:"fields,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

type extractResponse struct {
	Records  []types.Record          `json:"records"`
	Partial  bool                    `json:"partial"`
	TimedOut bool                    `json:"timed_out"`
	Stats    types.ExtractStats      `json:"stats"`
	Report   *types.ValidationReport `json:"report,omitempty"`
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxExtractBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := s.engine.Extract(r.Context(), engine.Request{
		HTML:   req.HTML,
		Domain: req.Domain,
		Fields: req.Fields,
		Limit:  req.Limit,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = s.currentConfig().Fields
	}
	resp := extractResponse{
		Records:  result.Records,
		Partial:  result.Partial,
		TimedOut: result.TimedOut,
		Stats:    result.Stats,
	}
	if len(fields) > 0 {
		resp.Report = s.engine.ValidateCompleteness(result.Records, fields)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleSelectors(w http.ResponseWriter, r *http.Request) {
	domain := mux.Vars(r)["domain"]
	fields := splitList(r.URL.Query().Get("fields"))

	selectors := s.engine.CachedSelectors(r.Context(), domain, fields)
	if selectors == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no cached selectors for %s", domain))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain":    domain,
		"selectors": selectors,
	})
}

type outcomeRequest struct {
	Site      string `json:"site"`
	Tool      string `json:"tool"`
	Success   bool   `json:"success"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

func (s *server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	latency := time.Duration(req.LatencyMS) * time.Millisecond
	if err := s.engine.RecordToolOutcome(r.Context(), req.Site, req.Tool, req.Success, latency); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleFallback(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	tools := splitList(r.URL.Query().Get("tools"))
	if site == "" || len(tools) == 0 {
		writeError(w, http.StatusBadRequest, "site and tools query parameters are required")
		return
	}

	chain, err := s.engine.FallbackChain(r.Context(), site, tools)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	best, score, err := s.engine.BestTool(r.Context(), site, tools)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"site":  site,
		"chain": chain,
		"best":  best,
		"score": score,
	})
}

func statusFor(err error) int {
	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case utils.ErrCodeParsingError, utils.ErrCodeMalformedNode:
		return http.StatusUnprocessableEntity
	case utils.ErrCodeNoDataFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
