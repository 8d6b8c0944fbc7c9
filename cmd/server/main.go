// Package main provides a unified service that runs the scenario suite on a
// schedule and serves the results:
// - Suite (scheduled): simulation → persistence → reports
// - HTTP API: /health, /metrics, /status, /runs, /runs/{id}
// - WebSocket: /ws/events streams notable simulation events
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/observability"
	"securemint-lab/internal/orchestrator"
	"securemint-lab/internal/reporting"
	"securemint-lab/internal/storage"
	chstore "securemint-lab/internal/storage/clickhouse"
	"securemint-lab/internal/storage/memory"
	"securemint-lab/internal/storage/migrations"
	pgstore "securemint-lab/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	seed          int64
	startDate     time.Time
	windowDays    int
	outputDir     string
	suiteInterval time.Duration

	// Stores
	runStore     storage.RunStore
	eventStore   storage.EventStore
	historyStore storage.InvariantHistoryStore

	hub    *hub
	logger *log.Logger

	// State
	mu           sync.Mutex
	started      time.Time
	lastSuiteRun time.Time
	suiteRunning bool
	suiteRuns    int
	gatePassed   bool
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	seed := flag.Int64("seed", 42, "Base seed; scenario i runs with seed+i")
	startStr := flag.String("start", "2024-01-01", "Simulation start date (YYYY-MM-DD)")
	days := flag.Int("days", 0, "Simulation length in days (0 keeps the default year)")
	outputDir := flag.String("output-dir", "reports", "Output directory for reports")
	suiteInterval := flag.Duration("suite-interval", 6*time.Hour, "Suite run interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		logger.Fatalf("Invalid start date: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	runStore, eventStore, historyStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create server
	server := &Server{
		seed:          *seed,
		startDate:     start,
		windowDays:    *days,
		outputDir:     *outputDir,
		suiteInterval: *suiteInterval,
		runStore:      runStore,
		eventStore:    eventStore,
		historyStore:  historyStore,
		hub:           newHub(logger),
		logger:        logger,
		started:       time.Now(),
		gatePassed:    true,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go server.hub.run(ctx)

	// Start HTTP server
	go server.startHTTPServer(*addr)

	// Run the suite scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.RunStore, storage.EventStore, storage.InvariantHistoryStore, func(), error) {
	if useMemory {
		return memory.NewRunStore(), memory.NewEventStore(), memory.NewInvariantHistoryStore(), func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	return pgstore.NewRunStore(pool), chstore.NewEventStore(conn), chstore.NewInvariantHistoryStore(conn), cleanup, nil
}

// Run starts the suite scheduler.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting suite scheduler (interval: %v)...", s.suiteInterval)

	// Run immediately on start
	s.runSuite(ctx)

	ticker := time.NewTicker(s.suiteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runSuite(ctx)
		}
	}
}

// runSuite executes the scenario suite and regenerates the reports.
func (s *Server) runSuite(ctx context.Context) {
	s.mu.Lock()
	if s.suiteRunning {
		s.mu.Unlock()
		s.logger.Println("Suite already running, skipping...")
		return
	}
	s.suiteRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.suiteRunning = false
		s.lastSuiteRun = time.Now()
		s.suiteRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running suite...")
	start := time.Now()

	opts := orchestrator.Options{
		RunStore:              s.runStore,
		EventStore:            s.eventStore,
		InvariantHistoryStore: s.historyStore,
		Seed:                  s.seed,
		StartDate:             s.startDate,
		Verbose:               true,
	}
	if s.windowDays > 0 {
		opts.EndDate = s.startDate.AddDate(0, 0, s.windowDays)
	}

	suite, err := orchestrator.New(opts).RunSuite(ctx)
	if err != nil {
		s.logger.Printf("Suite error: %v", err)
		return
	}
	for _, e := range suite.Errors {
		s.logger.Printf("Suite error: %s", e)
	}

	s.mu.Lock()
	s.gatePassed = suite.AllInvariantsPassed
	s.mu.Unlock()

	for _, res := range suite.Results {
		s.publishRun(res)
	}

	if err := s.writeReports(ctx); err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	s.logger.Printf("Suite completed in %v: %d runs, gate passed=%v",
		time.Since(start), len(suite.Results), suite.AllInvariantsPassed)
}

// publishRun streams a run's notable events to connected clients and feeds
// the event counters. The full event log stays in storage; the stream only
// carries state transitions and stress events.
func (s *Server) publishRun(res *domain.SimulationResult) {
	observability.RecordEvents(string(domain.EventMint), res.Summary.MintCount)
	observability.RecordEvents(string(domain.EventBurn), res.Summary.BurnCount)
	observability.RecordEvents(string(domain.EventBankRun), res.Summary.BankRunCount)
	observability.RecordEvents(string(domain.EventCrash), res.Summary.CrashCount)
	observability.RecordEvents(string(domain.EventPause), res.Summary.PauseCount)

	for _, ev := range res.Events {
		if !notableEvent(ev) {
			continue
		}
		s.hub.broadcast(streamMessage{
			RunID:      res.RunID,
			ScenarioID: res.ScenarioID,
			Timestamp:  ev.Timestamp,
			Kind:       string(ev.Kind),
			Details:    ev.Details,
		})
	}

	s.hub.broadcast(streamMessage{
		RunID:      res.RunID,
		ScenarioID: res.ScenarioID,
		Timestamp:  res.Config.EndDate,
		Kind:       "run-completed",
		Details:    res.Summary,
	})
}

// notableEvent reports whether an event belongs on the live stream.
func notableEvent(ev domain.SimulationEvent) bool {
	switch ev.Kind {
	case domain.EventPause, domain.EventUnpause,
		domain.EventBankRun, domain.EventCrash,
		domain.EventOracleFailure:
		return true
	case domain.EventInvariantCheck:
		return !ev.Invariants.AllPassed
	default:
		return false
	}
}

// writeReports regenerates REPORT.md and runs.csv from storage.
func (s *Server) writeReports(ctx context.Context) error {
	report, err := reporting.NewGenerator(s.runStore, s.historyStore).Generate(ctx)
	if err != nil {
		return err
	}
	observability.RecordReportGenerated()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.outputDir, "REPORT.md"), []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.outputDir, "runs.csv"), []byte(reporting.RenderCSV(report.Runs)), 0o644)
}

// startHTTPServer starts the HTTP server for health/metrics/status/runs.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Run listing and lookup
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRunByID)

	// WebSocket event stream
	mux.HandleFunc("/ws/events", s.hub.handleWS)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	LastSuiteRun time.Time `json:"last_suite_run,omitempty"`
	SuiteRuns    int       `json:"suite_runs"`
	SuiteRunning bool      `json:"suite_running"`
	GatePassed   bool      `json:"gate_passed"`
	StreamsOpen  int       `json:"streams_open"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).String(),
		LastSuiteRun: s.lastSuiteRun,
		SuiteRuns:    s.suiteRuns,
		SuiteRunning: s.suiteRunning,
		GatePassed:   s.gatePassed,
	}
	s.mu.Unlock()
	resp.StreamsOpen = s.hub.clientCount()

	writeJSON(w, http.StatusOK, resp)
}

// handleRuns lists stored runs, optionally filtered by ?scenario=.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	var (
		runs []*domain.RunRecord
		err  error
	)
	if scenario := r.URL.Query().Get("scenario"); scenario != "" {
		runs, err = s.runStore.GetByScenario(r.Context(), scenario)
	} else {
		runs, err = s.runStore.GetAll(r.Context())
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// handleRunByID returns one run header, or its event log with /events.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	runID, sub, _ := strings.Cut(rest, "/")
	if runID == "" {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		run, err := s.runStore.GetByID(r.Context(), runID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case "events":
		events, err := s.eventStore.GetByRunID(r.Context(), runID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	case "invariants":
		history, err := s.historyStore.GetByRunID(r.Context(), runID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
