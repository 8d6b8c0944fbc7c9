// Package main runs the full scenario suite and enforces the safety gate:
// exit 0 when every run upholds every invariant, exit 1 when any run
// violates one, exit 2 on execution errors. CI wires the exit code directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"securemint-lab/internal/observability"
	"securemint-lab/internal/orchestrator"
	"securemint-lab/internal/reporting"
	"securemint-lab/internal/storage"
	chstore "securemint-lab/internal/storage/clickhouse"
	"securemint-lab/internal/storage/memory"
	"securemint-lab/internal/storage/migrations"
	pgstore "securemint-lab/internal/storage/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse flags
	scenariosFlag := flag.String("scenarios", "", "Comma-separated scenario IDs (empty runs the full suite)")
	seed := flag.Int64("seed", 42, "Base seed; scenario i runs with seed+i")
	startStr := flag.String("start", "2024-01-01", "Simulation start date (YYYY-MM-DD)")
	days := flag.Int("days", 0, "Simulation length in days (0 keeps the default year)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")

	// Output
	outputDir := flag.String("output-dir", "reports", "Directory for the generated report files")
	verbose := flag.Bool("verbose", false, "Log suite progress")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[suite] ", log.LstdFlags)

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		logger.Printf("Invalid start date: %v", err)
		return 2
	}

	var scenarios []string
	if *scenariosFlag != "" {
		for _, s := range strings.Split(*scenariosFlag, ",") {
			scenarios = append(scenarios, strings.TrimSpace(s))
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores; memory by default so the report works without databases.
	runStore, eventStore, historyStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Printf("Store setup failed: %v", err)
		return 2
	}
	defer cleanup()

	opts := orchestrator.Options{
		RunStore:              runStore,
		EventStore:            eventStore,
		InvariantHistoryStore: historyStore,
		Scenarios:             scenarios,
		Seed:                  *seed,
		StartDate:             start,
		Verbose:               *verbose,
	}
	if *days > 0 {
		opts.EndDate = start.AddDate(0, 0, *days)
	}

	logger.Printf("Running suite (seed %d)...", *seed)
	suite, err := orchestrator.New(opts).RunSuite(ctx)
	if err != nil {
		logger.Printf("Suite failed: %v", err)
		return 2
	}
	for _, e := range suite.Errors {
		logger.Printf("Suite error: %s", e)
	}

	if err := writeReports(ctx, runStore, historyStore, *outputDir); err != nil {
		logger.Printf("Report generation failed: %v", err)
		return 2
	}

	if len(suite.Errors) > 0 {
		logger.Printf("Suite finished with errors")
		return 2
	}
	if !suite.AllInvariantsPassed {
		logger.Printf("SAFETY GATE FAILED: at least one run violated an invariant")
		return 1
	}

	logger.Printf("Safety gate passed: %d runs clean", len(suite.Results))
	return 0
}

// createStores wires persistent stores when DSNs are given, falling back to
// in-memory stores so report generation always has data to read.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.RunStore, storage.EventStore, storage.InvariantHistoryStore, func(), error) {
	var (
		runStore     storage.RunStore              = memory.NewRunStore()
		eventStore   storage.EventStore            = memory.NewEventStore()
		historyStore storage.InvariantHistoryStore = memory.NewInvariantHistoryStore()
		cleanups     []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, func() {}, err
		}
		runStore = pgstore.NewRunStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, func() {}, err
		}
		cleanups = append(cleanups, func() { conn.Close() })

		eventStore = chstore.NewEventStore(conn)
		historyStore = chstore.NewInvariantHistoryStore(conn)
	}

	return runStore, eventStore, historyStore, cleanup, nil
}

// writeReports renders the markdown and CSV reports into outputDir.
func writeReports(ctx context.Context, runStore storage.RunStore, historyStore storage.InvariantHistoryStore, outputDir string) error {
	report, err := reporting.NewGenerator(runStore, historyStore).Generate(ctx)
	if err != nil {
		return err
	}
	observability.RecordReportGenerated()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}

	csvPath := filepath.Join(outputDir, "runs.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Runs)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	return nil
}
