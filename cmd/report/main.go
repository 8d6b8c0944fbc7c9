// Package main regenerates the markdown and CSV reports from stored runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"securemint-lab/internal/observability"
	"securemint-lab/internal/reporting"
	chstore "securemint-lab/internal/storage/clickhouse"
	"securemint-lab/internal/storage/migrations"
	pgstore "securemint-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (run headers)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (invariant histories)")
	outputDir := flag.String("output-dir", "reports", "Directory for the generated report files")
	stdout := flag.Bool("stdout", false, "Print the markdown report to stdout instead of writing files")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("Both -postgres-dsn and -clickhouse-dsn are required")
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

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Clickhouse migrations: %v", err)
	}
	defer conn.Close()

	runStore := pgstore.NewRunStore(pool)
	historyStore := chstore.NewInvariantHistoryStore(conn)

	report, err := reporting.NewGenerator(runStore, historyStore).Generate(ctx)
	if err != nil {
		logger.Fatalf("Generate report: %v", err)
	}
	observability.RecordReportGenerated()

	logger.Printf("Report covers %d runs across %d scenarios (gate passed=%v)",
		report.RunCount, report.ScenarioCount, report.Gate.AllPassed)

	if *stdout {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("Create output dir: %v", err)
	}

	mdPath := filepath.Join(*outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", mdPath, err)
	}

	csvPath := filepath.Join(*outputDir, "runs.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Runs)), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", csvPath, err)
	}

	jsonPath := filepath.Join(*outputDir, "report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatalf("Encode report: %v", err)
	}
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		logger.Fatalf("Write %s: %v", jsonPath, err)
	}

	logger.Printf("Wrote %s, %s, and %s", mdPath, csvPath, jsonPath)
}
