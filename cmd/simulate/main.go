// Package main runs a single simulation scenario and writes the full result
// as JSON, optionally persisting it to PostgreSQL and ClickHouse.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/simulation"
	"securemint-lab/internal/storage"
	chstore "securemint-lab/internal/storage/clickhouse"
	"securemint-lab/internal/storage/migrations"
	pgstore "securemint-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	scenarioID := flag.String("scenario", domain.ScenarioBaseline, "Scenario: baseline, bank-run, oracle-stress, market-crash, combined")
	seed := flag.Int64("seed", 42, "Random seed (same seed reproduces the run exactly)")
	startStr := flag.String("start", "2024-01-01", "Simulation start date (YYYY-MM-DD)")
	days := flag.Int("days", 0, "Simulation length in days (0 keeps the scenario default of one year)")
	configPath := flag.String("config", "", "JSON config file overriding the scenario preset")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (enables run persistence)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (enables event/history persistence)")

	// Output
	outPath := flag.String("out", "", "Write the result JSON to a file instead of stdout")
	summaryOnly := flag.Bool("summary-only", false, "Omit the event log and invariant history from the output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	cfg, err := buildConfig(*scenarioID, *startStr, *days, *configPath)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
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

	logger.Printf("Running scenario %s with seed %d (%d ticks)...", *scenarioID, *seed, cfg.TickCount())
	started := time.Now()

	res, err := simulation.NewRunner().Run(ctx, *scenarioID, *seed, cfg)
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}

	logger.Printf("Run %s finished in %v: score %.2f, %d violations",
		res.RunID, time.Since(started), res.Metrics.EconomicSecurityScore, res.Summary.InvariantViolations)

	if err := persist(ctx, logger, res, *postgresDSN, *clickhouseDSN); err != nil {
		logger.Fatalf("Persistence failed: %v", err)
	}

	if err := writeResult(res, *outPath, *summaryOnly); err != nil {
		logger.Fatalf("Write result: %v", err)
	}
}

// buildConfig resolves the run configuration from the scenario preset, the
// window flags, and an optional config file (the file wins outright).
func buildConfig(scenarioID, startStr string, days int, configPath string) (domain.SimulationConfig, error) {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return domain.SimulationConfig{}, fmt.Errorf("read config file: %w", err)
		}
		var cfg domain.SimulationConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return domain.SimulationConfig{}, fmt.Errorf("parse config file: %w", err)
		}
		return cfg, cfg.Validate()
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return domain.SimulationConfig{}, fmt.Errorf("parse start date: %w", err)
	}

	cfg := domain.ScenarioConfig(scenarioID, start)
	if days > 0 {
		cfg.EndDate = start.AddDate(0, 0, days)
	}
	return cfg, cfg.Validate()
}

// persist writes the run to whichever backends have a DSN configured.
// Duplicate keys mean the identical run was persisted before.
func persist(ctx context.Context, logger *log.Logger, res *domain.SimulationResult, postgresDSN, clickhouseDSN string) error {
	now := time.Now().UTC()

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}

		err = pgstore.NewRunStore(pool).Insert(ctx, domain.NewRunRecord(res, now))
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Printf("Run %s already stored in postgres", res.RunID)
		} else if err != nil {
			return err
		}
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := insertClickhouse(ctx, logger, conn, res); err != nil {
			return err
		}
	}

	return nil
}

func insertClickhouse(ctx context.Context, logger *log.Logger, conn *chstore.Conn, res *domain.SimulationResult) error {
	err := chstore.NewEventStore(conn).InsertBulk(ctx, res.RunID, res.Events)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Printf("Events for %s already stored in clickhouse", res.RunID)
	} else if err != nil {
		return err
	}

	err = chstore.NewInvariantHistoryStore(conn).InsertBulk(ctx, res.RunID, res.InvariantHistory)
	if errors.Is(err, storage.ErrDuplicateKey) {
		logger.Printf("History for %s already stored in clickhouse", res.RunID)
	} else if err != nil {
		return err
	}

	return nil
}

// writeResult renders the result JSON to the requested destination.
func writeResult(res *domain.SimulationResult, outPath string, summaryOnly bool) error {
	out := *res
	if summaryOnly {
		out.Events = nil
		out.InvariantHistory = nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
