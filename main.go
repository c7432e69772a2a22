package main

import (
	"fmt"
	"os"
	"sync"

	"x-scraper/config"
	"x-scraper/models"
	"x-scraper/pipeline"
	"x-scraper/scraper/x"
	"x-scraper/services"
	"x-scraper/storage"
	"x-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== X Signal Scraping System starting ===")
	logger.Info("Config — hashtags: %v | target/tag: %d | max scrolls: %d | concurrency: %d",
		cfg.Hashtags, cfg.TargetPerTag, cfg.MaxScrolls, cfg.MaxConcurrency)

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	parquetWriter, err := storage.NewParquetWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to create Parquet writer: %v", err)
		os.Exit(1)
	}

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer pgWriter.Close()

	collector := x.New(cfg, logger)
	if err := collector.Start(); err != nil {
		logger.Error("Browser start failed: %v", err)
		os.Exit(1)
	}
	defer collector.Stop()

	// The browser session is sequential, so snapshots are collected tag by
	// tag up front; each pipeline then owns its buffered snapshots and runs
	// independently in the pool.
	snapshotsByTag := make(map[string][]models.RawSnapshot, len(cfg.Hashtags))
	for _, tag := range cfg.Hashtags {
		snaps, err := collector.Collect(tag)
		if err != nil {
			logger.Error("[main] Collection failed for %s: %v", tag, err)
			continue
		}
		snapshotsByTag[tag] = snaps
	}

	engine := services.NewSignalEngine(cfg.Signal, logger)

	var mu sync.Mutex
	errored := 0

	pipelines := make([]*pipeline.Pipeline, len(cfg.Hashtags))
	for i, tag := range cfg.Hashtags {
		pipelines[i] = pipeline.New(tag, logger)
	}

	pool := utils.NewWorkerPool(cfg.MaxConcurrency, 0)
	for i, tag := range cfg.Hashtags {
		p, tag := pipelines[i], tag
		pool.Submit(func() {
			for _, snap := range snapshotsByTag[tag] {
				if err := p.Ingest(snap); err != nil {
					logger.Error("[main] %s ingest failed: %v", tag, err)
				}
			}

			if _, err := p.Finalize(engine); err != nil {
				mu.Lock()
				errored++
				mu.Unlock()
				logger.Error("[main] %s pipeline %s: %v", tag, p.State(), err)
				return
			}
			if p.Status() == services.StatusNoData {
				logger.Warn("[main] %s finalized with no data", tag)
			}
		})
	}
	pool.Wait()

	if errored == len(cfg.Hashtags) {
		logger.Error("Every hashtag pipeline errored. Exiting.")
		os.Exit(1)
	}

	// A post surfaced by more than one hashtag query shows up in several
	// pipelines. The run-level merge folds all canonical sets together in
	// config order: one row per post id, first-seen queried hashtag, every
	// surfacing hashtag accumulated, max counts.
	runMerger := services.NewMerger(logger)
	for _, p := range pipelines {
		if p.State() != pipeline.StateFinalized {
			continue
		}
		runMerger.Merge(p.Canonical())
	}
	allPosts := runMerger.Canonical()
	allSignals, _ := engine.Analyze(allPosts)

	logger.Info("Collected %d posts, %d signal records — writing outputs...",
		len(allPosts), len(allSignals))

	if err := csvWriter.WriteRaw(allPosts); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Raw posts saved to %s", cfg.CSVOutputPath)
	}

	if err := parquetWriter.Write(allSignals); err != nil {
		logger.Error("Parquet write failed: %v", err)
	} else {
		logger.Info("Signal table saved to %s", parquetWriter.Path())
	}

	if err := pgWriter.Write(allSignals); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
	} else {
		logger.Info("Signals stored in PostgreSQL (table: signals)")
	}

	for _, p := range pipelines {
		if p.State() != pipeline.StateFinalized {
			continue
		}
		if err := p.MarkDelivered(); err != nil {
			logger.Warn("[main] %s: %v", p.Hashtag(), err)
		}
	}

	dbSignals, err := pgWriter.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch signals from DB for the report: %v", err)
		dbSignals = allSignals
	}

	reportSvc := services.NewReportService(cfg.Signal, logger)
	report := reportSvc.Generate(dbSignals)
	reportSvc.Print(report)

	fmt.Printf("  Done. Raw CSV → %s | Signal table → %s + PostgreSQL (signals table)\n\n",
		cfg.CSVOutputPath, parquetWriter.Path())
}
