package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/audit"
	"github.com/raaihank/passforge/internal/cache"
	"github.com/raaihank/passforge/internal/config"
	"github.com/raaihank/passforge/internal/logger"
	"github.com/raaihank/passforge/internal/strength"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Configuration file path")
		inputFile   = flag.String("input", "", "Password dataset (CSV, Parquet, JSON or NDJSON)")
		batchSize   = flag.Int("batch-size", 0, "Records per batch (defaults to audit.batch_size)")
		workers     = flag.Int("workers", 0, "Number of worker goroutines (defaults to audit.worker_count)")
		belowLevel  = flag.String("below-level", "", "Report passwords scoring below this level (defaults to audit.below_level)")
		crossCheck  = flag.Bool("cross-check", false, "Also run the zxcvbn estimator with the user column")
		maxFindings = flag.Int("max-findings", 0, "Maximum findings kept in the report (defaults to audit.max_findings)")
		reportPath  = flag.String("report", "", "Write the full JSON report to this file, or - for stdout")
		cacheStats  = flag.Bool("cache-stats", false, "Show rule cache statistics and exit")
		clearCache  = flag.Bool("clear-cache", false, "Remove all cached policy rule sets and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*cacheStats && !*clearCache {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input users.csv --below-level Good\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dump.parquet --workers 8 --report report.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --cache-stats\n", os.Args[0])
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Progress goes to stderr so a report on stdout stays parseable
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling audit...")
		cancel()
	}()

	if *cacheStats || *clearCache {
		if err := manageCache(ctx, cfg, log, *clearCache); err != nil {
			log.Fatal("Cache operation failed", zap.Error(err))
		}
		return
	}

	auditCfg := cfg.Audit
	if *batchSize > 0 {
		auditCfg.BatchSize = *batchSize
	}
	if *workers > 0 {
		auditCfg.WorkerCount = *workers
	}
	if *belowLevel != "" {
		auditCfg.BelowLevel = *belowLevel
	}
	if *maxFindings > 0 {
		auditCfg.MaxFindings = *maxFindings
	}
	auditCfg.CrossCheck = auditCfg.CrossCheck || *crossCheck

	log.Info("Starting PassForge audit",
		zap.String("file", *inputFile),
		zap.String("below_level", auditCfg.BelowLevel),
		zap.Int("workers", auditCfg.WorkerCount))

	pipeline, err := audit.NewPipeline(auditCfg, log.WithComponent("audit").Logger)
	if err != nil {
		log.Fatal("Invalid audit configuration", zap.Error(err))
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	report, err := pipeline.ProcessFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Audit failed", zap.Error(err))
	}

	if *reportPath != "" {
		if err := writeReport(*reportPath, report); err != nil {
			log.Fatal("Failed to write report", zap.Error(err))
		}
	}
	if *reportPath != "-" {
		printSummary(os.Stdout, report)
	}

	log.Info("Audit completed",
		zap.Int64("total_records", report.TotalRecords),
		zap.Int64("findings", report.FindingsTotal),
		zap.Duration("duration", report.Duration))

	if !report.Passed() {
		os.Exit(1)
	}
}

func writeReport(path string, report *audit.Report) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printSummary(w io.Writer, report *audit.Report) {
	fmt.Fprintf(w, "\n=== PassForge Audit: %s ===\n", report.Source)
	fmt.Fprintf(w, "Total Records:      %d\n", report.TotalRecords)
	fmt.Fprintf(w, "Analyzed:           %d\n", report.Analyzed)
	fmt.Fprintf(w, "Skipped:            %d\n", report.Skipped)
	fmt.Fprintf(w, "Duplicates:         %d\n", report.Duplicates)
	fmt.Fprintf(w, "Mean Score:         %.1f\n", report.MeanScore)
	fmt.Fprintf(w, "Mean Entropy:       %.1f bits\n", report.MeanEntropy)

	levels := make([]strength.Level, 0, len(report.LevelCounts))
	for level := range report.LevelCounts {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank() < levels[j].Rank() })

	fmt.Fprintf(w, "\n=== Levels ===\n")
	for _, level := range levels {
		count := report.LevelCounts[level]
		pct := 0.0
		if report.Analyzed > 0 {
			pct = float64(count) / float64(report.Analyzed) * 100
		}
		fmt.Fprintf(w, "%-19s %d (%.1f%%)\n", string(level)+":", count, pct)
	}

	fmt.Fprintf(w, "\n=== Findings below %s: %d ===\n", report.BelowLevel, report.FindingsTotal)
	for _, f := range report.Findings {
		reused := ""
		if f.ReusedElsewhere {
			reused = " [reused]"
		}
		fmt.Fprintf(w, "row %-6d %-16s %3d %s%s\n", f.Row, f.Masked, f.Score, f.Level, reused)
	}
	if int64(len(report.Findings)) < report.FindingsTotal {
		fmt.Fprintf(w, "... %d more not listed\n", report.FindingsTotal-int64(len(report.Findings)))
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
}

// manageCache reports on or clears the policy rule cache
func manageCache(ctx context.Context, cfg *config.Config, log *logger.Logger, reset bool) error {
	if !cfg.Cache.Enabled {
		return fmt.Errorf("rule cache is not enabled")
	}

	rc, err := cache.NewRuleCache(cfg.Cache, log.WithComponent("cache").Logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	if reset {
		if err := rc.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		log.Info("Rule cache cleared")
		return nil
	}

	stats, err := rc.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cache stats: %w", err)
	}

	fmt.Printf("\n=== PassForge Rule Cache ===\n")
	fmt.Printf("Cache Hits:         %d\n", stats.Hits)
	fmt.Printf("Cache Misses:       %d\n", stats.Misses)
	fmt.Printf("Hit Rate:           %.1f%%\n", stats.HitRate)
	fmt.Printf("Total Keys:         %d\n", stats.TotalKeys)
	fmt.Printf("Memory Usage:       %.2f MB\n", float64(stats.MemoryUsage)/1024/1024)
	return nil
}
