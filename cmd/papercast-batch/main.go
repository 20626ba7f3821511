package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/async"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/export"
	"github.com/joseph-ayodele/papercast-grobid/internal/ingest"
	repo "github.com/joseph-ayodele/papercast-grobid/internal/repository"
	"github.com/joseph-ayodele/papercast-grobid/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run processes one directory. Every return path runs the deferred Close.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, buildOpts ...server.BuildOption) int {
	printError := func(format string, a ...any) { _, _ = fmt.Fprintf(stderr, format, a...) }

	fs := flag.NewFlagSet("papercast-batch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		inmem      = fs.Bool("inmem", false, "use in-memory SQLite database")
		dir        = fs.String("dir", "", "directory to process papers from (required)")
		out        = fs.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		configPath = fs.String("config", "", "YAML config file (optional; env vars otherwise)")
		modeStr    = fs.String("mode", "", "extraction mode: standard or rich (default from config)")
		workers    = fs.Int("workers", 4, "concurrent extractions")
		timeout    = fs.Duration("timeout", 3*time.Minute, "per-paper deadline")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *dir == "" {
		printError("Error: --dir is required\n")
		return 1
	}
	if *out == "" {
		parentDir := filepath.Dir(filepath.Clean(*dir))
		*out = filepath.Join(parentDir, "papers.xlsx")
	}

	cfg := common.LoadConfig()
	if *configPath != "" {
		var err error
		if cfg, err = common.LoadConfigFile(*configPath); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
	}
	if *inmem {
		cfg.Store.DSN = ":memory:"
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	mode := server.DefaultMode(cfg)
	if *modeStr != "" {
		var err error
		if mode, err = constants.ParseMode(*modeStr); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
	}

	components, err := server.Build(ctx, cfg, logger, buildOpts...)
	if err != nil {
		logger.Error("failed to build components", "error", err)
		return 1
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start the service once up front so workers don't race to report it missing.
	if err := components.Manager.EnsureOnline(ctx); err != nil {
		logger.Error("grobid unavailable", "error", err)
		return 3
	}

	batchStart := time.Now()
	var processed, failures atomic.Int32
	queue := async.NewProcessorQueue(components.Processor, logger,
		async.WithWorkers(*workers),
		async.WithProcessTimeout(*timeout),
		async.WithResultFunc(func(_ async.Job, _ *entity.Production, err error) {
			if err != nil {
				failures.Add(1)
				return
			}
			processed.Add(1)
		}),
	)

	ingestor := ingest.NewFSIngestor(queue, mode, logger)
	logger.Info("starting ingestion", "dir", *dir, "mode", mode)
	_, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
	queue.Shutdown(context.Background())
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		return 1
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	logger.Info("exporting to XLSX", "output", *out)
	exportService := export.NewService(components.Jobs, logger)
	xlsxBytes, err := exportService.ExportJobsXLSX(context.Background(), repo.ListFilter{Since: batchStart})
	if err != nil {
		logger.Error("failed to export jobs", "error", err)
		return 1
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		return 1
	}

	logger.Info("batch processing complete",
		"files_queued", stats.Succeeded-stats.Deduplicated,
		"files_processed", processed.Load(),
		"failures", failures.Load(),
		"output_file", *out)

	_, _ = fmt.Fprintf(stdout, "Batch processing complete!\n")
	_, _ = fmt.Fprintf(stdout, "- Papers queued: %d\n", stats.Succeeded-stats.Deduplicated)
	_, _ = fmt.Fprintf(stdout, "- Papers processed: %d\n", processed.Load())
	_, _ = fmt.Fprintf(stdout, "- Failures: %d\n", failures.Load()+int32(stats.Failed))
	_, _ = fmt.Fprintf(stdout, "- Output: %s\n", *out)
	return 0
}
