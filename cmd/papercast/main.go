package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/export"
	"github.com/joseph-ayodele/papercast-grobid/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole command. Every return path runs the deferred Close, so a
// service started here is stopped before the process exits.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, buildOpts ...server.BuildOption) int {
	printError := func(format string, a ...any) { _, _ = fmt.Fprintf(stderr, format, a...) }

	fs := flag.NewFlagSet("papercast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file (optional; env vars otherwise)")
		modeStr    = fs.String("mode", "", "extraction mode: standard or rich (default from config)")
		images     = fs.Bool("images", false, "crop figures and equations (rich mode)")
		cropsDir   = fs.String("crops", "", "directory for figure/equation crops (default <pdf dir>/<pdf name>-crops)")
		format     = fs.String("format", export.FormatPNG, "crop image format: png or tiff")
		out        = fs.String("out", "", "write the JSON result here instead of stdout")
		noStore    = fs.Bool("no-store", false, "do not record the run in the store")
		timeout    = fs.Duration("timeout", 5*time.Minute, "overall deadline, including service start-up")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		printError("usage: papercast [flags] <paper.pdf>\n")
		fs.PrintDefaults()
		return 2
	}
	pdfPath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if *images {
		cfg.Extract.ExtractImages = true
	}

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	mode := server.DefaultMode(cfg)
	if *modeStr != "" {
		if mode, err = constants.ParseMode(*modeStr); err != nil {
			printError("Error: %v\n", err)
			return 2
		}
	}

	ctx, cancel := common.WithTimeout(ctx, *timeout)
	defer cancel()

	if *noStore {
		buildOpts = append(buildOpts, server.WithoutStore())
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

	start := time.Now()
	prod, err := components.Processor.Process(ctx, entity.NewProduction(pdfPath), mode)
	if err != nil {
		logger.Error("extraction failed", "path", pdfPath, "mode", mode, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return exitCode(err)
	}

	result := map[string]any{"production": prod}
	if figs, ok := prod.Figures(); ok && cfg.Extract.ExtractImages {
		dir := *cropsDir
		if dir == "" {
			base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
			dir = filepath.Join(filepath.Dir(pdfPath), base+"-crops")
		}
		eqs, _ := prod.Equations()
		figPaths, err := export.WriteImages(dir, "figure", *format, figs)
		if err != nil {
			logger.Error("failed to write figures", "dir", dir, "error", err)
			return 1
		}
		eqPaths, err := export.WriteImages(dir, "equation", *format, eqs)
		if err != nil {
			logger.Error("failed to write equations", "dir", dir, "error", err)
			return 1
		}
		result["figure_files"] = figPaths
		result["equation_files"] = eqPaths
	}

	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		return 1
	}
	if *out != "" {
		if err := os.WriteFile(*out, append(b, '\n'), 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			return 1
		}
	} else {
		_, _ = fmt.Fprintln(stdout, string(b))
	}

	logger.Info("extraction OK",
		"path", pdfPath,
		"mode", mode,
		"fields", prod.Fields(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return 0
}

func loadConfig(path string) (*common.Config, error) {
	if path == "" {
		return common.LoadConfig(), nil
	}
	return common.LoadConfigFile(path)
}

// exitCode distinguishes bad input from an unreachable service.
func exitCode(err error) int {
	switch {
	case errors.Is(err, common.ErrMissingInput), errors.Is(err, common.ErrInvalidInput):
		return 2
	case errors.Is(err, common.ErrServiceUnavailable):
		return 3
	default:
		return 1
	}
}
