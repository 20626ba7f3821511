package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/papercast-grobid/internal/async"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/ingest"
	"github.com/joseph-ayodele/papercast-grobid/internal/server"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdout)
	stop()
	os.Exit(code)
}

// run serves until ctx ends. Every return path runs the deferred Close, so a
// service started by the processor is stopped before the process exits.
func run(ctx context.Context, stdout io.Writer, buildOpts ...server.BuildOption) int {
	cfg := common.LoadConfig()
	if path := os.Getenv("PAPERCAST_CONFIG"); path != "" {
		var err error
		if cfg, err = common.LoadConfigFile(path); err != nil {
			slog.Error("failed to load config", "path", path, "error", err)
			return 1
		}
	}

	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	addr := getenv("GRPC_ADDR", ":8080")
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	watchDirs := splitList(os.Getenv("WATCH_DIRS"))
	if len(watchDirs) == 0 {
		logger.Error("WATCH_DIRS env var is required (comma separated directories)")
		return 2
	}
	workers := getenvInt("WORKERS", 2)
	healthEvery := getenvDuration("HEALTH_INTERVAL", 15*time.Second)

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

	// Ping DB to ensure connectivity
	if err := server.PingDB(ctx, components.DB, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		return 1
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		return 1
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	queue := async.NewProcessorQueue(components.Processor, logger,
		async.WithWorkers(workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(cfg.Grobid.StartTimeout+cfg.Grobid.Timeout),
	)
	ingestor := ingest.NewFSIngestor(queue, server.DefaultMode(cfg), logger)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       watchDirs,
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "dirs", watchDirs, "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("papercastd listening", "addr", addr, "watch", watchDirs)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		server.ReportGrobidHealth(gctx, healthServer, components.Client, healthEvery, logger)
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case path, ok := <-events:
				if !ok {
					return nil
				}
				if _, err := ingestor.IngestPath(gctx, path); err != nil {
					logger.Warn("ingest failed", "path", path, "error", err)
				}
			case err, ok := <-watchErrs:
				if !ok {
					watchErrs = nil
					continue
				}
				logger.Warn("watcher reported error", "error", err)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})

	code := 0
	if err := g.Wait(); err != nil {
		logger.Error("papercastd stopped with error", "error", err)
		code = 1
	}
	queue.Shutdown(context.Background())
	logger.Info("papercastd stopped")
	return code
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}
