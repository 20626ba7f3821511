package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/papercast-grobid/internal/grobid"
)

// GrobidService is the health service name that tracks the parsing service.
const GrobidService = "papercast.grobid"

// ReportGrobidHealth mirrors the parsing service's liveness into hs until ctx
// ends. The overall ("") status follows it. Transitions are logged once.
func ReportGrobidHealth(ctx context.Context, hs *health.Server, checker grobid.HealthChecker, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if checker.IsAlive(ctx) {
			status = healthpb.HealthCheckResponse_SERVING
		}
		if ctx.Err() != nil {
			return
		}
		hs.SetServingStatus(GrobidService, status)
		hs.SetServingStatus("", status)
		if status != last {
			logger.Info("health.grobid.changed", "from", last.String(), "to", status.String())
			last = status
		}
	}

	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			probe()
		}
	}
}
