package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	repo "github.com/joseph-ayodele/papercast-grobid/internal/repository"
)

// ConnectDB opens the extraction-run store described by cfg.
func ConnectDB(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*repo.DB, error) {
	return repo.Open(ctx, repo.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, db, timeout, logger)
}
