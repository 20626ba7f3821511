// Package repository stores extraction runs in SQLite or Postgres.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string // postgres:// or postgresql:// selects Postgres; anything else is a SQLite path
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an open store. Pool is set for Postgres only.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Dialect Dialect
}

// DialectFor picks the backend from a DSN.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to the store named by cfg.DSN and creates the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	var db *DB
	var err error
	switch DialectFor(cfg.DSN) {
	case DialectPostgres:
		db, err = openPostgres(ctx, cfg, logger)
	default:
		db, err = openSQLite(cfg, logger)
	}
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	mctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := migrate(mctx, db); err != nil {
		Close(db, logger)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "papercast-grobid"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: DialectPostgres}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("connecting to database", "dialect", DialectSQLite, "path", dsn)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer; an in-memory database also lives on a single connection.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{SQL: sqlDB, Dialect: DialectSQLite}, nil
}

func migrate(ctx context.Context, db *DB) error {
	ts, js := "TIMESTAMP", "TEXT"
	if db.Dialect == DialectPostgres {
		ts, js = "TIMESTAMPTZ", "JSONB"
	}
	ddl := `CREATE TABLE IF NOT EXISTS extract_job (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	mode          TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    ` + ts + ` NOT NULL,
	finished_at   ` + ts + `,
	error_message TEXT,
	title         TEXT,
	authors       TEXT,
	abstract      TEXT,
	text_length   INTEGER NOT NULL DEFAULT 0,
	figures       INTEGER NOT NULL DEFAULT 0,
	equations     INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	raw_mapping   ` + js + `
)`
	if _, err := db.SQL.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := db.SQL.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS extract_job_started_at_idx ON extract_job (started_at)`)
	return err
}

// rebind turns ? placeholders into $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connections gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
