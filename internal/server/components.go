// Package server wires configuration into the extraction components shared by
// the binaries.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/extract"
	"github.com/joseph-ayodele/papercast-grobid/internal/grobid"
	"github.com/joseph-ayodele/papercast-grobid/internal/parser"
	"github.com/joseph-ayodele/papercast-grobid/internal/region"
	repo "github.com/joseph-ayodele/papercast-grobid/internal/repository"
)

// Components is everything a binary needs to run extractions.
type Components struct {
	Client    *grobid.Client
	Manager   *grobid.Manager
	Parser    *parser.Parser
	Regions   *region.Extractor // nil unless images are extracted
	Processor *extract.Processor
	DB        *repo.DB // nil when the store is disabled
	Jobs      repo.ExtractJobRepository

	logger *slog.Logger
}

type buildOptions struct {
	withoutStore bool
	launcher     grobid.Launcher
}

type BuildOption func(*buildOptions)

// WithoutStore skips opening the run store; runs are not recorded.
func WithoutStore() BuildOption {
	return func(o *buildOptions) { o.withoutStore = true }
}

// WithLauncher replaces the exec-based launcher used to start the service.
func WithLauncher(l grobid.Launcher) BuildOption {
	return func(o *buildOptions) { o.launcher = l }
}

// Build validates cfg and constructs the components. Call Close when done.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...BuildOption) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Components{logger: logger}
	c.Client = grobid.NewClient(grobid.ClientConfig{
		BaseURL:           cfg.Grobid.URL,
		HealthURL:         cfg.Grobid.HealthURL,
		Timeout:           cfg.Grobid.Timeout,
		ConsolidateHeader: true,
	}, logger)

	c.Manager = grobid.NewManager(grobid.ManagerConfig{
		StartCommand:    cfg.Grobid.StartCommand,
		PollInterval:    cfg.Grobid.PollInterval,
		MaxPollInterval: cfg.Grobid.MaxPollInterval,
		StartTimeout:    cfg.Grobid.StartTimeout,
		ProbeAttempts:   cfg.Grobid.ProbeAttempts,
		StopGrace:       cfg.Grobid.StopGrace,
	}, c.Client, logger, grobid.WithLauncher(o.launcher))

	var cacheDir string
	if cfg.Extract.ArtifactCacheDir != "" {
		cacheDir = filepath.Join(cfg.Extract.ArtifactCacheDir, "tei")
	}
	c.Parser = parser.NewParser(c.Client, parser.Config{CacheDir: cacheDir}, logger)

	var figures *extract.FigureExtractor
	if cfg.Extract.ExtractImages {
		rx, err := region.NewExtractor(region.Config{
			DPI:      float64(cfg.Render.DPI),
			Method:   cfg.Render.Method,
			Pdftoppm: cfg.Render.Pdftoppm,
		}, logger)
		if err != nil {
			return nil, err
		}
		c.Regions = rx
		figures = extract.NewFigureExtractor(rx, logger)
	}

	procOpts := []extract.ProcessorOption{
		extract.WithStrategy(extract.NewStandardStrategy(c.Parser, cfg.Extract.FilterNonPrintable, logger)),
		extract.WithStrategy(extract.NewRichStrategy(c.Parser, figures, cfg.Extract.FilterNonPrintable, logger)),
	}

	if !o.withoutStore {
		db, err := ConnectDB(ctx, cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		c.DB = db
		c.Jobs = repo.NewExtractJobRepository(db, logger)
		procOpts = append(procOpts, extract.WithJobRecorder(c.Jobs))
	}

	c.Processor = extract.NewProcessor(logger, c.Manager, procOpts...)
	logger.Info("components.ready",
		"grobid_url", cfg.Grobid.URL,
		"managed", cfg.Grobid.StartCommand != "",
		"extract_images", cfg.Extract.ExtractImages,
		"store", c.DB != nil,
	)
	return c, nil
}

// DefaultMode is the configured extraction mode.
func DefaultMode(cfg *common.Config) constants.ExtractionMode {
	m, err := constants.ParseMode(cfg.Extract.Mode)
	if err != nil {
		return constants.ModeStandard
	}
	return m
}

// Close stops a service this process started and closes the store.
func (c *Components) Close() error {
	var errs []error
	if c.Manager != nil {
		if err := c.Manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stop grobid: %w", err))
		}
	}
	if c.DB != nil {
		repo.Close(c.DB, c.logger)
	}
	return errors.Join(errs...)
}
