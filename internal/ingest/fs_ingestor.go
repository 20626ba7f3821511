package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/async"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
)

// FSIngestor reads PDFs from the local filesystem and submits each distinct
// file content once per process.
type FSIngestor struct {
	queue  Submitter
	mode   constants.ExtractionMode
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // content hash -> first path
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(queue Submitter, mode constants.ExtractionMode, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		queue:  queue,
		mode:   mode,
		logger: logger,
		seen:   make(map[string]string),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.ext.unsupported", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	sum, size, err := hashFile(abs)
	if err != nil {
		i.logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, fmt.Errorf("hash: %w", err)
	}
	out.HashHex, out.Size = sum, size

	i.mu.Lock()
	first, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = abs
	}
	i.mu.Unlock()
	if dup {
		i.logger.Info("ingest.deduplicated", "path", abs, "same_as", first)
		out.Deduplicated = true
		return out, nil
	}

	out.QueuedAt = time.Now().UTC()
	job := async.Job{PDFPath: abs, Mode: i.mode, SubmittedAt: out.QueuedAt}
	if err := i.queue.Enqueue(ctx, job); err != nil {
		i.mu.Lock()
		delete(i.seen, sum)
		i.mu.Unlock()
		return out, fmt.Errorf("enqueue: %w", err)
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested,
// and calls IngestPath for each PDF. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.ok", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
