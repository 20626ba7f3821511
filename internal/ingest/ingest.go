// Package ingest discovers PDFs on disk and submits them for extraction.
package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/internal/async"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Deduplicated bool
	HashHex      string
	Size         int64
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Submitter accepts extraction jobs; async.ProcessorQueue satisfies it.
type Submitter interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// Ingestor is the behavior the binaries depend on.
type Ingestor interface {
	// IngestPath submits a single PDF.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory submits all PDFs under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
