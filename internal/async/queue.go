package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/constants"
)

// Job is one PDF waiting for extraction.
type Job struct {
	PDFPath     string
	Mode        constants.ExtractionMode
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
