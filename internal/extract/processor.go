package extract

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// JobRecorder persists one row per extraction run.
type JobRecorder interface {
	Start(ctx context.Context, sourcePath string, mode constants.ExtractionMode) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, summary entity.JobSummary) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
}

// Processor coordinates the service guard and the extraction strategies.
type Processor struct {
	logger     *slog.Logger
	guard      ServiceGuard
	strategies map[constants.ExtractionMode]Strategy
	jobs       JobRecorder
}

var _ Component = (*Processor)(nil)

type ProcessorOption func(*Processor)

// WithJobRecorder records every run through r.
func WithJobRecorder(r JobRecorder) ProcessorOption {
	return func(p *Processor) { p.jobs = r }
}

// WithStrategy registers s for its mode, replacing any earlier one.
func WithStrategy(s Strategy) ProcessorOption {
	return func(p *Processor) { p.strategies[s.Mode()] = s }
}

func NewProcessor(logger *slog.Logger, guard ServiceGuard, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:     logger,
		guard:      guard,
		strategies: make(map[constants.ExtractionMode]Strategy),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// InputTypes lists the Production fields Process reads.
func (p *Processor) InputTypes() map[string]reflect.Type {
	return fieldTypes(constants.FieldPDF)
}

// OutputTypes lists the Production fields Process may write.
func (p *Processor) OutputTypes() map[string]reflect.Type {
	return fieldTypes(
		constants.FieldMetadata,
		constants.FieldText,
		constants.FieldArticleDict,
		constants.FieldAuthors,
		constants.FieldTitle,
		constants.FieldAbstract,
		constants.FieldFigures,
		constants.FieldEquations,
	)
}

func fieldTypes(names ...string) map[string]reflect.Type {
	out := make(map[string]reflect.Type, len(names))
	for _, n := range names {
		out[n] = entity.FieldTypes[n]
	}
	return out
}

// Process fills prod using the strategy for mode and returns prod. A
// Production without a source PDF fails with common.ErrMissingInput before
// any other work.
func (p *Processor) Process(ctx context.Context, prod *entity.Production, mode constants.ExtractionMode) (*entity.Production, error) {
	if prod == nil {
		return nil, common.MissingInput(constants.FieldPDF)
	}
	for name := range p.InputTypes() {
		if !prod.Has(name) {
			return prod, common.MissingInput(name)
		}
	}
	pdfPath, _ := prod.PDF()

	if mode == "" {
		mode = constants.ModeStandard
	}
	strategy, ok := p.strategies[mode]
	if !ok {
		return prod, fmt.Errorf("%w: no strategy for mode %q", common.ErrInvalidInput, mode)
	}

	if err := p.guard.EnsureOnline(ctx); err != nil {
		p.logger.Error("processor.grobid.offline", "path", pdfPath, "error", err)
		return prod, err
	}

	start := time.Now()
	job := p.startJob(ctx, pdfPath, mode)
	if job != nil {
		ctx = common.WithJobID(ctx, job.ID.String())
	}

	res, err := strategy.Extract(ctx, pdfPath)
	if err != nil {
		p.logger.Error("processor.extract.failed", "path", pdfPath, "mode", mode, "error", err)
		p.finishFailure(ctx, job, err)
		return prod, err
	}
	res.Apply(prod)

	p.finishSuccess(ctx, job, res)
	p.logger.Info("processor.extract.ok",
		"path", pdfPath,
		"mode", mode,
		"job_id", common.JobIDFromContext(ctx),
		"fields", prod.Fields(),
		"skipped", len(res.Skipped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return prod, nil
}

// Recording failures never fail the extraction itself.
func (p *Processor) startJob(ctx context.Context, pdfPath string, mode constants.ExtractionMode) *entity.ExtractJob {
	if p.jobs == nil {
		return nil
	}
	job, err := p.jobs.Start(ctx, pdfPath, mode)
	if err != nil {
		p.logger.Warn("processor.job.start_failed", "path", pdfPath, "error", err)
		return nil
	}
	return job
}

func (p *Processor) finishFailure(ctx context.Context, job *entity.ExtractJob, cause error) {
	if job == nil {
		return
	}
	if err := p.jobs.FinishFailure(ctx, job.ID, cause.Error()); err != nil {
		p.logger.Warn("processor.job.finish_failed", "job_id", job.ID, "error", err)
	}
}

func (p *Processor) finishSuccess(ctx context.Context, job *entity.ExtractJob, res *Result) {
	if job == nil {
		return
	}
	if err := p.jobs.FinishSuccess(ctx, job.ID, summarize(res)); err != nil {
		p.logger.Warn("processor.job.finish_failed", "job_id", job.ID, "error", err)
	}
}

func summarize(res *Result) entity.JobSummary {
	m := res.Mapping
	s := entity.JobSummary{
		Title:      &m.Title,
		Abstract:   &m.Abstract,
		TextLength: len(res.Text),
		Figures:    len(res.Figures),
		Equations:  len(res.Equations),
		Skipped:    len(res.Skipped),
		RawMapping: m.AsMap(),
	}
	switch {
	case res.Mode == constants.ModeRich:
		for _, a := range res.Authors {
			s.Authors = append(s.Authors, a.FullName())
		}
	case res.Metadata.Authors != nil:
		s.Authors = res.Metadata.Authors
	}
	return s
}
