package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/repository"
)

// JobLister is the part of the job store the export needs.
type JobLister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]entity.ExtractJob, error)
}

// Service is a tiny façade over the job store that produces XLSX bytes for exports.
type Service struct {
	jobs   JobLister
	logger *slog.Logger
}

func NewService(jobs JobLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) of the runs matching filter.
func (s *Service) ExportJobsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Papers"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Source PDF",
		"Mode",
		"Status",
		"Title",
		"Authors",
		"Abstract",
		"Sections",
		"Text Length",
		"Figures",
		"Equations",
		"Skipped",
		"Started",
		"Duration (s)",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		sections := 0
		if m, err := repository.DecodeMapping(j.RawMapping); err != nil {
			s.logger.Warn("export.mapping.decode_failed", "job_id", j.ID, "error", err)
		} else if list, ok := m["sections"].([]any); ok {
			sections = len(list)
		}

		duration := ""
		if j.FinishedAt != nil {
			duration = fmt.Sprintf("%.1f", j.FinishedAt.Sub(j.StartedAt).Seconds())
		}

		write(1, j.SourcePath)
		write(2, j.Mode)
		write(3, j.Status)
		write(4, deref(j.Title))
		write(5, strings.Join(trimAll(j.Authors), "; "))
		write(6, truncate(deref(j.Abstract), 300))
		write(7, sections)
		write(8, j.TextLength)
		write(9, j.Figures)
		write(10, j.Equations)
		write(11, j.Skipped)
		write(12, j.StartedAt.UTC().Format(time.RFC3339))
		write(13, duration)
		write(14, truncate(deref(j.ErrorMessage), 140))
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 60) // path
	_ = f.SetColWidth(sheet, "B", "C", 10)
	_ = f.SetColWidth(sheet, "D", "D", 48) // title
	_ = f.SetColWidth(sheet, "E", "E", 36) // authors
	_ = f.SetColWidth(sheet, "F", "F", 60) // abstract
	_ = f.SetColWidth(sheet, "N", "N", 48) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
