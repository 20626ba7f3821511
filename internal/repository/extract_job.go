package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, sourcePath string, mode constants.ExtractionMode) (*entity.ExtractJob, error)
	FinishSuccess(ctx context.Context, jobID uuid.UUID, summary entity.JobSummary) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, filter ListFilter) ([]entity.ExtractJob, error)
}

// ListFilter narrows List. Zero values mean no constraint.
type ListFilter struct {
	Status constants.JobStatus
	Since  time.Time
	Limit  int
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, sourcePath string, mode constants.ExtractionMode) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Mode:       string(mode),
		StartedAt:  time.Now().UTC(),
		Status:     string(constants.JobStatusRunning),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extract_job (id, source_path, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`),
		job.ID.String(), job.SourcePath, job.Mode, job.Status, job.StartedAt,
	)
	if err != nil {
		r.log.Error("extract_job start failed", "path", sourcePath, "err", err)
		return nil, fmt.Errorf("%w: start job: %v", common.ErrDatabase, err)
	}
	r.log.Info("extract_job started", "job_id", job.ID, "path", sourcePath, "mode", mode)
	return job, nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, s entity.JobSummary) error {
	raw, err := EncodeMapping(s.RawMapping)
	if err != nil {
		return err
	}
	authors, err := encodeAuthors(s.Authors)
	if err != nil {
		return err
	}
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(`UPDATE extract_job SET
		status = ?, finished_at = ?, title = ?, authors = ?, abstract = ?,
		text_length = ?, figures = ?, equations = ?, skipped = ?, raw_mapping = ?
		WHERE id = ?`),
		string(constants.JobStatusOK), time.Now().UTC(), nullString(s.Title), authors, nullString(s.Abstract),
		s.TextLength, s.Figures, s.Equations, s.Skipped, raw,
		jobID.String(),
	)
	if err := checkUpdated(res, err); err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (OK)", "job_id", jobID, "text_length", s.TextLength, "skipped", s.Skipped)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	res, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`UPDATE extract_job SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`),
		string(constants.JobStatusFailed), time.Now().UTC(), message, jobID.String(),
	)
	if err := checkUpdated(res, err); err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

const selectJob = `SELECT id, source_path, mode, status, started_at, finished_at, error_message,
	title, authors, abstract, text_length, figures, equations, skipped, raw_mapping FROM extract_job`

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(selectJob+` WHERE id = ?`), jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: extract job %s", common.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *extractJobRepo) List(ctx context.Context, f ListFilter) ([]entity.ExtractJob, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, f.Since.UTC())
	}
	q := selectJob
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY started_at, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*entity.ExtractJob, error) {
	var (
		id                      string
		job                     entity.ExtractJob
		finished                sql.NullTime
		errMsg, title, abstract sql.NullString
		authors, raw            sql.NullString
	)
	err := s.Scan(&id, &job.SourcePath, &job.Mode, &job.Status, &job.StartedAt, &finished, &errMsg,
		&title, &authors, &abstract, &job.TextLength, &job.Figures, &job.Equations, &job.Skipped, &raw)
	if err != nil {
		return nil, err
	}
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad job id %q: %w", id, err)
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	job.ErrorMessage = ptr(errMsg)
	job.Title = ptr(title)
	job.Abstract = ptr(abstract)
	if authors.Valid && authors.String != "" {
		if err := json.Unmarshal([]byte(authors.String), &job.Authors); err != nil {
			return nil, fmt.Errorf("decode authors: %w", err)
		}
	}
	if raw.Valid && raw.String != "" {
		job.RawMapping = json.RawMessage(raw.String)
	}
	return &job, nil
}

// EncodeMapping serializes a raw article mapping as protobuf Struct JSON.
func EncodeMapping(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode mapping: %w", err)
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode mapping: %w", err)
	}
	return string(b), nil
}

// DecodeMapping reads a stored mapping back into generic values.
func DecodeMapping(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	return s.AsMap(), nil
}

func encodeAuthors(authors []string) (any, error) {
	if authors == nil {
		return nil, nil
	}
	b, err := json.Marshal(authors)
	if err != nil {
		return nil, fmt.Errorf("encode authors: %w", err)
	}
	return string(b), nil
}

func checkUpdated(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
