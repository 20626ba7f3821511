package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "jobs.db")}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { Close(db, logger) })
	return db
}

func strPtr(s string) *string { return &s }

func TestDialectFor(t *testing.T) {
	tests := map[string]Dialect{
		"postgres://u:p@localhost/db": DialectPostgres,
		"postgresql://localhost/db":   DialectPostgres,
		"papercast.db":                DialectSQLite,
		":memory:":                    DialectSQLite,
		"file:jobs.db?cache=shared":   DialectSQLite,
	}
	for dsn, want := range tests {
		if got := DialectFor(dsn); got != want {
			t.Errorf("DialectFor(%q) = %s, want %s", dsn, got, want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &DB{Dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("rebind = %q", got)
	}
}

func TestExtractJobLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewExtractJobRepository(db, nil)

	if err := HealthCheck(ctx, db, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	ok, err := repo.Start(ctx, "/papers/a.pdf", constants.ModeStandard)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	bad, err := repo.Start(ctx, "/papers/b.pdf", constants.ModeRich)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	mapping := entity.ParsedMapping{
		Title:    "T",
		Abstract: "A",
		Sections: []entity.Section{{Heading: "H1", Text: "B1"}},
		Authors:  strPtr("Ada Lovelace"),
	}
	summary := entity.JobSummary{
		Title:      strPtr("T"),
		Authors:    []string{"Ada Lovelace"},
		Abstract:   strPtr("A"),
		TextLength: 14,
		Skipped:    1,
		RawMapping: mapping.AsMap(),
	}
	if err := repo.FinishSuccess(ctx, ok.ID, summary); err != nil {
		t.Fatalf("FinishSuccess: %v", err)
	}
	if err := repo.FinishFailure(ctx, bad.ID, "could not parse pdf"); err != nil {
		t.Fatalf("FinishFailure: %v", err)
	}

	got, err := repo.Get(ctx, ok.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != string(constants.JobStatusOK) || got.FinishedAt == nil {
		t.Fatalf("job = %+v", got)
	}
	if diff := cmp.Diff(summary.Authors, got.Authors); diff != "" {
		t.Fatalf("authors mismatch (-want +got):\n%s", diff)
	}
	if got.TextLength != 14 || got.Skipped != 1 || *got.Title != "T" {
		t.Fatalf("job = %+v", got)
	}
	decoded, err := DecodeMapping(got.RawMapping)
	if err != nil {
		t.Fatalf("DecodeMapping: %v", err)
	}
	if diff := cmp.Diff(mapping.AsMap(), decoded); diff != "" {
		t.Fatalf("raw mapping mismatch (-want +got):\n%s", diff)
	}

	failed, err := repo.List(ctx, ListFilter{Status: constants.JobStatusFailed})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != bad.ID || *failed[0].ErrorMessage != "could not parse pdf" {
		t.Fatalf("failed jobs = %+v", failed)
	}

	all, err := repo.List(ctx, ListFilter{Since: time.Now().Add(-time.Hour), Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("jobs = %d, want 2", len(all))
	}
}

func TestExtractJob_Missing(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	if _, err := repo.Get(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
	if err := repo.FinishFailure(ctx, uuid.New(), "x"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("FinishFailure err = %v, want ErrNotFound", err)
	}
}

func TestEncodeMapping_Nil(t *testing.T) {
	v, err := EncodeMapping(nil)
	if err != nil || v != nil {
		t.Fatalf("EncodeMapping(nil) = %v, %v", v, err)
	}
	m, err := DecodeMapping(nil)
	if err != nil || m != nil {
		t.Fatalf("DecodeMapping(nil) = %v, %v", m, err)
	}
}
