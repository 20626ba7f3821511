package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob represents one recorded extraction run for data transfer between layers.
type ExtractJob struct {
	ID           uuid.UUID       `json:"id"`
	SourcePath   string          `json:"source_path"`
	Mode         string          `json:"mode"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Title        *string         `json:"title,omitempty"`
	Authors      []string        `json:"authors,omitempty"`
	Abstract     *string         `json:"abstract,omitempty"`
	TextLength   int             `json:"text_length"`
	Figures      int             `json:"figures"`
	Equations    int             `json:"equations"`
	Skipped      int             `json:"skipped"`
	RawMapping   json.RawMessage `json:"raw_mapping,omitempty"`
}

// JobSummary is what a finished extraction run records about its output.
type JobSummary struct {
	Title      *string
	Authors    []string
	Abstract   *string
	TextLength int
	Figures    int
	Equations  int
	Skipped    int
	RawMapping map[string]any
}
