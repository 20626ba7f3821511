// Package grobid talks to a GROBID service over HTTP and manages its process.
package grobid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TEI elements GROBID is asked to annotate with coords attributes.
var teiCoordinates = []string{"persName", "figure", "formula", "head"}

// ClientConfig for the GROBID HTTP client.
type ClientConfig struct {
	BaseURL           string        // default http://localhost:8070/
	HealthURL         string        // default BaseURL
	Timeout           time.Duration // per-request timeout for fulltext processing
	HealthTimeout     time.Duration // per-probe timeout, default 5s
	ConsolidateHeader bool
}

// Client calls the GROBID REST API.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	health *http.Client
	logger *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8070/"
	}
	if cfg.HealthURL == "" {
		cfg.HealthURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		health: &http.Client{Timeout: cfg.HealthTimeout},
		logger: logger,
	}
}

// IsAlive probes the health URL. Any transport failure or HTTP error status
// counts as offline.
func (c *Client) IsAlive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.HealthURL, nil)
	if err != nil {
		c.logger.Debug("grobid.health.build_request_error", "url", c.cfg.HealthURL, "error", err)
		return false
	}
	resp, err := c.health.Do(req)
	if err != nil {
		c.logger.Debug("grobid.health.offline", "url", c.cfg.HealthURL, "error", err)
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		c.logger.Debug("grobid.health.offline", "url", c.cfg.HealthURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// ProcessFulltext uploads the PDF at path and returns GROBID's TEI XML.
func (c *Client) ProcessFulltext(ctx context.Context, path string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	body, contentType, err := buildFulltextForm(path, c.cfg.ConsolidateHeader)
	if err != nil {
		c.logger.Error("grobid.http.encode_error", "req_id", reqID, "path", path, "error", err)
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/processFulltextDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		c.logger.Error("grobid.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/xml")

	c.logger.Info("grobid.http.request",
		"req_id", reqID,
		"url", endpoint,
		"path", path,
		"content_length", body.Len(),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("grobid.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("grobid http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Warn("grobid.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read grobid response: %w", err)
	}

	c.logger.Info("grobid.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	// 204: GROBID could not extract anything from the document.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("grobid status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	return raw, nil
}

func buildFulltextForm(path string, consolidateHeader bool) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("input", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy pdf: %w", err)
	}
	consolidate := "0"
	if consolidateHeader {
		consolidate = "1"
	}
	fields := [][2]string{{"consolidateHeader", consolidate}, {"consolidateCitations", "0"}}
	for _, el := range teiCoordinates {
		fields = append(fields, [2]string{"teiCoordinates", el})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
