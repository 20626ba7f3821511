// Package parser turns a PDF into GROBID's article mapping and TEI tree.
package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/tei"
)

// Fulltext is the part of the GROBID client the parser needs.
type Fulltext interface {
	ProcessFulltext(ctx context.Context, path string) ([]byte, error)
}

type Config struct {
	// CacheDir keeps TEI output as {CacheDir}/{sha256}.tei.xml. Empty disables caching.
	CacheDir string
}

// Document is one parse result.
type Document struct {
	Mapping entity.ParsedMapping
	Tree    *tei.Tree
}

type Parser struct {
	client   Fulltext
	cacheDir string
	logger   *slog.Logger
}

func NewParser(client Fulltext, cfg Config, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{client: client, cacheDir: cfg.CacheDir, logger: logger}
}

// ParseToMapping returns the flat article mapping.
func (p *Parser) ParseToMapping(ctx context.Context, path string) (entity.ParsedMapping, error) {
	doc, err := p.Parse(ctx, path)
	if err != nil {
		return entity.ParsedMapping{}, err
	}
	return doc.Mapping, nil
}

// ParseToTree returns the queryable TEI tree.
func (p *Parser) ParseToTree(ctx context.Context, path string) (*tei.Tree, error) {
	doc, err := p.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	return doc.Tree, nil
}

// Parse runs GROBID once (or reads the cache) and returns both views.
// A document GROBID cannot structure fails with common.ErrParse.
func (p *Parser) Parse(ctx context.Context, path string) (*Document, error) {
	start := time.Now()

	raw, err := p.fulltext(ctx, path)
	if err != nil {
		return nil, err
	}

	tree, err := tei.Parse(raw)
	if err != nil {
		p.logger.Error("parser.tei.invalid", "path", path, "error", err)
		return nil, common.ParseFailure("could not parse pdf "+path, err)
	}
	mapping := tree.ToMapping()
	if err := tei.ValidateMapping(mapping); err != nil {
		p.logger.Error("parser.mapping.invalid", "path", path, "error", err)
		return nil, common.ParseFailure("parsed mapping invalid for "+path, err)
	}

	p.logger.Info("parser.parsed",
		"path", path,
		"sections", len(mapping.Sections),
		"has_authors", mapping.Authors != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &Document{Mapping: mapping, Tree: tree}, nil
}

func (p *Parser) fulltext(ctx context.Context, path string) ([]byte, error) {
	var cached string
	if p.cacheDir != "" {
		hashHex, err := hashFile(path)
		if err != nil {
			return nil, fmt.Errorf("hash pdf: %w", err)
		}
		cached = filepath.Join(p.cacheDir, hashHex+".tei.xml")
		if raw, err := os.ReadFile(cached); err == nil && len(raw) > 0 {
			p.logger.Debug("parser.cache.hit", "path", path, "cache", cached)
			return raw, nil
		}
	}

	raw, err := p.client.ProcessFulltext(ctx, path)
	if err != nil {
		p.logger.Error("parser.grobid.failed", "path", path, "error", err)
		return nil, common.ParseFailure("grobid failed on "+path, err)
	}
	if len(raw) == 0 {
		p.logger.Warn("parser.grobid.empty", "path", path)
		return nil, common.ParseFailure("could not parse pdf "+path, nil)
	}

	if cached != "" {
		if err := writeAtomic(p.cacheDir, cached, raw); err != nil {
			p.logger.Warn("parser.cache.write_failed", "cache", cached, "error", err)
		} else {
			p.logger.Debug("parser.cache.stored", "cache", cached)
		}
	}
	return raw, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeAtomic writes through a temp file in dir and renames it into place.
func writeAtomic(dir, dst string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tei-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
