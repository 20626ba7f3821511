package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/tei"
)

// StandardStrategy reads the article mapping only: metadata, text and the
// raw mapping. No rendering.
type StandardStrategy struct {
	parser DocumentParser
	filter bool
	logger *slog.Logger
}

func NewStandardStrategy(p DocumentParser, filterNonPrintable bool, logger *slog.Logger) *StandardStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandardStrategy{parser: p, filter: filterNonPrintable, logger: logger}
}

func (s *StandardStrategy) Mode() constants.ExtractionMode { return constants.ModeStandard }

func (s *StandardStrategy) Extract(ctx context.Context, pdfPath string) (*Result, error) {
	mapping, err := s.parser.ParseToMapping(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("extract.standard.parsed", "path", pdfPath)
	return &Result{
		Mode:     constants.ModeStandard,
		Mapping:  mapping,
		Metadata: BuildMetadata(mapping, pdfPath),
		Text:     AssembleText(mapping, s.filter),
	}, nil
}

// RichStrategy also reads the TEI tree: header authors and, when a
// FigureExtractor is set, figure and equation crops.
type RichStrategy struct {
	parser  DocumentParser
	figures *FigureExtractor
	filter  bool
	logger  *slog.Logger
}

// NewRichStrategy builds the rich strategy. figures may be nil to skip crops.
func NewRichStrategy(p DocumentParser, figures *FigureExtractor, filterNonPrintable bool, logger *slog.Logger) *RichStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RichStrategy{parser: p, figures: figures, filter: filterNonPrintable, logger: logger}
}

func (s *RichStrategy) Mode() constants.ExtractionMode { return constants.ModeRich }

func (s *RichStrategy) Extract(ctx context.Context, pdfPath string) (*Result, error) {
	doc, err := s.parser.Parse(ctx, pdfPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Mode:    constants.ModeRich,
		Mapping: doc.Mapping,
		Text:    AssembleText(doc.Mapping, s.filter),
		Authors: []entity.Author{},
	}
	for i, n := range doc.Tree.HeaderAuthors() {
		a, ok := tei.Author(n)
		if !ok {
			s.logger.Warn("extract.rich.author_skipped", "path", pdfPath, "index", i)
			res.Skipped = append(res.Skipped, Skipped{Kind: "author", Reason: "no persName"})
			continue
		}
		res.Authors = append(res.Authors, a)
	}

	if s.figures != nil {
		figs, eqs, skipped, err := s.figures.Extract(ctx, pdfPath, doc.Tree)
		res.Skipped = append(res.Skipped, skipped...)
		if err != nil {
			return nil, err
		}
		res.Images = true
		res.Figures, res.Equations = figs, eqs
	}

	s.logger.Info("extract.rich.parsed",
		"path", pdfPath,
		"authors", len(res.Authors),
		"figures", len(res.Figures),
		"equations", len(res.Equations),
		"skipped", len(res.Skipped),
	)
	return res, nil
}
