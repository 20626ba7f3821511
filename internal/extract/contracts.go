// Package extract turns a PDF into a filled Production by way of GROBID.
package extract

import (
	"context"
	"image"
	"reflect"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
	"github.com/joseph-ayodele/papercast-grobid/internal/parser"
)

// Component is a pipeline stage that reads and fills a Production. Input and
// output types are keyed by Production field name.
type Component interface {
	InputTypes() map[string]reflect.Type
	OutputTypes() map[string]reflect.Type
	Process(ctx context.Context, p *entity.Production, mode constants.ExtractionMode) (*entity.Production, error)
}

// Strategy is one extraction mode.
type Strategy interface {
	Mode() constants.ExtractionMode
	Extract(ctx context.Context, pdfPath string) (*Result, error)
}

// DocumentParser is the parsing capability the strategies need.
type DocumentParser interface {
	ParseToMapping(ctx context.Context, path string) (entity.ParsedMapping, error)
	Parse(ctx context.Context, path string) (*parser.Document, error)
}

// RegionRenderer renders one bounding box of a PDF.
type RegionRenderer interface {
	RenderRegion(ctx context.Context, pdfPath string, bbox entity.PDFBBox) (image.Image, error)
}

// ServiceGuard makes sure the parsing service is reachable.
type ServiceGuard interface {
	EnsureOnline(ctx context.Context) error
}

// Skipped describes one element left out of the result.
type Skipped struct {
	Kind   string `json:"kind"` // "figure", "formula" or "author"
	ID     string `json:"id,omitempty"`
	Coords string `json:"coords,omitempty"`
	Reason string `json:"reason"`
	// Err is the typed cause when there is one: *common.MalformedCoordinateError
	// or *common.PageIndexError for regions.
	Err error `json:"-"`
}

// Result is what a strategy produced. Apply writes the fields the mode owns
// onto a Production.
type Result struct {
	Mode     constants.ExtractionMode
	Mapping  entity.ParsedMapping
	Metadata entity.Metadata
	Text     string
	Authors  []entity.Author

	// Images reports whether figure and equation crops were attempted.
	Images    bool
	Figures   []image.Image
	Equations []image.Image
	Skipped   []Skipped
}

func (r *Result) Apply(p *entity.Production) {
	switch r.Mode {
	case constants.ModeRich:
		p.SetAuthors(r.Authors)
		p.SetTitle(r.Mapping.Title)
		p.SetAbstract(r.Mapping.Abstract)
		p.SetText(r.Text)
		if r.Images {
			p.SetFigures(r.Figures)
			p.SetEquations(r.Equations)
		}
	default:
		p.SetMetadata(r.Metadata)
		p.SetText(r.Text)
		p.SetArticleDict(r.Mapping.AsMap())
	}
}
