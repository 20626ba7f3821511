package entity

import (
	"encoding/json"
	"fmt"
	"image"
	"reflect"
	"sort"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
)

// FieldTypes maps every Production field name to the Go type it holds.
var FieldTypes = map[string]reflect.Type{
	constants.FieldPDF:         reflect.TypeOf(""),
	constants.FieldMetadata:    reflect.TypeOf(Metadata{}),
	constants.FieldText:        reflect.TypeOf(""),
	constants.FieldArticleDict: reflect.TypeOf(map[string]any{}),
	constants.FieldAuthors:     reflect.TypeOf([]Author{}),
	constants.FieldTitle:       reflect.TypeOf(""),
	constants.FieldAbstract:    reflect.TypeOf(""),
	constants.FieldFigures:     reflect.TypeOf([]image.Image{}),
	constants.FieldEquations:   reflect.TypeOf([]image.Image{}),
}

// Production is the caller-owned accumulator threaded through one extraction
// call. Fields start absent and are filled through setters. A Production must
// have a single owner for the duration of a call.
type Production struct {
	pdf       string
	metadata  Metadata
	text      string
	article   map[string]any
	authors   []Author
	title     string
	abstract  string
	figures   []image.Image
	equations []image.Image

	present map[string]struct{}
}

// NewProduction returns an accumulator carrying the source PDF path.
func NewProduction(pdfPath string) *Production {
	p := &Production{}
	p.SetPDF(pdfPath)
	return p
}

// NewProductionFrom builds an accumulator from named fields, rejecting
// unknown names and mistyped values.
func NewProductionFrom(fields map[string]any) (*Production, error) {
	p := &Production{}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.Set(name, fields[name]); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Set assigns a field by name. Unknown names and values whose type differs
// from FieldTypes are rejected.
func (p *Production) Set(name string, value any) error {
	want, ok := FieldTypes[name]
	if !ok {
		return fmt.Errorf("%w: unknown production field %q", common.ErrInvalidInput, name)
	}
	if got := reflect.TypeOf(value); got != want {
		return fmt.Errorf("%w: field %q wants %s, got %v", common.ErrInvalidInput, name, want, got)
	}
	switch name {
	case constants.FieldPDF:
		p.SetPDF(value.(string))
	case constants.FieldMetadata:
		p.SetMetadata(value.(Metadata))
	case constants.FieldText:
		p.SetText(value.(string))
	case constants.FieldArticleDict:
		p.SetArticleDict(value.(map[string]any))
	case constants.FieldAuthors:
		p.SetAuthors(value.([]Author))
	case constants.FieldTitle:
		p.SetTitle(value.(string))
	case constants.FieldAbstract:
		p.SetAbstract(value.(string))
	case constants.FieldFigures:
		p.SetFigures(value.([]image.Image))
	case constants.FieldEquations:
		p.SetEquations(value.([]image.Image))
	}
	return nil
}

// Has reports whether the named field has been set.
func (p *Production) Has(name string) bool {
	_, ok := p.present[name]
	return ok
}

// Fields lists the names of set fields in sorted order.
func (p *Production) Fields() []string {
	out := make([]string, 0, len(p.present))
	for name := range p.present {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *Production) mark(name string) {
	if p.present == nil {
		p.present = make(map[string]struct{}, len(FieldTypes))
	}
	p.present[name] = struct{}{}
}

func (p *Production) SetPDF(path string) { p.pdf = path; p.mark(constants.FieldPDF) }

func (p *Production) SetMetadata(m Metadata) { p.metadata = m; p.mark(constants.FieldMetadata) }

func (p *Production) SetText(text string) { p.text = text; p.mark(constants.FieldText) }

func (p *Production) SetArticleDict(m map[string]any) {
	p.article = m
	p.mark(constants.FieldArticleDict)
}

func (p *Production) SetAuthors(authors []Author) {
	p.authors = authors
	p.mark(constants.FieldAuthors)
}

func (p *Production) SetTitle(title string) { p.title = title; p.mark(constants.FieldTitle) }

func (p *Production) SetAbstract(abstract string) {
	p.abstract = abstract
	p.mark(constants.FieldAbstract)
}

func (p *Production) SetFigures(imgs []image.Image) {
	p.figures = imgs
	p.mark(constants.FieldFigures)
}

func (p *Production) SetEquations(imgs []image.Image) {
	p.equations = imgs
	p.mark(constants.FieldEquations)
}

func (p *Production) PDF() (string, bool) { return p.pdf, p.Has(constants.FieldPDF) }

func (p *Production) Metadata() (Metadata, bool) {
	return p.metadata, p.Has(constants.FieldMetadata)
}

func (p *Production) Text() (string, bool) { return p.text, p.Has(constants.FieldText) }

func (p *Production) ArticleDict() (map[string]any, bool) {
	return p.article, p.Has(constants.FieldArticleDict)
}

func (p *Production) Authors() ([]Author, bool) { return p.authors, p.Has(constants.FieldAuthors) }

func (p *Production) Title() (string, bool) { return p.title, p.Has(constants.FieldTitle) }

func (p *Production) Abstract() (string, bool) { return p.abstract, p.Has(constants.FieldAbstract) }

func (p *Production) Figures() ([]image.Image, bool) {
	return p.figures, p.Has(constants.FieldFigures)
}

func (p *Production) Equations() ([]image.Image, bool) {
	return p.equations, p.Has(constants.FieldEquations)
}

// MarshalJSON emits the set fields. Images are reported as counts.
func (p *Production) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.present))
	for name := range p.present {
		switch name {
		case constants.FieldPDF:
			out[name] = p.pdf
		case constants.FieldMetadata:
			out[name] = p.metadata
		case constants.FieldText:
			out[name] = p.text
		case constants.FieldArticleDict:
			out[name] = p.article
		case constants.FieldAuthors:
			out[name] = p.authors
		case constants.FieldTitle:
			out[name] = p.title
		case constants.FieldAbstract:
			out[name] = p.abstract
		case constants.FieldFigures:
			out[name] = len(p.figures)
		case constants.FieldEquations:
			out[name] = len(p.equations)
		}
	}
	return json.Marshal(out)
}
