package region

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

type Config struct {
	DPI      float64 // default constants.DefaultDPI
	Method   string  // constants.RenderCropThenRaster (default) or constants.RenderRasterThenCrop
	Pdftoppm string  // pdftoppm binary for crop-render
}

// Extractor renders bounding boxes from a PDF.
type Extractor struct {
	dpi      float64
	renderer Renderer
	runner   Runner
	pages    PageCounter
	logger   *slog.Logger

	mu    sync.Mutex
	cache pageCache
}

type pageCache struct {
	path  string
	mod   time.Time
	size  int64
	sizes []PageSize
}

type Option func(*Extractor)

// WithRenderer overrides the renderer picked from Config.Method.
func WithRenderer(r Renderer) Option { return func(e *Extractor) { e.renderer = r } }

// WithPageCounter overrides the pdfcpu page counter.
func WithPageCounter(p PageCounter) Option { return func(e *Extractor) { e.pages = p } }

// WithRunner sets the command runner used by the pdftoppm renderer. It is
// applied after every other option, so it also reaches a *PopplerRenderer
// passed through WithRenderer. NewExtractor fails when the selected renderer
// does not run pdftoppm.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DPI <= 0 {
		cfg.DPI = constants.DefaultDPI
	}
	e := &Extractor{dpi: cfg.DPI, pages: PDFCPUPages{}, logger: logger}
	switch cfg.Method {
	case "", constants.RenderCropThenRaster:
		e.renderer = NewPopplerRenderer(cfg.Pdftoppm, nil, logger)
	case constants.RenderRasterThenCrop:
		e.renderer = FitzRenderer{}
	default:
		return nil, fmt.Errorf("%w: unknown render method %q", common.ErrInvalidInput, cfg.Method)
	}
	for _, o := range opts {
		o(e)
	}
	if e.runner != nil {
		pr, ok := e.renderer.(*PopplerRenderer)
		if !ok {
			return nil, fmt.Errorf("%w: a command runner needs the %s renderer, got %T",
				common.ErrInvalidInput, constants.RenderCropThenRaster, e.renderer)
		}
		pr.runner = e.runner
	}
	return e, nil
}

// DPI returns the render resolution.
func (e *Extractor) DPI() float64 { return e.dpi }

// RenderRegion rasterizes bbox from pdfPath. A page outside the document
// fails with *common.PageIndexError.
func (e *Extractor) RenderRegion(ctx context.Context, pdfPath string, bbox entity.PDFBBox) (image.Image, error) {
	sizes, err := e.pageSizes(pdfPath)
	if err != nil {
		return nil, err
	}
	if bbox.Page < 1 || bbox.Page > len(sizes) {
		return nil, &common.PageIndexError{Page: bbox.Page, PageCount: len(sizes)}
	}

	if bbox.Empty() {
		return nil, fmt.Errorf("%w: %s has no area", common.ErrInvalidInput, bbox)
	}

	page := sizes[bbox.Page-1]
	rect := PixelRect(bbox, e.dpi).Intersect(PixelRect(entity.PDFBBox{
		Page: bbox.Page, X1: page.Width, Y1: page.Height,
	}, e.dpi))
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %s has no area inside the page", common.ErrInvalidInput, bbox)
	}

	start := time.Now()
	img, err := e.renderer.Render(ctx, pdfPath, bbox.Page, rect, e.dpi)
	if err != nil {
		e.logger.Warn("region.render.failed", "path", pdfPath, "bbox", bbox.String(), "error", err)
		return nil, err
	}
	e.logger.Debug("region.render.ok",
		"path", pdfPath,
		"page", bbox.Page,
		"px", rect.String(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return img, nil
}

// PixelRect converts a box in points to pixels at dpi, growing outward to
// whole pixels.
func PixelRect(b entity.PDFBBox, dpi float64) image.Rectangle {
	scale := dpi / 72
	return image.Rect(
		int(math.Floor(b.X0*scale)),
		int(math.Floor(b.Y0*scale)),
		int(math.Ceil(b.X1*scale)),
		int(math.Ceil(b.Y1*scale)),
	)
}

func (e *Extractor) pageSizes(pdfPath string) ([]PageSize, error) {
	st, err := os.Stat(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.cache
	if c.path == pdfPath && c.mod.Equal(st.ModTime()) && c.size == st.Size() {
		return c.sizes, nil
	}
	sizes, err := e.pages.PageSizes(pdfPath)
	if err != nil {
		return nil, err
	}
	e.cache = pageCache{path: pdfPath, mod: st.ModTime(), size: st.Size(), sizes: sizes}
	return sizes, nil
}
