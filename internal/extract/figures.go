package extract

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/region"
	"github.com/joseph-ayodele/papercast-grobid/internal/tei"
)

// FigureExtractor crops figure and formula elements out of the PDF. Each
// element succeeds or fails on its own; failures are logged and reported as
// Skipped.
type FigureExtractor struct {
	locator  *region.Locator
	renderer RegionRenderer
	logger   *slog.Logger
}

func NewFigureExtractor(renderer RegionRenderer, logger *slog.Logger) *FigureExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FigureExtractor{locator: region.NewLocator(logger), renderer: renderer, logger: logger}
}

// Extract returns crops for every formula and figure in tree, in document
// order. Only a cancelled context stops it early.
func (f *FigureExtractor) Extract(ctx context.Context, pdfPath string, tree *tei.Tree) (figures, equations []image.Image, skipped []Skipped, err error) {
	equations, skipped, err = f.crop(ctx, pdfPath, "formula", tree.Formulas(), skipped)
	if err != nil {
		return nil, nil, skipped, err
	}
	figures, skipped, err = f.crop(ctx, pdfPath, "figure", tree.Figures(), skipped)
	if err != nil {
		return nil, nil, skipped, err
	}
	return figures, equations, skipped, nil
}

func (f *FigureExtractor) crop(ctx context.Context, pdfPath, kind string, nodes []*tei.Node, skipped []Skipped) ([]image.Image, []Skipped, error) {
	imgs := make([]image.Image, 0, len(nodes))
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		id, _ := n.Attr("id")
		coords, ok := n.Coords()
		if !ok || coords == "" {
			f.logger.Debug("extract.region.no_coords", "kind", kind, "id", id)
			skipped = append(skipped, Skipped{Kind: kind, ID: id, Reason: "no coords"})
			continue
		}
		// Elements spanning several areas carry ";"-separated boxes; the first
		// one holds the element's anchor.
		bbox, err := f.locator.Locate(region.FirstBox(coords))
		if err != nil {
			skipped = append(skipped, Skipped{Kind: kind, ID: id, Coords: coords, Reason: common.ErrMalformedCoordinate.Error(), Err: err})
			continue
		}
		img, err := f.renderer.RenderRegion(ctx, pdfPath, bbox)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, skipped, err
			}
			f.logger.Warn("extract.region.skipped", "kind", kind, "id", id, "coords", coords, "error", err)
			skipped = append(skipped, Skipped{Kind: kind, ID: id, Coords: coords, Reason: err.Error(), Err: err})
			continue
		}
		imgs = append(imgs, img)
	}
	return imgs, skipped, nil
}
