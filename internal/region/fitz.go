package region

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer rasterizes the whole page with MuPDF, then crops the raster.
type FitzRenderer struct{}

func (FitzRenderer) Render(ctx context.Context, pdfPath string, page int, rect image.Rectangle, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d outside 1..%d", page, doc.NumPage())
	}
	full, err := doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}

	crop := rect.Add(full.Bounds().Min).Intersect(full.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("crop %v outside rendered page %v", rect, full.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), full, crop.Min, draw.Src)
	return out, nil
}
