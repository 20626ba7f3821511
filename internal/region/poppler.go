package region

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Renderer rasterizes a pixel rectangle of one page at dpi. page is 1-based;
// rect is in pixels at dpi with a top-left origin.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, page int, rect image.Rectangle, dpi float64) (image.Image, error)
}

// PopplerRenderer asks pdftoppm to rasterize only the crop rectangle.
type PopplerRenderer struct {
	Binary string // default "pdftoppm"
	runner Runner
	logger *slog.Logger
}

func NewPopplerRenderer(binary string, r Runner, logger *slog.Logger) *PopplerRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if r == nil {
		r = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerRenderer{Binary: binary, runner: r, logger: logger}
}

func (p *PopplerRenderer) Render(ctx context.Context, pdfPath string, page int, rect image.Rectangle, dpi float64) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "papercast-crop-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "crop")
	pg := strconv.Itoa(page)
	args := []string{
		"-f", pg, "-l", pg,
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-x", strconv.Itoa(rect.Min.X),
		"-y", strconv.Itoa(rect.Min.Y),
		"-W", strconv.Itoa(rect.Dx()),
		"-H", strconv.Itoa(rect.Dy()),
		"-png", "-singlefile",
		pdfPath, prefix,
	}
	if _, errb, err := p.runner.Run(ctx, p.Binary, p.logger, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (%s)", err, truncate(string(errb), 512))
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no output: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode pdftoppm png: %w", err)
	}
	return img, nil
}
