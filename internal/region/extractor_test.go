package region

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/papercast-grobid/constants"
	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

type stubPages struct {
	sizes []PageSize
	calls int
}

func (s *stubPages) PageSizes(string) ([]PageSize, error) {
	s.calls++
	return s.sizes, nil
}

type stubRenderer struct {
	page int
	rect image.Rectangle
}

func (s *stubRenderer) Render(_ context.Context, _ string, page int, rect image.Rectangle, _ float64) (image.Image, error) {
	s.page, s.rect = page, rect
	return image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy())), nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func tempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func letterPages(n int) *stubPages {
	sizes := make([]PageSize, n)
	for i := range sizes {
		sizes[i] = PageSize{Width: 612, Height: 792}
	}
	return &stubPages{sizes: sizes}
}

func TestRenderRegion(t *testing.T) {
	pages := letterPages(3)
	r := &stubRenderer{}
	e, err := NewExtractor(Config{DPI: 144}, quietLogger(), WithPageCounter(pages), WithRenderer(r))
	if err != nil {
		t.Fatal(err)
	}
	path := tempPDF(t)

	img, err := e.RenderRegion(context.Background(), path, entity.PDFBBox{Page: 2, X0: 10, Y0: 21, X1: 40, Y1: 61})
	if err != nil {
		t.Fatalf("RenderRegion: %v", err)
	}
	if r.page != 2 {
		t.Fatalf("rendered page %d, want 2", r.page)
	}
	if want := image.Rect(20, 42, 80, 122); r.rect != want {
		t.Fatalf("pixel rect = %v, want %v", r.rect, want)
	}
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 80 {
		t.Fatalf("image bounds = %v", img.Bounds())
	}

	// Clamped to the page and served from the page cache.
	if _, err := e.RenderRegion(context.Background(), path, entity.PDFBBox{Page: 1, X0: 600, Y0: 780, X1: 700, Y1: 900}); err != nil {
		t.Fatalf("RenderRegion: %v", err)
	}
	if want := image.Rect(1200, 1560, 1224, 1584); r.rect != want {
		t.Fatalf("clamped rect = %v, want %v", r.rect, want)
	}
	if pages.calls != 1 {
		t.Fatalf("page counter calls = %d, want 1", pages.calls)
	}
}

func TestRenderRegion_PageOutOfRange(t *testing.T) {
	e, err := NewExtractor(Config{}, quietLogger(), WithPageCounter(letterPages(2)), WithRenderer(&stubRenderer{}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.RenderRegion(context.Background(), tempPDF(t), entity.PDFBBox{Page: 3, X0: 1, Y0: 1, X1: 5, Y1: 5})
	var pie *common.PageIndexError
	if !errors.As(err, &pie) || !errors.Is(err, common.ErrPageIndex) {
		t.Fatalf("err = %v, want PageIndexError", err)
	}
	if pie.Page != 3 || pie.PageCount != 2 {
		t.Fatalf("PageIndexError = %+v", pie)
	}
}

func TestRenderRegion_NoArea(t *testing.T) {
	e, err := NewExtractor(Config{}, quietLogger(), WithPageCounter(letterPages(1)), WithRenderer(&stubRenderer{}))
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range []entity.PDFBBox{
		{Page: 1, X0: 10, Y0: 10, X1: 10, Y1: 20},
		{Page: 1, X0: 700, Y0: 10, X1: 800, Y1: 20},
	} {
		if _, err := e.RenderRegion(context.Background(), tempPDF(t), b); !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("RenderRegion(%v) err = %v, want ErrInvalidInput", b, err)
		}
	}
}

func TestNewExtractor_UnknownMethod(t *testing.T) {
	if _, err := NewExtractor(Config{Method: "ocr"}, quietLogger()); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	e, err := NewExtractor(Config{Method: constants.RenderRasterThenCrop}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.renderer.(FitzRenderer); !ok {
		t.Fatalf("renderer = %T, want FitzRenderer", e.renderer)
	}
	if e.DPI() != constants.DefaultDPI {
		t.Fatalf("DPI = %v, want %d", e.DPI(), constants.DefaultDPI)
	}
}

// pngRunner stands in for pdftoppm: it records the arguments and writes a
// PNG of the requested size at the output prefix.
type pngRunner struct {
	name string
	args []string
}

func (p *pngRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	p.name, p.args = name, args
	var w, h int
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-W":
			w = atoi(args[i+1])
		case "-H":
			h = atoi(args[i+1])
		}
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(0, 0, color.Gray{Y: 255})
	f, err := os.Create(args[len(args)-1] + ".png")
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return nil, nil, png.Encode(f, img)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func TestPopplerRenderer(t *testing.T) {
	runner := &pngRunner{}
	pr := NewPopplerRenderer("", runner, quietLogger())

	img, err := pr.Render(context.Background(), "/papers/a.pdf", 4, image.Rect(10, 20, 110, 70), 300)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Fatalf("bounds = %v, want 100x50", img.Bounds())
	}
	if runner.name != "pdftoppm" {
		t.Fatalf("binary = %q", runner.name)
	}
	got := strings.Join(runner.args[:len(runner.args)-1], " ")
	want := "-f 4 -l 4 -r 300 -x 10 -y 20 -W 100 -H 50 -png -singlefile /papers/a.pdf"
	if got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestNewExtractor_WithRunner(t *testing.T) {
	bbox := entity.PDFBBox{Page: 1, X0: 0, Y0: 0, X1: 36, Y1: 36}

	for name, opts := range map[string][]Option{
		"default renderer": {WithRunner(&pngRunner{})},
		"runner first":     {WithRunner(&pngRunner{}), WithRenderer(NewPopplerRenderer("pdftoppm", nil, quietLogger()))},
		"runner last":      {WithRenderer(NewPopplerRenderer("pdftoppm", nil, quietLogger())), WithRunner(&pngRunner{})},
	} {
		t.Run(name, func(t *testing.T) {
			e, err := NewExtractor(Config{DPI: 144}, quietLogger(), append(opts, WithPageCounter(letterPages(1)))...)
			if err != nil {
				t.Fatalf("NewExtractor: %v", err)
			}
			img, err := e.RenderRegion(context.Background(), tempPDF(t), bbox)
			if err != nil {
				t.Fatalf("RenderRegion: %v", err)
			}
			if img.Bounds().Dx() != 72 || img.Bounds().Dy() != 72 {
				t.Fatalf("bounds = %v, want 72x72 from the stub runner", img.Bounds())
			}
		})
	}

	_, err := NewExtractor(Config{Method: constants.RenderRasterThenCrop}, quietLogger(), WithRunner(&pngRunner{}))
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("render-crop with runner err = %v, want ErrInvalidInput", err)
	}
	_, err = NewExtractor(Config{}, quietLogger(), WithRenderer(&stubRenderer{}), WithRunner(&pngRunner{}))
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("custom renderer with runner err = %v, want ErrInvalidInput", err)
	}
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, string, *slog.Logger, ...string) ([]byte, []byte, error) {
	return nil, []byte("Syntax Error"), errors.New("exit status 1")
}

func TestPopplerRenderer_Failure(t *testing.T) {
	pr := NewPopplerRenderer("pdftoppm", failingRunner{}, quietLogger())
	if _, err := pr.Render(context.Background(), "a.pdf", 1, image.Rect(0, 0, 1, 1), 72); err == nil {
		t.Fatal("expected error")
	}
}
