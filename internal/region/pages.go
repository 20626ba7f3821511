package region

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSize is a page's media box in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

// PageCounter enumerates the pages of a PDF.
type PageCounter interface {
	PageSizes(pdfPath string) ([]PageSize, error)
}

// PDFCPUPages reads page geometry with pdfcpu.
type PDFCPUPages struct{}

func (PDFCPUPages) PageSizes(pdfPath string) ([]PageSize, error) {
	dims, err := api.PageDimsFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu page dims: %w", err)
	}
	out := make([]PageSize, len(dims))
	for i, d := range dims {
		out[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return out, nil
}
