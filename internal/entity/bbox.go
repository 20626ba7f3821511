package entity

import "fmt"

// PDFBBox is a page-relative rectangle in PDF points, origin top-left.
// Page is 1-based.
type PDFBBox struct {
	Page int     `json:"page"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// Width returns X1 - X0.
func (b PDFBBox) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1 - Y0.
func (b PDFBBox) Height() float64 { return b.Y1 - b.Y0 }

// Empty reports a box with no area.
func (b PDFBBox) Empty() bool { return b.Width() <= 0 || b.Height() <= 0 }

func (b PDFBBox) String() string {
	return fmt.Sprintf("PDFBBox(page=%d, x0=%g, y0=%g, x1=%g, y1=%g)", b.Page, b.X0, b.Y0, b.X1, b.Y1)
}
