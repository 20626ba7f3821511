// Package region turns TEI coordinate annotations into page boxes and renders
// those boxes from the PDF as raster images.
package region

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// Locator reads GROBID coords attributes ("page,x,y,width,height").
type Locator struct {
	logger *slog.Logger
}

func NewLocator(logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{logger: logger}
}

// ParseBBox converts a coords attribute into a box. Malformed input is logged
// and reported as ok=false.
func (l *Locator) ParseBBox(attr string) (entity.PDFBBox, bool) {
	b, err := l.Locate(attr)
	return b, err == nil
}

// Locate is ParseBBox keeping the *common.MalformedCoordinateError.
func (l *Locator) Locate(attr string) (entity.PDFBBox, error) {
	b, err := Parse(attr)
	if err != nil {
		l.logger.Warn("region.coords.malformed", "coords", attr, "error", err)
		return entity.PDFBBox{}, err
	}
	l.logger.Debug("region.coords.parsed", "coords", attr, "bbox", b.String())
	return b, nil
}

// Parse is ParseBBox with the failure reason as a *common.MalformedCoordinateError.
// x0 and y0 are rounded half to even before the width and height (rounded the
// same way) are added.
func Parse(attr string) (entity.PDFBBox, error) {
	fields := strings.Split(attr, ",")
	if len(fields) != 5 {
		return entity.PDFBBox{}, &common.MalformedCoordinateError{
			Raw:    attr,
			Reason: fmt.Sprintf("want 5 fields, got %d", len(fields)),
		}
	}
	var v [5]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return entity.PDFBBox{}, &common.MalformedCoordinateError{Raw: attr, Reason: fmt.Sprintf("field %d is not a number", i+1)}
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return entity.PDFBBox{}, &common.MalformedCoordinateError{Raw: attr, Reason: fmt.Sprintf("field %d is not finite", i+1)}
		}
		v[i] = n
	}
	page := int(v[0])
	if page < 1 {
		return entity.PDFBBox{}, &common.MalformedCoordinateError{Raw: attr, Reason: "page must be >= 1"}
	}
	x0, y0 := math.RoundToEven(v[1]), math.RoundToEven(v[2])
	return entity.PDFBBox{
		Page: page,
		X0:   x0,
		Y0:   y0,
		X1:   x0 + math.RoundToEven(v[3]),
		Y1:   y0 + math.RoundToEven(v[4]),
	}, nil
}

// FirstBox returns the first box of a multi-box attribute ("box;box;...").
func FirstBox(attr string) string {
	if i := strings.IndexByte(attr, ';'); i >= 0 {
		return attr[:i]
	}
	return attr
}
