package region

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/papercast-grobid/internal/common"
	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name string
		attr string
		want entity.PDFBBox
	}{
		{"rounds before adding", "1,10.2,20.7,30,40", entity.PDFBBox{Page: 1, X0: 10, Y0: 21, X1: 40, Y1: 61}},
		{"half to even", "2,0.5,1.5,2.5,3.5", entity.PDFBBox{Page: 2, X0: 0, Y0: 2, X1: 2, Y1: 6}},
		{"page truncated", "3.9,1,1,1,1", entity.PDFBBox{Page: 3, X0: 1, Y0: 1, X1: 2, Y1: 2}},
		{"spaces", " 1, 5 ,6,7 , 8", entity.PDFBBox{Page: 1, X0: 5, Y0: 6, X1: 12, Y1: 14}},
	}
	l := NewLocator(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.ParseBBox(tt.attr)
			if !ok {
				t.Fatalf("ParseBBox(%q) not ok", tt.attr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("bbox mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBBox_Malformed(t *testing.T) {
	tests := []string{
		"1,10,20,30",
		"1,10,20,30,40,50",
		"",
		"a,b,c,d,e",
		"1,10,20,x,40",
		"1,NaN,20,30,40",
		"1,10,Inf,30,40",
		"0,10,20,30,40",
		"-1,10,20,30,40",
		"1,10,20,30,40;1,10,20,30,40",
	}
	for _, attr := range tests {
		t.Run(attr, func(t *testing.T) {
			var logs bytes.Buffer
			l := NewLocator(slog.New(slog.NewTextHandler(&logs, nil)))
			if b, ok := l.ParseBBox(attr); ok {
				t.Fatalf("ParseBBox(%q) = %v, want none", attr, b)
			}
			if !strings.Contains(logs.String(), "region.coords.malformed") {
				t.Fatalf("no warning logged for %q: %s", attr, logs.String())
			}
			_, err := Parse(attr)
			var mce *common.MalformedCoordinateError
			if !errors.As(err, &mce) || !errors.Is(err, common.ErrMalformedCoordinate) {
				t.Fatalf("Parse(%q) err = %v, want MalformedCoordinateError", attr, err)
			}
		})
	}
}

func TestParseBBox_NonNegativeSizeKeepsOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		attr := fmt.Sprintf("%d,%.3f,%.3f,%.3f,%.3f",
			1+rng.Intn(40), rng.Float64()*600, rng.Float64()*800, rng.Float64()*300, rng.Float64()*300)
		b, err := Parse(attr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", attr, err)
		}
		if b.X1 < b.X0 || b.Y1 < b.Y0 || b.Page < 1 {
			t.Fatalf("Parse(%q) = %v breaks ordering", attr, b)
		}
	}
}

func TestFirstBox(t *testing.T) {
	if got := FirstBox("3,1,2,3,4;3,5,6,7,8"); got != "3,1,2,3,4" {
		t.Fatalf("FirstBox = %q", got)
	}
	if got := FirstBox("3,1,2,3,4"); got != "3,1,2,3,4" {
		t.Fatalf("FirstBox = %q", got)
	}
}
