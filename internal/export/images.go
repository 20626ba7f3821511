package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
)

// Image file formats accepted by WriteImages.
const (
	FormatPNG  = "png"
	FormatTIFF = "tiff"
)

// WriteImages writes imgs to dir as {prefix}-{n}.{format}, n counting from 1,
// and returns the paths in order.
func WriteImages(dir, prefix, format string, imgs []image.Image) ([]string, error) {
	format = strings.ToLower(format)
	ext := format
	switch format {
	case FormatPNG:
	case FormatTIFF, "tif":
		format, ext = FormatTIFF, "tiff"
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if len(imgs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(imgs))
	for i, img := range imgs {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.%s", prefix, i+1, ext))
		if err := writeImage(path, format, img); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeImage(path, format string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatTIFF:
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
