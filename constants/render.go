package constants

// Region render methods.
const (
	// RenderCropThenRaster crops the page in PDF space and rasterizes only the crop (pdftoppm).
	RenderCropThenRaster = "crop-render"
	// RenderRasterThenCrop rasterizes the full page and crops the raster (MuPDF).
	RenderRasterThenCrop = "render-crop"
)

// DefaultDPI is the render resolution used for figure and equation crops.
const DefaultDPI = 300

// RenderMethods returns the accepted render method names.
func RenderMethods() []string {
	return []string{RenderCropThenRaster, RenderRasterThenCrop}
}
