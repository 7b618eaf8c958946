package sbatch

import (
	"bytes"
	"fmt"
	"image"
	"time"

	// Pull in the decoders for every format a microscope lab has ever
	// handed us. TIFF and BMP come from x/image, the rest are stdlib.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/rwcarlsen/goexif/exif"
)

// DecodeImage decodes raw upload bytes into an image. The pixel-count
// guard runs against the header *before* the full decode, so an oversized
// upload fails fast instead of exhausting memory (maxPixels <= 0 disables
// the guard).
func DecodeImage(data []byte, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decode: empty image data")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode header: %v", err)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("decode: %s image is %dx%d = %d px, over the %d px limit",
			format, cfg.Width, cfg.Height, cfg.Width*cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %v", format, err)
	}
	return img, nil
}

// CaptureTime pulls the EXIF capture timestamp out of the upload, if there
// is one. Micrograph files from scope software often carry it; plenty
// don't, so absence is not an error.
func CaptureTime(data []byte) *time.Time {
	ex, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	t, err := ex.DateTime()
	if err != nil {
		return nil
	}
	return &t
}
