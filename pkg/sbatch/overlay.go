package sbatch

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"

	"github.com/segtools/phaseseg/pkg/segment"
)

// Overlay paints each classified pixel with its phase's display color,
// alpha-blended over the original; unclassified pixels pass through
// untouched. Works from the full-resolution label raster, so the overlay
// is exact at every zoom level.
func Overlay(original image.Image, lr *segment.LabelRaster, phases []*segment.Phase, alpha float64) *image.RGBA {
	bounds := original.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, lr.W, lr.H))

	// Phase display colors, pre-parsed once
	phaseCol := map[int32]colorful.Color{}
	for _, p := range phases {
		rgb := p.DisplayRGB()
		phaseCol[int32(p.ID)] = colorful.Color{
			R: float64(rgb.R) / 255.0,
			G: float64(rgb.G) / 255.0,
			B: float64(rgb.B) / 255.0,
		}
	}

	for y := 0; y < lr.H; y++ {
		for x := 0; x < lr.W; x++ {
			r, g, b, _ := original.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			base := colorful.Color{
				R: float64(r>>8) / 255.0,
				G: float64(g>>8) / 255.0,
				B: float64(b>>8) / 255.0,
			}

			px := base
			if pc, ok := phaseCol[lr.At(x, y)]; ok {
				px = base.BlendRgb(pc, alpha)
			}

			pr, pg, pb := px.Clamped().RGB255()
			out.SetRGBA(x, y, color.RGBA{pr, pg, pb, 0xff})
		}
	}
	return out
}

// Preview downsamples to at most maxPx on the long edge, CatmullRom
// resampled. Previews are for display only - they are generated from
// full-resolution inputs and nothing is ever reclassified at preview
// scale. Images already small enough come back as-is.
func Preview(img image.Image, maxPx int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}
	if maxPx <= 0 || long <= maxPx {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxPx
		nh = h * maxPx / w
	} else {
		nh = maxPx
		nw = w * maxPx / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
