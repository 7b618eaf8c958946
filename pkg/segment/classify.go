package segment

import (
	"fmt"
	"image"

	"github.com/skypies/util/histogram"
)

// Unclassified is the sentinel label for pixels no phase admits.
const Unclassified int32 = 0

// ClassifyPixel classifies one pixel against the ordered phase list: Lab
// and B/C are computed once, then the first phase whose criteria both pass
// wins. Returns the phase id, or Unclassified. Pure function - this is the
// single implementation both the interactive and the bulk path go through,
// so the two can never drift apart.
func ClassifyPixel(phases []*Phase, c RGB8) int32 {
	lab := RGBToLab(c)
	bc := BCOf(c)
	for _, p := range phases {
		if p.Admits(lab, bc) {
			return int32(p.ID)
		}
	}
	return Unclassified
}

// LabelRaster is the per-pixel classification result for one image.
// Created fresh by a raster pass and immutable afterwards.
type LabelRaster struct {
	W, H   int
	Labels []int32 // row-major, len == W*H
}

func (lr *LabelRaster) At(x, y int) int32 { return lr.Labels[y*lr.W+x] }

// ClassifyImage runs the bulk raster pass: decode every pixel once into
// Lab / BC planes, then sweep the phases in definition order over the
// still-unclassified pixels - the same shape the vectorized reference
// pipeline uses, and numerically identical to calling ClassifyPixel on
// every pixel (same transform, same constants, same order, first match
// short-circuits either way).
func ClassifyImage(phases []*Phase, img image.Image) (*LabelRaster, error) {
	if img == nil {
		return nil, fmt.Errorf("classify: nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("classify: empty image %dx%d", w, h)
	}

	n := w * h
	labs := make([]Lab, n)
	bcs := make([]BCPoint, n)
	rgbs := rgbPlane(img)
	for i, c := range rgbs {
		labs[i] = RGBToLab(c)
		bcs[i] = BCOf(c)
	}

	lr := &LabelRaster{W: w, H: h, Labels: make([]int32, n)}

	for _, p := range phases {
		if p.LabAccept == nil && p.BCAccept == nil {
			continue // inert phase, nothing to claim
		}
		id := int32(p.ID)
		for i := range lr.Labels {
			if lr.Labels[i] != Unclassified {
				continue
			}
			if p.Admits(labs[i], bcs[i]) {
				lr.Labels[i] = id
			}
		}
	}

	return lr, nil
}

// rgbPlane flattens an image to row-major RGB8, dropping alpha.
func rgbPlane(img image.Image) []RGB8 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]RGB8, 0, w*h)

	// Fast path for the decoders we actually use
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for x := 0; x < w; x++ {
				out = append(out, RGB8{row[x*4], row[x*4+1], row[x*4+2]})
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for x := 0; x < w; x++ {
				out = append(out, RGB8{row[x*4], row[x*4+1], row[x*4+2]})
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				out = append(out, RGB8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
			}
		}
	}
	return out
}

// RasterStats is the whole-image summary of one raster pass.
type RasterStats struct {
	TotalPixels    int
	Counts         map[int32]int // phase id -> pixel count; Unclassified bucket included
	BrightnessHist histogram.Histogram
}

// Fraction returns the areal fraction for a phase id, in percent.
func (rs *RasterStats) Fraction(id int32) float64 {
	if rs.TotalPixels == 0 {
		return 0
	}
	return float64(rs.Counts[id]) / float64(rs.TotalPixels) * 100.0
}

// ComputeStats tallies per-phase pixel counts and the brightness histogram
// for a raster. The source image must be the one the raster was produced
// from; a size mismatch is a defect and fails loudly.
func ComputeStats(lr *LabelRaster, img image.Image) (*RasterStats, error) {
	if lr == nil {
		return nil, fmt.Errorf("stats: nil raster")
	}
	if len(lr.Labels) != lr.W*lr.H {
		return nil, fmt.Errorf("stats: raster claims %dx%d but holds %d labels", lr.W, lr.H, len(lr.Labels))
	}

	rs := &RasterStats{
		TotalPixels:    lr.W * lr.H,
		Counts:         map[int32]int{Unclassified: 0},
		BrightnessHist: histogram.Histogram{NumBuckets: 256, ValMin: 0, ValMax: 256},
	}
	for _, id := range lr.Labels {
		rs.Counts[id]++
	}

	if img != nil {
		b := img.Bounds()
		if b.Dx() != lr.W || b.Dy() != lr.H {
			return nil, fmt.Errorf("stats: image %dx%d does not match raster %dx%d", b.Dx(), b.Dy(), lr.W, lr.H)
		}
		for _, c := range rgbPlane(img) {
			rs.BrightnessHist.Add(histogram.ScalarVal(int(BCOf(c).Brightness)))
		}
	}

	return rs, nil
}
