package segment

import "fmt"

// PhysicalRect is the user-supplied physical-coordinate rectangle for one
// image: (X0,Y0) is the left/top corner of the micrograph in sample
// coordinates (whatever unit the user works in), (X1,Y1) the right/bottom.
type PhysicalRect struct {
	X0, Y0, X1, Y1 float64
}

func (r PhysicalRect) CenterX() float64 { return (r.X0 + r.X1) / 2.0 }
func (r PhysicalRect) CenterY() float64 { return (r.Y0 + r.Y1) / 2.0 }
func (r PhysicalRect) Width() float64   { return abs(r.X1 - r.X0) }
func (r PhysicalRect) Height() float64  { return abs(r.Y1 - r.Y0) }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// PhysicalX maps a pixel column to its physical X coordinate, given the
// image width the rectangle spans.
func (r PhysicalRect) PhysicalX(pixelX float64, imageWidth int) float64 {
	if imageWidth == 0 {
		return r.X0
	}
	return r.X0 + pixelX/float64(imageWidth)*(r.X1-r.X0)
}

// BinFraction is the phase composition of one vertical strip of columns.
// Fractions are percentages keyed by phase id; the Unclassified bucket is
// always present, and all values sum to 100 per bin.
type BinFraction struct {
	BinCenterX float64 // pixel coords, center of the column range
	Columns    [2]int  // [from, to) pixel column range
	Fractions  map[int32]float64
}

// Distribution carves the raster into bins vertical strips along X (bin i
// covers columns [floor(i*W/N), floor((i+1)*W/N)) - the strips tile [0,W)
// exactly, the last bin absorbing any integer-division remainder) and
// tallies per-phase fractions in each. The result is fully materialized:
// downstream plotting wants random access, not a stream.
//
// bins is clamped to the raster width so a bin always covers at least one
// column; bins < 1 is a precondition violation.
func Distribution(lr *LabelRaster, bins int) ([]BinFraction, error) {
	if lr == nil || lr.W == 0 || lr.H == 0 {
		return nil, fmt.Errorf("distribution: empty raster")
	}
	if bins < 1 {
		return nil, fmt.Errorf("distribution: bin count %d < 1", bins)
	}
	if bins > lr.W {
		bins = lr.W
	}

	out := make([]BinFraction, 0, bins)
	for i := 0; i < bins; i++ {
		from := i * lr.W / bins
		to := (i + 1) * lr.W / bins

		counts := map[int32]int{}
		for y := 0; y < lr.H; y++ {
			row := lr.Labels[y*lr.W : (y+1)*lr.W]
			for x := from; x < to; x++ {
				counts[row[x]]++
			}
		}

		total := float64((to - from) * lr.H)
		fracs := map[int32]float64{Unclassified: 0}
		for id, n := range counts {
			fracs[id] = float64(n) / total * 100.0
		}

		out = append(out, BinFraction{
			BinCenterX: float64(from+to) / 2.0,
			Columns:    [2]int{from, to},
			Fractions:  fracs,
		})
	}
	return out, nil
}

// WholeImagePoint is the multi-image flavour of aggregation: one areal
// fraction per phase for a whole image, pinned to the physical center of
// the user's corner rectangle, so spatially distinct samples can be
// compared on one axis.
type WholeImagePoint struct {
	CenterX, CenterY float64
	Fractions        map[int32]float64
}

// WholeImage collapses a raster's stats into a single spatial point.
func WholeImage(rs *RasterStats, rect PhysicalRect) WholeImagePoint {
	fracs := map[int32]float64{}
	for id := range rs.Counts {
		fracs[id] = rs.Fraction(id)
	}
	return WholeImagePoint{
		CenterX:   rect.CenterX(),
		CenterY:   rect.CenterY(),
		Fractions: fracs,
	}
}
