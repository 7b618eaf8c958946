package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rasterWithLabels builds a raster where column x gets label labelFor(x),
// identical down each column.
func rasterWithLabels(w, h int, labelFor func(x int) int32) *LabelRaster {
	lr := &LabelRaster{W: w, H: h, Labels: make([]int32, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lr.Labels[y*w+x] = labelFor(x)
		}
	}
	return lr
}

func TestDistributionBinCoverage(t *testing.T) {
	// Bins tile [0,W) exactly: no gaps, no overlaps, for awkward W/N combos
	for _, tc := range []struct{ w, n int }{
		{100, 50}, {101, 50}, {99, 50}, {7, 3}, {50, 50}, {1, 1}, {640, 7},
	} {
		lr := rasterWithLabels(tc.w, 2, func(x int) int32 { return 0 })
		bins, err := Distribution(lr, tc.n)
		require.NoError(t, err, "W=%d N=%d", tc.w, tc.n)

		next := 0
		for i, b := range bins {
			assert.Equal(t, next, b.Columns[0], "W=%d N=%d bin %d start", tc.w, tc.n, i)
			assert.Greater(t, b.Columns[1], b.Columns[0], "W=%d N=%d bin %d non-empty", tc.w, tc.n, i)
			next = b.Columns[1]
		}
		assert.Equal(t, tc.w, next, "W=%d N=%d bins end at W", tc.w, tc.n)
	}
}

func TestDistributionBinBoundaryFormula(t *testing.T) {
	lr := rasterWithLabels(103, 1, func(x int) int32 { return 0 })
	bins, err := Distribution(lr, 10)
	require.NoError(t, err)
	require.Len(t, bins, 10)
	for i, b := range bins {
		assert.Equal(t, i*103/10, b.Columns[0])
		assert.Equal(t, (i+1)*103/10, b.Columns[1])
	}
}

func TestDistributionFractions(t *testing.T) {
	// Left half phase 1, right half phase 2, width 100: with 10 bins each
	// bin is pure
	lr := rasterWithLabels(100, 10, func(x int) int32 {
		if x < 50 {
			return 1
		}
		return 2
	})

	bins, err := Distribution(lr, 10)
	require.NoError(t, err)
	for i, b := range bins {
		if i < 5 {
			assert.InDelta(t, 100.0, b.Fractions[1], 1e-9, "bin %d", i)
			assert.InDelta(t, 0.0, b.Fractions[2], 1e-9, "bin %d", i)
		} else {
			assert.InDelta(t, 100.0, b.Fractions[2], 1e-9, "bin %d", i)
		}
	}
}

func TestDistributionPartitionInvariant(t *testing.T) {
	lr := rasterWithLabels(97, 13, func(x int) int32 { return int32(x % 3) }) // ids 0,1,2
	bins, err := Distribution(lr, 11)
	require.NoError(t, err)

	for i, b := range bins {
		sum := 0.0
		for _, f := range b.Fractions {
			sum += f
		}
		assert.InDelta(t, 100.0, sum, 1e-9, "bin %d", i)
	}
}

func TestDistributionClampsBins(t *testing.T) {
	lr := rasterWithLabels(5, 3, func(x int) int32 { return 0 })
	bins, err := Distribution(lr, 50)
	require.NoError(t, err)
	assert.Len(t, bins, 5, "bin count clamps to width")

	_, err = Distribution(lr, 0)
	assert.Error(t, err)
}

func TestPhysicalRect(t *testing.T) {
	r := PhysicalRect{X0: 10, Y0: 0, X1: 20, Y1: 4}
	assert.Equal(t, 15.0, r.CenterX())
	assert.Equal(t, 2.0, r.CenterY())
	assert.Equal(t, 10.0, r.Width())
	assert.InDelta(t, 15.0, r.PhysicalX(50, 100), 1e-9)
}

func TestWholeImage(t *testing.T) {
	lr := rasterWithLabels(10, 10, func(x int) int32 {
		if x < 3 {
			return 1
		}
		return 0
	})
	rs, err := ComputeStats(lr, nil)
	require.NoError(t, err)

	pt := WholeImage(rs, PhysicalRect{X0: 0, Y0: 0, X1: 8, Y1: 2})
	assert.Equal(t, 4.0, pt.CenterX)
	assert.Equal(t, 1.0, pt.CenterY)
	assert.InDelta(t, 30.0, pt.Fractions[1], 1e-9)
	assert.InDelta(t, 70.0, pt.Fractions[Unclassified], 1e-9)
}
