package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalInclusive(t *testing.T) {
	iv := Interval{Min: 10, Max: 20}
	assert.True(t, iv.Contains(10))
	assert.True(t, iv.Contains(20))
	assert.True(t, iv.Contains(15))
	assert.False(t, iv.Contains(10-1e-9))
	assert.False(t, iv.Contains(20+1e-9))
}

func TestLabBoxBoundaries(t *testing.T) {
	box := LabBox{
		L: Interval{80, 100},
		A: Interval{-128, 127},
		B: Interval{-128, 127},
	}
	assert.True(t, box.Contains(Lab{L: 80, A: 0, B: 0}), "exact min is admissible")
	assert.True(t, box.Contains(Lab{L: 100, A: 0, B: 0}), "exact max is admissible")
	assert.False(t, box.Contains(Lab{L: 79.9999999, A: 0, B: 0}))
	assert.False(t, box.Contains(Lab{L: 90, A: -129, B: 0}))
}

func TestLabBoxValidate(t *testing.T) {
	bad := LabBox{L: Interval{50, 40}}
	assert.Error(t, bad.Validate())
	assert.NoError(t, LabBox{L: Interval{0, 100}, A: Interval{-128, 127}, B: Interval{-128, 127}}.Validate())
}

func square(side float64) BCPolygon {
	return BCPolygon{Vertices: []BCPoint{
		{0, 0}, {side, 0}, {side, side}, {0, side},
	}}
}

func TestPolygonContains(t *testing.T) {
	sq := square(10)
	assert.True(t, sq.Contains(BCPoint{5, 5}))
	assert.False(t, sq.Contains(BCPoint{15, 5}))
	assert.False(t, sq.Contains(BCPoint{-1, 5}))
	assert.False(t, sq.Contains(BCPoint{5, 11}))
}

func TestPolygonEdgePointConsistent(t *testing.T) {
	// Points exactly on an edge get an arbitrary but stable answer
	sq := square(10)
	edge := BCPoint{10, 5}
	first := sq.Contains(edge)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, sq.Contains(edge))
	}
}

func TestPolygonConcave(t *testing.T) {
	// A 'U' shape: the notch is outside even though the bbox contains it
	u := BCPolygon{Vertices: []BCPoint{
		{0, 0}, {10, 0}, {10, 10}, {6, 10}, {6, 4}, {4, 4}, {4, 10}, {0, 10},
	}}
	require.NoError(t, u.Validate())
	assert.True(t, u.Contains(BCPoint{2, 8}))
	assert.True(t, u.Contains(BCPoint{8, 8}))
	assert.False(t, u.Contains(BCPoint{5, 8}), "inside the notch")
}

func TestPolygonValidate(t *testing.T) {
	assert.Error(t, BCPolygon{Vertices: []BCPoint{{0, 0}, {1, 1}}}.Validate(), "too few vertices")

	// Bowtie self-intersects and must be rejected at definition time
	bowtie := BCPolygon{Vertices: []BCPoint{{0, 0}, {10, 10}, {10, 0}, {0, 10}}}
	assert.Error(t, bowtie.Validate())

	assert.NoError(t, square(10).Validate())
}
