package segment

import "fmt"

// Interval is a closed [Min,Max] range. Both endpoints are admissible.
type Interval struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (iv Interval) Contains(v float64) bool { return v >= iv.Min && v <= iv.Max }

func (iv Interval) Validate() error {
	if iv.Min > iv.Max {
		return fmt.Errorf("interval min %g > max %g", iv.Min, iv.Max)
	}
	return nil
}

// LabBox is an axis-aligned acceptance region in Lab space. A pixel is
// admissible iff all three channels sit inside their (inclusive) interval.
type LabBox struct {
	L Interval `yaml:"l"`
	A Interval `yaml:"a"`
	B Interval `yaml:"b"`
}

func (box LabBox) Contains(c Lab) bool {
	return box.L.Contains(c.L) && box.A.Contains(c.A) && box.B.Contains(c.B)
}

func (box LabBox) Validate() error {
	for _, iv := range []Interval{box.L, box.A, box.B} {
		if err := iv.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BCPolygon is an acceptance region in the Brightness/Contrast plane,
// an ordered vertex list forming a simple polygon. The interactive tool
// lets the user draw these freehand, so Validate rejects self-intersecting
// input outright rather than inheriting ray casting's even-odd surprises.
type BCPolygon struct {
	Vertices []BCPoint `yaml:"vertices"`
}

// Contains runs the standard ray-casting test: walk the edges, toggle on
// each crossing of a horizontal ray from the point. Strict '<' on the
// intersection comparison means a point exactly on a right-hand edge is
// outside and one on a left-hand edge is inside - arbitrary, but the same
// answer every call.
func (poly BCPolygon) Contains(p BCPoint) bool {
	return rayCast(poly.Vertices, p.Brightness, p.Contrast)
}

func rayCast(vs []BCPoint, px, py float64) bool {
	inside := false
	n := len(vs)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := vs[i].Brightness, vs[i].Contrast
		xj, yj := vs[j].Brightness, vs[j].Contrast
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func (poly BCPolygon) Validate() error {
	if len(poly.Vertices) < 3 {
		return fmt.Errorf("polygon needs >= 3 vertices, has %d", len(poly.Vertices))
	}
	if i, j, found := findSelfIntersection(poly.Vertices); found {
		return fmt.Errorf("polygon self-intersects (edge %d crosses edge %d)", i, j)
	}
	return nil
}

// findSelfIntersection does the dumb O(n^2) sweep over edge pairs. Zone
// polygons are drawn by hand and have a few dozen vertices at most, so
// there's no point being clever here.
func findSelfIntersection(vs []BCPoint) (int, int, bool) {
	n := len(vs)
	for i := 0; i < n; i++ {
		a1, a2 := vs[i], vs[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Skip edges sharing a vertex; they touch by construction
			if j == i || (j+1)%n == i || j == (i+1)%n {
				continue
			}
			b1, b2 := vs[j], vs[(j+1)%n]
			if segmentsCross(a1, a2, b1, b2) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func segmentsCross(a1, a2, b1, b2 BCPoint) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b BCPoint) float64 {
	return (a.Brightness-o.Brightness)*(b.Contrast-o.Contrast) -
		(a.Contrast-o.Contrast)*(b.Brightness-o.Brightness)
}
