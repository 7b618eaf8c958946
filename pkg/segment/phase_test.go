package segment

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDsMonotonicNeverReused(t *testing.T) {
	s := NewSession()
	a, err := s.AddPhase(Phase{Name: "a", DisplayColor: "#ff0000"})
	require.NoError(t, err)
	b, err := s.AddPhase(Phase{Name: "b", DisplayColor: "#00ff00"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)

	require.NoError(t, s.RemovePhase(a.ID))
	c, err := s.AddPhase(Phase{Name: "c", DisplayColor: "#0000ff"})
	require.NoError(t, err)
	assert.Equal(t, 3, c.ID, "removed ids are never reused")
	assert.Nil(t, s.Phase(1))
	assert.NotNil(t, s.Phase(3))
}

func TestSessionRejectsDuplicateNames(t *testing.T) {
	s := NewSession()
	_, err := s.AddPhase(Phase{Name: "Ferrite", DisplayColor: "#ff0000"})
	require.NoError(t, err)
	_, err = s.AddPhase(Phase{Name: "ferrite", DisplayColor: "#00ff00"})
	assert.Error(t, err, "names are unique case-insensitively")
}

func TestSessionRejectsInvalidPhase(t *testing.T) {
	s := NewSession()
	for _, p := range []Phase{
		{Name: "", DisplayColor: "#ff0000"},
		{Name: "x", DisplayColor: "not-a-color"},
		{Name: "y", DisplayColor: "#ff0000", LabAccept: &LabBox{L: Interval{90, 10}}},
		{Name: "z", DisplayColor: "#ff0000", BCAccept: &BCPolygon{Vertices: []BCPoint{{0, 0}, {1, 1}}}},
	} {
		_, err := s.AddPhase(p)
		assert.Error(t, err, "phase %+v", p)
	}
	assert.Empty(t, s.Phases(), "nothing installed from rejected phases")
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewSession()
	p, err := s.AddPhase(Phase{Name: "a", DisplayColor: "#ff0000", LabAccept: labWideOpen()})
	require.NoError(t, err)

	snap := s.Snapshot()

	// Mutate the live session after the snapshot
	p.LabAccept.L = Interval{99, 100}
	p.AddSample(image.Point{1, 2}, RGB8{3, 4, 5})
	require.NoError(t, s.RemovePhase(p.ID))

	require.Len(t, snap, 1)
	assert.Equal(t, Interval{0, 100}, snap[0].LabAccept.L)
	assert.Empty(t, snap[0].Samples)
}

func TestAddAndClearSamples(t *testing.T) {
	p := Phase{Name: "a", DisplayColor: "#ff0000"}
	p.AddSample(image.Point{0, 0}, RGB8{10, 20, 30})
	p.AddSample(image.Point{1, 0}, RGB8{11, 21, 31})
	assert.Len(t, p.Samples, 2)
	p.ClearSamples()
	assert.Empty(t, p.Samples)
}

func TestSuggestLabBox(t *testing.T) {
	p := Phase{Name: "bright", DisplayColor: "#ffffff"}
	_, err := p.SuggestLabBox(2)
	assert.Error(t, err, "needs samples")

	// Near-white samples: suggested box should sit high on L, near 0 on a/b
	for i, c := range []RGB8{{250, 250, 250}, {245, 246, 247}, {252, 251, 250}, {240, 241, 242}} {
		p.AddSample(image.Point{i, 0}, c)
	}
	box, err := p.SuggestLabBox(2)
	require.NoError(t, err)

	assert.Greater(t, box.L.Min, 90.0)
	assert.LessOrEqual(t, box.L.Max, 100.0)
	assert.LessOrEqual(t, box.L.Min, box.L.Max)
	for _, s := range p.Samples {
		assert.True(t, box.Contains(RGBToLab(s.RGB)), "sample %v inside suggested box", s.RGB)
	}
}

func TestDisplayRGB(t *testing.T) {
	p := Phase{Name: "a", DisplayColor: "#c04040"}
	assert.Equal(t, RGB8{0xc0, 0x40, 0x40}, p.DisplayRGB())

	bad := Phase{Name: "b", DisplayColor: "nope"}
	assert.Equal(t, RGB8{0x88, 0x88, 0x88}, bad.DisplayRGB())
}
