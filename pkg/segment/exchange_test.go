package segment

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseSetRoundTrip(t *testing.T) {
	phases := []*Phase{
		brightPhase(1),
		{
			ID: 2, Name: "zone", DisplayColor: "#00ffff",
			Samples:  []Sample{{RGB: RGB8{1, 2, 3}}},
			BCAccept: &BCPolygon{Vertices: []BCPoint{{20, 0}, {200, 0}, {200, 60}, {20, 60}}},
		},
		darkPhase(3),
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "phases.yaml")
	require.NoError(t, SavePhaseSet(phases, file))

	loaded, err := LoadPhaseSet(file)
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	// Definition order and criteria survive
	assert.Equal(t, "bright", loaded[0].Name)
	assert.Equal(t, "zone", loaded[1].Name)
	assert.Equal(t, "dark", loaded[2].Name)
	assert.Equal(t, phases[0].LabAccept.L, loaded[0].LabAccept.L)
	assert.Equal(t, phases[1].BCAccept.Vertices, loaded[1].BCAccept.Vertices)
	assert.Nil(t, loaded[1].LabAccept)

	// The round-trip contract: reclassifying the same image with the
	// loaded set reproduces the identical label raster
	img := testImage(16, 9, func(x, y int) color.NRGBA {
		return color.NRGBA{uint8(x * 16), uint8(y * 28), uint8((x + y) * 9), 255}
	})
	before, err := ClassifyImage(phases, img)
	require.NoError(t, err)
	after, err := ClassifyImage(loaded, img)
	require.NoError(t, err)
	assert.Equal(t, before.Labels, after.Labels)
}

func TestParsePhaseSetRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":       "phases: []\n",
		"not yaml":    "{{{{",
		"bad id":      "phases:\n  - id: 0\n    name: a\n    displaycolor: \"#ff0000\"\n",
		"dup id":      "phases:\n  - id: 1\n    name: a\n    displaycolor: \"#ff0000\"\n  - id: 1\n    name: b\n    displaycolor: \"#00ff00\"\n",
		"dup name":    "phases:\n  - id: 1\n    name: a\n    displaycolor: \"#ff0000\"\n  - id: 2\n    name: A\n    displaycolor: \"#00ff00\"\n",
		"bad color":   "phases:\n  - id: 1\n    name: a\n    displaycolor: chartreuse\n",
		"min>max":     "phases:\n  - id: 1\n    name: a\n    displaycolor: \"#ff0000\"\n    labaccept:\n      l: {min: 90, max: 10}\n      a: {min: -128, max: 127}\n      b: {min: -128, max: 127}\n",
		"thin poly":   "phases:\n  - id: 1\n    name: a\n    displaycolor: \"#ff0000\"\n    bcaccept:\n      vertices:\n        - {brightness: 0, contrast: 0}\n        - {brightness: 1, contrast: 1}\n",
		"unknown key": "phases:\n  - id: 1\n    name: a\n    displaycolor: \"#ff0000\"\n    wibble: 7\n",
	}
	for name, doc := range cases {
		_, err := ParsePhaseSet([]byte(doc))
		assert.Error(t, err, "case '%s' must fail as a whole", name)
	}
}

func TestSessionFromPhases(t *testing.T) {
	loaded := []*Phase{
		{ID: 3, Name: "a", DisplayColor: "#ff0000"},
		{ID: 7, Name: "b", DisplayColor: "#00ff00"},
	}
	s := SessionFromPhases(loaded)

	p, err := s.AddPhase(Phase{Name: "c", DisplayColor: "#0000ff"})
	require.NoError(t, err)
	assert.Equal(t, 8, p.ID, "id assignment resumes above the highest loaded id")
	assert.Equal(t, []*Phase{loaded[0], loaded[1], p}, s.Phases())
}
