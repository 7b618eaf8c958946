package segment

import (
	"fmt"
	"image"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// Sample is one interactively-collected reference pixel for a phase.
type Sample struct {
	Pos image.Point `yaml:"pos"`
	RGB RGB8        `yaml:"rgb"`
}

// Phase is one user-defined material class. Either acceptance criterion may
// be absent, in which case it is trivially satisfied; a phase with *neither*
// criterion is valid but inert - it can never claim a pixel.
type Phase struct {
	ID           int        `yaml:"id"`
	Name         string     `yaml:"name"`
	DisplayColor string     `yaml:"displaycolor"` // hex, e.g. "#c04040"; visualization only
	Samples      []Sample   `yaml:"samples,omitempty"`
	LabAccept    *LabBox    `yaml:"labaccept,omitempty"`
	BCAccept     *BCPolygon `yaml:"bcaccept,omitempty"`
}

// Admits reports whether the pixel's Lab and B/C coordinates satisfy the
// phase's criteria. Both tests must pass; an absent criterion always passes.
// A phase with no criteria at all admits nothing.
func (p *Phase) Admits(lab Lab, bc BCPoint) bool {
	if p.LabAccept == nil && p.BCAccept == nil {
		return false
	}
	if p.LabAccept != nil && !p.LabAccept.Contains(lab) {
		return false
	}
	if p.BCAccept != nil && !p.BCAccept.Contains(bc) {
		return false
	}
	return true
}

func (p *Phase) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("phase %d: empty name", p.ID)
	}
	if _, err := colorful.Hex(p.DisplayColor); err != nil {
		return fmt.Errorf("phase '%s': bad display color '%s': %v", p.Name, p.DisplayColor, err)
	}
	if p.LabAccept != nil {
		if err := p.LabAccept.Validate(); err != nil {
			return fmt.Errorf("phase '%s': lab box: %v", p.Name, err)
		}
	}
	if p.BCAccept != nil {
		if err := p.BCAccept.Validate(); err != nil {
			return fmt.Errorf("phase '%s': b/c zone: %v", p.Name, err)
		}
	}
	return nil
}

// AddSample appends one reference pixel. Samples only ever grow until
// ClearSamples.
func (p *Phase) AddSample(pos image.Point, rgb RGB8) {
	p.Samples = append(p.Samples, Sample{Pos: pos, RGB: rgb})
}

func (p *Phase) ClearSamples() { p.Samples = nil }

// SuggestLabBox derives a Lab acceptance box from the phase's samples:
// mean +/- padding sigma on each channel, clamped to the Lab domain. This
// is only a starting point for the user; it never gets installed
// automatically.
func (p *Phase) SuggestLabBox(padding float64) (*LabBox, error) {
	if len(p.Samples) < 2 {
		return nil, fmt.Errorf("phase '%s': need >= 2 samples to suggest ranges, have %d", p.Name, len(p.Samples))
	}

	ls := make([]float64, len(p.Samples))
	as := make([]float64, len(p.Samples))
	bs := make([]float64, len(p.Samples))
	for i, s := range p.Samples {
		lab := RGBToLab(s.RGB)
		ls[i], as[i], bs[i] = lab.L, lab.A, lab.B
	}

	iv := func(vals []float64, lo, hi float64) Interval {
		mean := stat.Mean(vals, nil)
		sigma := stat.StdDev(vals, nil)
		return Interval{
			Min: clamp(mean-padding*sigma, lo, hi),
			Max: clamp(mean+padding*sigma, lo, hi),
		}
	}

	return &LabBox{
		L: iv(ls, 0, 100),
		A: iv(as, -128, 127),
		B: iv(bs, -128, 127),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DisplayRGB returns the phase's display color as an 8-bit triple. The
// color was validated at definition time, so a parse failure here falls
// back to mid grey rather than erroring.
func (p *Phase) DisplayRGB() RGB8 {
	c, err := colorful.Hex(p.DisplayColor)
	if err != nil {
		return RGB8{0x88, 0x88, 0x88}
	}
	r, g, b := c.RGB255()
	return RGB8{r, g, b}
}

// Session is the ordered collection of phases for one classification
// session. Order is significant: the classifier consults phases in
// definition order and the first match wins. IDs increase monotonically
// and are never reused, even after a removal.
//
// A Session is not safe for concurrent mutation. Callers hand a Snapshot()
// to a raster pass so interactive edits can't race an in-flight run.
type Session struct {
	phases []*Phase
	nextID int
}

func NewSession() *Session {
	return &Session{nextID: 1}
}

// AddPhase validates and appends a new phase, assigning its id.
func (s *Session) AddPhase(p Phase) (*Phase, error) {
	for _, q := range s.phases {
		if strings.EqualFold(q.Name, p.Name) {
			return nil, fmt.Errorf("phase name '%s' already in use", p.Name)
		}
	}
	p.ID = s.nextID
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.nextID++
	s.phases = append(s.phases, &p)
	return &p, nil
}

func (s *Session) RemovePhase(id int) error {
	for i, q := range s.phases {
		if q.ID == id {
			s.phases = append(s.phases[:i], s.phases[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no phase with id %d", id)
}

func (s *Session) Phase(id int) *Phase {
	for _, q := range s.phases {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// Phases returns the live, ordered phase list. Mutating it races any
// in-flight classification; use Snapshot for that.
func (s *Session) Phases() []*Phase { return s.phases }

// Snapshot deep-copies the phase list. This is the concurrency contract:
// a raster pass runs over a snapshot, so the session can keep being edited
// while batch work is in flight.
func (s *Session) Snapshot() []*Phase {
	out := make([]*Phase, len(s.phases))
	for i, q := range s.phases {
		cp := *q
		cp.Samples = append([]Sample(nil), q.Samples...)
		if q.LabAccept != nil {
			box := *q.LabAccept
			cp.LabAccept = &box
		}
		if q.BCAccept != nil {
			poly := BCPolygon{Vertices: append([]BCPoint(nil), q.BCAccept.Vertices...)}
			cp.BCAccept = &poly
		}
		out[i] = &cp
	}
	return out
}
