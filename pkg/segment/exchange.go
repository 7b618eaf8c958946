package segment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// PhaseSet is the on-disk exchange form of a session's phase list. Order
// in the document is definition order, which the classifier depends on, so
// round-tripping a set and re-running a raster pass reproduces the raster
// exactly.
type PhaseSet struct {
	Phases []Phase `yaml:"phases"`
}

/* Example phase set ...

phases:
  - id: 1
    name: ferrite
    displaycolor: "#c04040"
    labaccept:
      l: {min: 60, max: 100}
      a: {min: -128, max: 127}
      b: {min: -128, max: 127}
  - id: 2
    name: pearlite
    displaycolor: "#4040c0"
    bcaccept:
      vertices:
        - {brightness: 0, contrast: 0}
        - {brightness: 120, contrast: 0}
        - {brightness: 120, contrast: 40}
        - {brightness: 0, contrast: 40}
*/

// ParsePhaseSet parses and validates a phase set document. Validation is
// all-or-nothing: any malformed phase fails the whole load, so a corrupt
// document can never be half-installed as the active session.
func ParsePhaseSet(b []byte) ([]*Phase, error) {
	var ps PhaseSet
	if err := yaml.UnmarshalStrict(b, &ps); err != nil {
		return nil, fmt.Errorf("phase set parse: %v", err)
	}
	if len(ps.Phases) == 0 {
		return nil, fmt.Errorf("phase set parse: no phases in document")
	}

	seenIDs := map[int]bool{}
	seenNames := map[string]bool{}
	out := make([]*Phase, 0, len(ps.Phases))
	for i := range ps.Phases {
		p := ps.Phases[i]
		if p.ID <= 0 {
			return nil, fmt.Errorf("phase '%s': id %d must be positive", p.Name, p.ID)
		}
		if seenIDs[p.ID] {
			return nil, fmt.Errorf("phase '%s': duplicate id %d", p.Name, p.ID)
		}
		if seenNames[strings.ToLower(p.Name)] {
			return nil, fmt.Errorf("duplicate phase name '%s'", p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		seenIDs[p.ID] = true
		seenNames[strings.ToLower(p.Name)] = true
		out = append(out, &p)
	}
	return out, nil
}

// LoadPhaseSet reads a phase set from a YAML file.
func LoadPhaseSet(filename string) ([]*Phase, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("phase set read '%s': %v", filename, err)
	}
	phases, err := ParsePhaseSet(b)
	if err != nil {
		return nil, fmt.Errorf("phase set '%s': %v", filename, err)
	}
	return phases, nil
}

// MarshalPhaseSet serializes phases in order.
func MarshalPhaseSet(phases []*Phase) ([]byte, error) {
	ps := PhaseSet{Phases: make([]Phase, len(phases))}
	for i, p := range phases {
		ps.Phases[i] = *p
	}
	b, err := yaml.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("phase set marshal: %v", err)
	}
	return b, nil
}

// SavePhaseSet writes the phases to a YAML file.
func SavePhaseSet(phases []*Phase, filename string) error {
	b, err := MarshalPhaseSet(phases)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("phase set write '%s': %v", filename, err)
	}
	return nil
}

// SessionFromPhases rebuilds a session around a loaded phase list,
// preserving ids and order, and resuming id assignment above the highest
// loaded id so ids are never reused.
func SessionFromPhases(phases []*Phase) *Session {
	s := NewSession()
	for _, p := range phases {
		s.phases = append(s.phases, p)
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s
}
