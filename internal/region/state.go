package region

import "github.com/lucasb-eyer/go-colorful"

// State is the lifecycle state of a region.
type State int8

const (
	// Deleted regions are excluded from every further transition.
	Deleted State = -1
	// Active regions are in use.
	Active State = 0
	// Selected regions are queued for an action.
	Selected State = 1
)

// String returns the archive name of the state.
func (s State) String() string {
	switch s {
	case Deleted:
		return "ROI_STATE_DELETED"
	case Selected:
		return "ROI_STATE_SELECTED"
	default:
		return "ROI_STATE_ACTIVE"
	}
}

// ParseState converts an archive state name back to a State.
// Unknown names map to Active.
func ParseState(name string) State {
	switch name {
	case "ROI_STATE_DELETED":
		return Deleted
	case "ROI_STATE_SELECTED":
		return Selected
	default:
		return Active
	}
}

// Tags used by the detection and selection workflows.
const (
	TagSmall       = "small"
	TagImageEdge   = "edge.image"
	TagEdgeSection = "edge.section"
	ReasonManual   = "manual"
)

// LabelColor returns the colour a renderer should use for a region label in
// the given state.
func LabelColor(s State) colorful.Color {
	switch s {
	case Selected:
		return colorful.Hsv(55, 0.85, 1.0)
	case Deleted:
		return colorful.Hsv(0, 0.7, 0.75)
	default:
		return colorful.Hsv(0, 0, 1.0)
	}
}

// MarshalText encodes the state by its archive name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes an archive state name.
func (s *State) UnmarshalText(b []byte) error {
	*s = ParseState(string(b))
	return nil
}
