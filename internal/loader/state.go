package loader

import "strings"

// State is the mutable record attached to a loader Location.
//
// OccupantName is assigned once, the first time the occupant is enabled, and
// is kept when the occupant is later disabled so the loader keeps the same
// identity across toggles.
type State struct {
	Active          bool
	OccupantEnabled bool
	OccupantName    string
}

// defaultState is the state of a freshly placed loader.
func defaultState() State {
	return State{Active: true}
}

// HasOccupantName reports whether a non-blank name has been assigned.
func (s State) HasOccupantName() bool {
	return strings.TrimSpace(s.OccupantName) != ""
}

// WantsOccupant reports whether a live occupant should exist for this state.
func (s State) WantsOccupant() bool {
	return s.Active && s.OccupantEnabled
}

// Phase is the state-machine view of a loader.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseActive
	PhaseActiveOccupant
)

func (s State) Phase() Phase {
	switch {
	case !s.Active:
		return PhaseInactive
	case s.OccupantEnabled:
		return PhaseActiveOccupant
	default:
		return PhaseActive
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseActive:
		return "active"
	case PhaseActiveOccupant:
		return "active+occupant"
	default:
		return "unknown"
	}
}
