package loader

import "time"

// EventKind names an effective registry mutation.
type EventKind string

const (
	EventPlaced           EventKind = "placed"
	EventRemoved          EventKind = "removed"
	EventActivated        EventKind = "activated"
	EventDeactivated      EventKind = "deactivated"
	EventOccupantEnabled  EventKind = "occupant_enabled"
	EventOccupantDisabled EventKind = "occupant_disabled"
)

// Event describes one mutation after it has been applied.
type Event struct {
	Kind     EventKind
	Location Location
	At       time.Time
}

// Recorder receives mutation events, e.g. for an audit journal.
type Recorder interface {
	Record(ev Event)
}
