// Package mapfeed publishes loader markers and areas to map renderers over
// HTTP and websocket.
package mapfeed

import (
	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
)

// Source is the read side of the loader manager.
type Source interface {
	KnownWorlds() []uuid.UUID
	Views(world uuid.UUID) []loader.View
	ReservedBounds(world uuid.UUID) (loader.Bounds, bool)
	WorldName(world uuid.UUID) string
}

// Labeler formats the marker label of a loader.
type Labeler func(v loader.View) string

// Marker is one loader as drawn on the map.
type Marker struct {
	loader.View
	Label string `json:"label"`
}

// WorldSnapshot is everything a renderer draws for one world.
type WorldSnapshot struct {
	WorldID   string         `json:"world_id"`
	WorldName string         `json:"world_name"`
	Reserved  *loader.Bounds `json:"reserved,omitempty"`
	Markers   []Marker       `json:"markers"`
}

// Message is the websocket payload. Type is "snapshot" for the full state
// sent on connect and "update" for the worlds touched by one change.
type Message struct {
	Type   string          `json:"type"`
	Worlds []WorldSnapshot `json:"worlds"`
}

func buildWorld(src Source, label Labeler, id uuid.UUID) WorldSnapshot {
	views := src.Views(id)
	snap := WorldSnapshot{
		WorldID:   id.String(),
		WorldName: src.WorldName(id),
		Markers:   make([]Marker, 0, len(views)),
	}
	if b, ok := src.ReservedBounds(id); ok {
		snap.Reserved = &b
	}
	for _, v := range views {
		snap.Markers = append(snap.Markers, Marker{View: v, Label: label(v)})
	}
	return snap
}
