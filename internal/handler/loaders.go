package handler

import (
	"fmt"

	"github.com/chunksloader/server/internal/core/event"
	"github.com/chunksloader/server/internal/loader"
)

// HandlePlace emits a block placement; the host event system validates and
// registers it on the next tick.
func HandlePlace(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	event.Emit(deps.Bus, event.BlockPlaced{Location: loc, Reply: sess.Send})
}

func HandleBreak(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	event.Emit(deps.Bus, event.BlockBroken{Location: loc, Reply: sess.Send})
}

// HandleToggle flips a loader between active and inactive, like right-clicking it.
func HandleToggle(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	if !deps.Manager.Has(loc) {
		sess.Send(loader.ErrUnknownLoader.Error())
		return
	}
	if deps.Manager.ToggleActive(loc) {
		sess.Send("Chunk loader activated.")
	} else {
		sess.Send("Chunk loader deactivated.")
	}
}

// HandleOccupant flips the simulated occupant of a loader.
func HandleOccupant(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	m := deps.Manager
	if !m.Has(loc) {
		sess.Send(loader.ErrUnknownLoader.Error())
		return
	}
	if !m.OccupantSupported() {
		sess.Send(loader.ErrOccupantUnsupported.Error())
		return
	}
	enabled, ok := m.ToggleOccupant(loc)
	switch {
	case !ok:
		sess.Send("Could not change the simulated occupant.")
	case enabled:
		st, _ := m.Get(loc)
		sess.Send(fmt.Sprintf("Simulated occupant %s enabled.", st.OccupantName))
	default:
		sess.Send("Simulated occupant disabled.")
	}
}

func HandleInfo(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	v, ok := deps.Manager.View(loc)
	if !ok {
		sess.Send(loader.ErrUnknownLoader.Error())
		return
	}
	st, _ := deps.Manager.Get(loc)
	rows := [][]string{
		{"label", deps.label(v)},
		{"id", v.ID},
		{"world", v.WorldName},
		{"block", fmt.Sprintf("%d, %d, %d", v.X, v.Y, v.Z)},
		{"chunk", fmt.Sprintf("%d, %d", v.Chunk.X, v.Chunk.Z)},
		{"state", st.Phase().String()},
		{"area", fmt.Sprintf("%d chunks (radius %d)", v.ChunkCount, v.Radius)},
		{"bounds", fmt.Sprintf("x %d..%d, z %d..%d", v.Bounds.MinX, v.Bounds.MaxX, v.Bounds.MinZ, v.Bounds.MaxZ)},
	}
	if st.HasOccupantName() {
		live := "no"
		if _, ok := deps.Manager.Occupants().Live(loc); ok {
			live = "yes"
		}
		rows = append(rows, []string{"occupant", st.OccupantName + " (live: " + live + ")"})
	}
	for _, line := range Table(nil, rows) {
		sess.Send(line)
	}
}

// HandleCheck reports whether a loader could be placed at a location.
func HandleCheck(sess Session, args *Args, deps *Deps) {
	loc := args.Location(deps.Host)
	if !args.ok(sess) {
		return
	}
	m := deps.Manager
	switch {
	case m.Has(loc):
		sess.Send("A chunk loader is already at this location.")
	case !knownWorld(deps, loc):
		sess.Send("That world is not known to the host.")
	case m.IsInReservedArea(loc.World, loc.Chunk()):
		sess.Send("Too close to the world spawn: that area is reserved.")
	case !m.CanPlace(loc):
		sess.Send("Would overlap the area of another chunk loader.")
	default:
		sess.Send(fmt.Sprintf("OK: a chunk loader here pins %d chunks around chunk %d, %d.",
			(2*m.Radius()+1)*(2*m.Radius()+1), loc.Chunk().X, loc.Chunk().Z))
	}
}

func knownWorld(deps *Deps, loc loader.Location) bool {
	_, ok := deps.Host.World(loc.World)
	return ok
}
