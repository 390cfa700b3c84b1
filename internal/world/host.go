package world

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownWorld   = errors.New("unknown world")
	ErrWorldUnloaded  = errors.New("world not loaded")
	ErrNameTaken      = errors.New("entity name already in use")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrNoCommands     = errors.New("command dispatcher unavailable")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoSynthetic    = errors.New("synthetic entities unavailable")
)

// Position is a precise point inside a world.
type Position struct {
	World uuid.UUID
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

// World is one dimension managed by the host.
type World struct {
	ID     uuid.UUID
	Name   string
	SpawnX int32
	SpawnY int32
	SpawnZ int32

	loaded bool
	forced ChunkSet
}

// Loaded reports whether the world is currently loaded.
func (w *World) Loaded() bool { return w.loaded }

// SpawnChunk returns the chunk holding the world spawn point.
func (w *World) SpawnChunk() ChunkCoord {
	return ToChunk(w.SpawnX, w.SpawnZ)
}

// Entity is a named occupant in the host's entity namespace.
type Entity struct {
	ID        uint64
	Name      string
	Pos       Position
	Synthetic bool
}

// Host is the in-memory world host: worlds, their force-loaded chunks, and
// the named entity namespace. Names are unique case-insensitively, the way a
// server's player list is.
// Accessed only from the tick goroutine; no locks.
type Host struct {
	worlds     map[uuid.UUID]*World
	order      []uuid.UUID
	entities   map[string]*Entity // lower-cased name → entity
	nextEntity uint64
	commands   bool
	synthetic  bool
	log        *zap.Logger
}

func NewHost(log *zap.Logger) *Host {
	return &Host{
		worlds:    make(map[uuid.UUID]*World),
		entities:  make(map[string]*Entity),
		commands:  true,
		synthetic: true,
		log:       log,
	}
}

// AddWorld registers a loaded world. Re-adding an id replaces its metadata
// but keeps its forced chunks.
func (h *Host) AddWorld(id uuid.UUID, name string, spawnX, spawnY, spawnZ int32) *World {
	w, ok := h.worlds[id]
	if !ok {
		w = &World{ID: id, forced: make(ChunkSet)}
		h.worlds[id] = w
		h.order = append(h.order, id)
	}
	w.Name = name
	w.SpawnX, w.SpawnY, w.SpawnZ = spawnX, spawnY, spawnZ
	w.loaded = true
	return w
}

// World returns the world with the given id.
func (h *Host) World(id uuid.UUID) (*World, bool) {
	w, ok := h.worlds[id]
	return w, ok
}

// WorldByName looks a world up by case-insensitive name or by uuid string.
func (h *Host) WorldByName(name string) (*World, bool) {
	if id, err := uuid.Parse(name); err == nil {
		return h.World(id)
	}
	for _, id := range h.order {
		w := h.worlds[id]
		if strings.EqualFold(w.Name, name) {
			return w, true
		}
	}
	return nil, false
}

// WorldName returns the display name of a world, or its id when unknown.
func (h *Host) WorldName(id uuid.UUID) string {
	if w, ok := h.worlds[id]; ok {
		return w.Name
	}
	return id.String()
}

// Worlds returns every known world in registration order.
func (h *Host) Worlds() []*World {
	out := make([]*World, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.worlds[id])
	}
	return out
}

// LoadedWorlds returns the ids of loaded worlds in registration order.
func (h *Host) LoadedWorlds() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(h.order))
	for _, id := range h.order {
		if h.worlds[id].loaded {
			out = append(out, id)
		}
	}
	return out
}

// WorldLoaded reports whether id names a loaded world.
func (h *Host) WorldLoaded(id uuid.UUID) bool {
	w, ok := h.worlds[id]
	return ok && w.loaded
}

// SetLoaded loads or unloads a world. Unloading drops its forced chunks and
// every entity standing in it.
func (h *Host) SetLoaded(id uuid.UUID, loaded bool) error {
	w, ok := h.worlds[id]
	if !ok {
		return fmt.Errorf("set loaded %s: %w", id, ErrUnknownWorld)
	}
	if w.loaded == loaded {
		return nil
	}
	w.loaded = loaded
	if !loaded {
		w.forced = make(ChunkSet)
		for key, e := range h.entities {
			if e.Pos.World == id {
				delete(h.entities, key)
			}
		}
	}
	return nil
}

// PinRegion force-loads one chunk. Unknown or unloaded worlds are ignored.
func (h *Host) PinRegion(id uuid.UUID, c ChunkCoord) {
	w, ok := h.worlds[id]
	if !ok || !w.loaded {
		return
	}
	w.forced.Add(c)
}

// ReleaseAllPinned clears every forced chunk of a world and returns them.
func (h *Host) ReleaseAllPinned(id uuid.UUID) ChunkSet {
	w, ok := h.worlds[id]
	if !ok {
		return ChunkSet{}
	}
	released := w.forced
	w.forced = make(ChunkSet)
	return released
}

// Pinned returns a copy of the forced chunks of a world.
func (h *Host) Pinned(id uuid.UUID) ChunkSet {
	out := make(ChunkSet)
	if w, ok := h.worlds[id]; ok {
		out.Union(w.forced)
	}
	return out
}

// SpawnChunkOf returns the chunk containing a block position.
func (h *Host) SpawnChunkOf(x, z int32) ChunkCoord {
	return ToChunk(x, z)
}

// ReservedOriginChunk returns the spawn chunk of a world.
func (h *Host) ReservedOriginChunk(id uuid.UUID) (ChunkCoord, bool) {
	w, ok := h.worlds[id]
	if !ok {
		return ChunkCoord{}, false
	}
	return w.SpawnChunk(), true
}

// ── Entities ─────────────────────────────────────────────────────

// SpawnEntity places a named entity. Names are unique across all worlds.
func (h *Host) SpawnEntity(pos Position, name string, synthetic bool) (*Entity, error) {
	w, ok := h.worlds[pos.World]
	if !ok {
		return nil, fmt.Errorf("spawn %q: %w", name, ErrUnknownWorld)
	}
	if !w.loaded {
		return nil, fmt.Errorf("spawn %q: %w", name, ErrWorldUnloaded)
	}
	if synthetic && !h.synthetic {
		return nil, fmt.Errorf("spawn %q: %w", name, ErrNoSynthetic)
	}
	key := strings.ToLower(name)
	if _, taken := h.entities[key]; taken {
		return nil, fmt.Errorf("spawn %q: %w", name, ErrNameTaken)
	}
	h.nextEntity++
	e := &Entity{ID: h.nextEntity, Name: name, Pos: pos, Synthetic: synthetic}
	h.entities[key] = e
	h.log.Debug("entity spawned", zap.String("name", name), zap.Uint64("id", e.ID))
	return e, nil
}

// RemoveEntity removes an entity by id.
func (h *Host) RemoveEntity(id uint64) error {
	for key, e := range h.entities {
		if e.ID == id {
			delete(h.entities, key)
			h.log.Debug("entity removed", zap.String("name", e.Name), zap.Uint64("id", id))
			return nil
		}
	}
	return fmt.Errorf("remove entity %d: %w", id, ErrUnknownEntity)
}

// FindEntity looks an entity up by case-insensitive name.
func (h *Host) FindEntity(name string) (*Entity, bool) {
	e, ok := h.entities[strings.ToLower(name)]
	return e, ok
}

// Entities returns all entities ordered by id.
func (h *Host) Entities() []*Entity {
	out := make([]*Entity, 0, len(h.entities))
	for _, e := range h.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetSyntheticEnabled toggles direct insertion of synthetic entities.
func (h *Host) SetSyntheticEnabled(enabled bool) {
	h.synthetic = enabled
}

func (h *Host) SyntheticAvailable() bool {
	return h.synthetic
}

// ── Commands ─────────────────────────────────────────────────────

// SetCommandsEnabled toggles the command dispatcher; hosts without one
// report CommandsAvailable() == false.
func (h *Host) SetCommandsEnabled(enabled bool) {
	h.commands = enabled
}

func (h *Host) CommandsAvailable() bool {
	return h.commands
}

// Dispatch runs one host command line:
//
//	player <name> spawn <world-uuid> <x> <y> <z>
//	player <name> kill
func (h *Host) Dispatch(line string) error {
	if !h.commands {
		return ErrNoCommands
	}
	f := strings.Fields(line)
	if len(f) < 3 || f[0] != "player" {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	name := f[1]
	switch f[2] {
	case "spawn":
		if len(f) != 7 {
			return fmt.Errorf("%w: %q", ErrUnknownCommand, line)
		}
		id, err := uuid.Parse(f[3])
		if err != nil {
			return fmt.Errorf("parse world: %w", err)
		}
		var coords [3]float64
		for i := range coords {
			v, err := strconv.ParseFloat(f[4+i], 64)
			if err != nil {
				return fmt.Errorf("parse coordinate %q: %w", f[4+i], err)
			}
			coords[i] = v
		}
		_, err = h.SpawnEntity(Position{World: id, X: coords[0], Y: coords[1], Z: coords[2]}, name, false)
		return err
	case "kill":
		e, ok := h.FindEntity(name)
		if !ok {
			return fmt.Errorf("kill %q: %w", name, ErrUnknownEntity)
		}
		return h.RemoveEntity(e.ID)
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, line)
}
