package loader

import "github.com/google/uuid"

// Registry is the authoritative world → (location → state) map.
// Worlds are dropped as soon as their last loader is removed.
// Accessed only from the tick goroutine; no locks.
type Registry struct {
	worlds map[uuid.UUID]map[Location]*State
}

func NewRegistry() *Registry {
	return &Registry{worlds: make(map[uuid.UUID]map[Location]*State)}
}

// put inserts or overwrites the state at loc.
func (r *Registry) put(loc Location, st State) {
	loaders := r.worlds[loc.World]
	if loaders == nil {
		loaders = make(map[Location]*State)
		r.worlds[loc.World] = loaders
	}
	s := st
	loaders[loc] = &s
}

// delete removes loc and returns the state it held.
func (r *Registry) delete(loc Location) (State, bool) {
	loaders := r.worlds[loc.World]
	st, ok := loaders[loc]
	if !ok {
		return State{}, false
	}
	delete(loaders, loc)
	if len(loaders) == 0 {
		delete(r.worlds, loc.World)
	}
	return *st, true
}

// lookup returns the live pointer for in-package mutation.
func (r *Registry) lookup(loc Location) *State {
	return r.worlds[loc.World][loc]
}

// world returns the live inner map of a world (nil when empty).
func (r *Registry) world(id uuid.UUID) map[Location]*State {
	return r.worlds[id]
}

// replace swaps the whole content, dropping empty worlds.
func (r *Registry) replace(worlds map[uuid.UUID]map[Location]*State) {
	r.worlds = make(map[uuid.UUID]map[Location]*State, len(worlds))
	for id, loaders := range worlds {
		if len(loaders) == 0 {
			continue
		}
		r.worlds[id] = loaders
	}
}

// Get returns a copy of the state at loc.
func (r *Registry) Get(loc Location) (State, bool) {
	st := r.lookup(loc)
	if st == nil {
		return State{}, false
	}
	return *st, true
}

func (r *Registry) Has(loc Location) bool {
	return r.lookup(loc) != nil
}

// AllActive returns the active loaders of a world, sorted.
func (r *Registry) AllActive(id uuid.UUID) []Location {
	var out []Location
	for loc, st := range r.worlds[id] {
		if st.Active {
			out = append(out, loc)
		}
	}
	sortLocations(out)
	return out
}

// All returns a copy of every loader state of a world.
func (r *Registry) All(id uuid.UUID) map[Location]State {
	loaders := r.worlds[id]
	out := make(map[Location]State, len(loaders))
	for loc, st := range loaders {
		out[loc] = *st
	}
	return out
}

// Locations returns every loader location of a world, sorted.
func (r *Registry) Locations(id uuid.UUID) []Location {
	out := make([]Location, 0, len(r.worlds[id]))
	for loc := range r.worlds[id] {
		out = append(out, loc)
	}
	sortLocations(out)
	return out
}

// Worlds returns the ids of worlds holding at least one loader, sorted.
func (r *Registry) Worlds() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.worlds))
	for id := range r.worlds {
		out = append(out, id)
	}
	sortWorlds(out)
	return out
}

// Len returns the total number of loaders.
func (r *Registry) Len() int {
	n := 0
	for _, loaders := range r.worlds {
		n += len(loaders)
	}
	return n
}

// snapshot deep-copies the registry for persistence.
func (r *Registry) snapshot() map[uuid.UUID]map[Location]State {
	out := make(map[uuid.UUID]map[Location]State, len(r.worlds))
	for id := range r.worlds {
		out[id] = r.All(id)
	}
	return out
}
