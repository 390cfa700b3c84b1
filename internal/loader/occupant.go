package loader

import (
	"fmt"
	"strings"

	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handle refers to a live simulated occupant in the host.
type Handle struct {
	ID   uint64
	Name string
}

// EntityInjector is the host capability that materializes simulated occupants.
type EntityInjector interface {
	IsSupported() bool
	Spawn(pos world.Position, name string) (Handle, error)
	Remove(h Handle) error
	FindLiveByName(name string) (Handle, bool)
}

type liveOccupant struct {
	loc    Location
	handle Handle
}

// OccupantController keeps at most one live occupant per loader, present
// exactly while the loader is active with its occupant enabled.
// Accessed only from the tick goroutine; no locks.
type OccupantController struct {
	injector  EntityInjector
	supported bool
	live      map[Location]liveOccupant
	log       *zap.Logger
}

// NewOccupantController probes the injector once. A nil or unsupported
// injector turns every occupant operation into a no-op.
func NewOccupantController(injector EntityInjector, log *zap.Logger) *OccupantController {
	c := &OccupantController{
		injector: injector,
		live:     make(map[Location]liveOccupant),
		log:      log,
	}
	c.supported = injector != nil && c.probe()
	if !c.supported {
		log.Warn("simulated occupants are not supported by this host; occupant features disabled")
	}
	return c
}

func (c *OccupantController) probe() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("occupant capability probe panicked", zap.Any("panic", r))
			ok = false
		}
	}()
	return c.injector.IsSupported()
}

func (c *OccupantController) IsSupported() bool { return c.supported }

// Live returns the live occupant handle for loc.
func (c *OccupantController) Live(loc Location) (Handle, bool) {
	o, ok := c.live[loc]
	return o.handle, ok
}

// LiveCount returns the number of tracked live occupants.
func (c *OccupantController) LiveCount() int { return len(c.live) }

// SyncWorld reconciles the live occupants of one world against states.
// Names generated while spawning are written back into states.
func (c *OccupantController) SyncWorld(id uuid.UUID, states map[Location]*State) {
	if !c.supported {
		c.ClearWorld(id)
		return
	}
	desired := make(map[Location]struct{})
	locs := make([]Location, 0, len(states))
	for loc := range states {
		if loc.World == id {
			locs = append(locs, loc)
		}
	}
	sortLocations(locs)
	for _, loc := range locs {
		st := states[loc]
		if st.WantsOccupant() {
			desired[loc] = struct{}{}
			c.EnsureSpawned(loc, st)
		} else {
			c.Disable(loc, st)
		}
	}
	for _, loc := range c.liveIn(id) {
		if _, ok := desired[loc]; !ok {
			c.removeLive(loc)
		}
	}
}

// EnsureSpawned spawns the occupant for loc unless one is already live.
// Any other live occupant with the same name is removed first, wherever it is.
// A failed spawn leaves loc without an occupant until the next sync.
func (c *OccupantController) EnsureSpawned(loc Location, st *State) {
	if !c.supported {
		return
	}
	if _, ok := c.live[loc]; ok {
		return
	}
	if !st.HasOccupantName() {
		st.OccupantName = OccupantName(loc)
	}
	name := st.OccupantName
	c.removeByName(name)

	h, err := c.spawn(loc.Center(), name)
	if err != nil {
		c.log.Warn("failed to spawn simulated occupant",
			zap.String("name", name), zap.Stringer("loader", loc), zap.Error(err))
		return
	}
	c.live[loc] = liveOccupant{loc: loc, handle: h}
	c.log.Debug("simulated occupant spawned", zap.String("name", name), zap.Stringer("loader", loc))
}

// Disable removes the occupant for loc. When none is tracked but a name is
// known, a by-name removal still runs to catch occupants left over from a
// previous run.
func (c *OccupantController) Disable(loc Location, st *State) {
	if _, ok := c.live[loc]; ok {
		c.removeLive(loc)
		return
	}
	if st != nil && st.HasOccupantName() {
		c.removeByName(st.OccupantName)
	}
}

// ClearWorld removes every live occupant of one world.
func (c *OccupantController) ClearWorld(id uuid.UUID) {
	for _, loc := range c.liveIn(id) {
		c.removeLive(loc)
	}
}

// ClearAll removes every live occupant.
func (c *OccupantController) ClearAll() {
	locs := make([]Location, 0, len(c.live))
	for loc := range c.live {
		locs = append(locs, loc)
	}
	sortLocations(locs)
	for _, loc := range locs {
		c.removeLive(loc)
	}
}

func (c *OccupantController) liveIn(id uuid.UUID) []Location {
	var out []Location
	for loc := range c.live {
		if loc.World == id {
			out = append(out, loc)
		}
	}
	sortLocations(out)
	return out
}

func (c *OccupantController) removeLive(loc Location) {
	o, ok := c.live[loc]
	if !ok {
		return
	}
	delete(c.live, loc)
	c.remove(o.handle, zap.Stringer("loader", loc))
}

func (c *OccupantController) removeByName(name string) {
	if !c.supported || strings.TrimSpace(name) == "" {
		return
	}
	for loc, o := range c.live {
		if strings.EqualFold(o.handle.Name, name) {
			delete(c.live, loc)
			c.remove(o.handle, zap.Stringer("loader", loc))
		}
	}
	if h, ok := c.find(name); ok {
		c.remove(h)
	}
}

func (c *OccupantController) remove(h Handle, fields ...zap.Field) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return c.injector.Remove(h)
	}()
	if err != nil {
		c.log.Warn("failed to remove simulated occupant",
			append(fields, zap.String("name", h.Name), zap.Error(err))...)
	}
}

func (c *OccupantController) spawn(pos world.Position, name string) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.injector.Spawn(pos, name)
}

func (c *OccupantController) find(name string) (h Handle, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("occupant lookup panicked", zap.String("name", name), zap.Any("panic", r))
			ok = false
		}
	}()
	return c.injector.FindLiveByName(name)
}
