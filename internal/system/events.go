package system

import (
	"fmt"
	"time"

	"github.com/chunksloader/server/internal/core/event"
	coresys "github.com/chunksloader/server/internal/core/system"
	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/world"
	"go.uber.org/zap"
)

// EventDispatchSystem delivers the host events emitted during the previous
// tick. Phase 1 (PreUpdate), after deferred tasks.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// HostEvents applies block and world events to the loader manager.
type HostEvents struct {
	manager *loader.Manager
	host    *world.Host
	log     *zap.Logger
}

// RegisterHostEvents subscribes the host event handlers on bus.
func RegisterHostEvents(bus *event.Bus, manager *loader.Manager, host *world.Host, log *zap.Logger) *HostEvents {
	h := &HostEvents{manager: manager, host: host, log: log}
	event.Subscribe(bus, h.onBlockPlaced)
	event.Subscribe(bus, h.onBlockBroken)
	event.Subscribe(bus, h.onWorldLoad)
	event.Subscribe(bus, h.onWorldUnload)
	return h
}

func (h *HostEvents) onBlockPlaced(ev event.BlockPlaced) {
	loc := ev.Location
	m := h.manager
	switch {
	case m.Has(loc):
		reply(ev.Reply, "A chunk loader is already at this location.")
	case !h.host.WorldLoaded(loc.World):
		reply(ev.Reply, "That world is not loaded.")
	case m.IsInReservedArea(loc.World, loc.Chunk()):
		reply(ev.Reply, "You can't place a chunk loader this close to the world spawn.")
	default:
		if err := m.Place(loc); err != nil {
			reply(ev.Reply, "The area of this chunk loader overlaps another chunk loader.")
			return
		}
		h.log.Info("chunk loader placed", zap.Stringer("loader", loc))
		reply(ev.Reply, fmt.Sprintf("Chunk loader placed at %d, %d, %d.", loc.X, loc.Y, loc.Z))
	}
}

func (h *HostEvents) onBlockBroken(ev event.BlockBroken) {
	if !h.manager.Remove(ev.Location) {
		reply(ev.Reply, loader.ErrUnknownLoader.Error())
		return
	}
	h.log.Info("chunk loader removed", zap.Stringer("loader", ev.Location))
	reply(ev.Reply, "Chunk loader removed.")
}

func (h *HostEvents) onWorldLoad(ev event.WorldLoad) {
	if h.host.WorldLoaded(ev.World) {
		reply(ev.Reply, "World already loaded.")
		return
	}
	if err := h.host.SetLoaded(ev.World, true); err != nil {
		reply(ev.Reply, err.Error())
		return
	}
	h.manager.WorldLoaded(ev.World)
	h.log.Info("world loaded", zap.String("world", h.host.WorldName(ev.World)))
	reply(ev.Reply, "World "+h.host.WorldName(ev.World)+" loaded.")
}

func (h *HostEvents) onWorldUnload(ev event.WorldUnload) {
	if !h.host.WorldLoaded(ev.World) {
		reply(ev.Reply, "World not loaded.")
		return
	}
	h.manager.WorldUnloaded(ev.World)
	if err := h.host.SetLoaded(ev.World, false); err != nil {
		reply(ev.Reply, err.Error())
		return
	}
	h.log.Info("world unloaded", zap.String("world", h.host.WorldName(ev.World)))
	reply(ev.Reply, "World "+h.host.WorldName(ev.World)+" unloaded.")
}

func reply(fn func(string), msg string) {
	if fn != nil {
		fn(msg)
	}
}
