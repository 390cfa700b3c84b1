package loader

import (
	"errors"
	"fmt"
	"time"

	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPlacementRejected   = errors.New("placement rejected: area already loaded or reserved")
	ErrUnknownLoader       = errors.New("no loader at this location")
	ErrOccupantUnsupported = errors.New("simulated occupants are not supported by this host")
)

// Host is the world collaborator the manager pins chunks through.
type Host interface {
	ReservedOrigin
	PinRegion(world uuid.UUID, c world.ChunkCoord)
	ReleaseAllPinned(world uuid.UUID) world.ChunkSet
	LoadedWorlds() []uuid.UUID
	WorldLoaded(world uuid.UUID) bool
	WorldName(world uuid.UUID) string
}

// Scheduler defers work to the next tick on the tick goroutine.
type Scheduler interface {
	RunTask(fn func())
}

// Options configures a Manager.
type Options struct {
	Radius    int
	Store     *FileStore
	Host      Host
	Injector  EntityInjector
	Scheduler Scheduler
	Recorder  Recorder
	Now       func() time.Time
	Log       *zap.Logger
}

// Manager owns the registry, the notifier and the occupant controller.
// Every effective mutation persists, re-applies forced chunks and occupants
// for the affected world, then notifies listeners, in that order.
// Accessed only from the tick goroutine; no locks.
type Manager struct {
	radius    int
	reg       *Registry
	store     *FileStore
	host      Host
	occupants *OccupantController
	notifier  *Notifier
	scheduler Scheduler
	recorder  Recorder
	now       func() time.Time
	log       *zap.Logger
}

func NewManager(opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	radius := opts.Radius
	if radius < 0 {
		radius = 0
	}
	return &Manager{
		radius:    radius,
		reg:       NewRegistry(),
		store:     opts.Store,
		host:      opts.Host,
		occupants: NewOccupantController(opts.Injector, log.Named("occupant")),
		notifier:  NewNotifier(log.Named("notify")),
		scheduler: opts.Scheduler,
		recorder:  opts.Recorder,
		now:       now,
		log:       log,
	}
}

func (m *Manager) Radius() int { return m.radius }
func (m *Manager) Registry() *Registry { return m.reg }
func (m *Manager) Occupants() *OccupantController { return m.occupants }
func (m *Manager) Subscribe(l Listener) Subscription { return m.notifier.Subscribe(l) }
func (m *Manager) Unsubscribe(s Subscription) bool { return m.notifier.Unsubscribe(s) }

// OccupantSupported reports whether the occupant capability is available.
func (m *Manager) OccupantSupported() bool { return m.occupants.IsSupported() }

// ── Lifecycle ────────────────────────────────────────────────────

// Load replaces the registry with the persisted content. Applying forced
// chunks and the first notification run on the next tick, once the caller
// has finished wiring listeners.
func (m *Manager) Load() error {
	worlds := make(map[uuid.UUID]map[Location]*State)
	if m.store != nil {
		loaded, err := m.store.Load()
		if err != nil {
			return fmt.Errorf("load loaders: %w", err)
		}
		worlds = loaded
	}
	for _, loaders := range worlds {
		for loc, st := range loaders {
			if st.OccupantEnabled && !m.occupants.IsSupported() {
				m.log.Warn("simulated occupants unsupported; disabling occupant for loader",
					zap.Stringer("loader", loc))
				st.OccupantEnabled = false
			}
			if st.OccupantEnabled && !st.HasOccupantName() {
				st.OccupantName = OccupantName(loc)
			}
		}
	}
	m.reg.replace(worlds)
	m.log.Info("loaders loaded", zap.Int("loaders", m.reg.Len()), zap.Int("worlds", len(m.reg.worlds)))

	initial := func() {
		m.ApplyAll()
		m.notifier.Notify(AllWorlds)
	}
	if m.scheduler != nil {
		m.scheduler.RunTask(initial)
	} else {
		initial()
	}
	return nil
}

// Shutdown releases every forced chunk, removes every occupant and writes
// the registry one last time.
func (m *Manager) Shutdown() {
	for _, id := range m.host.LoadedWorlds() {
		m.host.ReleaseAllPinned(id)
	}
	m.occupants.ClearAll()
	m.persist()
}

// WorldLoaded re-applies a world that the host has just loaded.
func (m *Manager) WorldLoaded(id uuid.UUID) {
	m.Apply(id)
	m.notifier.Notify(id)
}

// WorldUnloaded drops the occupants of a world the host is unloading.
func (m *Manager) WorldUnloaded(id uuid.UUID) {
	m.occupants.ClearWorld(id)
	m.notifier.Notify(id)
}

// ── Mutations ────────────────────────────────────────────────────

// Add places a loader with the default state, overwriting any loader already there.
func (m *Manager) Add(loc Location) {
	if old := m.reg.lookup(loc); old != nil {
		m.occupants.Disable(loc, old)
	}
	m.reg.put(loc, defaultState())
	m.changed(loc.World)
	m.record(EventPlaced, loc)
}

// Place validates and adds a loader.
func (m *Manager) Place(loc Location) error {
	if !m.CanPlace(loc) {
		return ErrPlacementRejected
	}
	m.Add(loc)
	return nil
}

// Remove deletes a loader and its occupant. It reports whether one existed.
func (m *Manager) Remove(loc Location) bool {
	st, ok := m.reg.delete(loc)
	if !ok {
		return false
	}
	m.occupants.Disable(loc, &st)
	m.changed(loc.World)
	m.record(EventRemoved, loc)
	return true
}

// SetActive sets the active flag. Unknown locations and unchanged values are no-ops.
func (m *Manager) SetActive(loc Location, active bool) {
	st := m.reg.lookup(loc)
	if st == nil || st.Active == active {
		return
	}
	st.Active = active
	m.changed(loc.World)
	if active {
		m.record(EventActivated, loc)
	} else {
		m.record(EventDeactivated, loc)
	}
}

// ToggleActive flips the active flag and returns the new value; false when unknown.
func (m *Manager) ToggleActive(loc Location) bool {
	st := m.reg.lookup(loc)
	if st == nil {
		return false
	}
	target := !st.Active
	m.SetActive(loc, target)
	return target
}

// SetOccupantEnabled enables or disables the simulated occupant of a loader.
// It fails for unknown locations and, when enabling, if the capability is
// unsupported. An unchanged value succeeds without side effects.
func (m *Manager) SetOccupantEnabled(loc Location, enabled bool) bool {
	st := m.reg.lookup(loc)
	if st == nil {
		return false
	}
	if st.OccupantEnabled == enabled {
		return true
	}
	if enabled && !m.occupants.IsSupported() {
		return false
	}
	if enabled && !st.HasOccupantName() {
		st.OccupantName = OccupantName(loc)
	}
	st.OccupantEnabled = enabled
	m.changed(loc.World)
	if enabled {
		m.record(EventOccupantEnabled, loc)
	} else {
		m.record(EventOccupantDisabled, loc)
	}
	return true
}

// ToggleOccupant flips the occupant flag. ok is false when the loader is
// unknown or the occupant could not be enabled.
func (m *Manager) ToggleOccupant(loc Location) (enabled, ok bool) {
	st := m.reg.lookup(loc)
	if st == nil {
		return false, false
	}
	target := !st.OccupantEnabled
	if !m.SetOccupantEnabled(loc, target) {
		return false, false
	}
	return target, true
}

// ── Queries ──────────────────────────────────────────────────────

func (m *Manager) Get(loc Location) (State, bool) { return m.reg.Get(loc) }
func (m *Manager) Has(loc Location) bool { return m.reg.Has(loc) }

func (m *Manager) IsActive(loc Location) bool {
	st, ok := m.reg.Get(loc)
	return ok && st.Active
}

func (m *Manager) AllActive(id uuid.UUID) []Location { return m.reg.AllActive(id) }
func (m *Manager) All(id uuid.UUID) map[Location]State { return m.reg.All(id) }
func (m *Manager) Locations(id uuid.UUID) []Location { return m.reg.Locations(id) }
func (m *Manager) LoaderWorlds() []uuid.UUID { return m.reg.Worlds() }
func (m *Manager) WorldName(id uuid.UUID) string { return m.host.WorldName(id) }

// KnownWorlds returns the loaded host worlds followed by registry worlds the
// host does not currently have loaded.
func (m *Manager) KnownWorlds() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, id := range m.host.LoadedWorlds() {
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range m.reg.Worlds() {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// CanPlace checks a candidate location against the reserved area and the
// existing loaders of its world.
func (m *Manager) CanPlace(loc Location) bool {
	return CanPlace(m.reg, m.host, loc, m.radius)
}

// IsInReservedArea reports whether chunk lies in the reserved area of a world.
func (m *Manager) IsInReservedArea(id uuid.UUID, chunk world.ChunkCoord) bool {
	origin, ok := m.host.ReservedOriginChunk(id)
	return ok && InReservedArea(origin, chunk, m.radius)
}

// ReservedBounds returns the block-space reserved square of a world.
func (m *Manager) ReservedBounds(id uuid.UUID) (Bounds, bool) {
	origin, ok := m.host.ReservedOriginChunk(id)
	if !ok {
		return Bounds{}, false
	}
	return boundsAround(origin, m.radius), true
}

// LoadedChunkArea returns the chunks pinned by active loaders of a world.
func (m *Manager) LoadedChunkArea(id uuid.UUID) world.ChunkSet {
	return ComputeActive(m.reg, id, m.radius)
}

// InactiveChunkArea returns the chunks covered by inactive loaders of a world.
func (m *Manager) InactiveChunkArea(id uuid.UUID) world.ChunkSet {
	return ComputeInactive(m.reg, id, m.radius)
}

// Views returns the read model of every loader of a world, sorted by location.
func (m *Manager) Views(id uuid.UUID) []View {
	name := m.host.WorldName(id)
	locs := m.reg.Locations(id)
	out := make([]View, 0, len(locs))
	for _, loc := range locs {
		st, _ := m.reg.Get(loc)
		out = append(out, newView(loc, st, name, m.radius))
	}
	return out
}

// View returns the read model of one loader.
func (m *Manager) View(loc Location) (View, bool) {
	st, ok := m.reg.Get(loc)
	if !ok {
		return View{}, false
	}
	return newView(loc, st, m.host.WorldName(loc.World), m.radius), true
}

// ── Reconciliation ───────────────────────────────────────────────

// Apply releases every forced chunk of a world, pins the area of each active
// loader, then reconciles the world's occupants.
func (m *Manager) Apply(id uuid.UUID) {
	if !m.host.WorldLoaded(id) {
		m.occupants.ClearWorld(id)
		return
	}
	m.host.ReleaseAllPinned(id)
	loaders := m.reg.world(id)
	if len(loaders) == 0 {
		m.occupants.ClearWorld(id)
		return
	}
	for c := range ComputeActive(m.reg, id, m.radius) {
		m.host.PinRegion(id, c)
	}
	m.occupants.SyncWorld(id, loaders)
}

// ApplyAll applies every known world, including worlds without loaders so
// stale pins are released.
func (m *Manager) ApplyAll() {
	for _, id := range m.KnownWorlds() {
		m.Apply(id)
	}
}

// SyncOccupants re-runs occupant reconciliation for every loaded world,
// retrying spawns that failed earlier.
func (m *Manager) SyncOccupants() {
	for _, id := range m.host.LoadedWorlds() {
		if loaders := m.reg.world(id); len(loaders) > 0 {
			m.occupants.SyncWorld(id, loaders)
		} else {
			m.occupants.ClearWorld(id)
		}
	}
}

// changed persists, re-applies and notifies after a mutation in world id.
// When the host does not have the world loaded everything is re-derived.
func (m *Manager) changed(id uuid.UUID) {
	m.persist()
	if m.host.WorldLoaded(id) {
		m.Apply(id)
		m.notifier.Notify(id)
		return
	}
	m.ApplyAll()
	m.notifier.Notify(AllWorlds)
}

func (m *Manager) persist() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(m.reg.snapshot()); err != nil {
		m.log.Error("unable to save loaders", zap.String("file", m.store.Path()), zap.Error(err))
	}
}

func (m *Manager) record(kind EventKind, loc Location) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(Event{Kind: kind, Location: loc, At: m.now()})
}
