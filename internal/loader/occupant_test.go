package loader

import (
	"testing"

	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newOccupantFixture(t *testing.T, supported bool) (*OccupantController, *fakeInjector, uuid.UUID) {
	t.Helper()
	host := world.NewHost(zap.NewNop())
	id := uuid.New()
	host.AddWorld(id, "world", 0, 64, 0)
	inj := &fakeInjector{host: host, supported: supported}
	return NewOccupantController(inj, zap.NewNop()), inj, id
}

func TestSyncWorldSpawnsOnlyWantedOccupants(t *testing.T) {
	c, inj, id := newOccupantFixture(t, true)
	wanted := Location{World: id, X: 100, Y: 64, Z: 100}
	inactive := Location{World: id, X: 300, Y: 64, Z: 300}
	plain := Location{World: id, X: 500, Y: 64, Z: 500}
	states := map[Location]*State{
		wanted:   {Active: true, OccupantEnabled: true},
		inactive: {Active: false, OccupantEnabled: true, OccupantName: "CLIDLE"},
		plain:    {Active: true},
	}
	c.SyncWorld(id, states)

	if c.LiveCount() != 1 {
		t.Fatalf("live = %d, want 1", c.LiveCount())
	}
	h, ok := c.Live(wanted)
	if !ok || h.Name != OccupantName(wanted) {
		t.Fatalf("live handle = %+v, %v", h, ok)
	}
	if states[wanted].OccupantName != OccupantName(wanted) {
		t.Fatalf("generated name not written back: %q", states[wanted].OccupantName)
	}
	e, ok := inj.host.FindEntity(h.Name)
	if !ok || e.Pos.X != 100.5 || e.Pos.Z != 100.5 || e.Pos.Y != 64 {
		t.Fatalf("entity = %+v", e)
	}

	// A second sync is idempotent.
	c.SyncWorld(id, states)
	if len(inj.spawned) != 1 {
		t.Fatalf("spawned = %v", inj.spawned)
	}

	states[wanted].Active = false
	c.SyncWorld(id, states)
	if c.LiveCount() != 0 {
		t.Fatal("occupant survived deactivation")
	}
	if _, ok := inj.host.FindEntity(h.Name); ok {
		t.Fatal("entity still in host")
	}
}

func TestEnsureSpawnedRemovesNameCollision(t *testing.T) {
	c, inj, id := newOccupantFixture(t, true)
	loc := Location{World: id, X: 1, Y: 2, Z: 3}
	st := &State{Active: true, OccupantEnabled: true, OccupantName: "CLDUP"}
	if _, err := inj.host.SpawnEntity(world.Position{World: id}, "cldup", true); err != nil {
		t.Fatal(err)
	}
	c.EnsureSpawned(loc, st)
	if _, ok := c.Live(loc); !ok {
		t.Fatal("occupant not spawned")
	}
	if !containsFold(inj.removed, "CLDUP") {
		t.Fatalf("stale entity not removed: %v", inj.removed)
	}
	if got := len(inj.host.Entities()); got != 1 {
		t.Fatalf("entities = %d, want 1", got)
	}
}

func TestSpawnFailureIsRetriedOnNextSync(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	host := world.NewHost(zap.NewNop())
	id := uuid.New()
	host.AddWorld(id, "world", 0, 64, 0)
	inj := &fakeInjector{host: host, supported: true, failSpawn: 1}
	c := NewOccupantController(inj, zap.New(core))

	loc := Location{World: id, X: 50, Y: 70, Z: 50}
	states := map[Location]*State{loc: {Active: true, OccupantEnabled: true}}
	c.SyncWorld(id, states)
	if c.LiveCount() != 0 {
		t.Fatal("failed spawn was tracked")
	}
	if logs.FilterMessage("failed to spawn simulated occupant").Len() != 1 {
		t.Fatalf("warnings = %v", logs.All())
	}
	c.SyncWorld(id, states)
	if c.LiveCount() != 1 {
		t.Fatal("spawn not retried")
	}
}

func TestDisableFallsBackToName(t *testing.T) {
	c, inj, id := newOccupantFixture(t, true)
	if _, err := inj.host.SpawnEntity(world.Position{World: id}, "CLLEFT", true); err != nil {
		t.Fatal(err)
	}
	c.Disable(Location{World: id}, &State{OccupantName: "CLLEFT"})
	if _, ok := inj.host.FindEntity("CLLEFT"); ok {
		t.Fatal("leftover occupant not removed by name")
	}
	c.Disable(Location{World: id}, nil)
}

func TestUnsupportedInjectorIsInert(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	host := world.NewHost(zap.NewNop())
	id := uuid.New()
	host.AddWorld(id, "world", 0, 64, 0)
	inj := &fakeInjector{host: host, supported: false}
	c := NewOccupantController(inj, zap.New(core))
	if c.IsSupported() {
		t.Fatal("controller reports support")
	}
	loc := Location{World: id}
	c.SyncWorld(id, map[Location]*State{loc: {Active: true, OccupantEnabled: true}})
	c.EnsureSpawned(loc, &State{Active: true, OccupantEnabled: true})
	if c.LiveCount() != 0 || len(inj.spawned) != 0 {
		t.Fatal("unsupported controller spawned")
	}
	if logs.Len() != 1 {
		t.Fatalf("warnings = %d, want exactly one", logs.Len())
	}

	nilCtl := NewOccupantController(nil, zap.NewNop())
	if nilCtl.IsSupported() {
		t.Fatal("nil injector reports support")
	}
	nilCtl.ClearAll()
}

func TestClearWorldLeavesOtherWorlds(t *testing.T) {
	c, inj, a := newOccupantFixture(t, true)
	b := uuid.New()
	inj.host.AddWorld(b, "other", 0, 64, 0)
	la := Location{World: a, X: 1}
	lb := Location{World: b, X: 1}
	c.EnsureSpawned(la, &State{Active: true, OccupantEnabled: true})
	c.EnsureSpawned(lb, &State{Active: true, OccupantEnabled: true})
	c.ClearWorld(a)
	if _, ok := c.Live(la); ok {
		t.Fatal("world a occupant survived")
	}
	if _, ok := c.Live(lb); !ok {
		t.Fatal("world b occupant removed")
	}
	c.ClearAll()
	if c.LiveCount() != 0 || len(inj.host.Entities()) != 0 {
		t.Fatal("ClearAll left occupants")
	}
}
