package occupant

import (
	"errors"
	"testing"

	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newHost(t *testing.T) (*world.Host, uuid.UUID) {
	t.Helper()
	h := world.NewHost(zap.NewNop())
	id := uuid.New()
	h.AddWorld(id, "world", 0, 64, 0)
	return h, id
}

func TestProbe(t *testing.T) {
	cases := []struct {
		name      string
		strategy  string
		synthetic bool
		commands  bool
		want      string
		wantErr   bool
	}{
		{"auto prefers synthetic", "auto", true, true, "synthetic", false},
		{"auto falls back to commands", "", false, true, "command", false},
		{"auto without capability", "AUTO", false, false, "none", false},
		{"forced synthetic", "synthetic", true, false, "synthetic", false},
		{"forced synthetic missing", "synthetic", false, true, "", true},
		{"forced command missing", "command", true, false, "", true},
		{"none", "none", true, true, "none", false},
		{"unknown", "teleport", true, true, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host, _ := newHost(t)
			host.SetSyntheticEnabled(tc.synthetic)
			host.SetCommandsEnabled(tc.commands)
			inj, err := Probe(tc.strategy, host, zap.NewNop())
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Probe(%q) = %T, want error", tc.strategy, inj)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var got string
			switch inj.(type) {
			case *Synthetic:
				got = "synthetic"
			case *Command:
				got = "command"
			case Unsupported:
				got = "none"
			}
			if got != tc.want {
				t.Fatalf("Probe(%q) = %s, want %s", tc.strategy, got, tc.want)
			}
		})
	}
}

func TestSyntheticInjector(t *testing.T) {
	host, id := newHost(t)
	s := NewSynthetic(host)
	h, err := s.Spawn(world.Position{World: id, X: 1.5, Y: 64, Z: 2.5}, "CLTEST")
	if err != nil {
		t.Fatal(err)
	}
	e, ok := host.FindEntity("cltest")
	if !ok || !e.Synthetic || e.ID != h.ID {
		t.Fatalf("entity = %+v", e)
	}
	if got, ok := s.FindLiveByName("CLTEST"); !ok || got != h {
		t.Fatalf("FindLiveByName = %+v, %v", got, ok)
	}
	if err := s.Remove(h); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(h); !errors.Is(err, world.ErrUnknownEntity) {
		t.Fatalf("second remove err = %v", err)
	}
}

func TestCommandInjector(t *testing.T) {
	host, id := newHost(t)
	c := NewCommand(host, zap.NewNop())
	h, err := c.Spawn(world.Position{World: id, X: 16.5, Y: 70, Z: -3.5}, "CLCMD")
	if err != nil {
		t.Fatal(err)
	}
	e, ok := host.FindEntity("CLCMD")
	if !ok || e.Synthetic || e.Pos.X != 16.5 || e.Pos.Z != -3.5 {
		t.Fatalf("entity = %+v", e)
	}
	if err := c.Remove(h); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.FindLiveByName("CLCMD"); ok {
		t.Fatal("entity survived kill")
	}
	if _, err := c.Spawn(world.Position{World: id}, "two words"); err == nil {
		t.Fatal("name with spaces accepted")
	}
}

func TestUnsupportedInjector(t *testing.T) {
	var u Unsupported
	if u.IsSupported() {
		t.Fatal("Unsupported reports support")
	}
	if _, err := u.Spawn(world.Position{}, "x"); !errors.Is(err, loader.ErrOccupantUnsupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestInjectorsDriveOccupantController(t *testing.T) {
	host, id := newHost(t)
	for _, inj := range []loader.EntityInjector{NewSynthetic(host), NewCommand(host, zap.NewNop())} {
		c := loader.NewOccupantController(inj, zap.NewNop())
		loc := loader.Location{World: id, X: 40, Y: 64, Z: 40}
		states := map[loader.Location]*loader.State{loc: {Active: true, OccupantEnabled: true}}
		c.SyncWorld(id, states)
		if _, ok := host.FindEntity(loader.OccupantName(loc)); !ok {
			t.Fatalf("%T: occupant not spawned", inj)
		}
		c.ClearAll()
		if len(host.Entities()) != 0 {
			t.Fatalf("%T: occupant left behind", inj)
		}
	}
}
