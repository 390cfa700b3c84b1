package system

import (
	"testing"

	"github.com/chunksloader/server/internal/config"
	"github.com/chunksloader/server/internal/core/event"
	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/occupant"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type testEnv struct {
	host    *world.Host
	world   uuid.UUID
	manager *loader.Manager
	bus     *event.Bus
	cfg     *config.Config
}

// newTestEnv builds a manager with radius 1 over one world whose spawn chunk
// is (0,0).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	host := world.NewHost(log)
	id := uuid.MustParse("0b7f6b1c-1d2e-4f30-8a41-5c6d7e8f9a0b")
	host.AddWorld(id, "world", 0, 64, 0)

	mgr := loader.NewManager(loader.Options{
		Radius:   1,
		Host:     host,
		Injector: occupant.NewSynthetic(host),
		Log:      log,
	})
	if err := mgr.Load(); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{host: host, world: id, manager: mgr, bus: event.NewBus(), cfg: cfg}
}

func (e *testEnv) loc(x, y, z int32) loader.Location {
	return loader.Location{World: e.world, X: x, Y: y, Z: z}
}

type replies struct {
	lines []string
}

func (r *replies) add(line string) { r.lines = append(r.lines, line) }

func (r *replies) last() string {
	if len(r.lines) == 0 {
		return ""
	}
	return r.lines[len(r.lines)-1]
}
