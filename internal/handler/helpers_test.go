package handler

import (
	"testing"

	"github.com/chunksloader/server/internal/config"
	"github.com/chunksloader/server/internal/core/event"
	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/net"
	"github.com/chunksloader/server/internal/occupant"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var testWorld = uuid.MustParse("3d1e0c5a-7b2f-4e8d-9a61-0f2b4c6d8e10")

type fakeSession struct {
	state   net.SessionState
	lines   []string
	closing bool
}

func (s *fakeSession) Send(line string) { s.lines = append(s.lines, line) }
func (s *fakeSession) State() net.SessionState { return s.state }
func (s *fakeSession) SetState(st net.SessionState) { s.state = st }
func (s *fakeSession) CloseAfterFlush() { s.closing = true }

func (s *fakeSession) last() string {
	if len(s.lines) == 0 {
		return ""
	}
	return s.lines[len(s.lines)-1]
}

func (s *fakeSession) reset() { s.lines = nil }

type rig struct {
	reg  *Registry
	deps *Deps
	sess *fakeSession
}

// newRig wires every console command over a host with one world whose spawn
// chunk is (0,0) and a manager with radius 1.
func newRig(t *testing.T) *rig {
	t.Helper()
	log := zap.NewNop()
	host := world.NewHost(log)
	host.AddWorld(testWorld, "world", 0, 64, 0)
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
	cfg.Loader.MapRadius = 2
	deps := &Deps{
		Manager: mgr,
		Host:    host,
		Bus:     event.NewBus(),
		Config:  cfg,
		Log:     log,
	}
	reg := NewRegistry(log)
	RegisterAll(reg, deps)
	return &rig{reg: reg, deps: deps, sess: &fakeSession{state: net.StateAuthenticated}}
}

func (r *rig) run(line string) []string {
	r.sess.reset()
	_ = r.reg.Dispatch(r.sess, line, r.deps)
	return r.sess.lines
}

func (r *rig) place(t *testing.T, x, y, z int32) loader.Location {
	t.Helper()
	loc := loader.Location{World: testWorld, X: x, Y: y, Z: z}
	if err := r.deps.Manager.Place(loc); err != nil {
		t.Fatalf("place %v: %v", loc, err)
	}
	return loc
}
