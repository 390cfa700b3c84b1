package loader

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeInjector spawns into a real world.Host and can be told to fail.
type fakeInjector struct {
	host      *world.Host
	supported bool
	failSpawn int
	spawned   []string
	removed   []string
}

func (f *fakeInjector) IsSupported() bool { return f.supported }

func (f *fakeInjector) Spawn(pos world.Position, name string) (Handle, error) {
	if f.failSpawn > 0 {
		f.failSpawn--
		return Handle{}, errors.New("injector refused")
	}
	e, err := f.host.SpawnEntity(pos, name, true)
	if err != nil {
		return Handle{}, err
	}
	f.spawned = append(f.spawned, name)
	return Handle{ID: e.ID, Name: e.Name}, nil
}

func (f *fakeInjector) Remove(h Handle) error {
	f.removed = append(f.removed, h.Name)
	return f.host.RemoveEntity(h.ID)
}

func (f *fakeInjector) FindLiveByName(name string) (Handle, bool) {
	e, ok := f.host.FindEntity(name)
	if !ok {
		return Handle{}, false
	}
	return Handle{ID: e.ID, Name: e.Name}, true
}

// queueScheduler collects deferred tasks until run.
type queueScheduler struct {
	tasks []func()
}

func (q *queueScheduler) RunTask(fn func()) { q.tasks = append(q.tasks, fn) }

func (q *queueScheduler) run() {
	tasks := q.tasks
	q.tasks = nil
	for _, fn := range tasks {
		fn()
	}
}

type recordingRecorder struct {
	events []Event
}

func (r *recordingRecorder) Record(ev Event) { r.events = append(r.events, ev) }

type testEnv struct {
	mgr      *Manager
	host     *world.Host
	world    uuid.UUID
	injector *fakeInjector
	store    *FileStore
	sched    *queueScheduler
	rec      *recordingRecorder
}

// newTestEnv builds a manager with radius 1 over a single world whose spawn
// sits far away at chunk (62, 62).
func newTestEnv(t *testing.T, supported bool) *testEnv {
	t.Helper()
	log := zap.NewNop()
	host := world.NewHost(log)
	id := uuid.MustParse("6f1c1f1e-8f43-4c8e-9d2a-0e9a3f7d8b11")
	host.AddWorld(id, "world", 1000, 64, 1000)
	inj := &fakeInjector{host: host, supported: supported}
	store := NewFileStore(filepath.Join(t.TempDir(), "chunkloaders.yml"), log)
	sched := &queueScheduler{}
	rec := &recordingRecorder{}
	mgr := NewManager(Options{
		Radius:    1,
		Store:     store,
		Host:      host,
		Injector:  inj,
		Scheduler: sched,
		Recorder:  rec,
		Log:       log,
	})
	return &testEnv{mgr: mgr, host: host, world: id, injector: inj, store: store, sched: sched, rec: rec}
}

func (e *testEnv) loc(x, y, z int32) Location {
	return Location{World: e.world, X: x, Y: y, Z: z}
}

func chunkSquare(minX, minZ, maxX, maxZ int32) world.ChunkSet {
	out := make(world.ChunkSet)
	for x := minX; x <= maxX; x++ {
		for z := minZ; z <= maxZ; z++ {
			out.Add(world.ChunkCoord{X: x, Z: z})
		}
	}
	return out
}

func sameChunks(a, b world.ChunkSet) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if !b.Has(c) {
			return false
		}
	}
	return true
}

func containsFold(list []string, name string) bool {
	for _, s := range list {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
