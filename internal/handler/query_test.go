package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/persist"
	"github.com/google/uuid"
)

type fakeHistory struct {
	entries []persist.JournalEntry
	err     error
	world   uuid.UUID
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, world uuid.UUID, limit int) ([]persist.JournalEntry, error) {
	f.world, f.limit = world, limit
	return f.entries, f.err
}

func TestList(t *testing.T) {
	r := newRig(t)
	if out := r.run("list world"); out[0] != "No chunk loaders in world." {
		t.Fatalf("out = %v", out)
	}
	r.place(t, 80, 64, 80)
	loc := r.place(t, 200, 64, 200)
	r.deps.Manager.SetActive(loc, false)

	out := r.run("list world")
	if len(out) != 5 {
		t.Fatalf("out = %q", out)
	}
	if !strings.HasPrefix(out[0], "block") || !strings.Contains(out[3], "inactive") {
		t.Fatalf("out = %q", out)
	}
	if out[4] != "2 loader(s), 9 chunk(s) pinned." {
		t.Fatalf("summary = %q", out[4])
	}
}

func TestWorlds(t *testing.T) {
	r := newRig(t)
	r.place(t, 80, 64, 80)
	out := r.run("worlds")
	if len(out) != 3 {
		t.Fatalf("out = %q", out)
	}
	fields := strings.Fields(out[2])
	want := []string{"world", testWorld.String(), "yes", "1", "9"}
	if strings.Join(fields, " ") != strings.Join(want, " ") {
		t.Fatalf("row = %q", out[2])
	}
}

func TestHistory(t *testing.T) {
	r := newRig(t)
	if out := r.run("history world"); out[0] != "The loader journal is disabled." {
		t.Fatalf("out = %v", out)
	}

	h := &fakeHistory{}
	r.deps.History = h
	if out := r.run("history world 3"); out[0] != "No recorded changes." || h.limit != 3 || h.world != testWorld {
		t.Fatalf("out = %v limit = %d", out, h.limit)
	}

	h.entries = []persist.JournalEntry{
		{ID: 2, World: testWorld, X: 80, Y: 64, Z: 80, Kind: loader.EventDeactivated, OccurredAt: time.Now()},
		{ID: 1, World: testWorld, X: 80, Y: 64, Z: 80, Kind: loader.EventPlaced, OccurredAt: time.Now()},
	}
	out := r.run("history world")
	if len(out) != 4 || h.limit != 10 {
		t.Fatalf("out = %q limit = %d", out, h.limit)
	}
	if !strings.Contains(out[2], "deactivated") || !strings.Contains(out[3], "80, 64, 80") {
		t.Fatalf("out = %q", out)
	}

	h.err = errors.New("connection refused")
	if out := r.run("history world"); out[0] != "Could not read the journal." {
		t.Fatalf("out = %v", out)
	}
}
