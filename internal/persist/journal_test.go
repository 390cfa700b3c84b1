package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memWriter struct {
	fail    bool
	batches [][]loader.Event
}

func (w *memWriter) WriteEvents(_ context.Context, events []loader.Event) error {
	if w.fail {
		return errors.New("db down")
	}
	w.batches = append(w.batches, append([]loader.Event(nil), events...))
	return nil
}

func event(kind loader.EventKind, x int32) loader.Event {
	return loader.Event{
		Kind:     kind,
		Location: loader.Location{World: uuid.Nil, X: x},
		At:       time.Unix(int64(x), 0),
	}
}

func TestJournalFlushWritesOneBatch(t *testing.T) {
	w := &memWriter{}
	j := NewJournal(w, zap.NewNop())
	j.Record(event(loader.EventPlaced, 1))
	j.Record(event(loader.EventRemoved, 2))

	if err := j.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.batches) != 1 || len(w.batches[0]) != 2 || w.batches[0][1].Kind != loader.EventRemoved {
		t.Fatalf("batches = %+v", w.batches)
	}
	if j.Pending() != 0 {
		t.Fatal("buffer not emptied")
	}
	if err := j.Flush(context.Background()); err != nil || len(w.batches) != 1 {
		t.Fatal("empty flush wrote a batch")
	}
}

func TestJournalKeepsEventsOnFailure(t *testing.T) {
	w := &memWriter{fail: true}
	j := NewJournal(w, zap.NewNop())
	j.Record(event(loader.EventPlaced, 1))
	if err := j.Flush(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	j.Record(event(loader.EventActivated, 2))
	if j.Pending() != 2 {
		t.Fatalf("pending = %d", j.Pending())
	}
	w.fail = false
	if err := j.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := w.batches[0]
	if len(got) != 2 || got[0].Location.X != 1 || got[1].Location.X != 2 {
		t.Fatalf("order lost: %+v", got)
	}
}

func TestJournalBoundsBuffer(t *testing.T) {
	j := NewJournal(&memWriter{}, zap.NewNop())
	for i := 0; i < maxPending+10; i++ {
		j.Record(event(loader.EventPlaced, int32(i)))
	}
	if j.Pending() != maxPending {
		t.Fatalf("pending = %d", j.Pending())
	}
}

func TestJournalEntryLocation(t *testing.T) {
	id := uuid.New()
	e := JournalEntry{World: id, X: 1, Y: 2, Z: 3}
	if e.Location() != (loader.Location{World: id, X: 1, Y: 2, Z: 3}) {
		t.Fatalf("location = %v", e.Location())
	}
}
