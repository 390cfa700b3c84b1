package persist

import (
	"context"
	"sync"
	"time"

	"github.com/chunksloader/server/internal/loader"
	"go.uber.org/zap"
)

// EventWriter stores a batch of loader events.
type EventWriter interface {
	WriteEvents(ctx context.Context, events []loader.Event) error
}

// maxPending bounds the buffer while the database is unreachable.
const maxPending = 4096

// Journal buffers loader events in memory and writes them in batches.
// It implements loader.Recorder.
type Journal struct {
	mu      sync.Mutex
	pending []loader.Event
	dropped int
	writer  EventWriter
	timeout time.Duration
	log     *zap.Logger
}

func NewJournal(writer EventWriter, log *zap.Logger) *Journal {
	return &Journal{writer: writer, timeout: 5 * time.Second, log: log}
}

// Record queues one event. When the buffer is full the oldest event is dropped.
func (j *Journal) Record(ev loader.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.pending) >= maxPending {
		j.pending = j.pending[1:]
		j.dropped++
	}
	j.pending = append(j.pending, ev)
}

// Pending returns the number of buffered events.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Flush writes every buffered event. On failure the batch stays buffered and
// is retried on the next flush.
func (j *Journal) Flush(ctx context.Context) error {
	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	dropped := j.dropped
	j.dropped = 0
	j.mu.Unlock()

	if dropped > 0 {
		j.log.Warn("journal buffer overflowed", zap.Int("dropped", dropped))
	}
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.writer.WriteEvents(ctx, batch); err != nil {
		j.mu.Lock()
		j.pending = append(batch, j.pending...)
		if over := len(j.pending) - maxPending; over > 0 {
			j.pending = j.pending[over:]
			j.dropped += over
		}
		j.mu.Unlock()
		j.log.Error("journal flush failed", zap.Int("events", len(batch)), zap.Error(err))
		return err
	}
	j.log.Debug("journal flushed", zap.Int("events", len(batch)))
	return nil
}
