package system

import (
	"context"
	"time"

	coresys "github.com/chunksloader/server/internal/core/system"
	"go.uber.org/zap"
)

// JournalFlusher writes pending journal entries.
type JournalFlusher interface {
	Flush(ctx context.Context) error
	Pending() int
}

// JournalSystem flushes the loader event journal every N ticks.
// Phase 5 (Persist).
type JournalSystem struct {
	journal   JournalFlusher
	log       *zap.Logger
	tickCount int
	interval  int
}

func NewJournalSystem(journal JournalFlusher, intervalTicks int, log *zap.Logger) *JournalSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &JournalSystem{journal: journal, interval: intervalTicks, log: log}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if s.journal.Pending() == 0 {
		return
	}
	if err := s.FlushNow(); err != nil {
		s.log.Debug("journal flush deferred", zap.Int("pending", s.journal.Pending()))
	}
}

// FlushNow writes everything pending immediately. Called on shutdown.
// The journal logs its own write failures.
func (s *JournalSystem) FlushNow() error {
	return s.journal.Flush(context.Background())
}
