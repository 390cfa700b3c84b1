package system

import (
	"time"

	"go.uber.org/zap"
)

// Scheduler defers tasks to the start of the next tick. Tasks queued while
// the scheduler is draining run on the tick after.
type Scheduler struct {
	pending []func()
	log     *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// RunTask queues fn. Must be called from the tick goroutine.
func (s *Scheduler) RunTask(fn func()) {
	s.pending = append(s.pending, fn)
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int { return len(s.pending) }

func (s *Scheduler) Phase() Phase { return PhasePreUpdate }

func (s *Scheduler) Update(_ time.Duration) {
	if len(s.pending) == 0 {
		return
	}
	tasks := s.pending
	s.pending = nil
	for _, fn := range tasks {
		s.run(fn)
	}
}

func (s *Scheduler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}
