package system

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick. Systems of the same
// phase run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
		log:     log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once. A tick that takes longer than dt is logged
// with the slowest system.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	start := time.Now()
	var (
		slowest     System
		slowestTook time.Duration
	)
	for _, s := range r.systems {
		t0 := time.Now()
		s.Update(dt)
		if took := time.Since(t0); took > slowestTook {
			slowest, slowestTook = s, took
		}
	}
	if elapsed := time.Since(start); slowest != nil && dt > 0 && elapsed > dt {
		r.log.Warn("tick overran its budget",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", dt),
			zap.String("slowest", fmt.Sprintf("%T", slowest)),
			zap.Stringer("slowest_phase", slowest.Phase()),
			zap.Duration("slowest_took", slowestTook),
		)
	}
}

// TickPhase runs only the systems of one phase. The main loop uses it to
// serve console commands between full ticks.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Phase() < r.systems[j].Phase()
	})
	r.sorted = true
}
