package system

import (
	"time"

	coresys "github.com/chunksloader/server/internal/core/system"
	"github.com/chunksloader/server/internal/loader"
)

// ReconcileSystem periodically re-runs occupant reconciliation so failed
// spawns are retried. Occupants already tracked as live are not re-checked
// against the host.
// Phase 3 (PostUpdate).
type ReconcileSystem struct {
	manager   *loader.Manager
	tickCount int
	interval  int // reconcile every N ticks
}

func NewReconcileSystem(manager *loader.Manager, intervalTicks int) *ReconcileSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &ReconcileSystem{manager: manager, interval: intervalTicks}
}

func (s *ReconcileSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ReconcileSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.manager.SyncOccupants()
}
