package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain console command queues
	PhasePreUpdate               // 1: deferred tasks, last tick's host events
	PhaseUpdate                  // 2: host simulation
	PhasePostUpdate              // 3: occupant reconciliation
	PhaseOutput                  // 4: flush console replies
	PhasePersist                 // 5: journal flush
	PhaseCleanup                 // 6: drop closed sessions
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is one unit of per-tick work.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
