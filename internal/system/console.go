package system

import (
	"time"

	coresys "github.com/chunksloader/server/internal/core/system"
	"github.com/chunksloader/server/internal/handler"
	"github.com/chunksloader/server/internal/net"
	"go.uber.org/zap"
)

// SessionSource hands newly accepted console sessions to the tick loop.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// ConsoleSystem accepts console sessions and dispatches their command lines
// through the handler registry. Phase 0 (Input).
type ConsoleSystem struct {
	source     SessionSource
	registry   *handler.Registry
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	greeting   string
	log        *zap.Logger
}

func NewConsoleSystem(source SessionSource, registry *handler.Registry, store *net.SessionStore, deps *handler.Deps, maxPerTick int, log *zap.Logger) *ConsoleSystem {
	if maxPerTick < 1 {
		maxPerTick = 1
	}
	return &ConsoleSystem{
		source:     source,
		registry:   registry,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		greeting:   deps.Config.Server.Name,
		log:        log,
	}
}

func (s *ConsoleSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ConsoleSystem) Update(_ time.Duration) {
	s.acceptNew()
	s.store.ForEach(func(sess *net.Session) {
		if !sess.IsClosed() {
			s.drain(sess)
		}
	})
}

func (s *ConsoleSystem) acceptNew() {
	for {
		select {
		case sess := <-s.source.NewSessions():
			sess.SetState(handler.InitialState(s.deps.Config.Console.PasswordHash))
			s.store.Add(sess)
			sess.Send("Welcome to " + s.greeting + ".")
			if sess.State() == net.StateConnected {
				sess.Send("Authenticate first: auth <password>")
			} else {
				sess.Send(`Type "help" for a list of commands.`)
			}
		default:
			return
		}
	}
}

// drain dispatches up to maxPerTick queued lines. Lines arriving after quit
// are discarded.
func (s *ConsoleSystem) drain(sess *net.Session) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case line := <-sess.InQueue:
			if sess.State() == net.StateClosing {
				continue
			}
			if err := s.registry.Dispatch(sess, line, s.deps); err != nil {
				s.log.Debug("console dispatch failed", zap.Uint64("session", sess.ID), zap.Error(err))
			}
		default:
			return
		}
	}
}
