package system

import (
	"time"

	coresys "github.com/chunksloader/server/internal/core/system"
	"github.com/chunksloader/server/internal/net"
	"go.uber.org/zap"
)

// CleanupSystem forgets console sessions whose connection has closed.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	store *net.SessionStore
	log   *zap.Logger
}

func NewCleanupSystem(store *net.SessionStore, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{store: store, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	var closed []uint64
	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			closed = append(closed, sess.ID)
		}
	})
	for _, id := range closed {
		s.store.Remove(id)
		s.log.Info("console disconnected", zap.Uint64("session", id))
	}
}
