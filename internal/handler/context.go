package handler

import (
	"context"

	"github.com/chunksloader/server/internal/config"
	"github.com/chunksloader/server/internal/core/event"
	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/net"
	"github.com/chunksloader/server/internal/persist"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistorySource reads the loader event journal.
type HistorySource interface {
	Recent(ctx context.Context, world uuid.UUID, limit int) ([]persist.JournalEntry, error)
}

// Deps holds shared dependencies injected into all console handlers.
type Deps struct {
	Manager *loader.Manager
	Host    *world.Host
	Bus     *event.Bus
	History HistorySource // nil when the journal is disabled
	Label   func(loader.View) string
	Config  *config.Config
	Log     *zap.Logger
}

// RegisterAll registers every console command into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	always := []net.SessionState{net.StateConnected, net.StateAuthenticated}
	authed := []net.SessionState{net.StateAuthenticated}

	reg.Register("help", "", always, func(sess Session, _ *Args, _ *Deps) {
		HandleHelp(sess, reg)
	})
	reg.Register("auth", "<password>", []net.SessionState{net.StateConnected}, HandleAuth)
	reg.Register("quit", "", always, HandleQuit)

	reg.Register("place", "<world> <x> <y> <z>", authed, HandlePlace)
	reg.Register("break", "<world> <x> <y> <z>", authed, HandleBreak)
	reg.Register("toggle", "<world> <x> <y> <z>", authed, HandleToggle)
	reg.Register("occupant", "<world> <x> <y> <z>", authed, HandleOccupant)
	reg.Register("info", "<world> <x> <y> <z>", authed, HandleInfo)
	reg.Register("check", "<world> <x> <y> <z>", authed, HandleCheck)

	reg.Register("list", "<world>", authed, HandleList)
	reg.Register("map", "<world> <chunkX> <chunkZ>", authed, HandleMap)
	reg.Register("worlds", "", authed, HandleWorlds)
	reg.Register("history", "<world> [limit]", authed, HandleHistory)

	reg.Register("load", "<world>", authed, HandleLoadWorld)
	reg.Register("unload", "<world>", authed, HandleUnloadWorld)
}

func (d *Deps) label(v loader.View) string {
	if d.Label != nil {
		return d.Label(v)
	}
	return "Chunk Loader (" + v.WorldName + ")"
}
