package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chunksloader/server/internal/world"
	"go.uber.org/zap"
)

func HandleList(sess Session, args *Args, deps *Deps) {
	id := args.World(deps.Host)
	if !args.ok(sess) {
		return
	}
	views := deps.Manager.Views(id)
	if len(views) == 0 {
		sess.Send("No chunk loaders in " + deps.Manager.WorldName(id) + ".")
		return
	}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		occupant := "-"
		if v.Occupant {
			occupant = v.OccupantName
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d, %d, %d", v.X, v.Y, v.Z),
			fmt.Sprintf("%d, %d", v.Chunk.X, v.Chunk.Z),
			v.StatusLabel(),
			occupant,
			deps.label(v),
		})
	}
	for _, line := range Table([]string{"block", "chunk", "status", "occupant", "label"}, rows) {
		sess.Send(line)
	}
	sess.Send(fmt.Sprintf("%d loader(s), %d chunk(s) pinned.", len(views), len(deps.Manager.LoadedChunkArea(id))))
}

// HandleMap draws the chunk map around a chunk.
func HandleMap(sess Session, args *Args, deps *Deps) {
	id := args.World(deps.Host)
	cx, cz := args.Int32(), args.Int32()
	if !args.ok(sess) {
		return
	}
	r := deps.Config.Loader.MapRadius
	center := world.ChunkCoord{X: cx, Z: cz}
	sess.Send(fmt.Sprintf("%s around chunk %d, %d (S reserved, # loaded, + inactive):",
		deps.Manager.WorldName(id), cx, cz))
	for _, row := range ChunkMap(deps.Manager, id, center, r) {
		sess.Send(row)
	}
}

func HandleWorlds(sess Session, _ *Args, deps *Deps) {
	m := deps.Manager
	rows := make([][]string, 0)
	for _, id := range m.KnownWorlds() {
		name := m.WorldName(id)
		loaded := "no"
		if deps.Host.WorldLoaded(id) {
			loaded = "yes"
		}
		rows = append(rows, []string{
			name,
			id.String(),
			loaded,
			strconv.Itoa(len(m.Locations(id))),
			strconv.Itoa(len(deps.Host.Pinned(id))),
		})
	}
	for _, line := range Table([]string{"world", "uuid", "loaded", "loaders", "pinned"}, rows) {
		sess.Send(line)
	}
}

// HandleHistory lists the newest journal entries of a world.
func HandleHistory(sess Session, args *Args, deps *Deps) {
	id := args.World(deps.Host)
	limit := args.OptionalInt(10)
	if !args.ok(sess) {
		return
	}
	if deps.History == nil {
		sess.Send("The loader journal is disabled.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	entries, err := deps.History.Recent(ctx, id, limit)
	if err != nil {
		deps.Log.Error("journal query failed", zap.Error(err))
		sess.Send("Could not read the journal.")
		return
	}
	if len(entries) == 0 {
		sess.Send("No recorded changes.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.OccurredAt.Local().Format("2006-01-02 15:04:05"),
			string(e.Kind),
			fmt.Sprintf("%d, %d, %d", e.X, e.Y, e.Z),
		})
	}
	for _, line := range Table([]string{"time", "change", "block"}, rows) {
		sess.Send(line)
	}
}
