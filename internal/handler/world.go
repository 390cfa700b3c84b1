package handler

import "github.com/chunksloader/server/internal/core/event"

func HandleLoadWorld(sess Session, args *Args, deps *Deps) {
	id := args.World(deps.Host)
	if !args.ok(sess) {
		return
	}
	event.Emit(deps.Bus, event.WorldLoad{World: id, Reply: sess.Send})
}

func HandleUnloadWorld(sess Session, args *Args, deps *Deps) {
	id := args.World(deps.Host)
	if !args.ok(sess) {
		return
	}
	event.Emit(deps.Bus, event.WorldUnload{World: id, Reply: sess.Send})
}
