package event

import (
	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
)

// Host events. Reply, when set, receives a human-readable outcome for the
// console session that caused the event.

type BlockPlaced struct {
	Location loader.Location
	Reply    func(string)
}

type BlockBroken struct {
	Location loader.Location
	Reply    func(string)
}

type WorldLoad struct {
	World uuid.UUID
	Reply func(string)
}

type WorldUnload struct {
	World uuid.UUID
	Reply func(string)
}
