package loader

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
)

// Location is the block position of a loader. It is the registry key.
type Location struct {
	World uuid.UUID
	X     int32
	Y     int32
	Z     int32
}

// Chunk returns the chunk the loader block sits in.
func (l Location) Chunk() world.ChunkCoord {
	return world.ToChunk(l.X, l.Z)
}

// Center is where a simulated occupant stands: the middle of the block, facing south.
func (l Location) Center() world.Position {
	return world.Position{
		World: l.World,
		X:     float64(l.X) + 0.5,
		Y:     float64(l.Y),
		Z:     float64(l.Z) + 0.5,
	}
}

func (l Location) String() string {
	return fmt.Sprintf("%d, %d, %d @ %s", l.X, l.Y, l.Z, l.World)
}

func lessLocation(a, b Location) bool {
	if c := bytes.Compare(a.World[:], b.World[:]); c != 0 {
		return c < 0
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func sortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool { return lessLocation(locs[i], locs[j]) })
}

func sortWorlds(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
