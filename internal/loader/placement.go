package loader

import (
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
)

// ReservedOrigin reports the chunk at the center of a world's reserved area.
type ReservedOrigin interface {
	ReservedOriginChunk(world uuid.UUID) (world.ChunkCoord, bool)
}

// InReservedArea reports whether the pinned area of a loader at chunk would
// touch the reserved square around origin. Both squares share the same half-width.
func InReservedArea(origin, chunk world.ChunkCoord, radius int) bool {
	return world.WithinSquare(origin, chunk, radius)
}

// CanPlace decides whether a new loader may go at loc:
//   - its pinned area must not touch the world's reserved area;
//   - it must be more than 2*radius chunks away, on at least one axis, from
//     every existing loader of the same world.
//
// The second rule is an axis-aligned box test and rejects some diagonal
// placements whose areas would not actually overlap. That is the policy.
func CanPlace(reg *Registry, origins ReservedOrigin, loc Location, radius int) bool {
	if radius < 0 {
		radius = 0
	}
	chunk := loc.Chunk()
	origin, ok := origins.ReservedOriginChunk(loc.World)
	if !ok {
		return false
	}
	if InReservedArea(origin, chunk, radius) {
		return false
	}
	for existing := range reg.world(loc.World) {
		if world.WithinSquare(existing.Chunk(), chunk, 2*radius) {
			return false
		}
	}
	return true
}

// ComputeActive returns the union of the pinned areas of the active loaders of a world.
func ComputeActive(reg *Registry, id uuid.UUID, radius int) world.ChunkSet {
	return computeArea(reg, id, radius, true)
}

// ComputeInactive returns the union of the pinned areas of the inactive loaders of a world.
func ComputeInactive(reg *Registry, id uuid.UUID, radius int) world.ChunkSet {
	return computeArea(reg, id, radius, false)
}

func computeArea(reg *Registry, id uuid.UUID, radius int, active bool) world.ChunkSet {
	out := make(world.ChunkSet)
	for loc, st := range reg.world(id) {
		if st.Active == active {
			world.AddPinnedArea(out, loc.Chunk(), radius)
		}
	}
	return out
}
