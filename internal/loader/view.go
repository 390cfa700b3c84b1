package loader

import (
	"fmt"

	"github.com/chunksloader/server/internal/world"
)

// Bounds is a half-open block-space rectangle on the horizontal plane.
type Bounds struct {
	MinX int64 `json:"min_x"`
	MinZ int64 `json:"min_z"`
	MaxX int64 `json:"max_x"`
	MaxZ int64 `json:"max_z"`
}

func boundsAround(c world.ChunkCoord, radius int) Bounds {
	minX, minZ, maxX, maxZ := c.BlockBounds(radius)
	return Bounds{MinX: minX, MinZ: minZ, MaxX: maxX, MaxZ: maxZ}
}

// View is the read model of one loader handed to map renderers and scripts.
type View struct {
	ID           string           `json:"id"`
	WorldID      string           `json:"world_id"`
	WorldName    string           `json:"world_name"`
	X            int32            `json:"x"`
	Y            int32            `json:"y"`
	Z            int32            `json:"z"`
	Chunk        world.ChunkCoord `json:"chunk"`
	Radius       int              `json:"radius"`
	ChunkCount   int              `json:"chunk_count"`
	Active       bool             `json:"active"`
	Occupant     bool             `json:"occupant"`
	OccupantName string           `json:"occupant_name,omitempty"`
	Bounds       Bounds           `json:"bounds"`
}

// StatusLabel is the human label of the active flag.
func (v View) StatusLabel() string {
	if v.Active {
		return "active"
	}
	return "inactive"
}

func newView(loc Location, st State, worldName string, radius int) View {
	side := 2*radius + 1
	return View{
		ID:           fmt.Sprintf("loader_%s_%d_%d_%d", loc.World, loc.X, loc.Y, loc.Z),
		WorldID:      loc.World.String(),
		WorldName:    worldName,
		X:            loc.X,
		Y:            loc.Y,
		Z:            loc.Z,
		Chunk:        loc.Chunk(),
		Radius:       radius,
		ChunkCount:   side * side,
		Active:       st.Active,
		Occupant:     st.OccupantEnabled,
		OccupantName: st.OccupantName,
		Bounds:       boundsAround(loc.Chunk(), radius),
	}
}
