package world

import "sort"

// ChunkSize is the edge length of a chunk in blocks.
const ChunkSize = 16

// ChunkCoord identifies one chunk column of a world.
type ChunkCoord struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

// toChunkCoord floors toward negative infinity, so block -1 is in chunk -1.
func toChunkCoord(v int32) int32 {
	return v >> 4
}

// ToChunk returns the chunk containing block column (x, z).
func ToChunk(x, z int32) ChunkCoord {
	return ChunkCoord{X: toChunkCoord(x), Z: toChunkCoord(z)}
}

// BlockBounds returns the half-open block-space square [min, max) covered by
// the chunks within radius of c.
func (c ChunkCoord) BlockBounds(radius int) (minX, minZ, maxX, maxZ int64) {
	r := int64(radius)
	minX = (int64(c.X) - r) * ChunkSize
	minZ = (int64(c.Z) - r) * ChunkSize
	maxX = (int64(c.X) + r + 1) * ChunkSize
	maxZ = (int64(c.Z) + r + 1) * ChunkSize
	return
}

// ChunkSet is an unordered set of chunk coordinates.
type ChunkSet map[ChunkCoord]struct{}

func (s ChunkSet) Add(c ChunkCoord) {
	s[c] = struct{}{}
}

func (s ChunkSet) Has(c ChunkCoord) bool {
	_, ok := s[c]
	return ok
}

// Union adds every element of other to s.
func (s ChunkSet) Union(other ChunkSet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Sorted returns the set ordered by X then Z.
func (s ChunkSet) Sorted() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// PinnedArea returns the (2*radius+1)^2 square of chunks centered on center.
// A negative radius is treated as 0.
func PinnedArea(center ChunkCoord, radius int) ChunkSet {
	if radius < 0 {
		radius = 0
	}
	side := 2*radius + 1
	area := make(ChunkSet, side*side)
	addArea(area, center, radius)
	return area
}

func addArea(dst ChunkSet, center ChunkCoord, radius int) {
	r := int32(radius)
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			dst[ChunkCoord{X: center.X + dx, Z: center.Z + dz}] = struct{}{}
		}
	}
}

// AddPinnedArea unions the pinned area around center into dst.
func AddPinnedArea(dst ChunkSet, center ChunkCoord, radius int) {
	if radius < 0 {
		radius = 0
	}
	addArea(dst, center, radius)
}

// WithinSquare reports whether a and b are at most dist chunks apart on both axes.
func WithinSquare(a, b ChunkCoord, dist int) bool {
	d := int64(dist)
	return abs64(int64(a.X)-int64(b.X)) <= d && abs64(int64(a.Z)-int64(b.Z)) <= d
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
