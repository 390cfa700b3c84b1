package loader

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Occupant names are an FNV-1a style mix of the world id halves and the
// block coordinates, so a location always maps to the same name without any
// stored state. The host limits names to 3..16 characters.
const (
	nameSeed      uint64 = 1469598103934665603
	namePrime     uint64 = 1099511628211
	namePrefix           = "CL"
	minNameLength        = 3
	maxNameLength        = 16
)

// OccupantName returns the deterministic fallback occupant name for loc.
func OccupantName(loc Location) string {
	h := nameSeed
	for _, v := range [...]uint64{
		binary.BigEndian.Uint64(loc.World[:8]),
		binary.BigEndian.Uint64(loc.World[8:]),
		uint64(int64(loc.X)),
		uint64(int64(loc.Y)),
		uint64(int64(loc.Z)),
	} {
		h ^= v
		h *= namePrime
	}
	name := namePrefix + strings.ToUpper(strconv.FormatUint(h, 36))
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	for len(name) < minNameLength {
		name += "0"
	}
	return name
}
