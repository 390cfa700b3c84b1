package handler

import (
	"strings"

	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
	"golang.org/x/text/width"
)

// Chunk map cells.
const (
	cellReserved = 'S'
	cellActive   = '#'
	cellInactive = '+'
	cellEmpty    = '.'
)

// DisplayWidth returns the terminal column width of s: East Asian wide and
// fullwidth runes take two columns.
func DisplayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// PadRight pads s with spaces to n display columns.
func PadRight(s string, n int) string {
	if d := n - DisplayWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

// Table renders rows as aligned columns separated by two spaces. A non-nil
// header is followed by a dashed rule.
func Table(header []string, rows [][]string) []string {
	var widths []int
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := DisplayWidth(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	if header != nil {
		measure(header)
	}
	for _, r := range rows {
		measure(r)
	}
	format := func(cells []string) string {
		var sb strings.Builder
		for i, c := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(cells)-1 {
				sb.WriteString(c)
			} else {
				sb.WriteString(PadRight(c, widths[i]))
			}
		}
		return sb.String()
	}

	var out []string
	if header != nil {
		out = append(out, format(header))
		rule := make([]string, len(header))
		for i := range header {
			rule[i] = strings.Repeat("-", widths[i])
		}
		out = append(out, format(rule))
	}
	for _, r := range rows {
		out = append(out, format(r))
	}
	return out
}

// ChunkMap renders the (2r+1)^2 chunks around center, one row per z from
// center.Z+r down to center.Z-r.
func ChunkMap(m *loader.Manager, id uuid.UUID, center world.ChunkCoord, r int) []string {
	active := m.LoadedChunkArea(id)
	inactive := m.InactiveChunkArea(id)
	rr := int32(r)
	rows := make([]string, 0, 2*r+1)
	for dz := rr; dz >= -rr; dz-- {
		var sb strings.Builder
		for dx := -rr; dx <= rr; dx++ {
			c := world.ChunkCoord{X: center.X + dx, Z: center.Z + dz}
			switch {
			case m.IsInReservedArea(id, c):
				sb.WriteByte(cellReserved)
			case active.Has(c):
				sb.WriteByte(cellActive)
			case inactive.Has(c):
				sb.WriteByte(cellInactive)
			default:
				sb.WriteByte(cellEmpty)
			}
		}
		rows = append(rows, sb.String())
	}
	return rows
}
