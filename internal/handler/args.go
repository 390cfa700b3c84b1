package handler

import (
	"fmt"
	"strconv"

	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/world"
	"github.com/google/uuid"
)

// Args reads command arguments in order. The first failure sticks: later
// reads return zero values and Err reports the first problem.
type Args struct {
	command string
	usage   string
	fields  []string
	off     int
	err     error
}

func NewArgs(command, usage string, fields []string) *Args {
	return &Args{command: command, usage: usage, fields: fields}
}

func (a *Args) fail(format string, v ...any) {
	if a.err == nil {
		a.err = fmt.Errorf(format, v...)
	}
}

// Err returns the first read error.
func (a *Args) Err() error { return a.err }

// Usage returns the usage line of the command.
func (a *Args) Usage() string { return "Usage: " + a.command + " " + a.usage }

// Remaining reports how many arguments are left.
func (a *Args) Remaining() int { return len(a.fields) - a.off }

// Word reads one word.
func (a *Args) Word() string {
	if a.err != nil {
		return ""
	}
	if a.off >= len(a.fields) {
		a.fail("missing argument")
		return ""
	}
	v := a.fields[a.off]
	a.off++
	return v
}

// Int32 reads one integer.
func (a *Args) Int32() int32 {
	s := a.Word()
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		a.fail("%q is not a whole number", s)
		return 0
	}
	return int32(v)
}

// OptionalInt reads an integer when one is present, else returns def.
func (a *Args) OptionalInt(def int) int {
	if a.err != nil || a.Remaining() == 0 {
		return def
	}
	s := a.Word()
	v, err := strconv.Atoi(s)
	if err != nil {
		a.fail("%q is not a whole number", s)
		return def
	}
	return v
}

// World reads a world name or uuid. Worlds the host does not know are
// accepted by uuid so loaders of absent worlds stay reachable.
func (a *Args) World(host *world.Host) uuid.UUID {
	s := a.Word()
	if a.err != nil {
		return uuid.Nil
	}
	if w, ok := host.WorldByName(s); ok {
		return w.ID
	}
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	a.fail("unknown world %q", s)
	return uuid.Nil
}

// Location reads "<world> <x> <y> <z>".
func (a *Args) Location(host *world.Host) loader.Location {
	id := a.World(host)
	x, y, z := a.Int32(), a.Int32(), a.Int32()
	return loader.Location{World: id, X: x, Y: y, Z: z}
}

// ok reports whether parsing succeeded; otherwise it sends the error and the
// usage line to sess.
func (a *Args) ok(sess Session) bool {
	if a.err == nil {
		return true
	}
	sess.Send(a.err.Error())
	sess.Send(a.Usage())
	return false
}

// Rest consumes every remaining argument and joins them with single spaces.
func (a *Args) Rest() string {
	if a.err != nil {
		return ""
	}
	if a.off >= len(a.fields) {
		a.fail("missing argument")
		return ""
	}
	out := a.fields[a.off]
	for _, f := range a.fields[a.off+1:] {
		out += " " + f
	}
	a.off = len(a.fields)
	return out
}
