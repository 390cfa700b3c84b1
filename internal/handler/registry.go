package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chunksloader/server/internal/net"
	"go.uber.org/zap"
)

// Session is the console connection a command runs for.
type Session interface {
	Send(line string)
	State() net.SessionState
	SetState(st net.SessionState)
	CloseAfterFlush()
}

// HandlerFunc is the callback signature for console commands.
type HandlerFunc func(sess Session, args *Args, deps *Deps)

type handlerEntry struct {
	name          string
	usage         string
	fn            HandlerFunc
	allowedStates map[net.SessionState]bool
}

// Registry maps command names to handlers with state-based access control.
type Registry struct {
	handlers map[string]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		log:      log,
	}
}

// Register maps a command name to a handler, restricted to the given session states.
func (reg *Registry) Register(name, usage string, states []net.SessionState, fn HandlerFunc) {
	allowed := make(map[net.SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[name] = &handlerEntry{
		name:          name,
		usage:         usage,
		fn:            fn,
		allowedStates: allowed,
	}
}

// Usage returns "name args" lines for the commands allowed in state, sorted.
func (reg *Registry) Usage(state net.SessionState) []string {
	var out []string
	for _, e := range reg.handlers {
		if e.allowedStates[state] {
			out = append(out, strings.TrimSpace(e.name+" "+e.usage))
		}
	}
	sort.Strings(out)
	return out
}

// Dispatch parses one command line, validates the session state and calls
// the handler. Blank lines are ignored. Unknown commands and state
// violations are reported to the session and returned as errors.
func (reg *Registry) Dispatch(sess Session, line string, deps *Deps) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := strings.ToLower(fields[0])
	state := sess.State()
	reg.log.Debug("console command", zap.String("command", name), zap.String("state", state.String()))

	entry, ok := reg.handlers[name]
	if !ok {
		sess.Send(fmt.Sprintf("Unknown command %q. Type \"help\".", name))
		return fmt.Errorf("unknown command %q", name)
	}
	if !entry.allowedStates[state] {
		if state == net.StateConnected {
			sess.Send("Authenticate first: auth <password>")
		} else {
			sess.Send(fmt.Sprintf("%q is not available now.", name))
		}
		return fmt.Errorf("command %q not allowed in state %s", name, state)
	}

	args := NewArgs(entry.name, entry.usage, fields[1:])
	return reg.safeCall(entry, sess, args, deps)
}

// safeCall runs a handler with panic recovery so one bad command cannot take
// down the tick loop.
func (reg *Registry) safeCall(entry *handlerEntry, sess Session, args *Args, deps *Deps) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("console handler panic recovered",
				zap.String("command", entry.name),
				zap.Any("panic", rec),
			)
			sess.Send("Internal error.")
			err = fmt.Errorf("handler panic for %q: %v", entry.name, rec)
		}
	}()
	entry.fn(sess, args, deps)
	return nil
}
