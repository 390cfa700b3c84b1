// Package occupant provides the host capabilities that put simulated
// occupants into a world.
package occupant

import (
	"fmt"
	"strings"

	"github.com/chunksloader/server/internal/loader"
	"github.com/chunksloader/server/internal/world"
	"go.uber.org/zap"
)

// Strategy names accepted by Probe.
const (
	StrategyAuto      = "auto"
	StrategySynthetic = "synthetic"
	StrategyCommand   = "command"
	StrategyNone      = "none"
)

// Synthetic inserts entities straight into the host entity table.
type Synthetic struct {
	host *world.Host
}

func NewSynthetic(host *world.Host) *Synthetic {
	return &Synthetic{host: host}
}

func (s *Synthetic) IsSupported() bool {
	return s.host != nil && s.host.SyntheticAvailable()
}

func (s *Synthetic) Spawn(pos world.Position, name string) (loader.Handle, error) {
	e, err := s.host.SpawnEntity(pos, name, true)
	if err != nil {
		return loader.Handle{}, fmt.Errorf("synthetic spawn: %w", err)
	}
	return loader.Handle{ID: e.ID, Name: e.Name}, nil
}

func (s *Synthetic) Remove(h loader.Handle) error {
	if err := s.host.RemoveEntity(h.ID); err != nil {
		return fmt.Errorf("synthetic remove: %w", err)
	}
	return nil
}

func (s *Synthetic) FindLiveByName(name string) (loader.Handle, bool) {
	return findLive(s.host, name)
}

// Command drives the host command dispatcher, the way an operator would.
type Command struct {
	host *world.Host
	log  *zap.Logger
}

func NewCommand(host *world.Host, log *zap.Logger) *Command {
	return &Command{host: host, log: log}
}

func (c *Command) IsSupported() bool {
	return c.host != nil && c.host.CommandsAvailable()
}

// Spawn issues "player <name> spawn" and resolves the resulting entity.
func (c *Command) Spawn(pos world.Position, name string) (loader.Handle, error) {
	if strings.ContainsAny(name, " \t\n") {
		return loader.Handle{}, fmt.Errorf("command spawn: invalid name %q", name)
	}
	line := fmt.Sprintf("player %s spawn %s %g %g %g", name, pos.World, pos.X, pos.Y, pos.Z)
	c.log.Debug("dispatch", zap.String("command", line))
	if err := c.host.Dispatch(line); err != nil {
		return loader.Handle{}, fmt.Errorf("command spawn: %w", err)
	}
	h, ok := findLive(c.host, name)
	if !ok {
		return loader.Handle{}, fmt.Errorf("command spawn: %q not present after dispatch", name)
	}
	return h, nil
}

func (c *Command) Remove(h loader.Handle) error {
	line := "player " + h.Name + " kill"
	c.log.Debug("dispatch", zap.String("command", line))
	if err := c.host.Dispatch(line); err != nil {
		return fmt.Errorf("command remove: %w", err)
	}
	return nil
}

func (c *Command) FindLiveByName(name string) (loader.Handle, bool) {
	return findLive(c.host, name)
}

// Unsupported is the injector of a host without any occupant capability.
type Unsupported struct{}

func (Unsupported) IsSupported() bool { return false }

func (Unsupported) Spawn(world.Position, string) (loader.Handle, error) {
	return loader.Handle{}, loader.ErrOccupantUnsupported
}

func (Unsupported) Remove(loader.Handle) error { return nil }

func (Unsupported) FindLiveByName(string) (loader.Handle, bool) { return loader.Handle{}, false }

func findLive(host *world.Host, name string) (loader.Handle, bool) {
	if host == nil {
		return loader.Handle{}, false
	}
	e, ok := host.FindEntity(name)
	if !ok {
		return loader.Handle{}, false
	}
	return loader.Handle{ID: e.ID, Name: e.Name}, true
}

// Probe picks the injector for strategy. "auto" prefers synthetic entities
// and falls back to host commands; when neither is available the result is
// Unsupported. Forcing a strategy the host lacks is an error.
func Probe(strategy string, host *world.Host, log *zap.Logger) (loader.EntityInjector, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyAuto:
		if s := NewSynthetic(host); s.IsSupported() {
			log.Info("occupant injector selected", zap.String("strategy", StrategySynthetic))
			return s, nil
		}
		if c := NewCommand(host, log); c.IsSupported() {
			log.Info("occupant injector selected", zap.String("strategy", StrategyCommand))
			return c, nil
		}
		log.Info("occupant injector selected", zap.String("strategy", StrategyNone))
		return Unsupported{}, nil
	case StrategySynthetic:
		s := NewSynthetic(host)
		if !s.IsSupported() {
			return nil, fmt.Errorf("occupant strategy %q: host has no synthetic entities", strategy)
		}
		return s, nil
	case StrategyCommand:
		c := NewCommand(host, log)
		if !c.IsSupported() {
			return nil, fmt.Errorf("occupant strategy %q: host has no command dispatcher", strategy)
		}
		return c, nil
	case StrategyNone:
		return Unsupported{}, nil
	}
	return nil, fmt.Errorf("unknown occupant strategy %q", strategy)
}
