package loader

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllWorlds is passed to listeners when the change is not scoped to one
// world and everything should be re-derived.
var AllWorlds = uuid.Nil

// Listener is notified after every registry change has been persisted.
type Listener interface {
	OnRegistryChanged(world uuid.UUID) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(world uuid.UUID) error

func (f ListenerFunc) OnRegistryChanged(world uuid.UUID) error { return f(world) }

// Subscription identifies a registered listener.
type Subscription uint64

type subscriber struct {
	id Subscription
	l  Listener
}

// Notifier fans registry changes out to listeners in subscription order.
// A failing listener is logged and skipped; it never affects the others or
// the change that triggered the notification.
type Notifier struct {
	subs []subscriber
	next Subscription
	log  *zap.Logger
}

func NewNotifier(log *zap.Logger) *Notifier {
	return &Notifier{log: log}
}

func (n *Notifier) Subscribe(l Listener) Subscription {
	n.next++
	n.subs = append(n.subs, subscriber{id: n.next, l: l})
	return n.next
}

// Unsubscribe removes a listener; it reports whether it was registered.
func (n *Notifier) Unsubscribe(id Subscription) bool {
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of listeners.
func (n *Notifier) Len() int { return len(n.subs) }

// Notify delivers world (or AllWorlds) to every listener.
func (n *Notifier) Notify(world uuid.UUID) {
	subs := append([]subscriber(nil), n.subs...)
	for _, s := range subs {
		if err := deliver(s.l, world); err != nil {
			n.log.Warn("loader listener failed",
				zap.Uint64("subscription", uint64(s.id)),
				zap.Stringer("world", world),
				zap.Error(err))
		}
	}
}

func deliver(l Listener, world uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.OnRegistryChanged(world)
}
