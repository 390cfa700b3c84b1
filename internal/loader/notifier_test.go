package loader

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotifierIsolatesFailingListeners(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewNotifier(zap.New(core))

	var order []string
	n.Subscribe(ListenerFunc(func(uuid.UUID) error {
		order = append(order, "first")
		return errors.New("boom")
	}))
	n.Subscribe(ListenerFunc(func(uuid.UUID) error {
		order = append(order, "second")
		panic("listener bug")
	}))
	var got uuid.UUID
	n.Subscribe(ListenerFunc(func(id uuid.UUID) error {
		order = append(order, "third")
		got = id
		return nil
	}))

	id := uuid.New()
	n.Notify(id)

	if len(order) != 3 || order[0] != "first" || order[2] != "third" {
		t.Fatalf("order = %v", order)
	}
	if got != id {
		t.Fatalf("third listener got %s", got)
	}
	if logs.FilterMessage("loader listener failed").Len() != 2 {
		t.Fatalf("warnings = %d, want 2", logs.Len())
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier(zap.NewNop())
	calls := 0
	sub := n.Subscribe(ListenerFunc(func(uuid.UUID) error { calls++; return nil }))
	n.Notify(AllWorlds)
	if !n.Unsubscribe(sub) {
		t.Fatal("Unsubscribe returned false")
	}
	if n.Unsubscribe(sub) {
		t.Fatal("second Unsubscribe returned true")
	}
	n.Notify(AllWorlds)
	if calls != 1 || n.Len() != 0 {
		t.Fatalf("calls = %d, len = %d", calls, n.Len())
	}
}

func TestNotifierSubscribeDuringNotify(t *testing.T) {
	n := NewNotifier(zap.NewNop())
	late := 0
	n.Subscribe(ListenerFunc(func(uuid.UUID) error {
		n.Subscribe(ListenerFunc(func(uuid.UUID) error { late++; return nil }))
		return nil
	}))
	n.Notify(AllWorlds)
	if late != 0 {
		t.Fatal("listener added during delivery was called in the same round")
	}
	n.Notify(AllWorlds)
	if late != 1 {
		t.Fatalf("late = %d, want 1", late)
	}
}
