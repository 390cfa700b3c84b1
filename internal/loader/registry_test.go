package loader

import (
	"testing"

	"github.com/google/uuid"
)

func TestRegistryDropsEmptyWorlds(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	a := Location{World: id, X: 1}
	b := Location{World: id, X: 2}
	r.put(a, defaultState())
	r.put(b, State{Active: false})
	if r.Len() != 2 || len(r.Worlds()) != 1 {
		t.Fatalf("len = %d, worlds = %d", r.Len(), len(r.Worlds()))
	}
	if got := r.AllActive(id); len(got) != 1 || got[0] != a {
		t.Fatalf("AllActive = %v", got)
	}
	r.delete(a)
	r.delete(b)
	if len(r.Worlds()) != 0 {
		t.Fatal("empty world kept")
	}
	if _, ok := r.delete(a); ok {
		t.Fatal("delete of missing loader reported success")
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	loc := Location{World: uuid.New()}
	r.put(loc, defaultState())
	st, _ := r.Get(loc)
	st.Active = false
	if got, _ := r.Get(loc); !got.Active {
		t.Fatal("mutating the copy changed the registry")
	}
	all := r.All(loc.World)
	all[loc] = State{}
	if got, _ := r.Get(loc); !got.Active {
		t.Fatal("mutating All changed the registry")
	}
}

func TestStatePhase(t *testing.T) {
	cases := []struct {
		st   State
		want Phase
	}{
		{State{}, PhaseInactive},
		{State{OccupantEnabled: true}, PhaseInactive},
		{State{Active: true}, PhaseActive},
		{State{Active: true, OccupantEnabled: true}, PhaseActiveOccupant},
	}
	for _, tc := range cases {
		if got := tc.st.Phase(); got != tc.want {
			t.Errorf("%+v: phase = %s, want %s", tc.st, got, tc.want)
		}
	}
	if (State{OccupantName: "  "}).HasOccupantName() {
		t.Fatal("blank name counted as assigned")
	}
}
