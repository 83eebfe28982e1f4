package order

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/skirmishkit/turnengine/internal/core/roster"
)

func ids(s ...string) []roster.ID {
	out := make([]roster.ID, len(s))
	for i, v := range s {
		out[i] = roster.ID(v)
	}
	return out
}

func mustNew(t *testing.T, cfg Config) Strategy {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new strategy: %v", err)
	}
	return s
}

func TestInitiativeOrderByPriority(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "A", Side: "1", Priority: 5, Seq: 1},
		roster.Participant{ID: "B", Side: "2", Priority: 9, Seq: 2},
		roster.Participant{ID: "C", Side: "1", Priority: 2, Seq: 3},
	)
	s := mustNew(t, Config{Kind: KindInitiative})
	got := s.ComputeOrder(snap, State{}).IDs()
	if want := ids("B", "A", "C"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInitiativeTieBreak(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "b", Priority: 3, Seq: 1},
		roster.Participant{ID: "c", Priority: 3, Seq: 2},
		roster.Participant{ID: "a", Priority: 3, Seq: 3},
		roster.Participant{ID: "z", Priority: 7, Seq: 4},
	)
	tests := []struct {
		name string
		cfg  Config
		want []roster.ID
	}{
		{"id", Config{Kind: KindInitiative, TieBreak: TieBreakID}, ids("z", "a", "b", "c")},
		{"registration", Config{Kind: KindInitiative, TieBreak: TieBreakRegistration}, ids("z", "b", "c", "a")},
		{"custom", Config{Kind: KindInitiative, TieBreaker: reverseID{}}, ids("z", "c", "b", "a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustNew(t, tt.cfg).ComputeOrder(snap, State{}).IDs()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

type reverseID struct{}

func (reverseID) Compare(a, b roster.Participant) int {
	return strings.Compare(string(b.ID), string(a.ID))
}

type constantKey struct{}

func (constantKey) Compare(_, _ roster.Participant) int { return 0 }

func TestCustomTieBreakFallsBackToID(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "y", Priority: 1},
		roster.Participant{ID: "x", Priority: 1},
	)
	got := mustNew(t, Config{Kind: KindInitiative, TieBreaker: constantKey{}}).ComputeOrder(snap, State{}).IDs()
	if want := ids("x", "y"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInitiativeSkipsIneligible(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "a", Priority: 1},
		roster.Participant{ID: "b", Priority: 2, Status: roster.StatusIncapacitated},
		roster.Participant{ID: "c", Priority: 3, Status: roster.StatusRemoved},
	)
	got := mustNew(t, Config{Kind: KindInitiative}).ComputeOrder(snap, State{})
	if want := ids("a"); !reflect.DeepEqual(got.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, got.IDs())
	}
}

func TestComputeOrderEmptyRound(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "a", Side: "1", Status: roster.StatusIncapacitated},
	)
	for _, kind := range []Kind{KindPhase, KindInitiative} {
		s := mustNew(t, Config{Kind: kind, SideOrder: []roster.Side{"1"}})
		if st := s.ComputeOrder(snap, State{}); !st.Empty() || !st.Exhausted() {
			t.Errorf("%s: expected empty round, got %+v", kind, st)
		}
		if st := s.ComputeOrder(roster.NewSnapshot(), State{}); !st.Empty() {
			t.Errorf("%s: expected empty round for empty snapshot", kind)
		}
	}
}

func TestComputeOrderDeterministic(t *testing.T) {
	ps := []roster.Participant{
		{ID: "m", Side: "west", Priority: 4, Seq: 5},
		{ID: "k", Side: "east", Priority: 4, Seq: 2},
		{ID: "q", Side: "north", Priority: 1, Seq: 3},
		{ID: "a", Side: "east", Priority: 8, Seq: 4},
		{ID: "d", Side: "west", Priority: 4, Seq: 1},
	}
	for _, kind := range []Kind{KindPhase, KindInitiative} {
		s := mustNew(t, Config{Kind: kind, SideOrder: []roster.Side{"west", "east"}})
		first := s.ComputeOrder(roster.NewSnapshot(ps...), State{}).IDs()
		for i := 0; i < 20; i++ {
			// Feed the participants in a different order each time.
			rotated := append(append([]roster.Participant{}, ps[i%len(ps):]...), ps[:i%len(ps)]...)
			got := s.ComputeOrder(roster.NewSnapshot(rotated...), State{}).IDs()
			if !reflect.DeepEqual(first, got) {
				t.Fatalf("%s: run %d produced %v, first run %v", kind, i, got, first)
			}
		}
	}
}

func TestPhaseOrderGroupsSides(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "A", Side: "1", Seq: 1},
		roster.Participant{ID: "C", Side: "2", Seq: 2},
		roster.Participant{ID: "B", Side: "1", Seq: 3},
	)
	s := mustNew(t, Config{Kind: KindPhase, SideOrder: []roster.Side{"1", "2"}})
	got := s.ComputeOrder(snap, State{})
	if want := ids("A", "B", "C"); !reflect.DeepEqual(got.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, got.IDs())
	}
	wantSides := []roster.Side{"1", "1", "2"}
	for i, sl := range got.Slots {
		if sl.Side != wantSides[i] {
			t.Errorf("slot %d: expected side %s, got %s", i, wantSides[i], sl.Side)
		}
	}
}

func TestPhaseOrderSideCycle(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "a1", Side: "a", Seq: 1},
		roster.Participant{ID: "b1", Side: "b", Seq: 2},
		roster.Participant{ID: "x1", Side: "x", Seq: 3},
		roster.Participant{ID: "c1", Side: "c", Seq: 4},
		roster.Participant{ID: "e1", Side: "empty", Seq: 5, Status: roster.StatusIncapacitated},
	)
	// b is listed twice, empty has nobody eligible, x and c are not configured.
	s := mustNew(t, Config{Kind: KindPhase, SideOrder: []roster.Side{"b", "empty", "a", "b"}})
	got := s.ComputeOrder(snap, State{}).IDs()
	if want := ids("b1", "a1", "c1", "x1"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPhaseOrderResumesAfterLastSide(t *testing.T) {
	snap := roster.NewSnapshot(
		roster.Participant{ID: "a1", Side: "a", Seq: 1},
		roster.Participant{ID: "b1", Side: "b", Seq: 2},
		roster.Participant{ID: "c1", Side: "c", Seq: 3},
		roster.Participant{ID: "x1", Side: "x", Seq: 4},
	)
	s := mustNew(t, Config{Kind: KindPhase, SideOrder: []roster.Side{"a", "b", "c"}})
	cases := []struct {
		last roster.Side
		want []roster.ID
	}{
		{"a", ids("b1", "c1", "x1", "a1")},
		{"b", ids("c1", "x1", "a1", "b1")},
		{"x", ids("a1", "b1", "c1", "x1")},
		// an unconfigured side that emptied keeps its sorted place
		{"gone", ids("x1", "a1", "b1", "c1")},
	}
	for _, tc := range cases {
		got := s.ComputeOrder(snap, State{Last: &Slot{ID: "z", Side: tc.last}}).IDs()
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("after side %s: expected %v, got %v", tc.last, tc.want, got)
		}
	}
}

func TestReorderDropsRemovedFromTail(t *testing.T) {
	cur := State{
		Slots: []Slot{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Next:  1,
	}
	for _, kind := range []Kind{KindPhase, KindInitiative} {
		s := mustNew(t, Config{Kind: kind})
		got := s.Reorder(cur, roster.Removed("B"), roster.NewSnapshot())
		if want := ids("A", "C"); !reflect.DeepEqual(got.IDs(), want) || got.Next != 1 {
			t.Errorf("%s: expected %v at 1, got %v at %d", kind, want, got.IDs(), got.Next)
		}
		got = s.Reorder(cur, roster.StatusChanged("C", roster.StatusRemoved), roster.NewSnapshot())
		if want := ids("A", "B"); !reflect.DeepEqual(got.IDs(), want) {
			t.Errorf("%s: expected %v, got %v", kind, want, got.IDs())
		}
		// Consumed slots stay even when removed.
		got = s.Reorder(cur, roster.Removed("A"), roster.NewSnapshot())
		if want := ids("A", "B", "C"); !reflect.DeepEqual(got.IDs(), want) {
			t.Errorf("%s: expected %v, got %v", kind, want, got.IDs())
		}
		// Incapacitation keeps the slot; selection skips it.
		got = s.Reorder(cur, roster.StatusChanged("C", roster.StatusIncapacitated), roster.NewSnapshot())
		if want := ids("A", "B", "C"); !reflect.DeepEqual(got.IDs(), want) {
			t.Errorf("%s: expected %v, got %v", kind, want, got.IDs())
		}
	}
}

func TestInitiativeReorderPriority(t *testing.T) {
	cur := State{Slots: []Slot{{ID: "B"}, {ID: "A"}, {ID: "C"}}, Next: 1}
	changed := roster.NewSnapshot(
		roster.Participant{ID: "A", Priority: 5},
		roster.Participant{ID: "B", Priority: 9},
		roster.Participant{ID: "C", Priority: 30},
	)

	frozen := mustNew(t, Config{Kind: KindInitiative})
	got := frozen.Reorder(cur, roster.PriorityChanged("C", 30), changed)
	if want := ids("B", "A", "C"); !reflect.DeepEqual(got.IDs(), want) {
		t.Fatalf("round policy must keep the order frozen, got %v", got.IDs())
	}

	immediate := mustNew(t, Config{Kind: KindInitiative, Reprioritize: ReprioritizeImmediate})
	got = immediate.Reorder(cur, roster.PriorityChanged("C", 30), changed)
	if want := ids("B", "C", "A"); !reflect.DeepEqual(got.IDs(), want) || got.Next != 1 {
		t.Fatalf("expected %v at 1, got %v at %d", want, got.IDs(), got.Next)
	}

	// A consumed participant does not get a second slot.
	boosted := roster.NewSnapshot(
		roster.Participant{ID: "A", Priority: 5},
		roster.Participant{ID: "B", Priority: 99},
		roster.Participant{ID: "C", Priority: 2},
	)
	got = immediate.Reorder(cur, roster.PriorityChanged("B", 99), boosted)
	if want := ids("B", "A", "C"); !reflect.DeepEqual(got.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, got.IDs())
	}
}

func TestParsers(t *testing.T) {
	if k, err := ParseKind("initiative"); err != nil || k != KindInitiative {
		t.Fatalf("parse kind: %v %v", k, err)
	}
	if _, err := ParseKind("chaos"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if tb, err := ParseTieBreak("registration"); err != nil || tb != TieBreakRegistration {
		t.Fatalf("parse tie-break: %v %v", tb, err)
	}
	if _, err := ParseTieBreak("dice"); !errors.Is(err, ErrUnknownTieBreak) {
		t.Fatalf("expected ErrUnknownTieBreak, got %v", err)
	}
	if r, err := ParseReprioritize("immediate"); err != nil || r != ReprioritizeImmediate {
		t.Fatalf("parse reprioritize: %v %v", r, err)
	}
	if _, err := ParseReprioritize("never"); !errors.Is(err, ErrUnknownReprioritize) {
		t.Fatalf("expected ErrUnknownReprioritize, got %v", err)
	}
	if _, err := New(Config{Kind: Kind(7)}); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := New(Config{Kind: KindInitiative, TieBreak: TieBreak(7)}); !errors.Is(err, ErrUnknownTieBreak) {
		t.Fatalf("expected ErrUnknownTieBreak, got %v", err)
	}
}
