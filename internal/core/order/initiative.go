package order

import (
	"sort"

	"github.com/skirmishkit/turnengine/internal/core/roster"
)

// InitiativeStrategy orders participants by priority, highest first. The
// order is computed once per round from a fresh snapshot and then frozen, so
// a participant cannot move itself within the round it is acting in.
type InitiativeStrategy struct {
	tie          compareFunc
	reprioritize Reprioritize
}

func (s *InitiativeStrategy) Kind() Kind { return KindInitiative }

func (s *InitiativeStrategy) ComputeOrder(snap roster.Snapshot, _ State) State {
	eligible := snap.Eligible()
	if len(eligible) == 0 {
		return State{}
	}
	s.sort(eligible)
	slots := make([]Slot, len(eligible))
	for i, p := range eligible {
		slots[i] = Slot{ID: p.ID, Side: p.Side}
	}
	return State{Slots: slots}
}

// Reorder drops removed participants. With ReprioritizeImmediate a priority
// change re-sorts the participants that have not acted yet; consumed slots
// never move.
func (s *InitiativeStrategy) Reorder(cur State, m roster.Mutation, snap roster.Snapshot) State {
	if isRemoval(m) {
		return dropRemoved(cur, m.ID)
	}
	if m.Kind != roster.MutationPriorityChanged || s.reprioritize != ReprioritizeImmediate || cur.Exhausted() {
		return cur
	}

	tail := make([]roster.Participant, 0, len(cur.Slots)-cur.Next)
	for _, sl := range cur.Slots[cur.Next:] {
		if p, ok := snap.Get(sl.ID); ok {
			tail = append(tail, p)
		}
	}
	s.sort(tail)

	slots := make([]Slot, 0, cur.Next+len(tail))
	slots = append(slots, cur.Slots[:cur.Next]...)
	for _, p := range tail {
		slots = append(slots, Slot{ID: p.ID, Side: p.Side})
	}
	return State{Slots: slots, Next: cur.Next}
}

func (s *InitiativeStrategy) sort(ps []roster.Participant) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Priority != ps[j].Priority {
			return ps[i].Priority > ps[j].Priority
		}
		return s.tie(ps[i], ps[j]) < 0
	})
}
