package order

import (
	"sort"

	"github.com/skirmishkit/turnengine/internal/core/roster"
)

// PhaseStrategy lets every side resolve all of its participants before the
// next side starts. Sides cycle in the configured order; within a side,
// participants act in registration order.
type PhaseStrategy struct {
	sideOrder []roster.Side
}

// NewPhaseStrategy returns a phase strategy cycling sides in the given order.
// Duplicate sides are ignored after their first occurrence.
func NewPhaseStrategy(sides []roster.Side) *PhaseStrategy {
	seen := make(map[roster.Side]bool, len(sides))
	order := make([]roster.Side, 0, len(sides))
	for _, s := range sides {
		if seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
	}
	return &PhaseStrategy{sideOrder: order}
}

func (s *PhaseStrategy) Kind() Kind { return KindPhase }

// ComputeOrder groups eligible participants by side. Sides missing from the
// configured order act after it, sorted by name. A side without eligible
// participants takes no slot. When prev carries the last turn, the cycle
// resumes at the side after the one that acted last.
func (s *PhaseStrategy) ComputeOrder(snap roster.Snapshot, prev State) State {
	bySide := make(map[roster.Side][]roster.Participant)
	for _, p := range snap.Eligible() {
		bySide[p.Side] = append(bySide[p.Side], p)
	}
	if len(bySide) == 0 {
		return State{}
	}

	slots := make([]Slot, 0, snap.Len())
	for _, side := range s.cycle(bySide, prev.Last) {
		members := bySide[side]
		if len(members) == 0 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return byRegistration(members[i], members[j]) < 0
		})
		for _, p := range members {
			slots = append(slots, Slot{ID: p.ID, Side: side})
		}
	}
	return State{Slots: slots}
}

// cycle returns the full side cycle: configured sides, then unknown sides
// by name. With a last slot, the cycle is rotated to start right after its
// side.
func (s *PhaseStrategy) cycle(bySide map[roster.Side][]roster.Participant, last *Slot) []roster.Side {
	sides := append(make([]roster.Side, 0, len(s.sideOrder)+len(bySide)), s.sideOrder...)
	known := make(map[roster.Side]bool, len(s.sideOrder))
	for _, side := range s.sideOrder {
		known[side] = true
	}
	extra := make([]roster.Side, 0)
	for side := range bySide {
		if !known[side] {
			extra = append(extra, side)
		}
	}
	if last != nil && !known[last.Side] && len(bySide[last.Side]) == 0 {
		extra = append(extra, last.Side)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	sides = append(sides, extra...)

	if last == nil {
		return sides
	}
	for i, side := range sides {
		if side == last.Side {
			rotated := make([]roster.Side, 0, len(sides))
			rotated = append(rotated, sides[i+1:]...)
			return append(rotated, sides[:i+1]...)
		}
	}
	return sides
}

// Reorder drops removed participants from the rest of the round. Everything
// else waits for the next round: additions and side or priority changes.
func (s *PhaseStrategy) Reorder(cur State, m roster.Mutation, _ roster.Snapshot) State {
	if isRemoval(m) {
		return dropRemoved(cur, m.ID)
	}
	return cur
}

func isRemoval(m roster.Mutation) bool {
	return m.Kind == roster.MutationRemoved ||
		(m.Kind == roster.MutationStatusChanged && m.Status == roster.StatusRemoved)
}
