// Package order holds the ordering strategies that decide in which sequence
// participants act during a round.
package order

import (
	"errors"
	"fmt"

	"github.com/skirmishkit/turnengine/internal/core/roster"
)

var (
	ErrUnknownStrategy     = errors.New("unknown ordering strategy")
	ErrUnknownTieBreak     = errors.New("unknown tie-break rule")
	ErrUnknownReprioritize = errors.New("unknown reprioritize rule")
)

// Kind selects the ordering strategy.
type Kind int

const (
	KindPhase      Kind = iota // side-grouped round-robin
	KindInitiative             // priority sorted, frozen per round
)

func (k Kind) String() string {
	switch k {
	case KindPhase:
		return "phase"
	case KindInitiative:
		return "initiative"
	}
	return fmt.Sprintf("kind_%d", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "phase":
		return KindPhase, nil
	case "initiative":
		return KindInitiative, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// TieBreak is the secondary key used when two priorities are equal.
// Both keys compare ascending.
type TieBreak int

const (
	TieBreakID           TieBreak = iota // participant id
	TieBreakRegistration                 // registration order
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakID:
		return "id"
	case TieBreakRegistration:
		return "registration"
	}
	return fmt.Sprintf("tiebreak_%d", int(t))
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "id", "":
		return TieBreakID, nil
	case "registration":
		return TieBreakRegistration, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTieBreak, s)
}

// Reprioritize controls when a priority change affects the running round.
type Reprioritize int

const (
	// ReprioritizeRound applies priority changes from the next round on.
	ReprioritizeRound Reprioritize = iota
	// ReprioritizeImmediate re-sorts the participants that have not acted yet.
	ReprioritizeImmediate
)

func (r Reprioritize) String() string {
	switch r {
	case ReprioritizeRound:
		return "round"
	case ReprioritizeImmediate:
		return "immediate"
	}
	return fmt.Sprintf("reprioritize_%d", int(r))
}

func ParseReprioritize(s string) (Reprioritize, error) {
	switch s {
	case "round", "":
		return ReprioritizeRound, nil
	case "immediate":
		return ReprioritizeImmediate, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReprioritize, s)
}

// TieBreaker supplies a custom secondary key. Compare returns a negative
// number when a acts before b. Ties it leaves are broken by id.
type TieBreaker interface {
	Compare(a, b roster.Participant) int
}

// Slot is one position in a round's order.
type Slot struct {
	ID   roster.ID
	Side roster.Side
}

// State is the frozen order of a round. Slots before Next have been consumed.
// Last is the slot of the most recent turn; the scheduler sets it on the
// previous State it hands to ComputeOrder.
type State struct {
	Slots []Slot
	Next  int
	Last  *Slot
}

// Empty reports whether the round has no slots at all. ComputeOrder returns
// an empty State when nobody is eligible.
func (s State) Empty() bool { return len(s.Slots) == 0 }

// Exhausted reports whether every slot has been consumed.
func (s State) Exhausted() bool { return s.Next >= len(s.Slots) }

// IDs returns the participant ids of every slot in order.
func (s State) IDs() []roster.ID {
	ids := make([]roster.ID, len(s.Slots))
	for i, sl := range s.Slots {
		ids[i] = sl.ID
	}
	return ids
}

// Strategy computes and maintains the order of a round.
type Strategy interface {
	Kind() Kind
	// ComputeOrder builds the order of the upcoming round from a snapshot.
	ComputeOrder(snap roster.Snapshot, prev State) State
	// Reorder reflects a mid-round mutation in the not yet consumed slots.
	Reorder(cur State, m roster.Mutation, snap roster.Snapshot) State
}

// Config selects and parameterizes a strategy.
type Config struct {
	Kind         Kind
	SideOrder    []roster.Side // phase only
	TieBreak     TieBreak      // initiative only
	TieBreaker   TieBreaker    // overrides TieBreak when set
	Reprioritize Reprioritize  // initiative only
}

// New builds the strategy described by cfg.
func New(cfg Config) (Strategy, error) {
	switch cfg.Kind {
	case KindPhase:
		return NewPhaseStrategy(cfg.SideOrder), nil
	case KindInitiative:
		cmp, err := comparator(cfg.TieBreak, cfg.TieBreaker)
		if err != nil {
			return nil, err
		}
		return &InitiativeStrategy{tie: cmp, reprioritize: cfg.Reprioritize}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(cfg.Kind))
}

// dropRemoved removes a removed participant from the not yet consumed slots.
func dropRemoved(cur State, id roster.ID) State {
	if cur.Exhausted() {
		return cur
	}
	slots := make([]Slot, 0, len(cur.Slots))
	slots = append(slots, cur.Slots[:cur.Next]...)
	for _, sl := range cur.Slots[cur.Next:] {
		if sl.ID != id {
			slots = append(slots, sl)
		}
	}
	return State{Slots: slots, Next: cur.Next}
}
