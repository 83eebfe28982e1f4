// Package roster tracks the participants of one encounter and their mutable
// scheduling attributes. All mutation goes through Registry methods so that a
// Snapshot taken at any point fully determines the next ordering computation.
package roster

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound    = errors.New("participant not found")
	ErrDuplicateID = errors.New("duplicate participant id")
)

// Registry owns the participants of an encounter. Accessed only from the
// goroutine driving the scheduler, no locks.
type Registry struct {
	participants map[ID]*Participant
	nextSeq      uint64
	eraseQueue   []ID
}

func NewRegistry() *Registry {
	return &Registry{
		participants: make(map[ID]*Participant, 16),
		eraseQueue:   make([]ID, 0, 8),
	}
}

// Add registers a participant. The registry assigns Seq; any Seq on p is ignored.
// A removed participant keeps its id reserved until it has been erased.
func (r *Registry) Add(p Participant) error {
	if _, ok := r.participants[p.ID]; ok {
		return fmt.Errorf("add %q: %w", p.ID, ErrDuplicateID)
	}
	r.nextSeq++
	p.Seq = r.nextSeq
	r.participants[p.ID] = &p
	if p.Status == StatusRemoved {
		r.eraseQueue = append(r.eraseQueue, p.ID)
	}
	return nil
}

// Remove marks a participant Removed and queues it for erasure. Removing an
// already removed participant is a no-op.
func (r *Registry) Remove(id ID) error {
	p, ok := r.participants[id]
	if !ok {
		return fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	if p.Status == StatusRemoved {
		return nil
	}
	p.Status = StatusRemoved
	r.eraseQueue = append(r.eraseQueue, id)
	return nil
}

func (r *Registry) UpdatePriority(id ID, value int) error {
	p, ok := r.participants[id]
	if !ok {
		return fmt.Errorf("update priority %q: %w", id, ErrNotFound)
	}
	p.Priority = value
	return nil
}

// SetStatus changes the status of a participant. Setting StatusRemoved is the
// same as Remove; a removed participant cannot come back.
func (r *Registry) SetStatus(id ID, status Status) error {
	p, ok := r.participants[id]
	if !ok {
		return fmt.Errorf("set status %q: %w", id, ErrNotFound)
	}
	if status == StatusRemoved {
		return r.Remove(id)
	}
	if p.Status == StatusRemoved {
		return fmt.Errorf("set status %q: %w", id, ErrNotFound)
	}
	p.Status = status
	return nil
}

// Get returns a copy of the participant.
func (r *Registry) Get(id ID) (Participant, bool) {
	p, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Eligible reports whether id exists and is Active.
func (r *Registry) Eligible(id ID) bool {
	p, ok := r.participants[id]
	return ok && p.Eligible()
}

// Len returns the number of registered participants, removed ones included
// until they are erased.
func (r *Registry) Len() int {
	return len(r.participants)
}

// Snapshot returns an immutable view ordered by id.
func (r *Registry) Snapshot() Snapshot {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Snapshot{participants: out}
}

// Compact erases every queued removed participant except keep, which is still
// referenced by an in-flight turn. Returns the number of erased participants.
func (r *Registry) Compact(keep ID) int {
	if len(r.eraseQueue) == 0 {
		return 0
	}
	erased := 0
	remaining := r.eraseQueue[:0]
	for _, id := range r.eraseQueue {
		if id == keep {
			remaining = append(remaining, id)
			continue
		}
		delete(r.participants, id)
		erased++
	}
	r.eraseQueue = remaining
	return erased
}

// Apply performs a mutation on the registry.
func (r *Registry) Apply(m Mutation) error {
	switch m.Kind {
	case MutationAdded:
		p := m.Participant
		if p.ID == "" {
			p.ID = m.ID
		}
		return r.Add(p)
	case MutationRemoved:
		return r.Remove(m.ID)
	case MutationStatusChanged:
		return r.SetStatus(m.ID, m.Status)
	case MutationPriorityChanged:
		return r.UpdatePriority(m.ID, m.Priority)
	default:
		return fmt.Errorf("apply mutation: unknown kind %d", int(m.Kind))
	}
}
