package roster

import "sort"

// Snapshot is a read-only view of the registry, ordered by id.
type Snapshot struct {
	participants []Participant
}

// NewSnapshot builds a snapshot from loose participants, sorted by id.
// Used by callers that compute orders without a live registry.
func NewSnapshot(ps ...Participant) Snapshot {
	out := make([]Participant, len(ps))
	copy(out, ps)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Snapshot{participants: out}
}

func (s Snapshot) Len() int { return len(s.participants) }

// At returns the i-th participant in id order.
func (s Snapshot) At(i int) Participant { return s.participants[i] }

// Get looks up a participant by id.
func (s Snapshot) Get(id ID) (Participant, bool) {
	i := sort.Search(len(s.participants), func(i int) bool { return s.participants[i].ID >= id })
	if i < len(s.participants) && s.participants[i].ID == id {
		return s.participants[i], true
	}
	return Participant{}, false
}

// Eligible returns the eligible participants in id order.
func (s Snapshot) Eligible() []Participant {
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		if p.Eligible() {
			out = append(out, p)
		}
	}
	return out
}
