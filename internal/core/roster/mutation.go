package roster

import "fmt"

// MutationKind identifies what changed about a participant.
type MutationKind int

const (
	MutationAdded MutationKind = iota
	MutationRemoved
	MutationStatusChanged
	MutationPriorityChanged
)

var mutationNames = map[MutationKind]string{
	MutationAdded:           "added",
	MutationRemoved:         "removed",
	MutationStatusChanged:   "status_changed",
	MutationPriorityChanged: "priority_changed",
}

func (k MutationKind) String() string {
	if name, ok := mutationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("mutation_%d", int(k))
}

// Mutation describes a change to the roster made while an encounter runs.
// Only the fields relevant to Kind are read.
type Mutation struct {
	Kind        MutationKind
	ID          ID
	Participant Participant // MutationAdded
	Status      Status      // MutationStatusChanged
	Priority    int         // MutationPriorityChanged
}

// Added registers p. Its ID must be free.
func Added(p Participant) Mutation {
	return Mutation{Kind: MutationAdded, ID: p.ID, Participant: p}
}

// Removed marks id removed. The entry is erased at the next turn boundary.
func Removed(id ID) Mutation {
	return Mutation{Kind: MutationRemoved, ID: id}
}

// StatusChanged sets the status of id.
func StatusChanged(id ID, s Status) Mutation {
	return Mutation{Kind: MutationStatusChanged, ID: id, Status: s}
}

// PriorityChanged sets the initiative priority of id.
func PriorityChanged(id ID, value int) Mutation {
	return Mutation{Kind: MutationPriorityChanged, ID: id, Priority: value}
}
