package roster

import "fmt"

// ID identifies a participant for the whole encounter.
type ID string

// Side groups participants that share a phase in the phase strategy.
type Side string

// Status is the scheduling status of a participant.
type Status int

const (
	StatusActive        Status = iota // may be selected
	StatusIncapacitated               // skipped, may recover
	StatusRemoved                     // gone for the rest of the encounter
)

var statusNames = map[Status]string{
	StatusActive:        "active",
	StatusIncapacitated: "incapacitated",
	StatusRemoved:       "removed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status_%d", int(s))
}

// ParseStatus converts a status name ("active", "incapacitated", "removed").
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// Participant is one entity eligible to take turns.
// Seq is assigned by the Registry on Add and records registration order.
type Participant struct {
	ID       ID
	Side     Side
	Priority int
	Status   Status
	Seq      uint64
}

// Eligible reports whether the participant may be selected as current.
func (p Participant) Eligible() bool {
	return p.Status == StatusActive
}
