package turn

import (
	"errors"
	"fmt"

	"github.com/skirmishkit/turnengine/internal/core/order"
	"github.com/skirmishkit/turnengine/internal/core/roster"
)

var (
	ErrNoParticipants     = errors.New("no participants")
	ErrAlreadyStarted     = errors.New("encounter already started")
	ErrNotStarted         = errors.New("encounter not started")
	ErrAlreadyConcluded   = errors.New("encounter already concluded")
	ErrReentrancyDetected = errors.New("scheduler called from an event listener")
)

// Status is the lifecycle state of a Scheduler.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusConcluded
)

var statusNames = map[Status]string{
	StatusNotStarted: "not_started",
	StatusInProgress: "in_progress",
	StatusConcluded:  "concluded",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status_%d", int(s))
}

// TurnRecord identifies the running turn. A new record replaces the previous
// one on every advance.
type TurnRecord struct {
	ParticipantID roster.ID
	Round         int // starts at 1
	Index         int // turn within the round, starts at 0
}

// Config is passed to New and fixes the scheduling policy for the encounter.
type Config struct {
	Order order.Config
	// MaxRounds concludes the encounter when the last turn of that round
	// ends, before another round is computed. 0 means unlimited.
	MaxRounds int
	// Debug makes reentrant calls from event listeners panic instead of
	// being logged and ignored.
	Debug bool
}
