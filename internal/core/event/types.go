package event

import "github.com/skirmishkit/turnengine/internal/core/roster"

// ConcludeReason tells why an encounter concluded.
type ConcludeReason string

const (
	ReasonExhausted ConcludeReason = "exhausted" // nobody eligible is left
	ReasonEnded     ConcludeReason = "ended"     // End was called
	ReasonMaxRounds ConcludeReason = "max_rounds"
)

type EncounterStarted struct {
	Participants int
}

// RoundStarted carries the frozen order of the new round.
type RoundStarted struct {
	Round int
	Order []roster.ID
}

// PhaseStarted is raised by phase-ordered encounters when control passes to
// another side.
type PhaseStarted struct {
	Round int
	Side  roster.Side
}

type TurnStarted struct {
	ParticipantID roster.ID
	Round         int
	Index         int
}

// TurnEnded is Forced when the turn was cut short, because the participant
// became ineligible or the encounter was ended.
type TurnEnded struct {
	ParticipantID roster.ID
	Round         int
	Index         int
	Forced        bool
}

type EncounterConcluded struct {
	Round  int
	Reason ConcludeReason
}
