package system

import (
	"errors"
	"time"

	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/core/turn"
)

// IntentSystem applies the intents listeners posted since the last tick.
// It goes quiet once the encounter has concluded. Phase 0 (Input).
type IntentSystem struct {
	sched *turn.Scheduler
}

func NewIntentSystem(sched *turn.Scheduler) *IntentSystem {
	return &IntentSystem{sched: sched}
}

func (s *IntentSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *IntentSystem) Update(_ time.Duration) error {
	if err := s.sched.Tick(); err != nil && !errors.Is(err, turn.ErrAlreadyConcluded) {
		return err
	}
	return nil
}
