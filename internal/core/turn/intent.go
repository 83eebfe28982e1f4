package turn

import (
	"errors"
	"fmt"

	"github.com/skirmishkit/turnengine/internal/core/roster"
	"go.uber.org/zap"
)

// IntentKind is the command carried by an Intent.
type IntentKind int

const (
	IntentAdvance IntentKind = iota
	IntentMutation
	IntentEnd
)

func (k IntentKind) String() string {
	switch k {
	case IntentAdvance:
		return "advance"
	case IntentMutation:
		return "mutation"
	case IntentEnd:
		return "end"
	}
	return fmt.Sprintf("intent_%d", int(k))
}

// Intent is a command queued by an event listener. Listeners must not call
// the scheduler directly; they Post intents that the next Tick applies.
type Intent struct {
	Kind     IntentKind
	Mutation roster.Mutation // IntentMutation
}

func AdvanceIntent() Intent { return Intent{Kind: IntentAdvance} }

func EndIntent() Intent { return Intent{Kind: IntentEnd} }

func MutationIntent(m roster.Mutation) Intent {
	return Intent{Kind: IntentMutation, Mutation: m}
}

// Post queues an intent for the next Tick. Safe to call from listeners.
// Intents posted after the encounter concluded are dropped.
func (s *Scheduler) Post(in Intent) {
	if s.status == StatusConcluded {
		s.log.Debug("intent dropped after conclusion", zap.Stringer("intent", in.Kind))
		return
	}
	s.intents = append(s.intents, in)
}

// PendingIntents returns the number of intents waiting for Tick.
func (s *Scheduler) PendingIntents() int { return len(s.intents) }

// Tick applies the intents posted before it was called, in posting order.
// Intents posted by listeners while Tick runs wait for the next Tick.
// AlreadyConcluded results inside a batch are dropped; other errors are
// joined. Once the encounter has concluded Tick discards anything queued and
// returns ErrAlreadyConcluded.
func (s *Scheduler) Tick() error {
	if err := s.enter("tick"); err != nil {
		return err
	}
	if s.status == StatusConcluded {
		s.intents = nil
		return ErrAlreadyConcluded
	}
	if len(s.intents) == 0 {
		return nil
	}
	batch := s.intents
	s.intents = nil

	var errs []error
	for _, in := range batch {
		var err error
		switch in.Kind {
		case IntentAdvance:
			err = s.Advance()
		case IntentMutation:
			err = s.NotifyMutation(in.Mutation)
		case IntentEnd:
			err = s.End()
		default:
			err = fmt.Errorf("unknown intent %d", int(in.Kind))
		}
		if err == nil || errors.Is(err, ErrAlreadyConcluded) {
			continue
		}
		s.log.Warn("intent failed", zap.Stringer("intent", in.Kind), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s intent: %w", in.Kind, err))
	}
	return errors.Join(errs...)
}
