package system

import (
	"time"

	"github.com/skirmishkit/turnengine/internal/core/event"
	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/core/turn"
	"go.uber.org/zap"
)

// TurnTimerSystem advances the encounter once a turn has run for the
// configured duration. Every TurnStarted restarts the clock. Phase 1 (Trigger).
type TurnTimerSystem struct {
	sched    *turn.Scheduler
	duration time.Duration
	elapsed  time.Duration
	log      *zap.Logger
}

// NewTurnTimerSystem returns a timer; a duration of 0 disables it.
func NewTurnTimerSystem(sched *turn.Scheduler, duration time.Duration, log *zap.Logger) *TurnTimerSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &TurnTimerSystem{
		sched:    sched,
		duration: duration,
		log:      log,
	}
	event.Subscribe(sched.Bus(), func(event.TurnStarted) {
		s.elapsed = 0
	})
	return s
}

func (s *TurnTimerSystem) Phase() coresys.Phase { return coresys.PhaseTrigger }

func (s *TurnTimerSystem) Update(dt time.Duration) error {
	if s.duration <= 0 || s.sched.Status() != turn.StatusInProgress {
		return nil
	}
	s.elapsed += dt
	if s.elapsed < s.duration {
		return nil
	}
	if rec, ok := s.sched.Record(); ok {
		s.log.Debug("turn timer expired",
			zap.String("participant", string(rec.ParticipantID)),
			zap.Duration("elapsed", s.elapsed),
		)
	}
	s.elapsed = 0
	return s.sched.Advance()
}

// Elapsed returns how long the running turn has been timed.
func (s *TurnTimerSystem) Elapsed() time.Duration { return s.elapsed }
