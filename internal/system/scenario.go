package system

import (
	"time"

	"github.com/skirmishkit/turnengine/internal/core/event"
	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/core/turn"
	"github.com/skirmishkit/turnengine/internal/data"
	"go.uber.org/zap"
)

type stepKey struct {
	round int
	index int
}

// ScriptedMutationSystem replays the steps of a scenario. When the turn a
// step is addressed to starts, the step is posted to the scheduler and the
// next tick applies it. Phase 2 (Script).
type ScriptedMutationSystem struct {
	sched   *turn.Scheduler
	steps   map[stepKey][]data.StepEntry
	due     []data.StepEntry
	applied int
	log     *zap.Logger
}

func NewScriptedMutationSystem(sched *turn.Scheduler, steps []data.StepEntry, log *zap.Logger) *ScriptedMutationSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ScriptedMutationSystem{
		sched: sched,
		steps: make(map[stepKey][]data.StepEntry, len(steps)),
		log:   log,
	}
	for _, st := range steps {
		k := stepKey{round: st.At.Round, index: st.At.Turn}
		s.steps[k] = append(s.steps[k], st)
	}
	event.Subscribe(sched.Bus(), func(ev event.TurnStarted) {
		k := stepKey{round: ev.Round, index: ev.Index}
		s.due = append(s.due, s.steps[k]...)
		delete(s.steps, k)
	})
	return s
}

func (s *ScriptedMutationSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptedMutationSystem) Update(_ time.Duration) error {
	if len(s.due) == 0 {
		return nil
	}
	for _, st := range s.due {
		in, err := st.Intent()
		if err != nil {
			// LoadScenario validated the steps; only hand-built ones get here.
			s.log.Warn("scenario step skipped", zap.String("op", st.Op), zap.Error(err))
			continue
		}
		s.log.Debug("scenario step",
			zap.String("op", st.Op),
			zap.String("participant", st.ID),
			zap.Int("round", st.At.Round),
			zap.Int("turn", st.At.Turn),
		)
		s.sched.Post(in)
		s.applied++
	}
	s.due = s.due[:0]
	return nil
}

// Remaining returns the number of steps whose turn has not started yet.
func (s *ScriptedMutationSystem) Remaining() int {
	n := 0
	for _, st := range s.steps {
		n += len(st)
	}
	return n
}

// Applied returns the number of steps posted so far.
func (s *ScriptedMutationSystem) Applied() int { return s.applied }
