package system

import (
	"time"

	"github.com/skirmishkit/turnengine/internal/core/event"
	"github.com/skirmishkit/turnengine/internal/core/roster"
	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/core/turn"
	"github.com/skirmishkit/turnengine/internal/scripting"
)

// TurnHook is called for every started turn and returns the roster changes
// it wants applied.
type TurnHook interface {
	OnTurnStarted(ctx scripting.TurnContext) []roster.Mutation
}

// ScriptHookSystem runs the turn hook for turns started since the last tick
// and posts the resulting mutations. The hook never runs while the bus is
// delivering. Phase 2 (Script).
type ScriptHookSystem struct {
	sched   *turn.Scheduler
	reg     *roster.Registry
	hook    TurnHook
	started []event.TurnStarted
}

func NewScriptHookSystem(sched *turn.Scheduler, reg *roster.Registry, hook TurnHook) *ScriptHookSystem {
	s := &ScriptHookSystem{sched: sched, reg: reg, hook: hook}
	event.Subscribe(sched.Bus(), func(ev event.TurnStarted) {
		s.started = append(s.started, ev)
	})
	return s
}

func (s *ScriptHookSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptHookSystem) Update(_ time.Duration) error {
	for _, ev := range s.started {
		p, ok := s.reg.Get(ev.ParticipantID)
		if !ok {
			continue // erased since
		}
		for _, m := range s.hook.OnTurnStarted(scripting.TurnContext{
			Participant: p,
			Round:       ev.Round,
			Index:       ev.Index,
		}) {
			s.sched.Post(turn.MutationIntent(m))
		}
	}
	s.started = s.started[:0]
	return nil
}
