// Package turn implements the encounter state machine: it owns the running
// round, asks the ordering strategy who acts next, and raises turn lifecycle
// events on its bus.
package turn

import (
	"fmt"

	"github.com/skirmishkit/turnengine/internal/core/event"
	"github.com/skirmishkit/turnengine/internal/core/order"
	"github.com/skirmishkit/turnengine/internal/core/roster"
	"go.uber.org/zap"
)

// Scheduler sequences the turns of one encounter. It is driven only by
// explicit calls from the host loop and is not safe for concurrent use.
type Scheduler struct {
	reg      *roster.Registry
	strategy order.Strategy
	bus      *event.Bus
	log      *zap.Logger
	debug    bool
	maxRound int

	status   Status
	round    order.State
	roundNo  int
	turnIdx  int // index the next turn of this round gets
	record   TurnRecord
	hasTurn  bool
	last     order.Slot // slot of the most recently started turn
	side     roster.Side
	sideOpen bool

	intents []Intent
}

// New binds a scheduler to a registry and the strategy described by cfg.
func New(reg *roster.Registry, cfg Config, log *zap.Logger) (*Scheduler, error) {
	strategy, err := order.New(cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		reg:      reg,
		strategy: strategy,
		bus:      event.NewBus(),
		log:      log,
		debug:    cfg.Debug,
		maxRound: cfg.MaxRounds,
	}, nil
}

// Bus returns the bus listeners subscribe to.
func (s *Scheduler) Bus() *event.Bus { return s.bus }

func (s *Scheduler) Status() Status { return s.status }

// GetRoundNumber returns the running round, 0 before Start.
func (s *Scheduler) GetRoundNumber() int { return s.roundNo }

// GetCurrent returns the participant whose turn is running.
func (s *Scheduler) GetCurrent() (roster.Participant, bool) {
	if !s.hasTurn {
		return roster.Participant{}, false
	}
	return s.reg.Get(s.record.ParticipantID)
}

// Record returns the current TurnRecord.
func (s *Scheduler) Record() (TurnRecord, bool) {
	return s.record, s.hasTurn
}

// Order returns the frozen order of the running round.
func (s *Scheduler) Order() order.State { return s.round }

// Start begins the encounter and the first turn.
func (s *Scheduler) Start() error {
	if err := s.enter("start"); err != nil {
		return err
	}
	switch s.status {
	case StatusConcluded:
		return ErrAlreadyConcluded
	case StatusInProgress:
		return ErrAlreadyStarted
	}
	if s.reg.Len() == 0 {
		return ErrNoParticipants
	}
	defer s.bus.Flush()

	s.status = StatusInProgress
	event.Emit(s.bus, event.EncounterStarted{Participants: s.reg.Len()})
	s.log.Info("encounter started",
		zap.Stringer("strategy", s.strategy.Kind()),
		zap.Int("participants", s.reg.Len()),
	)
	s.advance()
	return nil
}

// Advance ends the running turn and starts the next one. When nobody is
// eligible for a new round the encounter concludes instead.
func (s *Scheduler) Advance() error {
	if err := s.enter("advance"); err != nil {
		return err
	}
	switch s.status {
	case StatusConcluded:
		return ErrAlreadyConcluded
	case StatusNotStarted:
		return ErrNotStarted
	}
	defer s.bus.Flush()

	s.endTurn(false)
	s.advance()
	return nil
}

// NotifyMutation applies a roster change. If the acting participant is no
// longer eligible its turn is ended (forced) and the next turn starts.
func (s *Scheduler) NotifyMutation(m roster.Mutation) error {
	if err := s.enter("notify mutation"); err != nil {
		return err
	}
	if s.status == StatusConcluded {
		return ErrAlreadyConcluded
	}
	if err := s.reg.Apply(m); err != nil {
		return fmt.Errorf("notify mutation: %w", err)
	}
	if s.status != StatusInProgress {
		return nil
	}
	defer s.bus.Flush()

	s.round = s.strategy.Reorder(s.round, m, s.reg.Snapshot())
	s.log.Debug("roster mutation",
		zap.Stringer("kind", m.Kind),
		zap.String("participant", string(m.ID)),
	)
	if s.hasTurn && !s.reg.Eligible(s.record.ParticipantID) {
		s.endTurn(true)
		s.advance()
	}
	return nil
}

// End concludes the encounter from any state.
func (s *Scheduler) End() error {
	if err := s.enter("end"); err != nil {
		return err
	}
	if s.status == StatusConcluded {
		return ErrAlreadyConcluded
	}
	defer s.bus.Flush()

	s.conclude(event.ReasonEnded)
	return nil
}

// enter rejects calls made while the bus is delivering events.
func (s *Scheduler) enter(op string) error {
	if !s.bus.Delivering() {
		return nil
	}
	err := fmt.Errorf("%s: %w", op, ErrReentrancyDetected)
	if s.debug {
		s.log.Error("reentrant scheduler call", zap.String("op", op))
		panic(err)
	}
	s.log.Warn("reentrant scheduler call ignored", zap.String("op", op))
	return err
}

// advance starts the next turn. A fresh round only contains eligible
// participants, so at most one new round is computed.
func (s *Scheduler) advance() {
	for attempt := 0; attempt < 2; attempt++ {
		if slot, ok := s.nextEligible(); ok {
			s.beginTurn(slot)
			return
		}
		if s.maxRound > 0 && s.roundNo >= s.maxRound {
			s.conclude(event.ReasonMaxRounds)
			return
		}
		if !s.newRound() {
			break
		}
	}
	s.conclude(event.ReasonExhausted)
}

func (s *Scheduler) nextEligible() (order.Slot, bool) {
	for s.round.Next < len(s.round.Slots) {
		slot := s.round.Slots[s.round.Next]
		s.round.Next++
		if s.reg.Eligible(slot.ID) {
			return slot, true
		}
	}
	return order.Slot{}, false
}

func (s *Scheduler) newRound() bool {
	prev := s.round
	if s.last.ID != "" {
		last := s.last
		prev.Last = &last
	}
	st := s.strategy.ComputeOrder(s.reg.Snapshot(), prev)
	if st.Empty() {
		return false
	}
	s.round = s.avoidRepeat(st)
	s.roundNo++
	s.turnIdx = 0
	s.sideOpen = false
	event.Emit(s.bus, event.RoundStarted{Round: s.roundNo, Order: s.round.IDs()})
	s.log.Debug("round started", zap.Int("round", s.roundNo), zap.Int("slots", len(s.round.Slots)))
	return true
}

// avoidRepeat keeps the participant that closed the previous round from
// opening the next one, unless it is alone. It trades places with the next
// slot. The phase strategy already resumes after the last side, so a phase
// round only opens with the same participant when one side is left; the
// swap then stays within that side.
func (s *Scheduler) avoidRepeat(st order.State) order.State {
	if s.last.ID == "" || len(st.Slots) < 2 || st.Slots[0].ID != s.last.ID {
		return st
	}
	if s.strategy.Kind() == order.KindPhase && st.Slots[1].Side != st.Slots[0].Side {
		return st
	}
	slots := make([]order.Slot, len(st.Slots))
	copy(slots, st.Slots)
	slots[0], slots[1] = slots[1], slots[0]
	return order.State{Slots: slots, Next: st.Next}
}

func (s *Scheduler) beginTurn(slot order.Slot) {
	s.record = TurnRecord{ParticipantID: slot.ID, Round: s.roundNo, Index: s.turnIdx}
	s.turnIdx++
	s.hasTurn = true
	s.last = slot

	if s.strategy.Kind() == order.KindPhase && (!s.sideOpen || slot.Side != s.side) {
		s.side = slot.Side
		s.sideOpen = true
		event.Emit(s.bus, event.PhaseStarted{Round: s.roundNo, Side: slot.Side})
	}
	event.Emit(s.bus, event.TurnStarted{
		ParticipantID: slot.ID,
		Round:         s.record.Round,
		Index:         s.record.Index,
	})
	if n := s.reg.Compact(slot.ID); n > 0 {
		s.log.Debug("erased removed participants", zap.Int("count", n))
	}
	s.log.Debug("turn started",
		zap.String("participant", string(slot.ID)),
		zap.Int("round", s.record.Round),
		zap.Int("index", s.record.Index),
	)
}

func (s *Scheduler) endTurn(forced bool) {
	if !s.hasTurn {
		return
	}
	s.hasTurn = false
	event.Emit(s.bus, event.TurnEnded{
		ParticipantID: s.record.ParticipantID,
		Round:         s.record.Round,
		Index:         s.record.Index,
		Forced:        forced,
	})
}

func (s *Scheduler) conclude(reason event.ConcludeReason) {
	s.endTurn(true)
	s.status = StatusConcluded
	s.reg.Compact("")
	event.Emit(s.bus, event.EncounterConcluded{Round: s.roundNo, Reason: reason})
	s.log.Info("encounter concluded",
		zap.String("reason", string(reason)),
		zap.Int("rounds", s.roundNo),
	)
}
