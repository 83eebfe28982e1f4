package system

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skirmishkit/turnengine/internal/core/event"
	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/persist"
	"go.uber.org/zap"
)

// Journal stores turn journal entries. *persist.JournalRepo and
// *MemoryJournal implement it.
type Journal interface {
	Append(ctx context.Context, entries []persist.TurnEntry) error
}

// JournalSystem records the lifecycle events of one encounter and flushes
// them to the journal once per tick. A failed batch stays buffered and is
// retried on the next tick. Phase 3 (Persist).
type JournalSystem struct {
	journal     Journal
	encounterID uuid.UUID
	timeout     time.Duration
	log         *zap.Logger

	seq int64
	buf []persist.TurnEntry
}

func NewJournalSystem(bus *event.Bus, j Journal, encounterID uuid.UUID, timeout time.Duration, log *zap.Logger) *JournalSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	s := &JournalSystem{
		journal:     j,
		encounterID: encounterID,
		timeout:     timeout,
		log:         log,
	}
	bus.SubscribeAll(s.record)
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.Flush(ctx)
}

// Flush writes everything buffered. Called each tick and once on shutdown.
func (s *JournalSystem) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.journal.Append(ctx, s.buf); err != nil {
		s.log.Error("journal flush failed",
			zap.String("encounter", s.encounterID.String()),
			zap.Int("pending", len(s.buf)),
			zap.Error(err),
		)
		return fmt.Errorf("journal flush: %w", err)
	}
	s.buf = s.buf[:0]
	return nil
}

// Pending returns the number of buffered entries.
func (s *JournalSystem) Pending() int { return len(s.buf) }

func (s *JournalSystem) record(ev any) {
	e := persist.TurnEntry{EncounterID: s.encounterID}
	switch ev := ev.(type) {
	case event.RoundStarted:
		e.Kind = persist.EntryRoundStarted
		e.Round = ev.Round
		ids := make([]string, len(ev.Order))
		for i, id := range ev.Order {
			ids[i] = string(id)
		}
		e.Detail = strings.Join(ids, ",")
	case event.PhaseStarted:
		e.Kind = persist.EntryPhaseStarted
		e.Round = ev.Round
		e.Detail = string(ev.Side)
	case event.TurnStarted:
		e.Kind = persist.EntryTurnStarted
		e.ParticipantID = string(ev.ParticipantID)
		e.Round = ev.Round
		e.Index = ev.Index
	case event.TurnEnded:
		e.Kind = persist.EntryTurnEnded
		e.ParticipantID = string(ev.ParticipantID)
		e.Round = ev.Round
		e.Index = ev.Index
		e.Forced = ev.Forced
	case event.EncounterConcluded:
		e.Kind = persist.EntryEncounterConcluded
		e.Round = ev.Round
		e.Detail = string(ev.Reason)
	default:
		return // EncounterStarted lives in the encounters row
	}
	s.seq++
	e.Seq = s.seq
	s.buf = append(s.buf, e)
}

// MemoryJournal keeps entries in memory. Used for headless replays and when
// no database is configured.
type MemoryJournal struct {
	entries []persist.TurnEntry
}

func (m *MemoryJournal) Append(_ context.Context, entries []persist.TurnEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

// Entries returns a copy of everything appended so far.
func (m *MemoryJournal) Entries() []persist.TurnEntry {
	out := make([]persist.TurnEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Turns returns the participant ids of the started turns, in order.
func (m *MemoryJournal) Turns() []string {
	var out []string
	for _, e := range m.entries {
		if e.Kind == persist.EntryTurnStarted {
			out = append(out, e.ParticipantID)
		}
	}
	return out
}
