package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Journal entry kinds.
const (
	EntryRoundStarted       = "round_started"
	EntryPhaseStarted       = "phase_started"
	EntryTurnStarted        = "turn_started"
	EntryTurnEnded          = "turn_ended"
	EntryEncounterConcluded = "encounter_concluded"
)

// TurnEntry is one row of the turn journal. Seq orders the rows of an
// encounter; Detail carries the side of a phase or the conclude reason.
type TurnEntry struct {
	EncounterID   uuid.UUID
	Seq           int64
	Kind          string
	ParticipantID string
	Round         int
	Index         int
	Forced        bool
	Detail        string
}

// Encounter is the header row every journal entry hangs off.
type Encounter struct {
	ID          uuid.UUID
	Name        string
	Strategy    string
	StartedAt   time.Time
	ConcludedAt *time.Time
	Reason      string
	Rounds      int
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// CreateEncounter inserts the header row for a new encounter.
func (r *JournalRepo) CreateEncounter(ctx context.Context, id uuid.UUID, name, strategy string) error {
	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO encounters (id, name, strategy) VALUES ($1, $2, $3)`,
		id.String(), name, strategy,
	); err != nil {
		return fmt.Errorf("create encounter: %w", err)
	}
	return nil
}

// ConcludeEncounter stamps the conclusion of an encounter.
func (r *JournalRepo) ConcludeEncounter(ctx context.Context, id uuid.UUID, reason string, rounds int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE encounters SET concluded_at = now(), reason = $2, rounds = $3 WHERE id = $1`,
		id.String(), reason, rounds,
	)
	if err != nil {
		return fmt.Errorf("conclude encounter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conclude encounter %s: not found", id)
	}
	return nil
}

// Append writes a batch of entries in a single transaction. Either the whole
// batch is stored or none of it.
func (r *JournalRepo) Append(ctx context.Context, entries []TurnEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO turn_journal (encounter_id, seq, kind, participant_id, round, turn_index, forced, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.EncounterID.String(), e.Seq, e.Kind, e.ParticipantID, e.Round, e.Index, e.Forced, e.Detail,
		); err != nil {
			return fmt.Errorf("journal insert seq %d: %w", e.Seq, err)
		}
	}

	return tx.Commit(ctx)
}

// Entries returns the journal of an encounter in sequence order.
func (r *JournalRepo) Entries(ctx context.Context, id uuid.UUID) ([]TurnEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT seq, kind, participant_id, round, turn_index, forced, detail
		 FROM turn_journal WHERE encounter_id = $1 ORDER BY seq`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []TurnEntry
	for rows.Next() {
		e := TurnEntry{EncounterID: id}
		if err := rows.Scan(&e.Seq, &e.Kind, &e.ParticipantID, &e.Round, &e.Index, &e.Forced, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadEncounter reads the header row of an encounter.
func (r *JournalRepo) LoadEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	enc := &Encounter{ID: id}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, strategy, started_at, concluded_at, reason, rounds FROM encounters WHERE id = $1`,
		id.String(),
	).Scan(&enc.Name, &enc.Strategy, &enc.StartedAt, &enc.ConcludedAt, &enc.Reason, &enc.Rounds)
	if err != nil {
		return nil, fmt.Errorf("load encounter %s: %w", id, err)
	}
	return enc, nil
}
