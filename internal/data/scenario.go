package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/skirmishkit/turnengine/internal/core/roster"
	"github.com/skirmishkit/turnengine/internal/core/turn"
	"gopkg.in/yaml.v3"
)

var ErrUnknownOp = errors.New("unknown scenario op")

// Scenario is an encounter roster plus the roster changes scripted against it.
type Scenario struct {
	Name         string             `yaml:"name"`
	Participants []ParticipantEntry `yaml:"participants"`
	Steps        []StepEntry        `yaml:"steps"`
}

type ParticipantEntry struct {
	ID       string `yaml:"id"`
	Side     string `yaml:"side"`
	Priority int    `yaml:"priority"`
	Status   string `yaml:"status"` // empty = active
}

// StepAt addresses a turn by round number and index within the round.
type StepAt struct {
	Round int `yaml:"round"`
	Turn  int `yaml:"turn"`
}

// StepEntry is one scripted change, applied when the turn at At starts.
// Op is one of add, remove, status, priority or end.
type StepEntry struct {
	At       StepAt `yaml:"at"`
	Op       string `yaml:"op"`
	ID       string `yaml:"id"`
	Side     string `yaml:"side"`
	Priority int    `yaml:"priority"`
	Status   string `yaml:"status"`
}

// LoadScenario loads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, p := range sc.Participants {
		if _, err := p.Participant(); err != nil {
			return nil, fmt.Errorf("scenario participant %d: %w", i, err)
		}
	}
	for i, st := range sc.Steps {
		if _, err := st.Intent(); err != nil {
			return nil, fmt.Errorf("scenario step %d: %w", i, err)
		}
	}
	return &sc, nil
}

// Participant converts the entry. Seq is left for the registry to assign.
func (e ParticipantEntry) Participant() (roster.Participant, error) {
	if e.ID == "" {
		return roster.Participant{}, errors.New("participant without id")
	}
	status := roster.StatusActive
	if e.Status != "" {
		var err error
		if status, err = roster.ParseStatus(e.Status); err != nil {
			return roster.Participant{}, err
		}
	}
	return roster.Participant{
		ID:       roster.ID(e.ID),
		Side:     roster.Side(e.Side),
		Priority: e.Priority,
		Status:   status,
	}, nil
}

// Register adds every participant of the scenario to reg.
func (sc *Scenario) Register(reg *roster.Registry) error {
	for _, e := range sc.Participants {
		p, err := e.Participant()
		if err != nil {
			return err
		}
		if err := reg.Add(p); err != nil {
			return fmt.Errorf("register %s: %w", e.ID, err)
		}
	}
	return nil
}

// Intent converts the step into the scheduler command it stands for.
func (s StepEntry) Intent() (turn.Intent, error) {
	if s.Op != "end" && s.ID == "" {
		return turn.Intent{}, fmt.Errorf("%s step without id", s.Op)
	}
	id := roster.ID(s.ID)
	switch s.Op {
	case "add":
		p, err := ParticipantEntry{ID: s.ID, Side: s.Side, Priority: s.Priority, Status: s.Status}.Participant()
		if err != nil {
			return turn.Intent{}, err
		}
		return turn.MutationIntent(roster.Added(p)), nil
	case "remove":
		return turn.MutationIntent(roster.Removed(id)), nil
	case "status":
		st, err := roster.ParseStatus(s.Status)
		if err != nil {
			return turn.Intent{}, err
		}
		return turn.MutationIntent(roster.StatusChanged(id, st)), nil
	case "priority":
		return turn.MutationIntent(roster.PriorityChanged(id, s.Priority)), nil
	case "end":
		return turn.EndIntent(), nil
	}
	return turn.Intent{}, fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
}
