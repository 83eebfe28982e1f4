package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/skirmishkit/turnengine/internal/core/roster"
	"github.com/skirmishkit/turnengine/internal/core/turn"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: skirmish
participants:
  - { id: A, side: "1", priority: 5 }
  - { id: B, side: "2", priority: 9 }
  - { id: C, side: "1", priority: 2, status: incapacitated }
steps:
  - { at: { round: 1, turn: 1 }, op: remove, id: B }
  - { at: { round: 2, turn: 0 }, op: add, id: D, side: "2", priority: 4 }
  - { at: { round: 2, turn: 1 }, op: status, id: C, status: active }
  - { at: { round: 3, turn: 0 }, op: priority, id: A, priority: 1 }
  - { at: { round: 4, turn: 0 }, op: end }
`)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "skirmish" || len(sc.Participants) != 3 || len(sc.Steps) != 5 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	reg := roster.NewRegistry()
	if err := sc.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 participants, got %d", reg.Len())
	}
	if c, _ := reg.Get("C"); c.Status != roster.StatusIncapacitated {
		t.Errorf("expected C incapacitated, got %s", c.Status)
	}

	tests := []struct {
		step int
		kind turn.IntentKind
		mut  roster.MutationKind
	}{
		{0, turn.IntentMutation, roster.MutationRemoved},
		{1, turn.IntentMutation, roster.MutationAdded},
		{2, turn.IntentMutation, roster.MutationStatusChanged},
		{3, turn.IntentMutation, roster.MutationPriorityChanged},
		{4, turn.IntentEnd, 0},
	}
	for _, tt := range tests {
		in, err := sc.Steps[tt.step].Intent()
		if err != nil {
			t.Fatalf("step %d: %v", tt.step, err)
		}
		if in.Kind != tt.kind {
			t.Errorf("step %d: expected %s, got %s", tt.step, tt.kind, in.Kind)
		}
		if in.Kind == turn.IntentMutation && in.Mutation.Kind != tt.mut {
			t.Errorf("step %d: expected %s, got %s", tt.step, tt.mut, in.Mutation.Kind)
		}
	}
	in, _ := sc.Steps[1].Intent()
	if p := in.Mutation.Participant; p.ID != "D" || p.Side != "2" || p.Priority != 4 {
		t.Errorf("unexpected added participant %+v", p)
	}
}

func TestLoadScenarioRejectsBadSteps(t *testing.T) {
	tests := []struct {
		name string
		body string
		is   error
	}{
		{"unknown op", `steps: [{ at: { round: 1 }, op: teleport, id: A }]`, ErrUnknownOp},
		{"bad status", `steps: [{ at: { round: 1 }, op: status, id: A, status: asleep }]`, nil},
		{"missing id", `steps: [{ at: { round: 1 }, op: remove }]`, nil},
		{"bad participant", `participants: [{ id: A, status: dazed }]`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	sc := &Scenario{Participants: []ParticipantEntry{{ID: "A"}, {ID: "A"}}}
	if err := sc.Register(roster.NewRegistry()); !errors.Is(err, roster.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestLoadBundledScenario(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("..", "..", "data", "yaml", "scenario.yaml"))
	if err != nil {
		t.Fatalf("load bundled scenario: %v", err)
	}
	if len(sc.Participants) == 0 {
		t.Fatal("bundled scenario has no participants")
	}
}
