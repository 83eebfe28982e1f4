package main

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/skirmishkit/turnengine/internal/config"
	"github.com/skirmishkit/turnengine/internal/data"
	"github.com/skirmishkit/turnengine/internal/persist"
	"github.com/skirmishkit/turnengine/internal/scripting"
	"github.com/skirmishkit/turnengine/internal/system"
	"go.uber.org/zap"
)

func loadBundled(t *testing.T) (*config.Config, *data.Scenario) {
	t.Helper()
	root := filepath.Join("..", "..")
	cfg, err := config.Load(filepath.Join(root, "config", "turnsim.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Scripting.Dir = filepath.Join(root, "scripts")
	cfg.Database.Enabled = false
	sc, err := data.LoadScenario(filepath.Join(root, "data", "yaml", "scenario.yaml"))
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	return cfg, sc
}

func newEngine(t *testing.T, cfg *config.Config) *scripting.Engine {
	t.Helper()
	engine, err := scripting.NewEngine(cfg.Scripting.Dir, nil)
	if err != nil {
		t.Fatalf("scripting: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestHeadlessRunIsReplayable(t *testing.T) {
	cfg, sc := loadBundled(t)
	mem := &system.MemoryJournal{}
	id := uuid.New()

	enc, err := buildEncounter(cfg, sc, newEngine(t, cfg), mem, id, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	interrupted, err := enc.run(cfg.Loop, false, nil, zap.NewNop())
	if err != nil || interrupted {
		t.Fatalf("run: interrupted=%v err=%v", interrupted, err)
	}
	if enc.reason != "ended" {
		t.Fatalf("expected the scripted end step to conclude, got %q", enc.reason)
	}
	if len(mem.Turns()) == 0 {
		t.Fatal("no turns recorded")
	}
	if err := verifyReplay(cfg, sc, id, mem.Entries(), zap.NewNop()); err != nil {
		t.Fatalf("replay: %v", err)
	}
}

func TestRunStopsAtTickLimit(t *testing.T) {
	cfg, sc := loadBundled(t)
	cfg.Loop.MaxTicks = 3
	enc, err := buildEncounter(cfg, sc, newEngine(t, cfg), &system.MemoryJournal{}, uuid.New(), zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := enc.run(cfg.Loop, false, nil, zap.NewNop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enc.reason != "max_ticks" || enc.ticks != 3 {
		t.Fatalf("expected max_ticks after 3 ticks, got %q after %d", enc.reason, enc.ticks)
	}
}

func TestRunStopsAtRoundLimit(t *testing.T) {
	cfg, sc := loadBundled(t)
	cfg.Loop.MaxRounds = 1
	mem := &system.MemoryJournal{}
	id := uuid.New()
	enc, err := buildEncounter(cfg, sc, newEngine(t, cfg), mem, id, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := enc.run(cfg.Loop, false, nil, zap.NewNop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enc.reason != "max_rounds" || enc.sched.GetRoundNumber() != 1 {
		t.Fatalf("expected max_rounds in round 1, got %q in round %d", enc.reason, enc.sched.GetRoundNumber())
	}
	entries := mem.Entries()
	for _, e := range entries {
		if e.Round > 1 {
			t.Fatalf("round 2 leaked into the journal: %+v", e)
		}
	}
	if last := entries[len(entries)-1]; last.Kind != persist.EntryEncounterConcluded || last.Detail != "max_rounds" {
		t.Fatalf("expected max_rounds conclusion, got %+v", last)
	}
	if err := verifyReplay(cfg, sc, id, entries, zap.NewNop()); err != nil {
		t.Fatalf("replay: %v", err)
	}
}

func TestScriptTieBreakNeedsEngine(t *testing.T) {
	cfg, sc := loadBundled(t)
	cfg.Encounter.TieBreak = "script"
	if _, err := buildEncounter(cfg, sc, nil, &system.MemoryJournal{}, uuid.New(), zap.NewNop()); err == nil {
		t.Fatal("expected error without a scripting engine")
	}
}

func TestHeadlessRunNeedsTrigger(t *testing.T) {
	cfg, sc := loadBundled(t)
	cfg.Loop.TurnDuration = 0
	cfg.Loop.MaxTicks = 0
	enc, err := buildEncounter(cfg, sc, newEngine(t, cfg), &system.MemoryJournal{}, uuid.New(), zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := enc.run(cfg.Loop, false, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for a run nothing advances")
	}
}
