package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/skirmishkit/turnengine/internal/config"
	"github.com/skirmishkit/turnengine/internal/core/event"
	"github.com/skirmishkit/turnengine/internal/core/order"
	"github.com/skirmishkit/turnengine/internal/core/roster"
	coresys "github.com/skirmishkit/turnengine/internal/core/system"
	"github.com/skirmishkit/turnengine/internal/core/turn"
	"github.com/skirmishkit/turnengine/internal/data"
	"github.com/skirmishkit/turnengine/internal/persist"
	"github.com/skirmishkit/turnengine/internal/scripting"
	"github.com/skirmishkit/turnengine/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(name string, id uuid.UUID) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              turnsim  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        encounter turn sequencing          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mEncounter:\033[0m %s \033[90m(%s)\033[0m\n\n", name, id)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/turnsim.toml"
	if p := os.Getenv("TURNSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load scenario
	sc, err := data.LoadScenario(cfg.Data.Scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	encounterID := uuid.New()
	log = log.With(zap.String("encounter", encounterID.String()))
	printBanner(sc.Name, encounterID)

	printSection("Scenario")
	printStat("Participants", len(sc.Participants))
	printStat("Scripted steps", len(sc.Steps))
	fmt.Println()

	// 4. Optional Lua scripts
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		printOK("Lua scripts loaded")
	}

	// 5. Journal: always in memory, plus PostgreSQL when enabled
	mem := &system.MemoryJournal{}
	var journals teeJournal
	var repo *persist.JournalRepo
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("Migrations applied (schema %d)", version))

		repo = persist.NewJournalRepo(db)
		if err := repo.CreateEncounter(ctx, encounterID, sc.Name, cfg.Encounter.Strategy); err != nil {
			return err
		}
		journals = append(journals, repo)
	}
	journals = append(journals, mem)

	// 6. Build and run the encounter
	enc, err := buildEncounter(cfg, sc, engine, journals, encounterID, log)
	if err != nil {
		return err
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	printReady("Encounter running")
	fmt.Println()
	interrupted, err := enc.run(cfg.Loop, cfg.Sim.Realtime, shutdownCh, log)
	if err != nil {
		return err
	}

	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.FlushTimeout)
		defer cancel()
		if err := repo.ConcludeEncounter(ctx, encounterID, enc.reason, enc.sched.GetRoundNumber()); err != nil {
			log.Error("conclude encounter row", zap.Error(err))
		}
	}

	printSequence(mem.Entries())
	printSection("Result")
	printStat("Rounds", enc.sched.GetRoundNumber())
	printStat("Turns", len(mem.Turns()))
	printStat("Ticks", enc.ticks)
	printOK("Concluded: " + enc.reason)

	// 7. Replay check
	if cfg.Sim.VerifyReplay && !interrupted {
		if err := verifyReplay(cfg, sc, encounterID, mem.Entries(), log); err != nil {
			return err
		}
		printOK("Replay produced the identical turn sequence")
	}
	fmt.Println()
	return nil
}

type encounter struct {
	reg     *roster.Registry
	sched   *turn.Scheduler
	runner  *coresys.Runner
	journal *system.JournalSystem
	ticks   int
	reason  string
}

func buildEncounter(cfg *config.Config, sc *data.Scenario, engine *scripting.Engine, j system.Journal, id uuid.UUID, log *zap.Logger) (*encounter, error) {
	var tb order.TieBreaker
	if cfg.Encounter.UsesScriptTieBreak() {
		if engine == nil || !engine.Has("tie_break_key") {
			return nil, errors.New("tie_break = \"script\" needs [scripting] enabled and a tie_break_key function")
		}
		tb = engine.TieBreaker()
	}
	schedCfg, err := cfg.Encounter.Scheduler(tb)
	if err != nil {
		return nil, err
	}
	schedCfg.MaxRounds = cfg.Loop.MaxRounds

	reg := roster.NewRegistry()
	if err := sc.Register(reg); err != nil {
		return nil, err
	}
	sched, err := turn.New(reg, schedCfg, log)
	if err != nil {
		return nil, err
	}

	enc := &encounter{reg: reg, sched: sched, runner: coresys.NewRunner()}
	event.Subscribe(sched.Bus(), func(ev event.EncounterConcluded) {
		if enc.reason == "" {
			enc.reason = string(ev.Reason)
		}
	})
	enc.journal = system.NewJournalSystem(sched.Bus(), j, id, cfg.Database.FlushTimeout, log)
	enc.runner.Register(system.NewIntentSystem(sched))
	enc.runner.Register(system.NewTurnTimerSystem(sched, cfg.Loop.TurnDuration, log))
	enc.runner.Register(system.NewScriptedMutationSystem(sched, sc.Steps, log))
	if engine != nil {
		enc.runner.Register(system.NewScriptHookSystem(sched, reg, engine))
	}
	enc.runner.Register(enc.journal)
	return enc, nil
}

// run ticks the encounter until it concludes. Realtime runs wait tick_rate
// between ticks and can be interrupted; headless runs tick back to back.
func (e *encounter) run(loop config.LoopConfig, realtime bool, shutdownCh <-chan os.Signal, log *zap.Logger) (bool, error) {
	if !realtime && loop.TurnDuration <= 0 && loop.MaxTicks <= 0 {
		return false, errors.New("headless run needs turn_duration or max_ticks")
	}
	if err := e.sched.Start(); err != nil {
		return false, fmt.Errorf("start encounter: %w", err)
	}
	if loop.TickRate <= 0 {
		loop.TickRate = 100 * time.Millisecond
	}

	var tickC <-chan time.Time
	if realtime {
		ticker := time.NewTicker(loop.TickRate)
		defer ticker.Stop()
		tickC = ticker.C
	}

	interrupted := false
	for e.sched.Status() != turn.StatusConcluded {
		if loop.MaxTicks > 0 && e.ticks >= loop.MaxTicks {
			log.Info("tick limit reached", zap.Int("ticks", e.ticks))
			e.end("max_ticks", log)
			break
		}
		if realtime {
			select {
			case sig := <-shutdownCh:
				log.Info("shutdown signal received", zap.String("signal", sig.String()))
				e.end("interrupted", log)
				interrupted = true
			case <-tickC:
			}
			if interrupted {
				break
			}
		}
		if err := e.runner.Tick(loop.TickRate); err != nil {
			log.Warn("tick errors", zap.Int("tick", e.ticks), zap.Error(err))
		}
		e.ticks++
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.journal.Flush(ctx); err != nil {
		return interrupted, err
	}
	return interrupted, nil
}

func (e *encounter) end(reason string, log *zap.Logger) {
	e.reason = reason
	if err := e.sched.End(); err != nil && !errors.Is(err, turn.ErrAlreadyConcluded) {
		log.Warn("end encounter", zap.Error(err))
	}
}

// verifyReplay runs the scenario again headless, with fresh scripts, and
// compares the journals.
func verifyReplay(cfg *config.Config, sc *data.Scenario, id uuid.UUID, want []persist.TurnEntry, log *zap.Logger) error {
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		var err error
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, zap.NewNop())
		if err != nil {
			return fmt.Errorf("replay scripting: %w", err)
		}
		defer engine.Close()
	}
	mem := &system.MemoryJournal{}
	enc, err := buildEncounter(cfg, sc, engine, mem, id, zap.NewNop())
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if _, err := enc.run(cfg.Loop, false, nil, zap.NewNop()); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	got := mem.Entries()
	if reflect.DeepEqual(got, want) {
		return nil
	}
	for i := 0; i < len(got) && i < len(want); i++ {
		if got[i] != want[i] {
			log.Error("replay diverged", zap.Int64("seq", want[i].Seq),
				zap.Any("live", want[i]), zap.Any("replay", got[i]))
			break
		}
	}
	return fmt.Errorf("replay diverged: %d live entries, %d replayed", len(want), len(got))
}

func printSequence(entries []persist.TurnEntry) {
	printSection("Turns")
	var line []string
	round := 0
	flush := func() {
		if len(line) > 0 {
			fmt.Printf("  %s %s\n", printer.Sprintf("round %3d:", round), strings.Join(line, " "))
		}
		line = line[:0]
	}
	for _, e := range entries {
		switch e.Kind {
		case persist.EntryRoundStarted:
			flush()
			round = e.Round
		case persist.EntryTurnStarted:
			line = append(line, e.ParticipantID)
		case persist.EntryTurnEnded:
			if e.Forced && len(line) > 0 {
				line[len(line)-1] += "*"
			}
		}
	}
	flush()
	fmt.Println()
}

// teeJournal appends to every journal in order and stops at the first error.
// The database goes first so a failed batch never reaches the memory copy.
type teeJournal []system.Journal

func (t teeJournal) Append(ctx context.Context, entries []persist.TurnEntry) error {
	for _, j := range t {
		if err := j.Append(ctx, entries); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
