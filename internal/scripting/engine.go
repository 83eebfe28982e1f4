package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skirmishkit/turnengine/internal/core/order"
	"github.com/skirmishkit/turnengine/internal/core/roster"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for encounter hooks.
// Single-goroutine access only (host loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Shared helpers first, then the hooks that use them.
	for _, sub := range []string{"core", "turns"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a global Lua function is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// ── Tie-break ──────────────────────────────────────────────────────

// TieBreaker returns an order.TieBreaker backed by the Lua tie_break_key
// function. Keys compare ascending: numbers before strings, numbers
// numerically, strings lexically. A script error yields a nil key, and nil
// keys tie, leaving the decision to the id fallback.
func (e *Engine) TieBreaker() order.TieBreaker {
	return luaTieBreaker{e: e}
}

type luaTieBreaker struct {
	e *Engine
}

func (t luaTieBreaker) Compare(a, b roster.Participant) int {
	return compareKeys(t.e.tieBreakKey(a), t.e.tieBreakKey(b))
}

func (e *Engine) tieBreakKey(p roster.Participant) lua.LValue {
	fn := e.vm.GetGlobal("tie_break_key")
	if fn == lua.LNil {
		return lua.LNil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.participantTable(p)); err != nil {
		e.log.Error("lua tie_break_key error", zap.String("participant", string(p.ID)), zap.Error(err))
		return lua.LNil
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result
}

func compareKeys(a, b lua.LValue) int {
	rank := func(v lua.LValue) int {
		switch v.Type() {
		case lua.LTNumber:
			return 0
		case lua.LTString:
			return 1
		}
		return 2
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		na, nb := lua.LVAsNumber(a), lua.LVAsNumber(b)
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	case 1:
		return strings.Compare(lua.LVAsString(a), lua.LVAsString(b))
	}
	return 0
}

// ── Turn hook ──────────────────────────────────────────────────────

// TurnContext is what on_turn_started sees of the turn that just began.
type TurnContext struct {
	Participant roster.Participant
	Round       int
	Index       int
}

// OnTurnStarted calls the Lua on_turn_started function. It may return a list
// of commands such as {op="status", id="bram", status="incapacitated"}; they
// are converted to roster mutations. Malformed commands are logged and
// skipped.
func (e *Engine) OnTurnStarted(ctx TurnContext) []roster.Mutation {
	fn := e.vm.GetGlobal("on_turn_started")
	if fn == lua.LNil {
		return nil
	}

	t := e.vm.NewTable()
	t.RawSetString("participant", e.participantTable(ctx.Participant))
	t.RawSetString("round", lua.LNumber(ctx.Round))
	t.RawSetString("index", lua.LNumber(ctx.Index))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua on_turn_started error", zap.Error(err))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil // nil / no commands
	}
	var out []roster.Mutation
	for i := 1; i <= rt.Len(); i++ {
		cmd, ok := rt.RawGetInt(i).(*lua.LTable)
		if !ok {
			e.log.Warn("lua command is not a table", zap.Int("index", i))
			continue
		}
		m, err := parseCommand(cmd)
		if err != nil {
			e.log.Warn("lua command ignored", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out
}

func parseCommand(t *lua.LTable) (roster.Mutation, error) {
	id := roster.ID(lStr(t, "id"))
	if id == "" {
		return roster.Mutation{}, fmt.Errorf("command without id")
	}
	switch op := lStr(t, "op"); op {
	case "add":
		return roster.Added(roster.Participant{
			ID:       id,
			Side:     roster.Side(lStr(t, "side")),
			Priority: lInt(t, "priority"),
		}), nil
	case "remove":
		return roster.Removed(id), nil
	case "status":
		st, err := roster.ParseStatus(lStr(t, "status"))
		if err != nil {
			return roster.Mutation{}, err
		}
		return roster.StatusChanged(id, st), nil
	case "priority":
		return roster.PriorityChanged(id, lInt(t, "priority")), nil
	default:
		return roster.Mutation{}, fmt.Errorf("unknown op %q", op)
	}
}

func (e *Engine) participantTable(p roster.Participant) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LString(p.ID))
	t.RawSetString("side", lua.LString(p.Side))
	t.RawSetString("priority", lua.LNumber(p.Priority))
	t.RawSetString("status", lua.LString(p.Status.String()))
	t.RawSetString("seq", lua.LNumber(p.Seq))
	return t
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
