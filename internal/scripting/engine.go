// Package scripting hosts the Lua decision layer. Go owns the
// mechanics (pathfinding, collision, persistence); Lua decides what a
// pet wants to do next and hands back a command list.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only:
// each room owns its own Engine so AI calls never cross goroutines.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
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

// --- Pet AI Bridge ---

// PetAIContext holds pre-packed data for one pet's AI decision.
type PetAIContext struct {
	PetID int
	X, Y  int

	// Room bounds for wander target clamping.
	RoomWidth  int
	RoomHeight int

	Walking bool

	// Owner (0 = owner not in the room)
	OwnerID   int
	OwnerX    int
	OwnerY    int
	OwnerDist int // Chebyshev distance

	// Nearest water bowl with charges left (0 = none)
	BowlItemID int
	BowlX      int
	BowlY      int
	BowlDist   int

	// Nest tile
	NestX int
	NestY int
}

// PetCommand is a single action returned by Lua AI.
type PetCommand struct {
	Type string // "walk_to", "drink", "idle"
	X, Y int
}

// RunPetAI calls Lua pet_ai(ctx) and returns a list of commands.
func (e *Engine) RunPetAI(ctx PetAIContext) []PetCommand {
	fn := e.vm.GetGlobal("pet_ai")
	if fn == lua.LNil {
		return nil
	}

	// Build context table
	t := e.vm.NewTable()
	t.RawSetString("pet_id", lua.LNumber(ctx.PetID))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("room_width", lua.LNumber(ctx.RoomWidth))
	t.RawSetString("room_height", lua.LNumber(ctx.RoomHeight))
	if ctx.Walking {
		t.RawSetString("walking", lua.LTrue)
	} else {
		t.RawSetString("walking", lua.LFalse)
	}

	t.RawSetString("owner_id", lua.LNumber(ctx.OwnerID))
	t.RawSetString("owner_x", lua.LNumber(ctx.OwnerX))
	t.RawSetString("owner_y", lua.LNumber(ctx.OwnerY))
	t.RawSetString("owner_dist", lua.LNumber(ctx.OwnerDist))

	t.RawSetString("bowl_item_id", lua.LNumber(ctx.BowlItemID))
	t.RawSetString("bowl_x", lua.LNumber(ctx.BowlX))
	t.RawSetString("bowl_y", lua.LNumber(ctx.BowlY))
	t.RawSetString("bowl_dist", lua.LNumber(ctx.BowlDist))

	t.RawSetString("nest_x", lua.LNumber(ctx.NestX))
	t.RawSetString("nest_y", lua.LNumber(ctx.NestY))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua pet_ai error", zap.Error(err), zap.Int("pet_id", ctx.PetID))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	// Parse commands array
	var cmds []PetCommand
	rt.ForEach(func(_, v lua.LValue) {
		if row, ok := v.(*lua.LTable); ok {
			cmds = append(cmds, PetCommand{
				Type: lStr(row, "type"),
				X:    lInt(row, "x"),
				Y:    lInt(row, "y"),
			})
		}
	})
	return cmds
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
