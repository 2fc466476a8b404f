// Package trigger runs room lifecycle hooks. Handlers are registered
// per room model at startup; the room fires them whenever an entity
// enters or leaves, flagging the first entry since the room was loaded
// so one-shot setup (pet spawning, item refresh) runs exactly once per
// room session.
package trigger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/world"
)

// Context is the room surface handlers operate on.
type Context interface {
	RoomID() int64
	Map() *world.RoomMap
	Items() []*world.Item
	// PetRecords returns the pet records loaded with the room.
	PetRecords() []world.PetRecord
	// SpawnEntity adds a non-player entity to the room.
	SpawnEntity(e *world.Entity) error
	Emit(ev event.Event)
	SaveItem(it *world.Item)
}

// Handler reacts to an entity entering or leaving a room.
type Handler interface {
	OnRoomEntry(ctx Context, e *world.Entity, firstEntry bool) error
	OnRoomLeave(ctx Context, e *world.Entity) error
}

// HandlerFunc adapts an entry-only function to the Handler interface.
type HandlerFunc func(ctx Context, e *world.Entity, firstEntry bool) error

func (f HandlerFunc) OnRoomEntry(ctx Context, e *world.Entity, firstEntry bool) error {
	return f(ctx, e, firstEntry)
}

func (HandlerFunc) OnRoomLeave(Context, *world.Entity) error { return nil }

// Registry maps room model names to entry handlers. Registration
// happens once at startup; Fire runs on room goroutines against the
// then-frozen tables.
type Registry struct {
	byModel map[string][]Handler
	global  []Handler
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{byModel: make(map[string][]Handler), log: log}
}

// Register binds a handler to a room model. An empty model name binds
// the handler to every room. Handlers fire in registration order,
// global handlers first.
func (r *Registry) Register(model string, h Handler) {
	if model == "" {
		r.global = append(r.global, h)
		return
	}
	r.byModel[model] = append(r.byModel[model], h)
}

// FireEntry runs every entry handler bound to the room's model. A
// failing or panicking handler is logged and the rest still run.
func (r *Registry) FireEntry(ctx Context, model string, e *world.Entity, firstEntry bool) {
	for _, h := range r.handlersFor(model) {
		r.invoke(ctx, "entry", func() error { return h.OnRoomEntry(ctx, e, firstEntry) })
	}
}

// FireLeave runs every leave handler bound to the room's model, with
// the same isolation as FireEntry.
func (r *Registry) FireLeave(ctx Context, model string, e *world.Entity) {
	for _, h := range r.handlersFor(model) {
		r.invoke(ctx, "leave", func() error { return h.OnRoomLeave(ctx, e) })
	}
}

func (r *Registry) handlersFor(model string) []Handler {
	if len(r.byModel[model]) == 0 {
		return r.global
	}
	out := make([]Handler, 0, len(r.global)+len(r.byModel[model]))
	out = append(out, r.global...)
	return append(out, r.byModel[model]...)
}

func (r *Registry) invoke(ctx Context, hook string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room trigger panicked",
				zap.String("hook", hook),
				zap.Int64("room", ctx.RoomID()),
				zap.String("panic", fmt.Sprint(rec)),
			)
		}
	}()
	if err := fn(); err != nil {
		r.log.Warn("room trigger failed",
			zap.String("hook", hook),
			zap.Int64("room", ctx.RoomID()),
			zap.Error(err),
		)
	}
}
