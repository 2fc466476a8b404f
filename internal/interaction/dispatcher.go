// Package interaction gives furniture its behaviour. Each item carries
// an interaction kind in its definition; the dispatcher routes tile
// entry, tile exit, and use requests to the handler registered for that
// kind. Handlers run on the room goroutine and may mutate room state
// directly through the Context.
package interaction

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/world"
)

// ErrInvalidInteraction is reported to the caller when an item's kind
// has no behaviour for the requested use. The interaction is skipped.
var ErrInvalidInteraction = errors.New("item does not support interaction")

// Context is the slice of room state handlers operate on. The room
// implements it; handlers must not retain it past the call.
type Context interface {
	RoomID() int64
	Map() *world.RoomMap
	Emit(ev event.Event)
	// SaveItem queues the item's current state for persistence without
	// blocking the tick.
	SaveItem(it *world.Item)
	// ScheduleEffect runs fn after the given number of room ticks, on
	// the room goroutine.
	ScheduleEffect(ticks int, fn func())
}

// Handler implements the behaviour of one interaction kind.
type Handler interface {
	// OnEnter runs after the entity's position is updated to the
	// item's tile.
	OnEnter(ctx Context, e *world.Entity, it *world.Item) error
	// OnLeave runs before the entity's position leaves the item's tile.
	OnLeave(ctx Context, e *world.Entity, it *world.Item) error
	// OnUse runs when a client asks to use the item.
	OnUse(ctx Context, e *world.Entity, it *world.Item) error
}

// BaseHandler is an inert Handler. Embed it to implement only the
// hooks a kind cares about. Walking over an unhandled item is fine;
// actively using one is refused.
type BaseHandler struct{}

func (BaseHandler) OnEnter(Context, *world.Entity, *world.Item) error { return nil }
func (BaseHandler) OnLeave(Context, *world.Entity, *world.Item) error { return nil }
func (BaseHandler) OnUse(Context, *world.Entity, *world.Item) error {
	return ErrInvalidInteraction
}

// Dispatcher routes item hooks by interaction kind. Registration
// happens once at startup; dispatch runs on room goroutines, so the
// map is read-only after RegisterDefaults.
type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		fallback: BaseHandler{},
		log:      log,
	}
}

// Register binds a handler to an interaction kind, replacing any
// previous binding.
func (d *Dispatcher) Register(kind string, h Handler) {
	d.handlers[kind] = h
}

// RegisterDefaults installs the built-in furniture behaviours.
func (d *Dispatcher) RegisterDefaults() {
	d.Register(data.InteractionSeat, &SeatHandler{})
	d.Register(data.InteractionGate, &GateHandler{})
	d.Register(data.InteractionDispenser, &DispenserHandler{})
	d.Register(data.InteractionPetNest, &PetNestHandler{})
	d.Register(data.InteractionWaterBowl, &WaterBowlHandler{})
}

func (d *Dispatcher) handlerFor(it *world.Item) Handler {
	if h, ok := d.handlers[it.Definition.Interaction]; ok {
		return h
	}
	return d.fallback
}

// EnterTile fires OnEnter for every item on the entity's tile, bottom
// of the stack first. A failing or panicking handler is logged and the
// remaining items still run.
func (d *Dispatcher) EnterTile(ctx Context, e *world.Entity) {
	for _, it := range ctx.Map().ItemsAt(e.Position.X, e.Position.Y) {
		d.invoke(ctx, "enter", it, func(h Handler) error { return h.OnEnter(ctx, e, it) })
	}
}

// LeaveTile fires OnLeave for every item on the tile the entity is
// about to vacate, bottom of the stack first.
func (d *Dispatcher) LeaveTile(ctx Context, e *world.Entity, x, y int) {
	for _, it := range ctx.Map().ItemsAt(x, y) {
		d.invoke(ctx, "leave", it, func(h Handler) error { return h.OnLeave(ctx, e, it) })
	}
}

// Use fires OnUse for a single item. An unsupported use is reported
// back to the caller instead of being logged as a handler failure.
func (d *Dispatcher) Use(ctx Context, e *world.Entity, it *world.Item) error {
	var unsupported error
	d.invoke(ctx, "use", it, func(h Handler) error {
		err := h.OnUse(ctx, e, it)
		if errors.Is(err, ErrInvalidInteraction) {
			unsupported = err
			return nil
		}
		return err
	})
	return unsupported
}

// invoke runs one hook with panic isolation so a broken handler cannot
// take down the room goroutine.
func (d *Dispatcher) invoke(ctx Context, hook string, it *world.Item, fn func(Handler) error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("interaction handler panicked",
				zap.String("hook", hook),
				zap.String("kind", it.Definition.Interaction),
				zap.Int64("item", it.ID),
				zap.Int64("room", ctx.RoomID()),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := fn(d.handlerFor(it)); err != nil {
		d.log.Warn("interaction handler failed",
			zap.String("hook", hook),
			zap.String("kind", it.Definition.Interaction),
			zap.Int64("item", it.ID),
			zap.Int64("room", ctx.RoomID()),
			zap.Error(err),
		)
	}
}
