// Package room runs the live simulation. Each active room is owned by
// exactly one goroutine that drains the command queue, advances
// movement and pet AI, and flushes the resulting events to the
// attached sessions, once per tick. Nothing else touches room state.
package room

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/config"
	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/interaction"
	"github.com/hotelgo/server/internal/scripting"
	"github.com/hotelgo/server/internal/session"
	"github.com/hotelgo/server/internal/trigger"
	"github.com/hotelgo/server/internal/world"
)

// Store is the slice of persistence the running room needs. All calls
// are fire-and-forget; the implementation queues the write and returns.
type Store interface {
	SaveItemState(itemID int64, state string)
	SaveItemPlacement(it *world.Item)
	DeleteItem(itemID int64)
	SavePetPosition(petID int64, x, y int)
}

// NopStore discards every write. Used when a room runs without a
// database behind it.
type NopStore struct{}

func (NopStore) SaveItemState(int64, string)     {}
func (NopStore) SaveItemPlacement(*world.Item)   {}
func (NopStore) DeleteItem(int64)                {}
func (NopStore) SavePetPosition(int64, int, int) {}

// Deps bundles the shared services a room is built from.
type Deps struct {
	Config      config.GameConfig
	Log         *zap.Logger
	Interaction *interaction.Dispatcher
	Triggers    *trigger.Registry
	Engine      *scripting.Engine // may be nil: pets idle without it
	Store       Store
}

// Room is one live room. All fields are owned by the tick goroutine;
// the only concurrent entry points are Post and the command channel.
type Room struct {
	id    int64
	name  string
	owner int64
	model *data.RoomModel

	cfg   config.GameConfig
	log   *zap.Logger
	deps  Deps
	store Store

	m *world.RoomMap

	entities map[int64]*world.Entity
	order    []int64 // entity ids in arrival order, drives tick iteration
	items    map[int64]*world.Item
	pets     []world.PetRecord

	sessions map[uint64]*session.Session

	cmds    chan Command
	events  []event.Event
	effects []timedEffect

	firstEntryDone bool
	lastActivity   time.Time
	tickCount      uint64
}

// timedEffect is a deferred mutation counted down by the tick loop,
// e.g. a dispenser coming off cooldown.
type timedEffect struct {
	ticksLeft int
	run       func()
}

// RoomInfo describes the room being instantiated.
type RoomInfo struct {
	ID      int64
	Name    string
	OwnerID int64
}

// New builds a room from its model, items, and pet records.
func New(info RoomInfo, model *data.RoomModel, items []*world.Item, pets []world.PetRecord, deps Deps) *Room {
	store := deps.Store
	if store == nil {
		store = NopStore{}
	}
	r := &Room{
		id:       info.ID,
		name:     info.Name,
		owner:    info.OwnerID,
		model:    model,
		cfg:      deps.Config,
		log:      deps.Log.With(zap.Int64("room", info.ID)),
		deps:     deps,
		store:    store,
		m:        world.NewRoomMap(model, items),
		entities: make(map[int64]*world.Entity),
		items:    make(map[int64]*world.Item, len(items)),
		pets:     pets,
		sessions: make(map[uint64]*session.Session),
		cmds:     make(chan Command, deps.Config.CommandQueueSize),

		lastActivity: time.Now(),
	}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

// ID returns the room id.
func (r *Room) ID() int64 { return r.id }

// Post enqueues a command for the next tick. It never blocks: when the
// queue is full the command is dropped and an error returned, so a
// flooding client cannot stall a room.
func (r *Room) Post(cmd Command) error {
	select {
	case r.cmds <- cmd:
		return nil
	default:
		return fmt.Errorf("room %d: command queue full", r.id)
	}
}

// Tick runs one simulation step: drain commands, advance movement,
// run due timed effects, think pets, flush events. Called from the
// owning goroutine only.
func (r *Room) Tick() {
	r.tickCount++
	r.drainCommands()
	r.stepLocomotion()
	r.stepEffects()
	r.thinkPets()
	r.flushEvents()
}

// stepEffects counts pending timed effects down one tick and runs the
// ones that came due.
func (r *Room) stepEffects() {
	if len(r.effects) == 0 {
		return
	}
	// Swap the list out first: an effect may schedule a follow-up.
	due := r.effects
	r.effects = nil
	for _, ef := range due {
		ef.ticksLeft--
		if ef.ticksLeft <= 0 {
			ef.run()
			continue
		}
		r.effects = append(r.effects, ef)
	}
}

// ScheduleEffect defers fn by the given number of ticks. It runs on
// the room goroutine; a room with pending effects is not evicted.
func (r *Room) ScheduleEffect(ticks int, fn func()) {
	if ticks < 1 {
		ticks = 1
	}
	r.effects = append(r.effects, timedEffect{ticksLeft: ticks, run: fn})
}

// PendingEffects reports how many timed effects are still counting
// down. Room goroutine only.
func (r *Room) PendingEffects() int { return len(r.effects) }

// drainCommands applies every command pending at tick start, in the
// order they were posted. Commands posted during the drain wait for
// the next tick.
func (r *Room) drainCommands() {
	pending := len(r.cmds)
	for i := 0; i < pending; i++ {
		cmd := <-r.cmds
		cmd.apply(r)
	}
}

// flushEvents delivers this tick's events to every attached session in
// production order, then releases each session's buffer.
func (r *Room) flushEvents() {
	if len(r.events) == 0 {
		return
	}
	for _, s := range r.sessions {
		if s.IsClosed() {
			continue
		}
		for _, ev := range r.events {
			s.Send(ev)
		}
		s.FlushOutput()
	}
	r.events = r.events[:0]
}

// --- interaction.Context / trigger.Context ---

func (r *Room) RoomID() int64       { return r.id }
func (r *Room) Map() *world.RoomMap { return r.m }

func (r *Room) Emit(ev event.Event) {
	r.events = append(r.events, ev)
}

func (r *Room) Items() []*world.Item {
	out := make([]*world.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	return out
}

func (r *Room) PetRecords() []world.PetRecord { return r.pets }

func (r *Room) SaveItem(it *world.Item) {
	r.store.SaveItemState(it.ID, it.State)
}

// SpawnEntity adds a non-player entity directly, bypassing the door.
func (r *Room) SpawnEntity(e *world.Entity) error {
	if _, ok := r.entities[e.ID]; ok {
		return fmt.Errorf("entity %d: %w", e.ID, ErrEntityExists)
	}
	if len(r.entities) >= r.cfg.MaxRoomEntities {
		return fmt.Errorf("room %d: %w", r.id, ErrRoomFull)
	}
	r.entities[e.ID] = e
	r.order = append(r.order, e.ID)
	r.m.OccupyEntity(e.ID, e.Position.X, e.Position.Y)
	r.Emit(event.EntityEnteredRoom{
		RoomID:   r.id,
		EntityID: e.ID,
		Kind:     e.Kind.String(),
		X:        e.Position.X,
		Y:        e.Position.Y,
		Z:        e.Position.Z,
		Rotation: e.Position.Rotation,
	})
	return nil
}

// --- entity lifecycle ---

// addEntity places an entity at the door and fires entry triggers.
func (r *Room) addEntity(e *world.Entity, sess *session.Session) error {
	if _, ok := r.entities[e.ID]; ok {
		return fmt.Errorf("entity %d: %w", e.ID, ErrEntityExists)
	}
	if len(r.entities) >= r.cfg.MaxRoomEntities {
		return fmt.Errorf("room %d: %w", r.id, ErrRoomFull)
	}

	e.Position.X = r.model.DoorX
	e.Position.Y = r.model.DoorY
	e.Position.Z = r.m.EffectiveHeight(r.model.DoorX, r.model.DoorY)
	e.Position.Rotation = r.model.DoorRotation
	e.ClearPath()

	r.entities[e.ID] = e
	r.order = append(r.order, e.ID)
	r.m.OccupyEntity(e.ID, e.Position.X, e.Position.Y)
	if sess != nil {
		r.sessions[sess.ID] = sess
	}
	r.touch()

	r.Emit(event.EntityEnteredRoom{
		RoomID:   r.id,
		EntityID: e.ID,
		Kind:     e.Kind.String(),
		X:        e.Position.X,
		Y:        e.Position.Y,
		Z:        e.Position.Z,
		Rotation: e.Position.Rotation,
	})

	if r.deps.Triggers != nil {
		// First entry belongs to the first player; bots walking in
		// through the door do not consume it.
		first := false
		if e.Kind == world.EntityPlayer && !r.firstEntryDone {
			r.firstEntryDone = true
			first = true
		}
		r.deps.Triggers.FireEntry(r, r.model.Name, e, first)
	}
	return nil
}

// removeEntity takes an entity out, running leave hooks on its tile
// first so seats release their occupant.
func (r *Room) removeEntity(id int64) {
	e, ok := r.entities[id]
	if !ok {
		return
	}
	if r.deps.Interaction != nil {
		r.deps.Interaction.LeaveTile(r, e, e.Position.X, e.Position.Y)
	}
	if r.deps.Triggers != nil {
		r.deps.Triggers.FireLeave(r, r.model.Name, e)
	}
	r.m.VacateEntity(id, e.Position.X, e.Position.Y)
	delete(r.entities, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if e.Kind == world.EntityPet {
		r.store.SavePetPosition(e.ID, e.Position.X, e.Position.Y)
	}
	r.touch()
	r.Emit(event.EntityLeftRoom{RoomID: r.id, EntityID: id})
}

// detachSessionCommand drops a session from the flush list without
// touching its entity.
type detachSessionCommand struct {
	sessID uint64
}

func (c detachSessionCommand) apply(r *Room) {
	delete(r.sessions, c.sessID)
}

// Shutdown saves the room's volatile state before it is dropped: pet
// resting positions, nothing else — item state is already saved as it
// changes. Called on the tick goroutine as the room winds down.
func (r *Room) Shutdown() {
	for _, e := range r.entities {
		if e.Kind == world.EntityPet {
			r.store.SavePetPosition(e.ID, e.Position.X, e.Position.Y)
		}
	}
	r.flushEvents()
}

// Entity returns a live entity, or nil. Room goroutine only; tests use
// it between ticks.
func (r *Room) Entity(id int64) *world.Entity {
	return r.entities[id]
}

// Item returns a placed item, or nil.
func (r *Room) Item(id int64) *world.Item {
	return r.items[id]
}

// PlayerCount reports how many player entities are present.
func (r *Room) PlayerCount() int {
	n := 0
	for _, e := range r.entities {
		if e.Kind == world.EntityPlayer {
			n++
		}
	}
	return n
}

// IdleSince reports the last time a player entered or left.
func (r *Room) IdleSince() time.Time { return r.lastActivity }

func (r *Room) touch() { r.lastActivity = time.Now() }

// --- item operations ---

// useItem runs an item's use behaviour. An item whose kind has no use
// behaviour reports interaction.ErrInvalidInteraction so the caller
// knows the request was skipped.
func (r *Room) useItem(entityID, itemID int64) error {
	e, ok := r.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %d: %w", entityID, ErrEntityNotFound)
	}
	it, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if r.deps.Interaction == nil {
		return nil
	}
	return r.deps.Interaction.Use(r, e, it)
}

func (r *Room) placeItem(it *world.Item) error {
	if _, ok := r.items[it.ID]; ok {
		return fmt.Errorf("item %d already placed: %w", it.ID, ErrInvalidPlacement)
	}
	if it.Definition.WallItem {
		r.items[it.ID] = it
		it.RoomID = r.id
		r.Emit(event.ItemPlaced{RoomID: r.id, ItemID: it.ID})
		r.store.SaveItemPlacement(it)
		return nil
	}
	base := it.Position
	for _, p := range it.Footprint() {
		if !r.m.InBounds(p.X, p.Y) || !r.m.CanStackAt(p.X, p.Y) {
			return fmt.Errorf("item %d at (%d,%d): %w", it.ID, p.X, p.Y, ErrInvalidPlacement)
		}
	}
	it.RoomID = r.id
	it.Position.Z = r.m.EffectiveHeight(base.X, base.Y)
	r.m.AddItem(it)
	r.items[it.ID] = it
	r.Emit(event.ItemPlaced{
		RoomID: r.id, ItemID: it.ID,
		X: it.Position.X, Y: it.Position.Y, Z: it.Position.Z,
	})
	r.store.SaveItemPlacement(it)
	return nil
}

func (r *Room) moveItem(itemID int64, x, y, rotation int) error {
	it, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	// Lift the item off the map first so its own footprint does not
	// block the destination check.
	r.m.RemoveItem(it)
	target := *it
	target.Position.X, target.Position.Y, target.Position.Rotation = x, y, rotation
	for _, p := range target.Footprint() {
		if !r.m.InBounds(p.X, p.Y) || !r.m.CanStackAt(p.X, p.Y) {
			r.m.AddItem(it)
			return fmt.Errorf("item %d to (%d,%d): %w", itemID, p.X, p.Y, ErrInvalidPlacement)
		}
	}
	it.Position.Rotation = rotation
	it.Position.X, it.Position.Y = x, y
	it.Position.Z = r.m.EffectiveHeight(x, y)
	r.m.AddItem(it)
	r.Emit(event.ItemPlaced{
		RoomID: r.id, ItemID: it.ID,
		X: it.Position.X, Y: it.Position.Y, Z: it.Position.Z,
	})
	r.store.SaveItemPlacement(it)
	return nil
}

func (r *Room) removeItem(itemID int64) error {
	it, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("item %d: %w", itemID, ErrItemNotFound)
	}
	if !it.Definition.WallItem {
		r.m.RemoveItem(it)
	}
	delete(r.items, itemID)
	r.Emit(event.ItemRemoved{RoomID: r.id, ItemID: itemID})
	r.store.DeleteItem(itemID)
	return nil
}
