package room

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/config"
	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/interaction"
	"github.com/hotelgo/server/internal/session"
	"github.com/hotelgo/server/internal/trigger"
	"github.com/hotelgo/server/internal/world"
)

// recordingStore captures deferred writes for assertions.
type recordingStore struct {
	itemStates map[int64]string
	petSaves   int
	deleted    []int64
}

func newRecordingStore() *recordingStore {
	return &recordingStore{itemStates: make(map[int64]string)}
}

func (s *recordingStore) SaveItemState(itemID int64, state string) { s.itemStates[itemID] = state }
func (s *recordingStore) SaveItemPlacement(it *world.Item)         {}
func (s *recordingStore) DeleteItem(itemID int64)                  { s.deleted = append(s.deleted, itemID) }
func (s *recordingStore) SavePetPosition(int64, int, int)          { s.petSaves++ }

type testRoomOpts struct {
	heightmap string
	doorX     int
	doorY     int
	items     []*world.Item
	pets      []world.PetRecord
	store     Store
	maxEnt    int
}

func newTestRoom(t *testing.T, opts testRoomOpts) *Room {
	t.Helper()
	if opts.heightmap == "" {
		opts.heightmap = "000000|000000|000000|000000|000000|000000"
	}
	model, err := data.NewRoomModel("test_flat", opts.heightmap, opts.doorX, opts.doorY, 4)
	if err != nil {
		t.Fatalf("building model: %v", err)
	}

	cfg := config.Defaults().Game
	if opts.maxEnt > 0 {
		cfg.MaxRoomEntities = opts.maxEnt
	}

	log := zap.NewNop()
	dispatch := interaction.NewDispatcher(log)
	dispatch.RegisterDefaults()
	triggers := trigger.NewRegistry(log)
	triggers.Register("", trigger.FlatEntry{})

	return New(
		RoomInfo{ID: 1, Name: "test"},
		model, opts.items, opts.pets,
		Deps{
			Config:      cfg,
			Log:         log,
			Interaction: dispatch,
			Triggers:    triggers,
			Store:       opts.store,
		},
	)
}

// enterPlayer adds a player with an attached session and returns both. The
// entry tick's events are drained so tests start from a clean queue.
func enterPlayer(t *testing.T, r *Room, id int64) (*world.Entity, *session.Session) {
	t.Helper()
	sess := session.NewSession(uint64(id), id, 256, zap.NewNop())
	e := world.NewEntity(id, world.EntityPlayer, "player", world.Position{})
	reply := make(chan error, 1)
	if err := r.Post(EnterCommand{Entity: e, Sess: sess, Reply: reply}); err != nil {
		t.Fatalf("posting enter: %v", err)
	}
	r.Tick()
	if err := <-reply; err != nil {
		t.Fatalf("entering: %v", err)
	}
	drainSession(sess)
	return e, sess
}

func eventsOfType[T event.Event](events []event.Event) []T {
	var out []T
	for _, ev := range events {
		if typed, ok := ev.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// drainSession empties a session's out queue.
func drainSession(s *session.Session) []event.Event {
	var out []event.Event
	for {
		select {
		case ev := <-s.OutQueue:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestEnterPlacesAtDoor(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{doorX: 2, doorY: 0})
	e, _ := enterPlayer(t, r, 7)

	if e.Position.X != 2 || e.Position.Y != 0 {
		t.Fatalf("entity at (%d,%d), want door (2,0)", e.Position.X, e.Position.Y)
	}
	if e.Position.Rotation != 4 {
		t.Fatalf("rotation = %d, want door rotation 4", e.Position.Rotation)
	}
	if r.Entity(7) == nil {
		t.Fatal("entity not registered in room")
	}
}

func TestEnterRespectsCap(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{maxEnt: 2})
	enterPlayer(t, r, 1)
	enterPlayer(t, r, 2)

	e := world.NewEntity(3, world.EntityPlayer, "late", world.Position{})
	reply := make(chan error, 1)
	if err := r.Post(EnterCommand{Entity: e, Reply: reply}); err != nil {
		t.Fatalf("posting enter: %v", err)
	}
	r.Tick()
	if err := <-reply; err == nil {
		t.Fatal("third entry should be refused")
	}
	if r.Entity(3) != nil {
		t.Fatal("refused entity must not be registered")
	}
}

func TestCommandsApplyInOrder(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	e, _ := enterPlayer(t, r, 7)

	// Two move commands in one tick: the second supersedes the first.
	if err := r.Post(MoveCommand{EntityID: 7, X: 5, Y: 5}); err != nil {
		t.Fatal(err)
	}
	if err := r.Post(MoveCommand{EntityID: 7, X: 1, Y: 4}); err != nil {
		t.Fatal(err)
	}
	r.Tick()

	if !e.Goal.SameTile(world.Position{X: 1, Y: 4}) {
		t.Fatalf("goal = (%d,%d), want the later command's (1,4)", e.Goal.X, e.Goal.Y)
	}
}

func TestWalkReachesGoal(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	e, sess := enterPlayer(t, r, 7)

	if err := r.Post(MoveCommand{EntityID: 7, X: 4, Y: 4}); err != nil {
		t.Fatal(err)
	}

	var moves []event.EntityMoved
	for i := 0; i < 20 && (e.Walking() || len(e.Path) > 0); i++ {
		r.Tick()
		moves = append(moves, eventsOfType[event.EntityMoved](drainSession(sess))...)
	}

	if e.Position.X != 4 || e.Position.Y != 4 {
		t.Fatalf("entity at (%d,%d), want goal (4,4)", e.Position.X, e.Position.Y)
	}
	if e.State != world.LocomotionIdle {
		t.Fatalf("state = %v, want idle at goal", e.State)
	}
	if e.HasStatus(world.StatusWalk) {
		t.Fatal("walk status should clear on arrival")
	}
	if len(moves) == 0 {
		t.Fatal("no EntityMoved events recorded")
	}
	// One tile per tick, each step adjacent to the previous.
	prev := world.Position{X: 0, Y: 0}
	for i, mv := range moves {
		dx, dy := mv.X-prev.X, mv.Y-prev.Y
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
			t.Fatalf("step %d jumps from (%d,%d) to (%d,%d)", i, prev.X, prev.Y, mv.X, mv.Y)
		}
		prev = world.Position{X: mv.X, Y: mv.Y}
	}
}

func TestUnreachableGoalInterruptsOnce(t *testing.T) {
	// Goal row walled off.
	r := newTestRoom(t, testRoomOpts{heightmap: "000|xxx|000"})
	_, sess := enterPlayer(t, r, 7)

	if err := r.Post(MoveCommand{EntityID: 7, X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	interrupts := eventsOfType[event.MovementInterrupted](drainSession(sess))
	if len(interrupts) != 1 {
		t.Fatalf("%d MovementInterrupted events, want exactly 1", len(interrupts))
	}

	// Following ticks stay quiet.
	r.Tick()
	r.Tick()
	if n := len(eventsOfType[event.MovementInterrupted](drainSession(sess))); n != 0 {
		t.Fatalf("idle ticks produced %d extra interrupts", n)
	}
}

func TestWalkRepathsAroundNewBlocker(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	e, _ := enterPlayer(t, r, 7)

	if err := r.Post(MoveCommand{EntityID: 7, X: 0, Y: 4}); err != nil {
		t.Fatal(err)
	}
	r.Tick() // first step, path committed

	// Drop a blocker onto the remaining path.
	if len(e.Path) == 0 {
		t.Fatal("entity should still have path tiles")
	}
	next := e.Path[0]
	r.Map().OccupyEntity(99, next.X, next.Y)

	for i := 0; i < 20 && e.Walking(); i++ {
		r.Tick()
	}

	if e.Position.X != 0 || e.Position.Y != 4 {
		t.Fatalf("entity at (%d,%d), want goal (0,4) via re-path", e.Position.X, e.Position.Y)
	}
}

func TestFailedRepathReturnsToIdle(t *testing.T) {
	// Single corridor, no alternate route.
	r := newTestRoom(t, testRoomOpts{heightmap: "00000", doorX: 0, doorY: 0})
	e, sess := enterPlayer(t, r, 7)

	if err := r.Post(MoveCommand{EntityID: 7, X: 4, Y: 0}); err != nil {
		t.Fatal(err)
	}
	r.Tick() // first step

	next := e.Path[0]
	r.Map().OccupyEntity(99, next.X, next.Y)
	r.Tick()

	if n := len(eventsOfType[event.MovementInterrupted](drainSession(sess))); n != 1 {
		t.Fatalf("%d MovementInterrupted events, want 1", n)
	}
	if e.State != world.LocomotionIdle {
		t.Fatalf("state = %v, want idle after a failed re-path", e.State)
	}

	// A new move request recovers the entity.
	r.Map().VacateEntity(99, next.X, next.Y)
	if err := r.Post(MoveCommand{EntityID: 7, X: 4, Y: 0}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20 && e.Position.X != 4; i++ {
		r.Tick()
	}
	if e.Position.X != 4 || e.State != world.LocomotionIdle {
		t.Fatalf("entity at (%d,%d) state %v, want goal (4,0) idle", e.Position.X, e.Position.Y, e.State)
	}
}

func TestSeatOnArrival(t *testing.T) {
	seat := &world.Item{
		ID: 1,
		Definition: &data.FurniDefinition{
			Sprite: "chair", Interaction: data.InteractionSeat,
			Length: 1, Width: 1, TopHeight: 1.0, CanSit: true,
		},
		Position: world.Position{X: 3, Y: 3, Rotation: 2},
	}
	r := newTestRoom(t, testRoomOpts{items: []*world.Item{seat}})
	e, _ := enterPlayer(t, r, 7)

	if err := r.Post(MoveCommand{EntityID: 7, X: 3, Y: 3}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20 && !e.HasStatus(world.StatusSit); i++ {
		r.Tick()
	}

	if !e.HasStatus(world.StatusSit) {
		t.Fatal("entity should sit after walking onto the seat")
	}
	if e.Position.Rotation != 2 {
		t.Fatalf("rotation = %d, want seat rotation 2", e.Position.Rotation)
	}

	// Walking away stands the entity up.
	if err := r.Post(MoveCommand{EntityID: 7, X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20 && e.HasStatus(world.StatusSit); i++ {
		r.Tick()
	}
	if e.HasStatus(world.StatusSit) {
		t.Fatal("entity should stand after leaving the seat")
	}
}

func TestItemCommands(t *testing.T) {
	store := newRecordingStore()
	r := newTestRoom(t, testRoomOpts{store: store})
	enterPlayer(t, r, 7)

	it := &world.Item{
		ID: 50,
		Definition: &data.FurniDefinition{
			Sprite: "table", Length: 1, Width: 1, TopHeight: 1.0, CanStack: true,
		},
		Position: world.Position{X: 4, Y: 4},
	}
	reply := make(chan error, 1)
	if err := r.Post(PlaceItemCommand{Item: it, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; err != nil {
		t.Fatalf("placing: %v", err)
	}
	if r.Item(50) == nil || len(r.Map().ItemsAt(4, 4)) != 1 {
		t.Fatal("item not placed on the map")
	}

	// Placement on the door is refused.
	bad := &world.Item{
		ID:         51,
		Definition: it.Definition,
		Position:   world.Position{X: 0, Y: 0},
	}
	reply = make(chan error, 1)
	if err := r.Post(PlaceItemCommand{Item: bad, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; err == nil {
		t.Fatal("placement on door tile should be refused")
	}

	reply = make(chan error, 1)
	if err := r.Post(MoveItemCommand{ItemID: 50, X: 2, Y: 2, Rotation: 0, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; err != nil {
		t.Fatalf("moving: %v", err)
	}
	if len(r.Map().ItemsAt(4, 4)) != 0 || len(r.Map().ItemsAt(2, 2)) != 1 {
		t.Fatal("item did not relocate")
	}

	reply = make(chan error, 1)
	if err := r.Post(RemoveItemCommand{ItemID: 50, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; err != nil {
		t.Fatalf("removing: %v", err)
	}
	if r.Item(50) != nil || len(r.Map().ItemsAt(2, 2)) != 0 {
		t.Fatal("item not removed")
	}
	if len(store.deleted) != 1 || store.deleted[0] != 50 {
		t.Fatalf("deleted = %v, want [50]", store.deleted)
	}
}

func TestFirstEntrySpawnsPetsOnce(t *testing.T) {
	nest := &world.Item{
		ID: 10,
		Definition: &data.FurniDefinition{
			Sprite: "nest", Interaction: data.InteractionPetNest,
			Length: 1, Width: 1, Walkable: true,
		},
		Position: world.Position{X: 4, Y: 4},
	}
	r := newTestRoom(t, testRoomOpts{
		items: []*world.Item{nest},
		pets:  []world.PetRecord{{ID: 100, Name: "Rex", OwnerID: 7, NestItemID: 10, X: 3, Y: 4}},
	})

	enterPlayer(t, r, 7)
	if r.Entity(100) == nil {
		t.Fatal("pet should spawn on first entry")
	}

	enterPlayer(t, r, 8)
	pets := 0
	for _, id := range r.order {
		if e := r.entities[id]; e != nil && e.Kind == world.EntityPet {
			pets++
		}
	}
	if pets != 1 {
		t.Fatalf("%d pets after second entry, want 1", pets)
	}
}

func TestEventsFlushToSessionsInOrder(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	sess := session.NewSession(1, 7, 64, zap.NewNop())

	e := world.NewEntity(7, world.EntityPlayer, "player", world.Position{})
	reply := make(chan error, 1)
	if err := r.Post(EnterCommand{Entity: e, Sess: sess, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; err != nil {
		t.Fatalf("entering: %v", err)
	}

	got := drainSession(sess)
	if len(got) == 0 {
		t.Fatal("session received no events")
	}
	if _, ok := got[0].(event.EntityEnteredRoom); !ok {
		t.Fatalf("first event = %T, want EntityEnteredRoom", got[0])
	}

	if err := r.Post(MoveCommand{EntityID: 7, X: 2, Y: 2}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	got = drainSession(sess)
	if len(got) == 0 {
		t.Fatal("session received no movement events")
	}
	if _, ok := got[0].(event.EntityMoved); !ok {
		t.Fatalf("first event after move = %T, want EntityMoved", got[0])
	}
}

func TestLeaveReleasesTile(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{doorX: 2, doorY: 2})
	_, sess := enterPlayer(t, r, 7)

	if err := r.Post(LeaveCommand{EntityID: 7}); err != nil {
		t.Fatal(err)
	}
	r.Tick()

	if r.Entity(7) != nil {
		t.Fatal("entity still registered after leave")
	}
	if r.Map().IsEntityBlocked(2, 2, 0) {
		t.Fatal("door tile still occupied after leave")
	}
	left := eventsOfType[event.EntityLeftRoom](drainSession(sess))
	if len(left) != 1 || left[0].EntityID != 7 {
		t.Fatalf("EntityLeftRoom events = %v", left)
	}
}

func TestEvictableRequiresEmptyAndIdle(t *testing.T) {
	cfg := config.Defaults()
	cfg.Game.RoomIdleEviction = time.Minute
	m := &Manager{cfg: cfg}

	r := newTestRoom(t, testRoomOpts{})
	if m.evictable(r) {
		t.Fatal("fresh empty room should ride out the idle window")
	}

	r.lastActivity = time.Now().Add(-2 * time.Minute)
	if !m.evictable(r) {
		t.Fatal("empty room past the idle window should be evictable")
	}

	enterPlayer(t, r, 7)
	r.lastActivity = time.Now().Add(-2 * time.Minute)
	if m.evictable(r) {
		t.Fatal("occupied room must never be evicted")
	}
}

func TestEvictableWaitsForPendingEffects(t *testing.T) {
	cfg := config.Defaults()
	cfg.Game.RoomIdleEviction = time.Minute
	m := &Manager{cfg: cfg}

	r := newTestRoom(t, testRoomOpts{})
	r.lastActivity = time.Now().Add(-2 * time.Minute)
	r.ScheduleEffect(2, func() {})

	if m.evictable(r) {
		t.Fatal("room with a pending timed effect must not be evicted")
	}

	r.Tick()
	r.Tick()
	if r.PendingEffects() != 0 {
		t.Fatalf("%d effects still pending after their ticks elapsed", r.PendingEffects())
	}
	if !m.evictable(r) {
		t.Fatal("drained room past the idle window should be evictable")
	}
}

func TestPetDrinkDrainsBowl(t *testing.T) {
	store := newRecordingStore()
	bowl := &world.Item{
		ID: 20,
		Definition: &data.FurniDefinition{
			Sprite: "bowl", Interaction: data.InteractionWaterBowl,
			Length: 1, Width: 1, Charges: 5, Walkable: true,
		},
		Position: world.Position{X: 2, Y: 2},
		State:    "3",
	}
	r := newTestRoom(t, testRoomOpts{items: []*world.Item{bowl}, store: store})

	pet := world.NewEntity(100, world.EntityPet, "Rex", world.Position{X: 2, Y: 3})
	if err := r.SpawnEntity(pet); err != nil {
		t.Fatalf("spawning pet: %v", err)
	}

	r.petDrink(pet)
	if bowl.State != "2" {
		t.Fatalf("bowl state = %q, want 2", bowl.State)
	}
	if store.itemStates[20] != "2" {
		t.Fatalf("saved state = %q, want 2", store.itemStates[20])
	}

	// Too far away: nothing happens.
	pet.Position.X, pet.Position.Y = 5, 5
	r.petDrink(pet)
	if bowl.State != "2" {
		t.Fatalf("distant pet drank: state = %q", bowl.State)
	}
}

func TestUseItemErrors(t *testing.T) {
	plant := &world.Item{
		ID: 30,
		Definition: &data.FurniDefinition{
			Sprite: "plant", Length: 1, Width: 1, Walkable: true,
		},
		Position: world.Position{X: 3, Y: 3},
	}
	r := newTestRoom(t, testRoomOpts{items: []*world.Item{plant}})
	enterPlayer(t, r, 7)

	use := func(entityID, itemID int64) error {
		t.Helper()
		reply := make(chan error, 1)
		if err := r.Post(UseItemCommand{EntityID: entityID, ItemID: itemID, Reply: reply}); err != nil {
			t.Fatal(err)
		}
		r.Tick()
		return <-reply
	}

	if err := use(7, 30); !errors.Is(err, interaction.ErrInvalidInteraction) {
		t.Fatalf("err = %v, want ErrInvalidInteraction for an inert item", err)
	}
	if err := use(7, 999); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
	if err := use(99, 30); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("err = %v, want ErrEntityNotFound", err)
	}
}

func TestMoveWhileLockedReported(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	e, _ := enterPlayer(t, r, 7)
	e.MovementLocked = true

	reply := make(chan error, 1)
	if err := r.Post(MoveCommand{EntityID: 7, X: 3, Y: 3, Reply: reply}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if err := <-reply; !errors.Is(err, ErrMovementLocked) {
		t.Fatalf("err = %v, want ErrMovementLocked", err)
	}
	if e.Walking() {
		t.Fatal("locked entity must not start walking")
	}
}

func TestFullRoomKeepsDoorClear(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{maxEnt: 2})
	e1, sess := enterPlayer(t, r, 1)
	e2, _ := enterPlayer(t, r, 2)

	walkTo := func(e *world.Entity, x, y int) {
		t.Helper()
		if err := r.Post(MoveCommand{EntityID: e.ID, X: x, Y: y}); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 20 && !(e.Position.X == x && e.Position.Y == y); i++ {
			r.Tick()
		}
		if e.Position.X != x || e.Position.Y != y {
			t.Fatalf("entity %d stuck at (%d,%d)", e.ID, e.Position.X, e.Position.Y)
		}
	}
	walkTo(e1, 4, 4)
	walkTo(e2, 2, 4)

	// Room at its cap: the door tile refuses pathing.
	drainSession(sess)
	if err := r.Post(MoveCommand{EntityID: 1, X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}
	r.Tick()
	if n := len(eventsOfType[event.MovementInterrupted](drainSession(sess))); n != 1 {
		t.Fatalf("%d interrupts, want 1: a full room keeps its door clear", n)
	}
	if e1.Walking() {
		t.Fatal("entity must not walk toward the door of a full room")
	}
}

func TestPetPathsTowardOccupiedTile(t *testing.T) {
	r := newTestRoom(t, testRoomOpts{})
	owner := world.NewEntity(1, world.EntityPlayer, "owner", world.Position{X: 4, Y: 4})
	if err := r.SpawnEntity(owner); err != nil {
		t.Fatal(err)
	}
	pet := world.NewEntity(2, world.EntityPet, "rex", world.Position{X: 0, Y: 0})
	if err := r.SpawnEntity(pet); err != nil {
		t.Fatal(err)
	}

	r.startWalk(pet, 4, 4)
	if !pet.Walking() {
		t.Fatal("pet should path toward its owner's tile")
	}
	for i := 0; i < 20 && pet.Walking(); i++ {
		r.Tick()
	}
	if d := chebyshev(pet.Position, owner.Position); d != 1 {
		t.Fatalf("pet stopped %d tiles from its goal, want adjacent", d)
	}

	// Players get no path to the same occupied goal.
	walker := world.NewEntity(3, world.EntityPlayer, "walker", world.Position{X: 0, Y: 5})
	if err := r.SpawnEntity(walker); err != nil {
		t.Fatal(err)
	}
	r.startWalk(walker, 4, 4)
	if walker.Walking() {
		t.Fatal("players must not path onto an occupied tile")
	}
}
