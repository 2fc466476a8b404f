package room

import (
	"github.com/hotelgo/server/internal/session"
	"github.com/hotelgo/server/internal/world"
)

// Command is a request posted onto the room's queue. Commands are
// applied in FIFO order at the start of the next tick, on the room
// goroutine, so they may touch room state freely.
type Command interface {
	apply(r *Room)
}

// EnterCommand adds an entity to the room at the door. Sess may be nil
// for pets and bots. Reply, if non-nil, receives the outcome.
type EnterCommand struct {
	Entity *world.Entity
	Sess   *session.Session
	Reply  chan error
}

func (c EnterCommand) apply(r *Room) {
	err := r.addEntity(c.Entity, c.Sess)
	if c.Reply != nil {
		c.Reply <- err
	}
}

// LeaveCommand removes an entity from the room.
type LeaveCommand struct {
	EntityID int64
}

func (c LeaveCommand) apply(r *Room) {
	r.removeEntity(c.EntityID)
}

// MoveCommand starts an entity walking toward a goal tile. Reply, if
// non-nil, reports a rejected request (unknown or locked entity); an
// unreachable goal is not an error, it surfaces as an interruption
// event.
type MoveCommand struct {
	EntityID int64
	X, Y     int
	Reply    chan error
}

func (c MoveCommand) apply(r *Room) {
	err := r.requestMove(c.EntityID, c.X, c.Y)
	if c.Reply != nil {
		c.Reply <- err
	}
}

// UseItemCommand asks an item to run its use behaviour. Reply, if
// non-nil, receives ErrInvalidInteraction for items with no use
// behaviour.
type UseItemCommand struct {
	EntityID int64
	ItemID   int64
	Reply    chan error
}

func (c UseItemCommand) apply(r *Room) {
	err := r.useItem(c.EntityID, c.ItemID)
	if c.Reply != nil {
		c.Reply <- err
	}
}

// PlaceItemCommand puts a new or picked-up item into the room.
type PlaceItemCommand struct {
	Item  *world.Item
	Reply chan error
}

func (c PlaceItemCommand) apply(r *Room) {
	err := r.placeItem(c.Item)
	if c.Reply != nil {
		c.Reply <- err
	}
}

// MoveItemCommand relocates an existing floor item.
type MoveItemCommand struct {
	ItemID   int64
	X, Y     int
	Rotation int
	Reply    chan error
}

func (c MoveItemCommand) apply(r *Room) {
	err := r.moveItem(c.ItemID, c.X, c.Y, c.Rotation)
	if c.Reply != nil {
		c.Reply <- err
	}
}

// RemoveItemCommand takes an item out of the room.
type RemoveItemCommand struct {
	ItemID int64
	Reply  chan error
}

func (c RemoveItemCommand) apply(r *Room) {
	err := r.removeItem(c.ItemID)
	if c.Reply != nil {
		c.Reply <- err
	}
}
