// Package event defines the outbound notifications a room produces
// while processing a tick. Events are collected in order and flushed
// to the attached sessions at the end of each tick.
package event

// Event is implemented by every outbound notification.
type Event interface {
	Name() string
}

// EntityMoved reports a completed single-tile step.
type EntityMoved struct {
	RoomID   int64
	EntityID int64
	FromX    int
	FromY    int
	X        int
	Y        int
	Z        float64
	Rotation int
}

func (EntityMoved) Name() string { return "entity_moved" }

// EntityEnteredRoom reports an entity spawning at the room door.
type EntityEnteredRoom struct {
	RoomID   int64
	EntityID int64
	Kind     string
	X        int
	Y        int
	Z        float64
	Rotation int
}

func (EntityEnteredRoom) Name() string { return "entity_entered" }

// EntityLeftRoom reports an entity removal.
type EntityLeftRoom struct {
	RoomID   int64
	EntityID int64
}

func (EntityLeftRoom) Name() string { return "entity_left" }

// MovementInterrupted reports a walk that could not reach its goal.
type MovementInterrupted struct {
	RoomID   int64
	EntityID int64
	X        int
	Y        int
}

func (MovementInterrupted) Name() string { return "movement_interrupted" }

// EntityStatusChanged reports a change to an entity's posture flags,
// such as sitting down on a seat.
type EntityStatusChanged struct {
	RoomID   int64
	EntityID int64
	Statuses map[string]string
}

func (EntityStatusChanged) Name() string { return "entity_status" }

// ItemStateChanged reports an item's custom state string changing.
type ItemStateChanged struct {
	RoomID int64
	ItemID int64
	State  string
}

func (ItemStateChanged) Name() string { return "item_state" }

// ItemPlaced reports a new item appearing in the room.
type ItemPlaced struct {
	RoomID int64
	ItemID int64
	X      int
	Y      int
	Z      float64
}

func (ItemPlaced) Name() string { return "item_placed" }

// ItemRemoved reports an item leaving the room.
type ItemRemoved struct {
	RoomID int64
	ItemID int64
}

func (ItemRemoved) Name() string { return "item_removed" }

// FriendStatus is a messenger update delivered to a single session.
type FriendStatus struct {
	FriendID int64
	Kind     string
	Online   bool
	RoomID   int64
}

func (FriendStatus) Name() string { return "friend_status" }
