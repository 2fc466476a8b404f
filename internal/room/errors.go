package room

import "errors"

var (
	// ErrRoomFull is returned when a room is at its entity cap.
	ErrRoomFull = errors.New("room full")
	// ErrEntityExists is returned when an entity id is already in the room.
	ErrEntityExists = errors.New("entity already in room")
	// ErrEntityNotFound is returned for operations on an unknown entity.
	ErrEntityNotFound = errors.New("entity not in room")
	// ErrItemNotFound is returned for operations on an unknown item.
	ErrItemNotFound = errors.New("item not in room")
	// ErrMovementLocked is returned when a locked entity asks to move.
	ErrMovementLocked = errors.New("entity movement locked")
	// ErrInvalidPlacement is returned when an item cannot go where asked.
	ErrInvalidPlacement = errors.New("invalid item placement")
	// ErrRoomClosed is returned when posting to a room that shut down.
	ErrRoomClosed = errors.New("room closed")
)
