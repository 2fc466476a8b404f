package world

import (
	"github.com/hotelgo/server/internal/data"
)

// Item is a placed furniture instance owned by a room. Floor items
// occupy tiles; wall items carry a free-form wall position and never
// touch the tile map.
type Item struct {
	ID         int64
	RoomID     int64
	Definition *data.FurniDefinition
	Position   Position // Z = height of the item's bottom surface
	State      string   // interaction-defined state, persisted verbatim
	WallPos    string   // wall placement, only for wall items

	// CoolingDown refuses further uses until a scheduled room effect
	// clears it. Volatile, never persisted.
	CoolingDown bool
}

// TopHeight returns the height of the item's top surface.
func (it *Item) TopHeight() float64 {
	return it.Position.Z + it.Definition.TopHeight
}

// Passable reports whether entities may step onto this item. Gates
// override their definition: they are passable only while open.
func (it *Item) Passable() bool {
	if it.Definition.Interaction == data.InteractionGate {
		return it.State == "1"
	}
	return it.Definition.IsPassable()
}

// Footprint returns the tiles covered by the item, accounting for
// rotation: rotations 2 and 6 swap the footprint axes.
func (it *Item) Footprint() []Position {
	length := it.Definition.Length
	width := it.Definition.Width
	if it.Position.Rotation == 2 || it.Position.Rotation == 6 {
		length, width = width, length
	}
	tiles := make([]Position, 0, length*width)
	for dx := 0; dx < width; dx++ {
		for dy := 0; dy < length; dy++ {
			tiles = append(tiles, Position{X: it.Position.X + dx, Y: it.Position.Y + dy})
		}
	}
	return tiles
}
