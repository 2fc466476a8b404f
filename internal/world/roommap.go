package world

import (
	"sort"

	"github.com/hotelgo/server/internal/data"
)

// Tile is one grid cell of a room floor. Items are kept in stack order
// (bottom to top); entity occupancy is an id-set so exclusion-aware
// queries stay O(1).
type Tile struct {
	X, Y       int
	baseHeight float64
	blocked    bool
	door       bool
	items      []*Item
	entities   map[int64]struct{}
}

// RoomMap is the walkability and occupancy model of one room. It is
// built once from the model heightmap plus the placed items, then
// updated incrementally as items move and entities walk. Owned and
// mutated exclusively by the room's tick goroutine.
type RoomMap struct {
	width  int
	height int
	tiles  []Tile // flat array, indexed [x*height + y]
	model  *data.RoomModel
}

// NewRoomMap builds the tile map for a model and seeds it with the
// room's current floor items.
func NewRoomMap(model *data.RoomModel, items []*Item) *RoomMap {
	w, h := model.Width(), model.Height()
	m := &RoomMap{
		width:  w,
		height: h,
		tiles:  make([]Tile, w*h),
		model:  model,
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			t := m.tileAt(x, y)
			t.X = x
			t.Y = y
			t.blocked = model.TileBlocked(x, y)
			t.baseHeight = model.TileHeight(x, y)
			t.door = x == model.DoorX && y == model.DoorY
			t.entities = make(map[int64]struct{}, 1)
		}
	}
	for _, it := range items {
		m.AddItem(it)
	}
	return m
}

func (m *RoomMap) Width() int  { return m.width }
func (m *RoomMap) Height() int { return m.height }

// Model returns the room model this map was built from.
func (m *RoomMap) Model() *data.RoomModel { return m.model }

func (m *RoomMap) tileAt(x, y int) *Tile {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return nil
	}
	return &m.tiles[x*m.height+y]
}

// InBounds reports whether (x,y) lies inside the map.
func (m *RoomMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// IsDoor reports whether (x,y) is the room's door tile.
func (m *RoomMap) IsDoor(x, y int) bool {
	t := m.tileAt(x, y)
	return t != nil && t.door
}

// IsWalkable reports whether the terrain and item stack allow standing
// on (x,y). Entity occupancy is a separate check (IsEntityBlocked) so
// the pathfinder and locomotion can apply different exclusion rules.
func (m *RoomMap) IsWalkable(x, y int) bool {
	t := m.tileAt(x, y)
	if t == nil || t.blocked {
		return false
	}
	if t.door {
		return true
	}
	if top := t.topItem(); top != nil {
		return top.Passable()
	}
	return true
}

// IsEntityBlocked reports whether an entity other than excludeID
// stands on (x,y).
func (m *RoomMap) IsEntityBlocked(x, y int, excludeID int64) bool {
	t := m.tileAt(x, y)
	if t == nil {
		return false
	}
	for id := range t.entities {
		if id != excludeID {
			return true
		}
	}
	return false
}

// EffectiveHeight returns the walking height of (x,y): the top surface
// of the tallest stackable item, or the base tile height when the tile
// holds no stackable item. Seats report their sit height.
func (m *RoomMap) EffectiveHeight(x, y int) float64 {
	t := m.tileAt(x, y)
	if t == nil {
		return 0
	}
	h := t.baseHeight
	for _, it := range t.items {
		if !it.Definition.CanStack && !it.Definition.CanSit {
			continue
		}
		if top := it.TopHeight(); top > h {
			h = top
		}
	}
	return h
}

// CanStackAt reports whether a new item may be placed on (x,y):
// the tile must be open, not the door, and its topmost item (if any)
// stackable.
func (m *RoomMap) CanStackAt(x, y int) bool {
	t := m.tileAt(x, y)
	if t == nil || t.blocked || t.door {
		return false
	}
	if top := t.topItem(); top != nil {
		return top.Definition.CanStack
	}
	return true
}

// ItemsAt returns the item stack on (x,y), bottom to top. The returned
// slice is the tile's own; callers must not mutate it.
func (m *RoomMap) ItemsAt(x, y int) []*Item {
	t := m.tileAt(x, y)
	if t == nil {
		return nil
	}
	return t.items
}

// TopItemAt returns the topmost item on (x,y), or nil.
func (m *RoomMap) TopItemAt(x, y int) *Item {
	t := m.tileAt(x, y)
	if t == nil {
		return nil
	}
	return t.topItem()
}

func (t *Tile) topItem() *Item {
	if len(t.items) == 0 {
		return nil
	}
	return t.items[len(t.items)-1]
}

// AddItem registers a floor item on every tile of its footprint.
// Wall items are ignored.
func (m *RoomMap) AddItem(it *Item) {
	if it.Definition.WallItem {
		return
	}
	for _, pos := range it.Footprint() {
		t := m.tileAt(pos.X, pos.Y)
		if t == nil {
			continue
		}
		t.items = append(t.items, it)
		sort.SliceStable(t.items, func(i, j int) bool {
			return t.items[i].Position.Z < t.items[j].Position.Z
		})
	}
}

// RemoveItem drops a floor item from its footprint tiles.
func (m *RoomMap) RemoveItem(it *Item) {
	if it.Definition.WallItem {
		return
	}
	for _, pos := range it.Footprint() {
		t := m.tileAt(pos.X, pos.Y)
		if t == nil {
			continue
		}
		for i, existing := range t.items {
			if existing.ID == it.ID {
				t.items = append(t.items[:i], t.items[i+1:]...)
				break
			}
		}
	}
}

// MoveItem relocates a floor item, touching only the old and new
// footprint tiles. The item's Z is rebased onto the destination stack.
func (m *RoomMap) MoveItem(it *Item, to Position) {
	m.RemoveItem(it)
	to.Z = m.EffectiveHeight(to.X, to.Y)
	it.Position = to
	m.AddItem(it)
}

// OccupyEntity marks an entity as standing on (x,y).
func (m *RoomMap) OccupyEntity(id int64, x, y int) {
	if t := m.tileAt(x, y); t != nil {
		t.entities[id] = struct{}{}
	}
}

// VacateEntity removes an entity from (x,y).
func (m *RoomMap) VacateEntity(id int64, x, y int) {
	if t := m.tileAt(x, y); t != nil {
		delete(t.entities, id)
	}
}

// MoveEntity atomically vacates the old tile and occupies the new one.
func (m *RoomMap) MoveEntity(id int64, oldX, oldY, newX, newY int) {
	if oldX == newX && oldY == newY {
		return
	}
	m.VacateEntity(id, oldX, oldY)
	m.OccupyEntity(id, newX, newY)
}

// EntitiesAt returns the ids of entities standing on (x,y).
func (m *RoomMap) EntitiesAt(x, y int) []int64 {
	t := m.tileAt(x, y)
	if t == nil || len(t.entities) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(t.entities))
	for id := range t.entities {
		ids = append(ids, id)
	}
	return ids
}
