package world

// EntityKind tags the variant of a room entity. All kinds share the
// same locomotion machinery; kind-specific behavior lives with the
// systems that care (pet AI, session delivery).
type EntityKind int

const (
	EntityPlayer EntityKind = iota
	EntityPet
	EntityBot
)

func (k EntityKind) String() string {
	switch k {
	case EntityPlayer:
		return "player"
	case EntityPet:
		return "pet"
	case EntityBot:
		return "bot"
	}
	return "unknown"
}

// LocomotionState is the per-entity movement state machine.
type LocomotionState int

const (
	LocomotionIdle LocomotionState = iota
	LocomotionWalking
	LocomotionBlocked
)

// Status keys understood by the broadcast layer.
const (
	StatusWalk = "mv"
	StatusSit  = "sit"
	StatusLay  = "lay"
)

// Entity is anything standing in a room: a player, a pet, or a bot.
// An entity belongs to at most one room; switching rooms is always
// remove-then-add. Accessed only from the owning room's tick goroutine.
type Entity struct {
	ID   int64
	Kind EntityKind
	Name string

	Position Position

	// Active movement. Path holds the remaining tiles to traverse,
	// one consumed per tick; Goal is the originally requested tile,
	// kept for the single re-path attempt after a blocking race.
	Path  Path
	Goal  Position
	State LocomotionState

	// MovementLocked rejects move requests outright (frozen, trapped).
	MovementLocked bool

	statuses map[string]string

	// Pet fields, zero for players and bots.
	OwnerID    int64 // player who owns the pet
	NestItemID int64 // nest item whose record spawned the pet
	ThinkTicks int   // ticks until the next AI decision
}

// NewEntity creates an idle entity at the given position.
func NewEntity(id int64, kind EntityKind, name string, pos Position) *Entity {
	return &Entity{
		ID:       id,
		Kind:     kind,
		Name:     name,
		Position: pos,
		statuses: make(map[string]string, 2),
	}
}

// SetStatus adds or replaces a status value.
func (e *Entity) SetStatus(key, value string) {
	e.statuses[key] = value
}

// RemoveStatus clears a status if present.
func (e *Entity) RemoveStatus(key string) {
	delete(e.statuses, key)
}

// HasStatus reports whether a status is set.
func (e *Entity) HasStatus(key string) bool {
	_, ok := e.statuses[key]
	return ok
}

// Status returns a status value and whether it is set.
func (e *Entity) Status(key string) (string, bool) {
	v, ok := e.statuses[key]
	return v, ok
}

// Statuses returns a copy of the current status set for broadcast.
func (e *Entity) Statuses() map[string]string {
	out := make(map[string]string, len(e.statuses))
	for k, v := range e.statuses {
		out[k] = v
	}
	return out
}

// Walking reports whether the entity has path tiles left to consume.
func (e *Entity) Walking() bool {
	return e.State == LocomotionWalking && len(e.Path) > 0
}

// ClearPath drops any in-flight movement and returns to Idle.
func (e *Entity) ClearPath() {
	e.Path = nil
	e.State = LocomotionIdle
	e.RemoveStatus(StatusWalk)
}
