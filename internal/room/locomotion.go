package room

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/world"
)

// requestMove validates a walk request and computes the path. A goal
// the entity cannot reach is reported as an interruption so the client
// stops its walk animation.
func (r *Room) requestMove(entityID int64, x, y int) error {
	e, ok := r.entities[entityID]
	if !ok {
		return fmt.Errorf("entity %d: %w", entityID, ErrEntityNotFound)
	}
	if e.MovementLocked {
		return fmt.Errorf("entity %d: %w", entityID, ErrMovementLocked)
	}
	r.startWalk(e, x, y)
	return nil
}

// startWalk paths an entity toward a goal and puts it in the walking
// state. Shared by player move requests and pet AI.
func (r *Room) startWalk(e *world.Entity, x, y int) {
	goal := world.Position{X: x, Y: y}
	path, err := world.FindPath(r.m, e.Position, goal, r.pathOptions(e))
	if err != nil {
		if !errors.Is(err, world.ErrNoPathFound) {
			r.log.Warn("pathfinding failed", zap.Int64("entity", e.ID), zap.Error(err))
		}
		r.interruptWalk(e)
		return
	}
	if len(path) == 0 {
		return
	}
	e.Path = path
	e.Goal = goal
	e.State = world.LocomotionWalking
}

func (r *Room) pathOptions(e *world.Entity) world.PathOptions {
	return world.PathOptions{
		Diagonal:      r.cfg.DiagonalMovement,
		MaxStepHeight: r.cfg.MaxStepHeight,
		MoverID:       e.ID,
		// Pets chase tiles their owner or another pet may be standing
		// on; the final step is still occupancy-checked at step time.
		IgnoreGoalEntity: e.Kind == world.EntityPet,
		// A full room keeps its door clear for arrivals.
		DoorBlocked: len(r.entities) >= r.cfg.MaxRoomEntities,
	}
}

// stepLocomotion advances every walking entity one tile, in arrival
// order so ties resolve the same way every tick.
func (r *Room) stepLocomotion() {
	for _, id := range r.order {
		e, ok := r.entities[id]
		if !ok || !e.Walking() {
			continue
		}
		r.stepEntity(e)
	}
}

// stepEntity consumes one path tile. The next tile is rechecked at
// step time: another entity may have claimed it since the path was
// computed. On a block the entity re-paths to its original goal once;
// if that fails too the walk is interrupted.
func (r *Room) stepEntity(e *world.Entity) {
	next := e.Path[0]
	if !r.canStep(e, next) {
		e.State = world.LocomotionBlocked
		path, err := world.FindPath(r.m, e.Position, e.Goal, r.pathOptions(e))
		if err != nil || len(path) == 0 {
			r.interruptWalk(e)
			return
		}
		e.State = world.LocomotionWalking
		e.Path = path
		next = e.Path[0]
		if !r.canStep(e, next) {
			r.interruptWalk(e)
			return
		}
	}
	e.Path = e.Path[1:]

	from := e.Position
	if r.deps.Interaction != nil {
		r.deps.Interaction.LeaveTile(r, e, from.X, from.Y)
	}

	r.m.MoveEntity(e.ID, from.X, from.Y, next.X, next.Y)
	e.Position.Rotation = from.RotationTo(next)
	e.Position.X, e.Position.Y = next.X, next.Y
	e.Position.Z = r.m.EffectiveHeight(next.X, next.Y)
	e.SetStatus(world.StatusWalk, walkStatus(next))

	r.Emit(event.EntityMoved{
		RoomID:   r.id,
		EntityID: e.ID,
		FromX:    from.X,
		FromY:    from.Y,
		X:        e.Position.X,
		Y:        e.Position.Y,
		Z:        e.Position.Z,
		Rotation: e.Position.Rotation,
	})

	if r.deps.Interaction != nil {
		r.deps.Interaction.EnterTile(r, e)
	}

	if len(e.Path) == 0 && e.State == world.LocomotionWalking {
		r.finishWalk(e)
	}
}

// canStep reports whether the entity may move onto the tile right now.
func (r *Room) canStep(e *world.Entity, next world.Position) bool {
	if !r.m.IsWalkable(next.X, next.Y) {
		return false
	}
	if r.m.IsDoor(next.X, next.Y) && len(r.entities) >= r.cfg.MaxRoomEntities {
		return false
	}
	if r.m.IsEntityBlocked(next.X, next.Y, e.ID) {
		return false
	}
	diff := r.m.EffectiveHeight(next.X, next.Y) - e.Position.Z
	return math.Abs(diff) <= r.cfg.MaxStepHeight
}

// finishWalk returns an arrived entity to idle.
func (r *Room) finishWalk(e *world.Entity) {
	e.State = world.LocomotionIdle
	e.RemoveStatus(world.StatusWalk)
	if e.Kind == world.EntityPet {
		r.store.SavePetPosition(e.ID, e.Position.X, e.Position.Y)
	}
}

// interruptWalk stops a walk, returns the entity to idle, and reports
// it. A rejected request and a failed re-path both produce exactly one
// event.
func (r *Room) interruptWalk(e *world.Entity) {
	wasWalking := e.State != world.LocomotionIdle
	e.ClearPath()
	r.Emit(event.MovementInterrupted{
		RoomID:   r.id,
		EntityID: e.ID,
		X:        e.Position.X,
		Y:        e.Position.Y,
	})
	if wasWalking && e.Kind == world.EntityPet {
		r.store.SavePetPosition(e.ID, e.Position.X, e.Position.Y)
	}
}

// walkStatus encodes the tile a step is heading to, matching the
// "mv x,y,z" status convention.
func walkStatus(p world.Position) string {
	return fmt.Sprintf("%d,%d,%.2f", p.X, p.Y, p.Z)
}
