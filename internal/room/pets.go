package room

import (
	"strconv"

	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/scripting"
	"github.com/hotelgo/server/internal/world"
)

// thinkPets runs the Lua decision layer for each pet whose think
// countdown expired. Go executes the returned commands against room
// state; Lua never touches the room directly.
func (r *Room) thinkPets() {
	if r.deps.Engine == nil {
		return
	}
	for _, id := range r.order {
		e, ok := r.entities[id]
		if !ok || e.Kind != world.EntityPet {
			continue
		}
		e.ThinkTicks--
		if e.ThinkTicks > 0 {
			continue
		}
		e.ThinkTicks = r.cfg.PetThinkInterval

		for _, cmd := range r.deps.Engine.RunPetAI(r.petContext(e)) {
			r.applyPetCommand(e, cmd)
		}
	}
}

// petContext packs the room state one pet's AI decision needs.
func (r *Room) petContext(e *world.Entity) scripting.PetAIContext {
	ctx := scripting.PetAIContext{
		PetID:      int(e.ID),
		X:          e.Position.X,
		Y:          e.Position.Y,
		RoomWidth:  r.m.Width(),
		RoomHeight: r.m.Height(),
		Walking:    e.Walking(),
	}

	if owner := r.entities[e.OwnerID]; owner != nil {
		ctx.OwnerID = int(owner.ID)
		ctx.OwnerX = owner.Position.X
		ctx.OwnerY = owner.Position.Y
		ctx.OwnerDist = chebyshev(e.Position, owner.Position)
	}

	if nest := r.items[e.NestItemID]; nest != nil {
		ctx.NestX = nest.Position.X
		ctx.NestY = nest.Position.Y
	}

	if bowl := r.nearestBowl(e.Position); bowl != nil {
		ctx.BowlItemID = int(bowl.ID)
		ctx.BowlX = bowl.Position.X
		ctx.BowlY = bowl.Position.Y
		ctx.BowlDist = chebyshev(e.Position, bowl.Position)
	}

	return ctx
}

func (r *Room) applyPetCommand(e *world.Entity, cmd scripting.PetCommand) {
	switch cmd.Type {
	case "walk_to":
		if e.MovementLocked || e.Walking() {
			return
		}
		if !r.m.InBounds(cmd.X, cmd.Y) {
			return
		}
		r.startWalk(e, cmd.X, cmd.Y)
	case "drink":
		r.petDrink(e)
	case "idle":
		// nothing to do
	}
}

// petDrink drains one charge from an adjacent water bowl.
func (r *Room) petDrink(e *world.Entity) {
	bowl := r.nearestBowl(e.Position)
	if bowl == nil || chebyshev(e.Position, bowl.Position) > 1 {
		return
	}
	left, err := strconv.Atoi(bowl.State)
	if err != nil || left <= 0 {
		return
	}
	bowl.State = strconv.Itoa(left - 1)
	r.Emit(event.ItemStateChanged{RoomID: r.id, ItemID: bowl.ID, State: bowl.State})
	r.store.SaveItemState(bowl.ID, bowl.State)
}

// nearestBowl finds the closest water bowl with charges left.
func (r *Room) nearestBowl(from world.Position) *world.Item {
	var best *world.Item
	bestDist := 0
	for _, it := range r.items {
		if it.Definition.Interaction != data.InteractionWaterBowl {
			continue
		}
		if left, err := strconv.Atoi(it.State); err != nil || left <= 0 {
			continue
		}
		d := chebyshev(from, it.Position)
		if best == nil || d < bestDist || (d == bestDist && it.ID < best.ID) {
			best = it
			bestDist = d
		}
	}
	return best
}

func chebyshev(a, b world.Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
