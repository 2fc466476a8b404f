package trigger

import (
	"fmt"
	"strconv"

	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/world"
)

// FlatEntry is the stock private-room trigger. On the first entry
// after a room loads it wakes the room up: pets sleeping in their
// nests spawn as live entities, and water bowls come back filled.
// Later entries only re-announce bowl fill levels so the newcomer
// sees them.
type FlatEntry struct{}

func (FlatEntry) OnRoomEntry(ctx Context, e *world.Entity, firstEntry bool) error {
	if e.Kind != world.EntityPlayer {
		return nil
	}
	if !firstEntry {
		for _, it := range ctx.Items() {
			if it.Definition.Interaction == data.InteractionWaterBowl {
				ctx.Emit(event.ItemStateChanged{RoomID: ctx.RoomID(), ItemID: it.ID, State: it.State})
			}
		}
		return nil
	}

	nests := make(map[int64]*world.Item)
	for _, it := range ctx.Items() {
		switch it.Definition.Interaction {
		case data.InteractionPetNest:
			nests[it.ID] = it
		case data.InteractionWaterBowl:
			full := strconv.Itoa(it.Definition.Charges)
			if it.State != full {
				it.State = full
				ctx.Emit(event.ItemStateChanged{RoomID: ctx.RoomID(), ItemID: it.ID, State: it.State})
				ctx.SaveItem(it)
			}
		}
	}

	for _, rec := range ctx.PetRecords() {
		nest, ok := nests[rec.NestItemID]
		if !ok {
			continue
		}
		pos := world.Position{X: rec.X, Y: rec.Y}
		if !ctx.Map().InBounds(pos.X, pos.Y) || !ctx.Map().IsWalkable(pos.X, pos.Y) {
			pos = world.Position{X: nest.Position.X, Y: nest.Position.Y}
		}
		pos.Z = ctx.Map().EffectiveHeight(pos.X, pos.Y)

		pet := world.NewEntity(rec.ID, world.EntityPet, rec.Name, pos)
		pet.OwnerID = rec.OwnerID
		pet.NestItemID = rec.NestItemID
		if err := ctx.SpawnEntity(pet); err != nil {
			return fmt.Errorf("spawning pet %d: %w", rec.ID, err)
		}
	}
	return nil
}

// OnRoomLeave has nothing to tear down: pets stay live until the room
// is evicted, which saves their positions.
func (FlatEntry) OnRoomLeave(Context, *world.Entity) error { return nil }
