package interaction

import (
	"fmt"
	"strconv"

	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/world"
)

// SeatHandler sits entities down when they step onto a seat and stands
// them up when they step off. The sit status carries the seat surface
// height so clients render the entity at the right elevation.
type SeatHandler struct {
	BaseHandler
}

func (SeatHandler) OnEnter(ctx Context, e *world.Entity, it *world.Item) error {
	if !it.Definition.CanSit {
		return nil
	}
	e.ClearPath()
	e.Position.Rotation = it.Position.Rotation
	e.SetStatus(world.StatusSit, strconv.FormatFloat(it.TopHeight(), 'f', 2, 64))
	ctx.Emit(event.EntityStatusChanged{
		RoomID:   ctx.RoomID(),
		EntityID: e.ID,
		Statuses: e.Statuses(),
	})
	return nil
}

func (SeatHandler) OnLeave(ctx Context, e *world.Entity, it *world.Item) error {
	if !e.HasStatus(world.StatusSit) {
		return nil
	}
	e.RemoveStatus(world.StatusSit)
	ctx.Emit(event.EntityStatusChanged{
		RoomID:   ctx.RoomID(),
		EntityID: e.ID,
		Statuses: e.Statuses(),
	})
	return nil
}

// OnUse is not overridden: sitting is driven by tile entry, so using a
// seat directly reports an invalid interaction.

// GateHandler toggles a gate between open ("1") and closed ("0").
// Closing is refused while an entity stands on the gate's tiles.
type GateHandler struct {
	BaseHandler
}

func (GateHandler) OnUse(ctx Context, e *world.Entity, it *world.Item) error {
	if it.State == "1" {
		for _, p := range it.Footprint() {
			if ctx.Map().IsEntityBlocked(p.X, p.Y, 0) {
				return fmt.Errorf("gate %d: tile (%d,%d) occupied", it.ID, p.X, p.Y)
			}
		}
		it.State = "0"
	} else {
		it.State = "1"
	}
	ctx.Emit(event.ItemStateChanged{RoomID: ctx.RoomID(), ItemID: it.ID, State: it.State})
	ctx.SaveItem(it)
	return nil
}

// DispenserHandler hands out a drink per use until its charges run
// out. The remaining count is the item state, saved asynchronously.
// After each use the dispenser stays busy for its definition's
// cooldown ticks; uses during the cooldown do nothing.
type DispenserHandler struct {
	BaseHandler
}

func (DispenserHandler) OnUse(ctx Context, e *world.Entity, it *world.Item) error {
	if it.CoolingDown {
		return nil
	}
	left := dispenserCharges(it)
	if left <= 0 {
		return nil
	}
	it.State = strconv.Itoa(left - 1)
	ctx.Emit(event.ItemStateChanged{RoomID: ctx.RoomID(), ItemID: it.ID, State: it.State})
	ctx.SaveItem(it)
	if it.Definition.Cooldown > 0 {
		it.CoolingDown = true
		ctx.ScheduleEffect(it.Definition.Cooldown, func() {
			it.CoolingDown = false
		})
	}
	return nil
}

// dispenserCharges reads the remaining count from the item state,
// falling back to the definition's capacity for fresh items.
func dispenserCharges(it *world.Item) int {
	if it.State == "" {
		return it.Definition.Charges
	}
	n, err := strconv.Atoi(it.State)
	if err != nil {
		return it.Definition.Charges
	}
	return n
}

// PetNestHandler is inert at the item level: nests matter at room
// load, when their pet records spawn as entities.
type PetNestHandler struct {
	BaseHandler
}

// WaterBowlHandler refills the bowl when used. Pets drink from it
// through their AI, which drains the state back down.
type WaterBowlHandler struct {
	BaseHandler
}

func (WaterBowlHandler) OnUse(ctx Context, e *world.Entity, it *world.Item) error {
	full := strconv.Itoa(it.Definition.Charges)
	if it.State == full {
		return nil
	}
	it.State = full
	ctx.Emit(event.ItemStateChanged{RoomID: ctx.RoomID(), ItemID: it.ID, State: it.State})
	ctx.SaveItem(it)
	return nil
}
