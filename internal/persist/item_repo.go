package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/data"
	"github.com/hotelgo/server/internal/world"
)

// ItemRepo loads and saves placed furniture. Definitions are resolved
// against the furni catalog at load time; rows whose sprite is missing
// from the catalog are skipped with a warning rather than failing the
// whole room.
type ItemRepo struct {
	db    *DB
	furni *data.FurniTable
}

func NewItemRepo(db *DB, furni *data.FurniTable) *ItemRepo {
	return &ItemRepo{db: db, furni: furni}
}

// LoadByRoomID returns the room's items ordered by id so stacking is
// reproduced in placement order.
func (r *ItemRepo) LoadByRoomID(ctx context.Context, roomID int64) ([]*world.Item, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, room_id, sprite, x, y, z, rotation, state, wall_pos
		 FROM room_items WHERE room_id = $1 ORDER BY id`, roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*world.Item
	for rows.Next() {
		var (
			it     world.Item
			sprite string
		)
		if err := rows.Scan(
			&it.ID, &it.RoomID, &sprite,
			&it.Position.X, &it.Position.Y, &it.Position.Z, &it.Position.Rotation,
			&it.State, &it.WallPos,
		); err != nil {
			return nil, err
		}
		def := r.furni.GetBySprite(sprite)
		if def == nil {
			r.db.log.Warn("item references unknown sprite, skipping",
				zap.Int64("item", it.ID), zap.String("sprite", sprite))
			continue
		}
		it.Definition = def
		result = append(result, &it)
	}
	return result, rows.Err()
}

// SaveState writes an item's interaction state.
func (r *ItemRepo) SaveState(ctx context.Context, itemID int64, state string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE room_items SET state = $2 WHERE id = $1`, itemID, state)
	return err
}

// SavePlacement writes an item's position and rotation.
func (r *ItemRepo) SavePlacement(ctx context.Context, it *world.Item) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE room_items SET room_id = $2, x = $3, y = $4, z = $5, rotation = $6 WHERE id = $1`,
		it.ID, it.RoomID, it.Position.X, it.Position.Y, it.Position.Z, it.Position.Rotation)
	return err
}

// Insert creates a new item row and fills in the generated id.
func (r *ItemRepo) Insert(ctx context.Context, it *world.Item) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO room_items (room_id, sprite, x, y, z, rotation, state, wall_pos)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		it.RoomID, it.Definition.Sprite,
		it.Position.X, it.Position.Y, it.Position.Z, it.Position.Rotation,
		it.State, it.WallPos,
	).Scan(&it.ID)
}

// Delete removes an item row.
func (r *ItemRepo) Delete(ctx context.Context, itemID int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM room_items WHERE id = $1`, itemID)
	return err
}
