package persist

import (
	"context"

	"github.com/hotelgo/server/internal/world"
)

type PetRepo struct {
	db *DB
}

func NewPetRepo(db *DB) *PetRepo {
	return &PetRepo{db: db}
}

// LoadByRoomID returns the pet records whose nest items sit in the
// given room.
func (r *PetRepo) LoadByRoomID(ctx context.Context, roomID int64) ([]world.PetRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT p.id, p.name, p.owner_id, p.nest_item_id, p.x, p.y
		 FROM pets p JOIN room_items i ON i.id = p.nest_item_id
		 WHERE i.room_id = $1 ORDER BY p.id`, roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []world.PetRecord
	for rows.Next() {
		var rec world.PetRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.OwnerID, &rec.NestItemID, &rec.X, &rec.Y); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// SavePosition writes a pet's resting tile so it wakes up where it
// last wandered.
func (r *PetRepo) SavePosition(ctx context.Context, petID int64, x, y int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE pets SET x = $2, y = $3 WHERE id = $1`, petID, x, y)
	return err
}
