package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrRoomNotFound is returned when a room id has no row.
var ErrRoomNotFound = errors.New("room not found")

// RoomRow is the persisted description of a room. The heightmap itself
// comes from the model catalog, keyed by Model.
type RoomRow struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Model       string
}

type RoomRepo struct {
	db *DB
}

func NewRoomRepo(db *DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Load fetches one room by id.
func (r *RoomRepo) Load(ctx context.Context, id int64) (*RoomRow, error) {
	var row RoomRow
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, owner_id, name, description, model FROM rooms WHERE id = $1`, id,
	).Scan(&row.ID, &row.OwnerID, &row.Name, &row.Description, &row.Model)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room %d: %w", id, ErrRoomNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
