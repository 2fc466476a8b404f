package persist

import "context"

type FriendRepo struct {
	db *DB
}

func NewFriendRepo(db *DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// Friends returns the ids on a user's friend list. Friendships are
// stored symmetrically, one row per direction.
func (r *FriendRepo) Friends(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = $1 ORDER BY friend_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// Add inserts both directions of a friendship.
func (r *FriendRepo) Add(ctx context.Context, userID, friendID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id)
		 VALUES ($1, $2), ($2, $1) ON CONFLICT DO NOTHING`, userID, friendID)
	return err
}

// Remove deletes both directions of a friendship.
func (r *FriendRepo) Remove(ctx context.Context, userID, friendID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`,
		userID, friendID)
	return err
}
