// Package messenger fans friend status changes out to the sessions of
// everyone on the subject's friend list. Updates pend in per-user
// queues so a burst of changes collapses to one entry per friend
// before delivery.
package messenger

import "sync"

// Update kinds, in increasing precedence. A queued entry is replaced
// only by an equal or higher kind, so a friendship removal is never
// papered over by a later status refresh.
const (
	KindStatus  = "status"
	KindAdded   = "added"
	KindRemoved = "removed"
)

// Update is one pending change to a friend's entry.
type Update struct {
	FriendID int64
	Kind     string
	Online   bool
	RoomID   int64
}

func kindRank(kind string) int {
	switch kind {
	case KindRemoved:
		return 2
	case KindAdded:
		return 1
	}
	return 0
}

// UpdateQueue holds at most one pending update per friend, in first
// insertion order. Safe for concurrent use.
type UpdateQueue struct {
	mu    sync.Mutex
	order []int64
	byID  map[int64]Update
}

func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{byID: make(map[int64]Update)}
}

// Push queues an update, merging with any pending entry for the same
// friend. Status fields always refresh; the kind only escalates.
func (q *UpdateQueue) Push(u Update) {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev, ok := q.byID[u.FriendID]
	if !ok {
		q.order = append(q.order, u.FriendID)
		q.byID[u.FriendID] = u
		return
	}
	if kindRank(u.Kind) < kindRank(prev.Kind) {
		u.Kind = prev.Kind
	}
	q.byID[u.FriendID] = u
}

// Drain empties the queue and returns the pending updates in first
// insertion order.
func (q *UpdateQueue) Drain() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}
	out := make([]Update, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.byID[id])
	}
	q.order = q.order[:0]
	clear(q.byID)
	return out
}

// Len reports the number of pending entries.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
