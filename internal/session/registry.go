package session

import "sync"

// Registry tracks live sessions by user id so cross-room traffic
// (messenger updates) can find its recipients.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]*Session
	nextID uint64
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[int64]*Session)}
}

// NextID hands out a unique session id.
func (r *Registry) NextID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// Register binds a session to its user id, replacing and closing any
// previous session for the same user.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	prev := r.byUser[s.UserID]
	r.byUser[s.UserID] = s
	r.mu.Unlock()
	if prev != nil && prev != s {
		prev.Close()
	}
}

// Unregister removes the session if it is still the one bound to its
// user id.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	if r.byUser[s.UserID] == s {
		delete(r.byUser, s.UserID)
	}
	r.mu.Unlock()
}

// Get returns the live session for a user, or nil.
func (r *Registry) Get(userID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
