package messenger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/event"
	"github.com/hotelgo/server/internal/session"
)

// FriendLister resolves a user's friend list. Implemented by the
// persistence layer.
type FriendLister interface {
	Friends(ctx context.Context, userID int64) ([]int64, error)
}

// Service delivers friend status changes. Each change is queued for
// every online friend of the subject; queues are drained on a periodic
// flush, so rapid changes about the same friend collapse into one
// event per window. Offline friends are skipped; they load fresh state
// on login.
type Service struct {
	friends  FriendLister
	sessions *session.Registry
	log      *zap.Logger

	mu     sync.Mutex
	queues map[int64]*UpdateQueue // keyed by recipient user id

	stop chan struct{}
	done chan struct{}
}

// NewService starts the flush loop. flushInterval is the dedupe
// window; the room tick interval is the usual choice.
func NewService(friends FriendLister, sessions *session.Registry, flushInterval time.Duration, log *zap.Logger) *Service {
	s := &Service{
		friends:  friends,
		sessions: sessions,
		log:      log,
		queues:   make(map[int64]*UpdateQueue),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run(flushInterval)
	return s
}

func (s *Service) run(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-s.stop:
			s.Flush()
			return
		}
	}
}

// Stop flushes whatever is pending and ends the flush loop.
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Service) queueFor(userID int64) *UpdateQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[userID]
	if !ok {
		q = NewUpdateQueue()
		s.queues[userID] = q
	}
	return q
}

// UserOnline announces a login to the subject's online friends.
func (s *Service) UserOnline(ctx context.Context, userID, roomID int64) {
	s.fanOut(ctx, userID, Update{FriendID: userID, Kind: KindStatus, Online: true, RoomID: roomID})
}

// UserOffline announces a logout. The recipient's pending queue is
// also dropped since nothing will flush it until they return.
func (s *Service) UserOffline(ctx context.Context, userID int64) {
	s.fanOut(ctx, userID, Update{FriendID: userID, Kind: KindStatus, Online: false})
	s.mu.Lock()
	delete(s.queues, userID)
	s.mu.Unlock()
}

// UserMovedRoom announces a room change.
func (s *Service) UserMovedRoom(ctx context.Context, userID, roomID int64) {
	s.fanOut(ctx, userID, Update{FriendID: userID, Kind: KindStatus, Online: true, RoomID: roomID})
}

// FriendshipAdded tells both sides about a new friendship.
func (s *Service) FriendshipAdded(userID, friendID int64) {
	s.deliver(userID, Update{FriendID: friendID, Kind: KindAdded, Online: s.sessions.Get(friendID) != nil})
	s.deliver(friendID, Update{FriendID: userID, Kind: KindAdded, Online: s.sessions.Get(userID) != nil})
}

// FriendshipRemoved tells both sides the friendship ended.
func (s *Service) FriendshipRemoved(userID, friendID int64) {
	s.deliver(userID, Update{FriendID: friendID, Kind: KindRemoved})
	s.deliver(friendID, Update{FriendID: userID, Kind: KindRemoved})
}

// fanOut queues an update about the subject for each of their online
// friends.
func (s *Service) fanOut(ctx context.Context, userID int64, u Update) {
	friends, err := s.friends.Friends(ctx, userID)
	if err != nil {
		s.log.Warn("loading friend list", zap.Int64("user", userID), zap.Error(err))
		return
	}
	for _, friendID := range friends {
		if s.sessions.Get(friendID) == nil {
			continue
		}
		s.deliver(friendID, u)
	}
}

// deliver queues one update for a recipient. The queue dedupes by
// friend id until the next flush drains it.
func (s *Service) deliver(recipientID int64, u Update) {
	if s.sessions.Get(recipientID) == nil {
		return
	}
	s.queueFor(recipientID).Push(u)
}

// Flush drains every pending queue into its recipient's session. Runs
// on the flush loop tick; exported so a login path can push the
// initial state out immediately.
func (s *Service) Flush() {
	s.mu.Lock()
	recipients := make([]int64, 0, len(s.queues))
	for id := range s.queues {
		recipients = append(recipients, id)
	}
	s.mu.Unlock()

	for _, id := range recipients {
		sess := s.sessions.Get(id)
		for _, pending := range s.queueFor(id).Drain() {
			if sess == nil {
				continue
			}
			sess.Push(event.FriendStatus{
				FriendID: pending.FriendID,
				Kind:     pending.Kind,
				Online:   pending.Online,
				RoomID:   pending.RoomID,
			})
		}
	}
}
