// Package session delivers room and messenger events to connected
// clients. A session buffers events during a tick; the room flushes the
// buffer once at the end of the tick so clients observe a consistent
// snapshot.
package session

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/event"
)

// Session fans events out to a single client. Event production happens
// only on the owning room's goroutine; the consumer drains OutQueue
// from its own goroutine.
type Session struct {
	ID     uint64
	UserID int64

	OutQueue chan event.Event // consumer goroutine reads from here

	outBuf []event.Event // buffered events, flushed once per tick (room goroutine only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(id uint64, userID int64, outSize int, log *zap.Logger) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		OutQueue: make(chan event.Event, outSize),
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
}

// Send buffers an event for delivery. Nothing reaches the consumer
// until FlushOutput runs at the end of the tick.
// Called only from the room goroutine — no lock needed on outBuf.
func (s *Session) Send(ev event.Event) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, ev)
}

// FlushOutput drains the buffer to OutQueue in production order.
// Non-blocking: if OutQueue is full, the session is disconnected
// (backpressure against slow consumers).
func (s *Session) FlushOutput() {
	for _, ev := range s.outBuf {
		select {
		case s.OutQueue <- ev:
		default:
			s.log.Warn("out queue full, dropping slow session")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Push delivers an event directly to OutQueue, bypassing the tick
// buffer. Used for messenger traffic that is not tied to a room tick.
// Non-blocking with the same slow-consumer policy as FlushOutput.
func (s *Session) Push(ev event.Event) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- ev:
	default:
		s.log.Warn("out queue full, dropping slow session")
		s.Close()
	}
}

// Close shuts the session down. Safe to call more than once and from
// any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}
