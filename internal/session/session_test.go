package session

import (
	"testing"

	"go.uber.org/zap"

	"github.com/hotelgo/server/internal/event"
)

func TestFlushPreservesOrder(t *testing.T) {
	s := NewSession(1, 7, 8, zap.NewNop())
	s.Send(event.EntityMoved{EntityID: 1, X: 1})
	s.Send(event.EntityMoved{EntityID: 1, X: 2})
	s.Send(event.ItemStateChanged{ItemID: 5, State: "1"})
	s.FlushOutput()

	want := []string{"entity_moved", "entity_moved", "item_state"}
	for i, name := range want {
		select {
		case ev := <-s.OutQueue:
			if ev.Name() != name {
				t.Fatalf("event %d = %s, want %s", i, ev.Name(), name)
			}
		default:
			t.Fatalf("only %d events delivered, want %d", i, len(want))
		}
	}
}

func TestSlowConsumerDisconnects(t *testing.T) {
	s := NewSession(1, 7, 2, zap.NewNop())
	for i := 0; i < 5; i++ {
		s.Send(event.EntityMoved{EntityID: 1, X: i})
	}
	s.FlushOutput()

	if !s.IsClosed() {
		t.Fatal("overflowing the out queue should close the session")
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel not closed")
	}

	// Sends after close are dropped without growing the buffer.
	s.Send(event.EntityMoved{EntityID: 1})
	if len(s.outBuf) != 0 {
		t.Fatalf("closed session buffered %d events", len(s.outBuf))
	}
}

func TestPushBypassesTickBuffer(t *testing.T) {
	s := NewSession(1, 7, 4, zap.NewNop())
	s.Push(event.FriendStatus{FriendID: 9, Kind: "status", Online: true})

	select {
	case ev := <-s.OutQueue:
		if ev.Name() != "friend_status" {
			t.Fatalf("got %s, want friend_status", ev.Name())
		}
	default:
		t.Fatal("pushed event not delivered immediately")
	}
}

func TestRegistryReplacesPrevious(t *testing.T) {
	reg := NewRegistry()
	first := NewSession(reg.NextID(), 7, 4, zap.NewNop())
	second := NewSession(reg.NextID(), 7, 4, zap.NewNop())

	reg.Register(first)
	reg.Register(second)

	if !first.IsClosed() {
		t.Fatal("replaced session should be closed")
	}
	if got := reg.Get(7); got != second {
		t.Fatalf("Get returned %v, want the replacement", got)
	}

	// Unregistering a stale session leaves the live one in place.
	reg.Unregister(first)
	if reg.Get(7) != second {
		t.Fatal("stale unregister removed the live session")
	}
	reg.Unregister(second)
	if reg.Get(7) != nil || reg.Count() != 0 {
		t.Fatal("session not removed")
	}
}
