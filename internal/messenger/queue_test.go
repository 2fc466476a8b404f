package messenger

import "testing"

func TestUpdateQueueDedupe(t *testing.T) {
	q := NewUpdateQueue()
	q.Push(Update{FriendID: 1, Kind: KindStatus, Online: true, RoomID: 10})
	q.Push(Update{FriendID: 2, Kind: KindStatus, Online: true})
	q.Push(Update{FriendID: 1, Kind: KindStatus, Online: true, RoomID: 20})

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("drained %d updates, want 2", len(got))
	}
	if got[0].FriendID != 1 || got[1].FriendID != 2 {
		t.Fatalf("order = [%d %d], want first-insertion order [1 2]", got[0].FriendID, got[1].FriendID)
	}
	if got[0].RoomID != 20 {
		t.Fatalf("RoomID = %d, want latest value 20", got[0].RoomID)
	}
}

func TestUpdateQueuePrecedence(t *testing.T) {
	tests := map[string]struct {
		first    string
		second   string
		wantKind string
	}{
		"status then removed": {KindStatus, KindRemoved, KindRemoved},
		"removed then status": {KindRemoved, KindStatus, KindRemoved},
		"status then added":   {KindStatus, KindAdded, KindAdded},
		"added then status":   {KindAdded, KindStatus, KindAdded},
		"added then removed":  {KindAdded, KindRemoved, KindRemoved},
		"status then status":  {KindStatus, KindStatus, KindStatus},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			q := NewUpdateQueue()
			q.Push(Update{FriendID: 1, Kind: tc.first})
			q.Push(Update{FriendID: 1, Kind: tc.second})

			got := q.Drain()
			if len(got) != 1 {
				t.Fatalf("drained %d updates, want 1", len(got))
			}
			if got[0].Kind != tc.wantKind {
				t.Fatalf("kind = %q, want %q", got[0].Kind, tc.wantKind)
			}
		})
	}
}

func TestUpdateQueueDrainResets(t *testing.T) {
	q := NewUpdateQueue()
	q.Push(Update{FriendID: 1, Kind: KindStatus})
	if got := q.Drain(); len(got) != 1 {
		t.Fatalf("first drain = %d updates, want 1", len(got))
	}
	if got := q.Drain(); got != nil {
		t.Fatalf("second drain = %v, want nil", got)
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d after drain, want 0", q.Len())
	}

	q.Push(Update{FriendID: 1, Kind: KindStatus})
	if q.Len() != 1 {
		t.Fatal("queue should accept entries again after drain")
	}
}
