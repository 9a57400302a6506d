package hub

import (
	"errors"
	"sync"
	"testing"
)

type sentEvent struct {
	From string
	Text string
}

type recordingSender struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (r *recordingSender) Send(from, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, sentEvent{From: from, Text: text})
	return nil
}

func (r *recordingSender) sent() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestBroadcastReachesEveryMemberExactlyOnce(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	a := &recordingSender{}
	b := &recordingSender{}
	c := &recordingSender{}
	d := &recordingSender{}
	rooms.Join("go", "conn-a", a)
	rooms.Join("go", "conn-b", b)
	rooms.Join("go", "conn-c", c)
	rooms.Join("rust", "conn-d", d)

	rooms.Broadcast("go", "alice", "hi")

	for name, sender := range map[string]*recordingSender{"a": a, "b": b, "c": c} {
		events := sender.sent()
		if len(events) != 1 {
			t.Fatalf("member %s received %d events, want 1", name, len(events))
		}
		if events[0] != (sentEvent{From: "alice", Text: "hi"}) {
			t.Fatalf("member %s received %+v", name, events[0])
		}
	}
	if len(d.sent()) != 0 {
		t.Fatalf("non-member received %d events, want 0", len(d.sent()))
	}
}

func TestBroadcastToAbsentRoomIsNoop(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	rooms.Broadcast("empty", "alice", "hello?")
}

func TestBroadcastDropsFailedSends(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	dead := &recordingSender{err: errors.New("connection torn down")}
	live := &recordingSender{}
	rooms.Join("go", "conn-dead", dead)
	rooms.Join("go", "conn-live", live)

	rooms.Broadcast("go", "alice", "hi")

	if len(live.sent()) != 1 {
		t.Fatalf("live member received %d events, want 1", len(live.sent()))
	}
}

func TestLeaveRemovesMemberFromFanOut(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	a := &recordingSender{}
	b := &recordingSender{}
	rooms.Join("go", "conn-a", a)
	rooms.Join("go", "conn-b", b)
	rooms.Leave("go", "conn-a")

	rooms.Broadcast("go", "bob", "bye")

	if len(a.sent()) != 0 {
		t.Fatalf("departed member received %d events, want 0", len(a.sent()))
	}
	if len(b.sent()) != 1 {
		t.Fatalf("remaining member received %d events, want 1", len(b.sent()))
	}
}

func TestLeaveUnknownRoomIsNoop(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	rooms.Leave("nowhere", "conn-a")
}

func TestJoinIsIdempotent(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	a := &recordingSender{}
	rooms.Join("go", "conn-a", a)
	rooms.Join("go", "conn-a", a)

	rooms.Broadcast("go", "alice", "hi")

	if len(a.sent()) != 1 {
		t.Fatalf("member received %d events after double join, want 1", len(a.sent()))
	}
}

func TestLeaveAllRemovesEveryMembership(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	a := &recordingSender{}
	rooms.Join("go", "conn-a", a)
	rooms.Join("rust", "conn-a", a)
	rooms.LeaveAll("conn-a")

	rooms.Broadcast("go", "alice", "hi")
	rooms.Broadcast("rust", "alice", "hi")

	if len(a.sent()) != 0 {
		t.Fatalf("member received %d events after LeaveAll, want 0", len(a.sent()))
	}
}

func TestConcurrentJoinLeaveBroadcastDoesNotRace(t *testing.T) {
	t.Parallel()

	rooms := NewBroadcaster()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sender := &recordingSender{}
			for j := 0; j < 50; j++ {
				rooms.Join("go", "conn", sender)
				rooms.Broadcast("go", "alice", "hi")
				rooms.Leave("go", "conn")
			}
		}(i)
	}
	wg.Wait()
}
