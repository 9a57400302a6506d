package hub

import "sync"

// Sender delivers one outbound relay event to a live connection. A failed
// send means the connection is mid-disconnect; the event is dropped, never
// retried.
type Sender interface {
	Send(from, text string) error
}

// Broadcaster maintains room membership and fans messages out to every
// current member. Rooms are implicit: joining an absent room creates it and
// an empty room entry is dropped. All methods are safe for concurrent use.
type Broadcaster struct {
	mu    sync.Mutex
	rooms map[string]map[string]Sender
}

// NewBroadcaster returns a broadcaster with no rooms.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{rooms: make(map[string]map[string]Sender)}
}

// Join adds a connection to a room's member set. Joining twice is a no-op
// beyond refreshing the sender.
func (b *Broadcaster) Join(room, connectionID string, sender Sender) {
	b.mu.Lock()
	members, ok := b.rooms[room]
	if !ok {
		members = make(map[string]Sender)
		b.rooms[room] = members
	}
	members[connectionID] = sender
	b.mu.Unlock()
}

// Leave removes a connection from a room, dropping the room entry when it
// empties. Leaving a room the connection is not in is a no-op.
func (b *Broadcaster) Leave(room, connectionID string) {
	b.mu.Lock()
	if members, ok := b.rooms[room]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
	b.mu.Unlock()
}

// LeaveAll removes a connection from every room it is a member of.
func (b *Broadcaster) LeaveAll(connectionID string) {
	b.mu.Lock()
	for room, members := range b.rooms {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
	b.mu.Unlock()
}

// Broadcast delivers one message to every member of a room at the moment of
// the call. The member set is snapshotted under the lock and sends happen
// outside it so a slow connection never blocks membership changes.
func (b *Broadcaster) Broadcast(room, from, text string) {
	b.mu.Lock()
	members := b.rooms[room]
	senders := make([]Sender, 0, len(members))
	for _, sender := range members {
		senders = append(senders, sender)
	}
	b.mu.Unlock()

	for _, sender := range senders {
		_ = sender.Send(from, text)
	}
}
