// Package hub implements the relay core: the in-memory connection registry,
// the room broadcaster, and the session coordinator that drives both against
// the durable membership store.
package hub

import "sync"

// Entry is the registry's view of one live connection.
type Entry struct {
	UserName string
	Room     string
	// Joined reports whether the connection completed a join. An empty Room
	// on a joined connection means the default room was requested.
	Joined bool
}

// Registry owns the connection to identity/room mapping for the lifetime of
// the process. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Entry
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Entry)}
}

// Connect inserts or overwrites the entry for a connection with the given
// user name and no room yet.
func (r *Registry) Connect(connectionID, userName string) {
	r.mu.Lock()
	r.conns[connectionID] = Entry{UserName: userName}
	r.mu.Unlock()
}

// SetUser updates the user name for a connection, creating the entry when
// the connection is unknown.
func (r *Registry) SetUser(connectionID, userName string) {
	r.mu.Lock()
	entry := r.conns[connectionID]
	entry.UserName = userName
	r.conns[connectionID] = entry
	r.mu.Unlock()
}

// SetRoom records the requested room for a connection and marks it joined,
// creating the entry when the connection is unknown. No room defaulting
// happens here; the room is stored exactly as requested.
func (r *Registry) SetRoom(connectionID, room string) {
	r.mu.Lock()
	entry := r.conns[connectionID]
	entry.Room = room
	entry.Joined = true
	r.conns[connectionID] = entry
	r.mu.Unlock()
}

// Lookup returns the entry for a connection. The second return value is
// false when the connection was never registered or already removed.
func (r *Registry) Lookup(connectionID string) (Entry, bool) {
	r.mu.Lock()
	entry, ok := r.conns[connectionID]
	r.mu.Unlock()
	return entry, ok
}

// Remove deletes the entry for a connection. Removing an unknown connection
// is a no-op.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	delete(r.conns, connectionID)
	r.mu.Unlock()
}
