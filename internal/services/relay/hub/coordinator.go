package hub

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/wildlink/relay/internal/platform/timeouts"
	"github.com/wildlink/relay/internal/services/relay/storage"
)

// DefaultRoom receives every connection that joins without naming an
// interest.
const DefaultRoom = "GeneralChat"

// UnknownUser labels a connection whose transport resolved no identity.
const UnknownUser = "Unknown user"

// Coordinator orchestrates session events against the registry, the
// broadcaster, and the durable membership store.
//
// Persistence failures are logged and swallowed: the in-memory registry and
// broadcaster remain the source of truth for the live session, and message
// delivery never depends on the store.
type Coordinator struct {
	registry *Registry
	rooms    *Broadcaster
	store    storage.MembershipStore
}

// New returns a coordinator with empty registry and broadcaster state. The
// store may be nil, in which case membership is not persisted and disconnect
// announcements rely on the registry alone.
func New(store storage.MembershipStore) *Coordinator {
	return &Coordinator{
		registry: NewRegistry(),
		rooms:    NewBroadcaster(),
		store:    store,
	}
}

// HandleConnect registers a new transport connection. An empty resolved name
// defaults to UnknownUser until a join supplies one.
func (c *Coordinator) HandleConnect(connectionID, resolvedName string) {
	if resolvedName == "" {
		resolvedName = UnknownUser
	}
	c.registry.Connect(connectionID, resolvedName)
}

// HandleJoin places a connection into the room named by interest (the
// default room when interest is empty), persists the membership record, and
// announces the arrival to the room.
//
// A connection belongs to exactly one room: any previous membership is left
// before the new room is joined, so a re-join never leaves a ghost
// subscription receiving duplicate broadcasts.
func (c *Coordinator) HandleJoin(ctx context.Context, connectionID, userName, interest string, sender Sender) {
	c.registry.SetUser(connectionID, userName)
	c.registry.SetRoom(connectionID, interest)

	if c.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, timeouts.StoreCall)
		err := c.store.UpsertMembership(storeCtx, storage.Membership{
			UserName:     userName,
			ConnectionID: connectionID,
			Interest:     interest,
		})
		cancel()
		if err != nil {
			log.Printf("relay: persist membership for %q: %v", userName, err)
		}
	}

	room := effectiveRoom(interest)
	c.rooms.LeaveAll(connectionID)
	c.rooms.Join(room, connectionID, sender)
	c.rooms.Broadcast(room, userName, joinAnnouncement(interest))
}

// HandleMessage relays a message to every member of the room named by
// interest. The sender name is taken as given by the transport.
func (c *Coordinator) HandleMessage(senderName, text, interest string) {
	c.rooms.Broadcast(effectiveRoom(interest), senderName, text)
}

// HandleDisconnect announces the departure and cleans up all state for a
// connection. Cleanup always runs to completion even when the transport is
// already gone or the store is unavailable; calling it again for the same
// connection is a no-op.
//
// Membership is resolved from the live registry first; the durable record is
// consulted only on a registry miss, so a lagging store write cannot produce
// a stale announcement for a connection the registry still knows.
func (c *Coordinator) HandleDisconnect(ctx context.Context, connectionID string, cause error) {
	if cause != nil {
		log.Printf("relay: connection %s closed: %v", connectionID, cause)
	}

	var userName, interest string
	resolved := false
	if entry, ok := c.registry.Lookup(connectionID); ok && entry.Joined {
		userName = entry.UserName
		interest = entry.Room
		resolved = true
	}
	if !resolved && c.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, timeouts.StoreCall)
		membership, err := c.store.GetMembershipByConnection(storeCtx, connectionID)
		cancel()
		switch {
		case err == nil:
			userName = membership.UserName
			interest = membership.Interest
			resolved = true
		case !errors.Is(err, storage.ErrNotFound):
			log.Printf("relay: resolve membership for connection %s: %v", connectionID, err)
		}
	}

	if resolved {
		c.rooms.Broadcast(effectiveRoom(interest), userName, "has disconnected.")
	}

	if c.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, timeouts.StoreCall)
		err := c.store.DeleteMembershipByConnection(storeCtx, connectionID)
		cancel()
		if err != nil {
			log.Printf("relay: remove membership record for connection %s: %v", connectionID, err)
		}
	}

	c.registry.Remove(connectionID)
	c.rooms.LeaveAll(connectionID)
}

func effectiveRoom(interest string) string {
	if interest == "" {
		return DefaultRoom
	}
	return interest
}

func joinAnnouncement(interest string) string {
	if interest == "" {
		return "has joined the general chat."
	}
	return fmt.Sprintf("has joined the %s chat.", interest)
}
