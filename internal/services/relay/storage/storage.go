// Package storage defines persistence contracts for relay membership state.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested membership record is missing.
var ErrNotFound = errors.New("record not found")

// Membership stores the most recent connection and room interest for a user.
// At most one record exists per user name; a newer join overwrites the
// previous connection and interest (last write wins).
type Membership struct {
	UserName     string
	ConnectionID string
	Interest     string
}

// MembershipStore persists last-known room membership across restarts.
//
// UpsertMembership must be atomic so concurrent joins with the same user
// name never corrupt the record into two rows.
type MembershipStore interface {
	UpsertMembership(ctx context.Context, membership Membership) error
	GetMembershipByConnection(ctx context.Context, connectionID string) (Membership, error)
	DeleteMembershipByConnection(ctx context.Context, connectionID string) error
}
