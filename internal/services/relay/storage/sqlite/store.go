// Package sqlite provides a SQLite-backed membership storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/wildlink/relay/internal/platform/storage/sqlitemigrate"
	"github.com/wildlink/relay/internal/services/relay/storage"
	"github.com/wildlink/relay/internal/services/relay/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists membership records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite membership store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertMembership records the most recent connection and interest for a
// user. An existing record for the same user name is overwritten in a single
// statement, so the last join always wins and the record never splits into
// two rows.
func (s *Store) UpsertMembership(ctx context.Context, membership storage.Membership) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	connectionID := strings.TrimSpace(membership.ConnectionID)
	if connectionID == "" {
		return fmt.Errorf("connection id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO memberships (user_name, connection_id, interest, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_name) DO UPDATE SET
		   connection_id = excluded.connection_id,
		   interest      = excluded.interest,
		   updated_at    = excluded.updated_at`,
		membership.UserName,
		connectionID,
		membership.Interest,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// GetMembershipByConnection returns the record whose most recent connection
// matches connectionID.
func (s *Store) GetMembershipByConnection(ctx context.Context, connectionID string) (storage.Membership, error) {
	if err := ctx.Err(); err != nil {
		return storage.Membership{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Membership{}, fmt.Errorf("storage is not configured")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return storage.Membership{}, fmt.Errorf("connection id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_name, connection_id, interest
		   FROM memberships
		  WHERE connection_id = ?
		  LIMIT 1`,
		connectionID,
	)

	var membership storage.Membership
	err := row.Scan(
		&membership.UserName,
		&membership.ConnectionID,
		&membership.Interest,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Membership{}, storage.ErrNotFound
		}
		return storage.Membership{}, fmt.Errorf("get membership: %w", err)
	}
	return membership, nil
}

// DeleteMembershipByConnection removes the record for a connection. Deleting
// an absent record is a no-op.
func (s *Store) DeleteMembershipByConnection(ctx context.Context, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return fmt.Errorf("connection id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM memberships WHERE connection_id = ?`,
		connectionID,
	)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

var _ storage.MembershipStore = (*Store)(nil)
