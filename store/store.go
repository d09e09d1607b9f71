// Package store holds the external collaborators the game service talks
// to: a room-info row per configured room (used only for its row lock,
// acquired before the in-memory room lock) and a user table tracking
// off-table balance and current room. Both are thin, swappable adapters,
// not a full ledger or auth system.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidRoomID = errors.New("invalid room id")
)

// User is the slice of account state the core cares about.
type User struct {
	ID          uuid.UUID
	Name        string
	Balance     int64
	CurrentRoom *uuid.UUID
}

// RoomInfoTx is the row-level lock transaction handle returned by
// LockForUpdate. Commit or Rollback must be called exactly once.
type RoomInfoTx interface {
	PlayerCount(ctx context.Context) (int, error)
	SetPlayerCount(ctx context.Context, count int) error
	Commit() error
	Rollback() error
}

// RoomInfoStore tracks one row per configured room id, locked for update
// before the in-memory room lock.
type RoomInfoStore interface {
	RoomIDs(ctx context.Context) ([]uuid.UUID, error)
	LockForUpdate(ctx context.Context, roomID uuid.UUID) (RoomInfoTx, error)
}

// UserStore is the off-table balance/current-room collaborator.
type UserStore interface {
	CreateUser(ctx context.Context, userID uuid.UUID, name string, balance int64) error
	Get(ctx context.Context, userID uuid.UUID) (*User, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64, roomID uuid.UUID) error
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error
	SetCurrentRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) error
}
