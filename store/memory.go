package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-process RoomInfoStore + UserStore backend, the
// default when STORE_MODE is unset. It mirrors the shape of the real
// backends (row lock semantics included, via a row-lock mutex held from
// LockForUpdate until Commit/Rollback, standing in for a FOR UPDATE lock)
// so swapping backends never changes the game service's call contract.
// The one row-lock mutex covers every room, so locks on different rooms
// also wait for each other.
type MemoryStore struct {
	mu    sync.Mutex
	rowMu sync.Mutex
	rooms map[uuid.UUID]int
	users map[uuid.UUID]*User
}

func NewMemoryStore(roomIDs []uuid.UUID) *MemoryStore {
	rooms := make(map[uuid.UUID]int, len(roomIDs))
	for _, id := range roomIDs {
		rooms[id] = 0
	}
	return &MemoryStore{rooms: rooms, users: make(map[uuid.UUID]*User)}
}

func (m *MemoryStore) RoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryRoomInfoTx struct {
	store  *MemoryStore
	roomID uuid.UUID
	done   bool
}

func (m *MemoryStore) LockForUpdate(ctx context.Context, roomID uuid.UUID) (RoomInfoTx, error) {
	m.mu.Lock()
	_, ok := m.rooms[roomID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrInvalidRoomID
	}
	// rowMu is the row lock: it is released on Commit/Rollback, never
	// before, mirroring a SQL `FOR UPDATE` transaction scope. It is kept
	// apart from mu so UserStore calls still work while it is held.
	m.rowMu.Lock()
	return &memoryRoomInfoTx{store: m, roomID: roomID}, nil
}

func (t *memoryRoomInfoTx) PlayerCount(ctx context.Context) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.rooms[t.roomID], nil
}

func (t *memoryRoomInfoTx) SetPlayerCount(ctx context.Context, count int) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rooms[t.roomID] = count
	return nil
}

func (t *memoryRoomInfoTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.rowMu.Unlock()
	return nil
}

func (t *memoryRoomInfoTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.rowMu.Unlock()
	return nil
}

// Seed registers a user with a starting balance for tests and bootstrap.
func (m *MemoryStore) Seed(userID uuid.UUID, name string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = &User{ID: userID, Name: name, Balance: balance}
}

func (m *MemoryStore) CreateUser(ctx context.Context, userID uuid.UUID, name string, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; ok {
		return nil
	}
	m.users[userID] = &User{ID: userID, Name: name, Balance: balance}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) Debit(ctx context.Context, userID uuid.UUID, amount int64, roomID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Balance -= amount
	rid := roomID
	u.CurrentRoom = &rid
	return nil
}

func (m *MemoryStore) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Balance += amount
	return nil
}

func (m *MemoryStore) SetCurrentRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.CurrentRoom = roomID
	return nil
}
