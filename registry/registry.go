// Package registry holds the concurrent map of live rooms: a Registry is
// shared across every game-service caller, but locking two different room
// ids never contends with each other (only lookups briefly share the
// registry's own RWMutex).
package registry

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"pokerhall/room"
)

var ErrRoomNotFound = errors.New("room not found")

type entry struct {
	mu   sync.Mutex
	room *room.Room
}

// Registry is a concurrent id -> *room.Room map.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*entry
}

func New() *Registry {
	return &Registry{rooms: make(map[uuid.UUID]*entry)}
}

// Upsert installs r under its own id, replacing any prior room at that id.
func (reg *Registry) Upsert(r *room.Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.rooms[r.ID] = &entry{room: r}
}

// Get returns a snapshot copy's worth of read access: the room's current
// Stage under its own lock is not enough to observe a consistent view, so
// Get takes the room lock briefly and returns a deep-enough projection via
// the caller-supplied project function.
func (reg *Registry) Get(id uuid.UUID, project func(*room.Room) any) (any, error) {
	reg.mu.RLock()
	e, ok := reg.rooms[id]
	reg.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return project(e.room), nil
}

// ListIDs returns every room id currently registered.
func (reg *Registry) ListIDs() []uuid.UUID {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(reg.rooms))
	for id := range reg.rooms {
		ids = append(ids, id)
	}
	return ids
}

// Handle grants exclusive mutable access to one room for the scope
// between LockMut and Unlock. It is safe - and required - to hold a
// Handle across blocking operations (network emits, showdown delays):
// that is the whole point of §5's "suspension points inside a lock".
type Handle struct {
	e *entry
}

// Room returns the guarded room. Valid only until Unlock is called.
func (h *Handle) Room() *room.Room { return h.e.room }

// Unlock releases exclusive access. Safe to defer immediately after
// LockMut succeeds.
func (h *Handle) Unlock() { h.e.mu.Unlock() }

// LockMut acquires exclusive access to the room at id.
func (reg *Registry) LockMut(id uuid.UUID) (*Handle, error) {
	reg.mu.RLock()
	e, ok := reg.rooms[id]
	reg.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	e.mu.Lock()
	return &Handle{e: e}, nil
}
