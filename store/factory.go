package store

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

func modeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_MODE")))
	switch raw {
	case "", ModeMemory, "mem":
		return ModeMemory
	case ModeSQLite, "local":
		return ModeSQLite
	case ModePostgres, "db":
		return ModePostgres
	default:
		return raw
	}
}

// Pair bundles the RoomInfoStore and UserStore that share one backend.
type Pair struct {
	RoomInfo RoomInfoStore
	Users    UserStore
	Close    func() error
}

// NewFromEnv selects a backend via STORE_MODE. roomIDs seeds the
// in-memory backend only; sqlite/postgres read their room_info rows
// from the database itself.
func NewFromEnv(roomIDs []uuid.UUID) (Pair, string, error) {
	mode := modeFromEnv()
	switch mode {
	case ModeSQLite:
		s, err := NewSQLiteStoreFromEnv()
		if err != nil {
			return Pair{}, mode, err
		}
		return Pair{RoomInfo: s, Users: s, Close: s.Close}, mode, nil
	case ModePostgres:
		s, err := NewPostgresStoreFromEnv()
		if err != nil {
			return Pair{}, mode, err
		}
		return Pair{RoomInfo: s, Users: s, Close: s.Close}, mode, nil
	default:
		s := NewMemoryStore(roomIDs)
		return Pair{RoomInfo: s, Users: s, Close: func() error { return nil }}, ModeMemory, nil
	}
}
