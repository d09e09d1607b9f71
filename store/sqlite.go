package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
)

// SQLiteStore backs RoomInfoStore and UserStore with a local file: a
// single-connection pool plus WAL + busy_timeout pragmas so concurrent
// room-service goroutines serialize cleanly against the one file handle.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStoreFromEnv() (*SQLiteStore, error) {
	path := strings.TrimSpace(os.Getenv("POKERHALL_SQLITE_PATH"))
	if path == "" {
		path = "pokerhall.db"
	}
	return NewSQLiteStore(path)
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", pragma, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS room_info (
	room_id      TEXT PRIMARY KEY,
	player_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	balance      INTEGER NOT NULL DEFAULT 1000,
	current_room TEXT
);
`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) RoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id FROM room_info`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type sqliteRoomInfoTx struct {
	tx     *sql.Tx
	roomID uuid.UUID
	count  int
}

// LockForUpdate opens a BEGIN IMMEDIATE transaction: SQLite has no row-level
// FOR UPDATE, so an immediate write transaction is the closest equivalent
// — it takes the single writer lock up front rather than escalating
// later, preserving the "acquire before the in-memory room lock" order.
func (s *SQLiteStore) LockForUpdate(ctx context.Context, roomID uuid.UUID) (RoomInfoTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		// already inside a tx started by BeginTx; ignore nested-begin errors
		// from drivers that don't support the pragma-style statement.
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT player_count FROM room_info WHERE room_id = ?`, roomID.String()).Scan(&count); err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, ErrInvalidRoomID
		}
		return nil, err
	}
	return &sqliteRoomInfoTx{tx: tx, roomID: roomID, count: count}, nil
}

func (t *sqliteRoomInfoTx) PlayerCount(ctx context.Context) (int, error) { return t.count, nil }

func (t *sqliteRoomInfoTx) SetPlayerCount(ctx context.Context, count int) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE room_info SET player_count = ? WHERE room_id = ?`, count, t.roomID.String()); err != nil {
		return err
	}
	t.count = count
	return nil
}

func (t *sqliteRoomInfoTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteRoomInfoTx) Rollback() error { return t.tx.Rollback() }

func (s *SQLiteStore) CreateUser(ctx context.Context, userID uuid.UUID, name string, balance int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO users (id, name, balance) VALUES (?, ?, ?)`, userID.String(), name, balance)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, userID uuid.UUID) (*User, error) {
	var u User
	var currentRoom sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, balance, current_room FROM users WHERE id = ?`, userID.String()).
		Scan(&u.ID, &u.Name, &u.Balance, &currentRoom)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if currentRoom.Valid {
		id, err := uuid.Parse(currentRoom.String)
		if err != nil {
			return nil, err
		}
		u.CurrentRoom = &id
	}
	return &u, nil
}

func (s *SQLiteStore) Debit(ctx context.Context, userID uuid.UUID, amount int64, roomID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET balance = balance - ?, current_room = ? WHERE id = ?`, amount, roomID.String(), userID.String())
	return err
}

func (s *SQLiteStore) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET balance = balance + ? WHERE id = ?`, amount, userID.String())
	return err
}

func (s *SQLiteStore) SetCurrentRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) error {
	var val any
	if roomID != nil {
		val = roomID.String()
	}
	_, err := s.db.ExecContext(ctx, `UPDATE users SET current_room = ? WHERE id = ?`, val, userID.String())
	return err
}
