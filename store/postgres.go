package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
)

// PostgresStore mirrors SQLiteStore's contract over a real row-level
// lock, following ledger/service.go's SetSaved transaction shape: open a
// tx, SELECT ... FOR UPDATE, mutate, commit or roll back.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStoreFromEnv() (*PostgresStore, error) {
	dsn := os.Getenv("POKERHALL_POSTGRES_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("POKERHALL_POSTGRES_DSN not set")
	}
	return NewPostgresStore(dsn)
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS room_info (
	room_id      UUID PRIMARY KEY,
	player_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS users (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	balance      BIGINT NOT NULL DEFAULT 1000,
	current_room UUID
);
`)
	return err
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) RoomIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id FROM room_info`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type postgresRoomInfoTx struct {
	tx     *sql.Tx
	roomID uuid.UUID
	count  int
}

func (s *PostgresStore) LockForUpdate(ctx context.Context, roomID uuid.UUID) (RoomInfoTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	var count int
	err = tx.QueryRowContext(ctx, `SELECT player_count FROM room_info WHERE room_id = $1 FOR UPDATE`, roomID).Scan(&count)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, ErrInvalidRoomID
	}
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &postgresRoomInfoTx{tx: tx, roomID: roomID, count: count}, nil
}

func (t *postgresRoomInfoTx) PlayerCount(ctx context.Context) (int, error) { return t.count, nil }

func (t *postgresRoomInfoTx) SetPlayerCount(ctx context.Context, count int) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE room_info SET player_count = $1 WHERE room_id = $2`, count, t.roomID); err != nil {
		return err
	}
	t.count = count
	return nil
}

func (t *postgresRoomInfoTx) Commit() error   { return t.tx.Commit() }
func (t *postgresRoomInfoTx) Rollback() error { return t.tx.Rollback() }

func (s *PostgresStore) CreateUser(ctx context.Context, userID uuid.UUID, name string, balance int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, balance) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`, userID, name, balance)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*User, error) {
	var u User
	var currentRoom sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, name, balance, current_room FROM users WHERE id = $1`, userID).
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

func (s *PostgresStore) Debit(ctx context.Context, userID uuid.UUID, amount int64, roomID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET balance = balance - $1, current_room = $2 WHERE id = $3`, amount, roomID, userID)
	return err
}

func (s *PostgresStore) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET balance = balance + $1 WHERE id = $2`, amount, userID)
	return err
}

func (s *PostgresStore) SetCurrentRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET current_room = $1 WHERE id = $2`, roomID, userID)
	return err
}
