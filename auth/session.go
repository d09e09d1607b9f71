// Package auth issues and resolves session tokens for players. Accounts
// are keyed by uuid.UUID so a session resolves directly to the
// store.UserStore id the game service already speaks.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pokerhall/store"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes        = 32
	startingBalance   = 1000
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager issues session tokens backed by a store.UserStore for account
// balances; credentials and sessions themselves stay in-memory.
type Manager struct {
	mu sync.Mutex

	users      store.UserStore
	sessionTTL time.Duration
	sessions   map[string]sessionRecord
	byUsername map[string]credentialRecord
}

type sessionRecord struct {
	UserID    uuid.UUID
	Username  string
	ExpiresAt time.Time
}

type credentialRecord struct {
	UserID       uuid.UUID
	PasswordHash []byte
}

func NewManager(users store.UserStore) *Manager {
	return &Manager{
		users:      users,
		sessionTTL: defaultSessionTTL,
		sessions:   make(map[string]sessionRecord),
		byUsername: make(map[string]credentialRecord),
	}
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(userID uuid.UUID, username string, now time.Time) string {
	token := mustToken()
	m.sessions[token] = sessionRecord{UserID: userID, Username: username, ExpiresAt: now.Add(m.sessionTTL)}
	return token
}

// Register creates a new account in the backing UserStore (starting
// with startingBalance chips) and returns an authenticated session.
func (m *Manager) Register(ctx context.Context, username, password string) (uuid.UUID, string, error) {
	if err := validateUsername(username); err != nil {
		return uuid.Nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return uuid.Nil, "", err
	}

	normalized := normalizeUsername(username)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[normalized]; exists {
		return uuid.Nil, "", ErrUsernameTaken
	}

	userID := uuid.New()
	if err := m.users.CreateUser(ctx, userID, normalized, startingBalance); err != nil {
		return uuid.Nil, "", err
	}
	m.byUsername[normalized] = credentialRecord{UserID: userID, PasswordHash: hash}

	now := time.Now()
	token := m.issueSessionLocked(userID, normalized, now)
	return userID, token, nil
}

// Login validates credentials and returns a fresh session token.
func (m *Manager) Login(username, password string) (uuid.UUID, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return uuid.Nil, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cred, exists := m.byUsername[normalized]
	if !exists || bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)) != nil {
		return uuid.Nil, "", ErrInvalidCredentials
	}

	token := m.issueSessionLocked(cred.UserID, normalized, time.Now())
	return cred.UserID, token, nil
}

// ResolveSession validates and refreshes a session token, satisfying
// transport.SessionResolver.
func (m *Manager) ResolveSession(ctx context.Context, token string) (uuid.UUID, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		return uuid.Nil, "", ErrInvalidCredentials
	}
	rec, exists := m.sessions[token]
	if !exists || !time.Now().Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return uuid.Nil, "", ErrInvalidCredentials
	}
	rec.ExpiresAt = time.Now().Add(m.sessionTTL)
	m.sessions[token] = rec
	return rec.UserID, rec.Username, nil
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
