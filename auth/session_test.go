package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"pokerhall/store"
)

func TestRegisterCreatesAccountAndSession(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore(nil)
	m := NewManager(mem)

	userID, token, err := m.Register(ctx, "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a non-empty session token")
	}

	u, err := mem.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.Balance != startingBalance {
		t.Fatalf("expected starting balance %d, got %d", startingBalance, u.Balance)
	}

	resolved, name, err := m.ResolveSession(ctx, token)
	if err != nil {
		t.Fatalf("ResolveSession: %v", err)
	}
	if resolved != userID {
		t.Fatalf("expected resolved id %s, got %s", userID, resolved)
	}
	if name != "alice" {
		t.Fatalf("expected normalized username %q, got %q", "alice", name)
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	if _, _, err := m.Register(ctx, "bob", "password1"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	// Username comparison is case-insensitive.
	if _, _, err := m.Register(ctx, "BOB", "password2"); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRejectsInvalidUsernameAndPassword(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	if _, _, err := m.Register(ctx, "ab", "password1"); err != ErrInvalidUsername {
		t.Fatalf("expected ErrInvalidUsername for a too-short username, got %v", err)
	}
	if _, _, err := m.Register(ctx, "validname", "short"); err != ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword for a too-short password, got %v", err)
	}
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	userID, _, err := m.Register(ctx, "carol", "correct-horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	loggedIn, token, err := m.Login("carol", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn != userID {
		t.Fatalf("expected login to resolve %s, got %s", userID, loggedIn)
	}
	if token == "" {
		t.Fatalf("expected a non-empty session token from Login")
	}
}

func TestLoginRejectsWrongPasswordAndUnknownUsername(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	if _, _, err := m.Register(ctx, "dave", "swordfish1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := m.Login("dave", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := m.Login("nobody", "whatever1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown username, got %v", err)
	}
}

func TestResolveSessionRejectsUnknownAndEmptyToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	if _, _, err := m.ResolveSession(ctx, ""); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for an empty token, got %v", err)
	}
	if _, _, err := m.ResolveSession(ctx, "not-a-real-token"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for an unknown token, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	_, token, err := m.Register(ctx, "erin", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.Logout(token)

	if _, _, err := m.ResolveSession(ctx, token); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials after logout, got %v", err)
	}
}

func TestRegisterIssuesDistinctUserIDsForDistinctUsernames(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemoryStore(nil))

	id1, _, err := m.Register(ctx, "frank", "password1")
	if err != nil {
		t.Fatalf("Register frank: %v", err)
	}
	id2, _, err := m.Register(ctx, "grace", "password1")
	if err != nil {
		t.Fatalf("Register grace: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct user ids, got the same %s for both", id1)
	}
	if id1 == uuid.Nil || id2 == uuid.Nil {
		t.Fatalf("expected non-nil user ids")
	}
}
