package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerIssueAndResolve(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, store)

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a token")
	}
	if session.UserID != "user-1" {
		t.Fatalf("unexpected user id: %q", session.UserID)
	}
	if !store.Has(session.Token) {
		t.Fatal("expected session persisted")
	}

	userID, err := manager.Resolve(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("unexpected user id: %q", userID)
	}
}

func TestManagerIssueRequiresUser(t *testing.T) {
	manager := NewManager(time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerIssueTokensAreUnique(t *testing.T) {
	manager := NewManager(time.Hour, NewInMemorySessionStore())

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		session, err := manager.Issue(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, ok := seen[session.Token]; ok {
			t.Fatal("token collision")
		}
		seen[session.Token] = struct{}{}
	}
}

func TestManagerResolveUnknownToken(t *testing.T) {
	manager := NewManager(time.Hour, NewInMemorySessionStore())

	if _, err := manager.Resolve(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := manager.Resolve(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for empty token, got %v", err)
	}
}

func TestManagerResolveExpiredSessionIsDeleted(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, store)

	current := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return current }

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := manager.Resolve(context.Background(), session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if store.Has(session.Token) {
		t.Fatal("expected expired session removed from store")
	}
}

func TestManagerRevoke(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, store)

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	manager.Revoke(context.Background(), session.Token)
	if store.Has(session.Token) {
		t.Fatal("expected session removed")
	}

	if _, err := manager.Resolve(context.Background(), session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
