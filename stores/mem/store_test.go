package mem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ac "github.com/authcore-io/authcore"
	"github.com/authcore-io/authcore/stores/mem"
)

func strptr(s string) *string { return &s }

func seedUser(t *testing.T, s *mem.Store, id string, email, phone *string) {
	t.Helper()
	if err := s.CreateUser(context.Background(), &ac.User{ID: id, Email: email, Phone: phone}); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestUserUniqueness(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	seedUser(t, s, "u-1", strptr("a@example.com"), strptr("+1111"))

	tests := []struct {
		name string
		user *ac.User
	}{
		{"duplicate id", &ac.User{ID: "u-1"}},
		{"duplicate email", &ac.User{ID: "u-2", Email: strptr("a@example.com")}},
		{"duplicate phone", &ac.User{ID: "u-3", Phone: strptr("+1111")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateUser(ctx, tt.user)
			if !errors.Is(err, ac.ErrDuplicate) {
				t.Fatalf("err = %v, want ErrDuplicate", err)
			}
		})
	}

	// Two users with neither email nor phone are fine.
	seedUser(t, s, "u-4", nil, nil)
	seedUser(t, s, "u-5", nil, nil)
}

func TestUserLookups(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	seedUser(t, s, "u-1", strptr("a@example.com"), strptr("+1111"))

	if u, err := s.GetUserByEmail(ctx, "a@example.com"); err != nil || u == nil || u.ID != "u-1" {
		t.Errorf("GetUserByEmail = %v, %v", u, err)
	}
	if u, err := s.GetUserByPhone(ctx, "+1111"); err != nil || u == nil || u.ID != "u-1" {
		t.Errorf("GetUserByPhone = %v, %v", u, err)
	}
	if u, err := s.GetUserByEmail(ctx, "nobody@example.com"); err != nil || u != nil {
		t.Errorf("missing email should be (nil, nil), got %v, %v", u, err)
	}
	if u, err := s.GetUserByID(ctx, "ghost"); err != nil || u != nil {
		t.Errorf("missing id should be (nil, nil), got %v, %v", u, err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	seedUser(t, s, "u-1", strptr("a@example.com"), nil)

	u, _ := s.GetUserByID(ctx, "u-1")
	*u.Email = "mutated@example.com"
	u.Name = "mutated"

	fresh, _ := s.GetUserByID(ctx, "u-1")
	if *fresh.Email != "a@example.com" || fresh.Name != "" {
		t.Errorf("store state leaked through returned pointer: %+v", fresh)
	}
}

func TestAccountUniqueness(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	account := &ac.Account{
		UserID: "u-1", Provider: "google", ProviderAccountID: "ext-1",
		AccessToken: "at",
	}
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	dup := &ac.Account{UserID: "u-2", Provider: "google", ProviderAccountID: "ext-1"}
	if err := s.CreateAccount(ctx, dup); !errors.Is(err, ac.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	// Same external id under a different provider is a distinct identity.
	other := &ac.Account{UserID: "u-1", Provider: "github", ProviderAccountID: "ext-1"}
	if err := s.CreateAccount(ctx, other); err != nil {
		t.Fatalf("cross-provider create: %v", err)
	}

	got, err := s.GetAccountByProvider(ctx, "google", "ext-1")
	if err != nil || got == nil || got.UserID != "u-1" {
		t.Errorf("GetAccountByProvider = %v, %v", got, err)
	}
	got, err = s.GetAccountForUser(ctx, "u-1", "github")
	if err != nil || got == nil || got.ProviderAccountID != "ext-1" {
		t.Errorf("GetAccountForUser = %v, %v", got, err)
	}
	if got, _ := s.GetAccountForUser(ctx, "u-1", "slack"); got != nil {
		t.Errorf("unlinked provider should be nil, got %v", got)
	}
}

func TestUpdateAccountToken(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	rt := "rt-old"
	err := s.CreateAccount(ctx, &ac.Account{
		UserID: "u-1", Provider: "google", ProviderAccountID: "ext-1",
		AccessToken: "at-old", RefreshToken: &rt, Scope: "email", ExpiresAt: 100,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newRT := "rt-new"
	if err := s.UpdateAccountToken(ctx, "u-1", "google", "at-new", &newRT, "email profile", 200); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetAccountByProvider(ctx, "google", "ext-1")
	if got.AccessToken != "at-new" || *got.RefreshToken != "rt-new" || got.ExpiresAt != 200 {
		t.Errorf("update not applied: %+v", got)
	}

	if err := s.UpdateAccountToken(ctx, "u-1", "slack", "at", nil, "", 0); err == nil {
		t.Error("expected error for unlinked provider")
	}
}

func newSession(id, userID, token string, expires time.Time) *ac.Session {
	return &ac.Session{
		ID: id, UserID: userID, Token: token,
		ExpiresAt: expires, CreatedAt: time.Now(),
	}
}

func TestSessionTouchAndRevocation(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	if err := s.CreateSession(ctx, newSession("s-1", "u-1", "tok-1", expires)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	now := time.Now()
	got, err := s.GetSessionByTokenAndTouch(ctx, "tok-1", now)
	if err != nil || got == nil {
		t.Fatalf("touch: %v, %v", got, err)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(now) {
		t.Errorf("lastUsedAt = %v, want %v", got.LastUsedAt, now)
	}

	if got, _ := s.GetSessionByTokenAndTouch(ctx, "bogus", now); got != nil {
		t.Errorf("unknown token should be nil, got %v", got)
	}

	// Revocation is idempotent and keeps the first timestamp.
	first := time.Now()
	if err := s.RevokeSession(ctx, "s-1", first); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := s.RevokeSession(ctx, "s-1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	stored, _ := s.GetSessionForUser(ctx, "u-1", "s-1")
	if stored.RevokedAt == nil || !stored.RevokedAt.Equal(first) {
		t.Errorf("revokedAt = %v, want %v", stored.RevokedAt, first)
	}

	// Revoked sessions never match by token, even though the row survives.
	if got, _ := s.GetSessionByTokenAndTouch(ctx, "tok-1", now); got != nil {
		t.Errorf("revoked token should be nil, got %v", got)
	}

	// Revoking an unknown id is a quiet no-op.
	if err := s.RevokeSession(ctx, "ghost", time.Now()); err != nil {
		t.Errorf("revoking unknown session: %v", err)
	}
}

func TestSessionListingAndOwnership(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	s.CreateSession(ctx, newSession("s-1", "u-1", "tok-1", expires))
	s.CreateSession(ctx, newSession("s-2", "u-1", "tok-2", expires))
	s.CreateSession(ctx, newSession("s-3", "u-2", "tok-3", expires))

	list, err := s.GetSessionsForUser(ctx, "u-1")
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d sessions, %v; want 2", len(list), err)
	}

	if got, _ := s.GetSessionForUser(ctx, "u-2", "s-1"); got != nil {
		t.Error("foreign session must not resolve")
	}
	if got, _ := s.GetSessionForUser(ctx, "u-1", "s-1"); got == nil {
		t.Error("own session must resolve")
	}

	if err := s.RevokeAllForUser(ctx, "u-1", time.Now()); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if list, _ := s.GetSessionsForUser(ctx, "u-1"); len(list) != 0 {
		t.Errorf("u-1 still has %d sessions", len(list))
	}
	if list, _ := s.GetSessionsForUser(ctx, "u-2"); len(list) != 1 {
		t.Errorf("u-2 lost sessions: %d", len(list))
	}
}

func TestDuplicateSessionID(t *testing.T) {
	s := mem.New()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	if err := s.CreateSession(ctx, newSession("s-1", "u-1", "tok-1", expires)); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateSession(ctx, newSession("s-1", "u-1", "tok-2", expires))
	if !errors.Is(err, ac.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}
