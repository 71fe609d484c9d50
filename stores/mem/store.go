// Package mem provides an in-memory Store implementation for tests and
// single-process development servers. All state is lost on restart.
package mem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/authcore-io/authcore"
)

// Store is a mutex-guarded in-memory implementation of authcore.Store.
// Records are copied on the way in and out so callers can never mutate
// stored state through a returned pointer.
type Store struct {
	mu       sync.Mutex
	users    map[string]*authcore.User    // by id
	accounts map[string]*authcore.Account // by provider + "\x00" + providerAccountID
	sessions map[string]*authcore.Session // by id
}

var _ authcore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]*authcore.User),
		accounts: make(map[string]*authcore.Account),
		sessions: make(map[string]*authcore.Session),
	}
}

func accountKey(provider, providerAccountID string) string {
	return provider + "\x00" + providerAccountID
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != nil && *u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone != nil && *u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) CreateUser(ctx context.Context, user *authcore.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, authcore.ErrDuplicate)
	}
	for _, u := range s.users {
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return fmt.Errorf("email %s: %w", *user.Email, authcore.ErrDuplicate)
		}
		if user.Phone != nil && u.Phone != nil && *u.Phone == *user.Phone {
			return fmt.Errorf("phone %s: %w", *user.Phone, authcore.ErrDuplicate)
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account *authcore.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey(account.Provider, account.ProviderAccountID)
	if _, ok := s.accounts[key]; ok {
		return fmt.Errorf("account %s/%s: %w",
			account.Provider, account.ProviderAccountID, authcore.ErrDuplicate)
	}
	s.accounts[key] = copyAccount(account)
	return nil
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountKey(provider, providerAccountID)]; ok {
		return copyAccount(a), nil
	}
	return nil, nil
}

func (s *Store) GetAccountForUser(ctx context.Context, userID, provider string) (*authcore.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Provider == provider {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateAccountToken(ctx context.Context, userID, provider string, accessToken string, refreshToken *string, scope string, expiresAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Provider == provider {
			a.AccessToken = accessToken
			a.RefreshToken = copyStringPtr(refreshToken)
			a.Scope = scope
			a.ExpiresAt = expiresAt
			return nil
		}
	}
	return fmt.Errorf("no %s account for user %s", provider, userID)
}

func (s *Store) CreateSession(ctx context.Context, session *authcore.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, authcore.ErrDuplicate)
	}
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *Store) GetSessionByTokenAndTouch(ctx context.Context, token string, now time.Time) (*authcore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Token == token && sess.RevokedAt == nil {
			touched := now
			sess.LastUsedAt = &touched
			return copySession(sess), nil
		}
	}
	return nil, nil
}

func (s *Store) GetSessionsForUser(ctx context.Context, userID string) ([]*authcore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*authcore.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			out = append(out, copySession(sess))
		}
	}
	return out, nil
}

func (s *Store) GetSessionForUser(ctx context.Context, userID, sessionID string) (*authcore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.UserID == userID {
		return copySession(sess), nil
	}
	return nil, nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.RevokedAt != nil {
		return nil
	}
	revoked := now
	sess.RevokedAt = &revoked
	return nil
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			revoked := now
			sess.RevokedAt = &revoked
		}
	}
	return nil
}

func copyUser(u *authcore.User) *authcore.User {
	out := *u
	out.Email = copyStringPtr(u.Email)
	out.Phone = copyStringPtr(u.Phone)
	out.ProfileImageURL = copyStringPtr(u.ProfileImageURL)
	return &out
}

func copyAccount(a *authcore.Account) *authcore.Account {
	out := *a
	out.RefreshToken = copyStringPtr(a.RefreshToken)
	return &out
}

func copySession(s *authcore.Session) *authcore.Session {
	out := *s
	out.LastUsedAt = copyTimePtr(s.LastUsedAt)
	out.RevokedAt = copyTimePtr(s.RevokedAt)
	return &out
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
