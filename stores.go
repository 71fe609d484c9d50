package authcore

import (
	"context"
	"time"
)

// User is an identity record. Email and phone are each globally unique when
// present; a user may exist with neither populated only transiently during
// provisioning.
type User struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// Account links a User to one external OAuth provider identity and carries
// the token material captured at link time. (Provider, ProviderAccountID)
// is unique: one external identity links to at most one User.
type Account struct {
	UserID            string  `json:"userId"`
	Provider          string  `json:"provider"`
	ProviderAccountID string  `json:"providerAccountId"`
	AccessToken       string  `json:"-"`
	RefreshToken      *string `json:"-"`
	Scope             string  `json:"scope"`
	ExpiresAt         int64   `json:"expiresAt"` // unix seconds, 0 when the provider reported none
}

// Session is a revocable bearer credential bound to a user. The Token is the
// secret the client presents; ID is the internal handle used for
// administration. Sessions are never hard-deleted: revocation sets RevokedAt
// and is irreversible.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Token      string     `json:"-"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	RevokedAt  *time.Time `json:"revokedAt"`
	Agent      string     `json:"agent"`
	IP         string     `json:"ip"`
}

// Active reports whether the session is usable at the given instant:
// not revoked and not past expiry.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionSummary is the projection of a session exposed to its owner.
// It never includes the bearer token: tokens are write-once secrets.
type SessionSummary struct {
	ID         string     `json:"id"`
	Agent      string     `json:"agent"`
	IP         string     `json:"ip"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

// Summary returns the owner-facing projection of the session.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Agent:      s.Agent,
		IP:         s.IP,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
	}
}

// Store is the persistence contract the host must implement. The core holds
// no locks and shares no mutable state across requests; every consistency
// guarantee below is the adapter's to enforce.
//
// Conventions:
//   - Lookups return (nil, nil) when no matching record exists.
//   - Creates return an error wrapping ErrDuplicate when a uniqueness
//     constraint is violated.
//   - Implementations must be safe for concurrent use.
type Store interface {
	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email. Email is unique when present.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByPhone retrieves a user by phone. Phone is unique when present.
	GetUserByPhone(ctx context.Context, phone string) (*User, error)

	// CreateUser persists a new user. Must reject duplicate email or phone
	// with ErrDuplicate.
	CreateUser(ctx context.Context, user *User) error

	// CreateAccount persists a new provider link. Must enforce the
	// (provider, providerAccountID) uniqueness invariant with ErrDuplicate;
	// this constraint is what resolves concurrent first-login races.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccountByProvider retrieves the account linked to an external
	// identity, keyed by (provider, providerAccountID).
	GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error)

	// GetAccountForUser retrieves the user's linked account for a provider.
	GetAccountForUser(ctx context.Context, userID, provider string) (*Account, error)

	// UpdateAccountToken overwrites the stored token material for an
	// existing account. Used only when a caller explicitly persists a
	// refreshed token; login flows never call it.
	UpdateAccountToken(ctx context.Context, userID, provider string, accessToken string, refreshToken *string, scope string, expiresAt int64) error

	// CreateSession persists a new session.
	CreateSession(ctx context.Context, session *Session) error

	// GetSessionByTokenAndTouch looks up a session by bearer token and sets
	// its last-used timestamp to now, as a single atomic read-modify-write.
	// Only unrevoked sessions match; revoked tokens return (nil, nil).
	// Expiry is NOT filtered here - the authenticator checks it.
	GetSessionByTokenAndTouch(ctx context.Context, token string, now time.Time) (*Session, error)

	// GetSessionsForUser returns the user's unrevoked sessions.
	GetSessionsForUser(ctx context.Context, userID string) ([]*Session, error)

	// GetSessionForUser retrieves a session by id only if it belongs to the
	// given user; (nil, nil) otherwise.
	GetSessionForUser(ctx context.Context, userID, sessionID string) (*Session, error)

	// RevokeSession sets the session's revocation timestamp. Revoking an
	// already-revoked session is a no-op success that preserves the
	// original timestamp.
	RevokeSession(ctx context.Context, sessionID string, now time.Time) error

	// RevokeAllForUser revokes every unrevoked session owned by the user.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) error
}
