package authcore

import (
	"context"
)

// SessionHandle identifies an authenticated session. It carries the ids
// eagerly and nothing else: callers that need the full user record make an
// explicit LoadUser call, so no deferred I/O hides inside a data object.
type SessionHandle struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// Authenticate validates a bearer token and returns a session handle, or
// (nil, nil) for anonymous: an empty, unknown, revoked or expired token is
// not an error, it is just not a session.
//
// The token lookup and the last-used update happen as one atomic adapter
// operation so a revocation racing this call can never resurrect a session.
func (a *Auth) Authenticate(ctx context.Context, bearerToken string) (*SessionHandle, error) {
	if bearerToken == "" {
		return nil, nil
	}
	session, err := a.Store.GetSessionByTokenAndTouch(ctx, bearerToken, a.Now())
	if err != nil {
		return nil, storageError("session lookup", err)
	}
	if session == nil {
		return nil, nil
	}
	// The adapter filters on revocation only; expiry is enforced here.
	if !a.Now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &SessionHandle{ID: session.ID, UserID: session.UserID}, nil
}

// LoadUser fetches the user behind a session handle. Split out from
// Authenticate so endpoints that only need the user id never pay for it.
func (a *Auth) LoadUser(ctx context.Context, userID string) (*User, error) {
	user, err := a.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageError("user lookup", err)
	}
	return user, nil
}

// ListSessions returns the caller's unrevoked sessions as summaries.
// Bearer tokens are never included.
func (a *Auth) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	if userID == "" {
		return nil, NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
			"no authenticated session")
	}
	sessions, err := a.Store.GetSessionsForUser(ctx, userID)
	if err != nil {
		return nil, storageError("session list", err)
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

// Logout revokes the caller's own current session. Idempotent: a second
// logout of the same session succeeds without changing anything.
func (a *Auth) Logout(ctx context.Context, handle *SessionHandle) error {
	if handle == nil {
		return NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
			"no authenticated session")
	}
	if err := a.Store.RevokeSession(ctx, handle.ID, a.Now()); err != nil {
		return storageError("session revoke", err)
	}
	a.Metrics.RecordSessionRevoked()
	a.Logger.Info("logout", "user", handle.UserID, "session", handle.ID)
	return nil
}

// RevokeAll revokes every session owned by the user ("sign out everywhere").
func (a *Auth) RevokeAll(ctx context.Context, userID string) error {
	if userID == "" {
		return NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
			"no authenticated session")
	}
	if err := a.Store.RevokeAllForUser(ctx, userID, a.Now()); err != nil {
		return storageError("session revoke", err)
	}
	a.Metrics.RecordSessionRevoked()
	a.Logger.Info("revoked all sessions", "user", userID)
	return nil
}

// Revoke revokes one of the caller's sessions by id. Ownership is verified
// before the revoke write: a session that does not exist or belongs to
// another user fails identically, with a not-found error.
func (a *Auth) Revoke(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
			"no authenticated session")
	}
	session, err := a.Store.GetSessionForUser(ctx, userID, sessionID)
	if err != nil {
		return storageError("session lookup", err)
	}
	if session == nil {
		return NewAuthError(KindNotFound, ErrCodeSessionNotFound, "session not found")
	}
	if err := a.Store.RevokeSession(ctx, sessionID, a.Now()); err != nil {
		return storageError("session revoke", err)
	}
	a.Metrics.RecordSessionRevoked()
	a.Logger.Info("revoked session", "user", userID, "session", sessionID)
	return nil
}
