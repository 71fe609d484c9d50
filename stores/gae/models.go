//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	ac "github.com/authcore-io/authcore"
)

// Kind constants for Datastore entities
const (
	KindUser    = "User"
	KindAccount = "Account"
	KindSession = "Session"
)

// UserEntity is the Datastore entity for users. Empty string means absent
// for email and phone; the converters translate to the core's pointers.
type UserEntity struct {
	Key             *datastore.Key `datastore:"__key__"`
	Name            string         `datastore:"name,noindex"`
	Email           string         `datastore:"email"`
	Phone           string         `datastore:"phone"`
	ProfileImageURL string         `datastore:"profile_image_url,noindex"`
	CreatedAt       time.Time      `datastore:"created_at"`
	UpdatedAt       time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *ac.User {
	return &ac.User{
		ID:              e.Key.Name,
		Name:            e.Name,
		Email:           optionalString(e.Email),
		Phone:           optionalString(e.Phone),
		ProfileImageURL: optionalString(e.ProfileImageURL),
	}
}

func UserToEntity(u *ac.User, key *datastore.Key, now time.Time) *UserEntity {
	return &UserEntity{
		Key:             key,
		Name:            u.Name,
		Email:           stringValue(u.Email),
		Phone:           stringValue(u.Phone),
		ProfileImageURL: stringValue(u.ProfileImageURL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AccountEntity is the Datastore entity for provider links.
// Key format: Provider + ":" + ProviderAccountID.
type AccountEntity struct {
	Key               *datastore.Key `datastore:"__key__"`
	Provider          string         `datastore:"provider"`
	ProviderAccountID string         `datastore:"provider_account_id"`
	UserID            string         `datastore:"user_id"`
	AccessToken       string         `datastore:"access_token,noindex"`
	RefreshToken      string         `datastore:"refresh_token,noindex"`
	Scope             string         `datastore:"scope,noindex"`
	ExpiresAt         int64          `datastore:"expires_at,noindex"`
	CreatedAt         time.Time      `datastore:"created_at"`
	UpdatedAt         time.Time      `datastore:"updated_at"`
}

func (e *AccountEntity) ToAccount() *ac.Account {
	return &ac.Account{
		UserID:            e.UserID,
		Provider:          e.Provider,
		ProviderAccountID: e.ProviderAccountID,
		AccessToken:       e.AccessToken,
		RefreshToken:      optionalString(e.RefreshToken),
		Scope:             e.Scope,
		ExpiresAt:         e.ExpiresAt,
	}
}

func AccountToEntity(a *ac.Account, key *datastore.Key, now time.Time) *AccountEntity {
	return &AccountEntity{
		Key:               key,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		UserID:            a.UserID,
		AccessToken:       a.AccessToken,
		RefreshToken:      stringValue(a.RefreshToken),
		Scope:             a.Scope,
		ExpiresAt:         a.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SessionEntity is the Datastore entity for sessions. Zero time means
// unset for last_used_at and revoked_at.
type SessionEntity struct {
	Key        *datastore.Key `datastore:"__key__"`
	UserID     string         `datastore:"user_id"`
	Token      string         `datastore:"token"`
	ExpiresAt  time.Time      `datastore:"expires_at,noindex"`
	CreatedAt  time.Time      `datastore:"created_at"`
	LastUsedAt time.Time      `datastore:"last_used_at,noindex"`
	RevokedAt  time.Time      `datastore:"revoked_at"`
	Agent      string         `datastore:"agent,noindex"`
	IP         string         `datastore:"ip,noindex"`
}

func (e *SessionEntity) ToSession() *ac.Session {
	return &ac.Session{
		ID:         e.Key.Name,
		UserID:     e.UserID,
		Token:      e.Token,
		ExpiresAt:  e.ExpiresAt,
		CreatedAt:  e.CreatedAt,
		LastUsedAt: optionalTime(e.LastUsedAt),
		RevokedAt:  optionalTime(e.RevokedAt),
		Agent:      e.Agent,
		IP:         e.IP,
	}
}

func SessionToEntity(s *ac.Session, key *datastore.Key) *SessionEntity {
	return &SessionEntity{
		Key:        key,
		UserID:     s.UserID,
		Token:      s.Token,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: timeValue(s.LastUsedAt),
		RevokedAt:  timeValue(s.RevokedAt),
		Agent:      s.Agent,
		IP:         s.IP,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeValue(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}
