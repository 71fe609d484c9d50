//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	ac "github.com/authcore-io/authcore"
)

// UserModel is the GORM model for users. Email and phone are nullable
// pointers so multiple users without one don't collide on the unique index.
type UserModel struct {
	ID              string  `gorm:"primaryKey;size:64"`
	Name            string  `gorm:"size:255"`
	Email           *string `gorm:"size:255;uniqueIndex"`
	Phone           *string `gorm:"size:64;uniqueIndex"`
	ProfileImageURL *string `gorm:"size:1024"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) ToUser() *ac.User {
	return &ac.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Phone:           m.Phone,
		ProfileImageURL: m.ProfileImageURL,
	}
}

func UserToModel(u *ac.User) *UserModel {
	return &UserModel{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// AccountModel is the GORM model for provider links. The composite primary
// key enforces the one-link-per-external-identity invariant at the database.
type AccountModel struct {
	Provider          string  `gorm:"primaryKey;size:64"`
	ProviderAccountID string  `gorm:"primaryKey;size:255"`
	UserID            string  `gorm:"size:64;index"`
	AccessToken       string  `gorm:"size:4096"`
	RefreshToken      *string `gorm:"size:4096"`
	Scope             string  `gorm:"size:1024"`
	ExpiresAt         int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (AccountModel) TableName() string { return "accounts" }

func (m *AccountModel) ToAccount() *ac.Account {
	return &ac.Account{
		UserID:            m.UserID,
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		AccessToken:       m.AccessToken,
		RefreshToken:      m.RefreshToken,
		Scope:             m.Scope,
		ExpiresAt:         m.ExpiresAt,
	}
}

func AccountToModel(a *ac.Account) *AccountModel {
	return &AccountModel{
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		UserID:            a.UserID,
		AccessToken:       a.AccessToken,
		RefreshToken:      a.RefreshToken,
		Scope:             a.Scope,
		ExpiresAt:         a.ExpiresAt,
	}
}

// SessionModel is the GORM model for sessions. Rows are never deleted;
// revoked_at marks them dead.
type SessionModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	UserID     string `gorm:"size:64;index"`
	Token      string `gorm:"size:128;uniqueIndex"`
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time `gorm:"index"`
	Agent      string     `gorm:"size:512"`
	IP         string     `gorm:"size:64"`
}

func (SessionModel) TableName() string { return "sessions" }

func (m *SessionModel) ToSession() *ac.Session {
	return &ac.Session{
		ID:         m.ID,
		UserID:     m.UserID,
		Token:      m.Token,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
		LastUsedAt: m.LastUsedAt,
		RevokedAt:  m.RevokedAt,
		Agent:      m.Agent,
		IP:         m.IP,
	}
}

func SessionToModel(s *ac.Session) *SessionModel {
	return &SessionModel{
		ID:         s.ID,
		UserID:     s.UserID,
		Token:      s.Token,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
		RevokedAt:  s.RevokedAt,
		Agent:      s.Agent,
		IP:         s.IP,
	}
}
