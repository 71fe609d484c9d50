//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	ac "github.com/authcore-io/authcore"
)

// AutoMigrate runs database migrations for all authcore tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&AccountModel{},
		&SessionModel{},
	)
}

// Store implements ac.Store using GORM.
type Store struct {
	db *gorm.DB
}

var _ ac.Store = (*Store)(nil)

// New creates a Store over an open GORM connection. The connection should
// be opened with TranslateError enabled.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translateCreate maps GORM's duplicated-key error onto the sentinel the
// core matches against.
func translateCreate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ac.ErrDuplicate, err)
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*ac.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ac.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*ac.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *Store) CreateUser(ctx context.Context, user *ac.User) error {
	return translateCreate(s.db.WithContext(ctx).Create(UserToModel(user)).Error)
}

func (s *Store) CreateAccount(ctx context.Context, account *ac.Account) error {
	return translateCreate(s.db.WithContext(ctx).Create(AccountToModel(account)).Error)
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*ac.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).
		First(&model, "provider = ? AND provider_account_id = ?", provider, providerAccountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Store) GetAccountForUser(ctx context.Context, userID, provider string) (*ac.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).
		First(&model, "user_id = ? AND provider = ?", userID, provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *Store) UpdateAccountToken(ctx context.Context, userID, provider string, accessToken string, refreshToken *string, scope string, expiresAt int64) error {
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]any{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"scope":         scope,
			"expires_at":    expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no %s account for user %s", provider, userID)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session *ac.Session) error {
	return translateCreate(s.db.WithContext(ctx).Create(SessionToModel(session)).Error)
}

// GetSessionByTokenAndTouch updates last_used_at with a guarded UPDATE so
// the touch and the revocation check are one statement, then rereads the
// row. A revocation that lands first makes the UPDATE match nothing.
func (s *Store) GetSessionByTokenAndTouch(ctx context.Context, token string, now time.Time) (*ac.Session, error) {
	result := s.db.WithContext(ctx).Model(&SessionModel{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Update("last_used_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

func (s *Store) GetSessionsForUser(ctx context.Context, userID string) ([]*ac.Session, error) {
	var models []SessionModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*ac.Session, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToSession())
	}
	return out, nil
}

func (s *Store) GetSessionForUser(ctx context.Context, userID, sessionID string) (*ac.Session, error) {
	var model SessionModel
	err := s.db.WithContext(ctx).
		First(&model, "id = ? AND user_id = ?", sessionID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToSession(), nil
}

// RevokeSession only writes when the row is still unrevoked, so the first
// revocation timestamp always wins.
func (s *Store) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now).Error
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&SessionModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}
