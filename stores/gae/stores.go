//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	ac "github.com/authcore-io/authcore"
)

// Store implements ac.Store using Google Cloud Datastore.
type Store struct {
	client    *datastore.Client
	namespace string
}

var _ ac.Store = (*Store)(nil)

// New creates a Datastore-backed Store. An empty namespace uses the
// default namespace.
func New(client *datastore.Client, namespace string) *Store {
	return &Store{client: client, namespace: namespace}
}

func (s *Store) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *Store) newQuery(kind string) *datastore.Query {
	return datastore.NewQuery(kind).Namespace(s.namespace)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*ac.User, error) {
	var entity UserEntity
	err := s.client.Get(ctx, s.namespacedKey(KindUser, id), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*ac.User, error) {
	return s.queryUser(ctx, "email", email)
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*ac.User, error) {
	return s.queryUser(ctx, "phone", phone)
}

func (s *Store) queryUser(ctx context.Context, field, value string) (*ac.User, error) {
	query := s.newQuery(KindUser).FilterField(field, "=", value).Limit(1)
	it := s.client.Run(ctx, query)
	var entity UserEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *Store) CreateUser(ctx context.Context, user *ac.User) error {
	// Best-effort uniqueness: query first, then insert transactionally on
	// the key. See the package doc for the residual race.
	if user.Email != nil {
		existing, err := s.GetUserByEmail(ctx, *user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("email %s: %w", *user.Email, ac.ErrDuplicate)
		}
	}
	if user.Phone != nil {
		existing, err := s.GetUserByPhone(ctx, *user.Phone)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("phone %s: %w", *user.Phone, ac.ErrDuplicate)
		}
	}

	key := s.namespacedKey(KindUser, user.ID)
	entity := UserToEntity(user, key, time.Now())
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("user %s: %w", user.ID, ac.ErrDuplicate)
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

func (s *Store) CreateAccount(ctx context.Context, account *ac.Account) error {
	key := s.namespacedKey(KindAccount, account.Provider+":"+account.ProviderAccountID)
	entity := AccountToEntity(account, key, time.Now())
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("account %s/%s: %w",
				account.Provider, account.ProviderAccountID, ac.ErrDuplicate)
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

func (s *Store) GetAccountByProvider(ctx context.Context, provider, providerAccountID string) (*ac.Account, error) {
	var entity AccountEntity
	err := s.client.Get(ctx, s.namespacedKey(KindAccount, provider+":"+providerAccountID), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *Store) GetAccountForUser(ctx context.Context, userID, provider string) (*ac.Account, error) {
	query := s.newQuery(KindAccount).
		FilterField("user_id", "=", userID).
		FilterField("provider", "=", provider).
		Limit(1)
	it := s.client.Run(ctx, query)
	var entity AccountEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *Store) UpdateAccountToken(ctx context.Context, userID, provider string, accessToken string, refreshToken *string, scope string, expiresAt int64) error {
	account, err := s.GetAccountForUser(ctx, userID, provider)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("no %s account for user %s", provider, userID)
	}

	key := s.namespacedKey(KindAccount, account.Provider+":"+account.ProviderAccountID)
	_, err = s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		if err := tx.Get(key, &entity); err != nil {
			return err
		}
		entity.AccessToken = accessToken
		entity.RefreshToken = stringValue(refreshToken)
		entity.Scope = scope
		entity.ExpiresAt = expiresAt
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(key, &entity)
		return err
	})
	return err
}

func (s *Store) CreateSession(ctx context.Context, session *ac.Session) error {
	key := s.namespacedKey(KindSession, session.ID)
	entity := SessionToEntity(session, key)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing SessionEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("session %s: %w", session.ID, ac.ErrDuplicate)
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

// GetSessionByTokenAndTouch locates the session key with a keys-only query,
// then re-checks revocation and writes the touch inside a transaction so a
// racing revoke can't be undone.
func (s *Store) GetSessionByTokenAndTouch(ctx context.Context, token string, now time.Time) (*ac.Session, error) {
	query := s.newQuery(KindSession).
		FilterField("token", "=", token).
		Limit(1).
		KeysOnly()
	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var entity SessionEntity
	_, err = s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(keys[0], &entity); err != nil {
			return err
		}
		if !entity.RevokedAt.IsZero() {
			return errSessionRevoked
		}
		entity.LastUsedAt = now
		_, err := tx.Put(keys[0], &entity)
		return err
	})
	if errors.Is(err, errSessionRevoked) || errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity.ToSession(), nil
}

var errSessionRevoked = errors.New("session revoked")

func (s *Store) GetSessionsForUser(ctx context.Context, userID string) ([]*ac.Session, error) {
	query := s.newQuery(KindSession).
		FilterField("user_id", "=", userID).
		FilterField("revoked_at", "=", time.Time{})
	var entities []SessionEntity
	if _, err := s.client.GetAll(ctx, query, &entities); err != nil {
		return nil, err
	}
	out := make([]*ac.Session, 0, len(entities))
	for i := range entities {
		out = append(out, entities[i].ToSession())
	}
	return out, nil
}

func (s *Store) GetSessionForUser(ctx context.Context, userID, sessionID string) (*ac.Session, error) {
	var entity SessionEntity
	err := s.client.Get(ctx, s.namespacedKey(KindSession, sessionID), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entity.UserID != userID {
		return nil, nil
	}
	return entity.ToSession(), nil
}

func (s *Store) RevokeSession(ctx context.Context, sessionID string, now time.Time) error {
	key := s.namespacedKey(KindSession, sessionID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity SessionEntity
		err := tx.Get(key, &entity)
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil
		}
		if err != nil {
			return err
		}
		if !entity.RevokedAt.IsZero() {
			return nil
		}
		entity.RevokedAt = now
		_, err = tx.Put(key, &entity)
		return err
	})
	return err
}

func (s *Store) RevokeAllForUser(ctx context.Context, userID string, now time.Time) error {
	query := s.newQuery(KindSession).
		FilterField("user_id", "=", userID).
		FilterField("revoked_at", "=", time.Time{}).
		KeysOnly()
	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return err
	}
	for _, key := range keys {
		_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
			var entity SessionEntity
			err := tx.Get(key, &entity)
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return nil
			}
			if err != nil {
				return err
			}
			if !entity.RevokedAt.IsZero() {
				return nil
			}
			entity.RevokedAt = now
			_, err = tx.Put(key, &entity)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
