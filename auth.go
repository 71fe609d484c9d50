package authcore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionValidity is how long a freshly issued session lives. Sessions are
// deliberately long-lived bearer credentials: revocation, not expiry, is
// the primary deactivation mechanism.
const SessionValidity = 10 * 365 * 24 * time.Hour

// RequestMeta is the request context captured on each issued session.
type RequestMeta struct {
	Agent string
	IP    string
}

// Auth is the authentication engine: it resolves verified external
// identities (OAuth profiles, OTP-verified contacts) into users and issues
// bearer sessions for them. All state lives behind the Store; Auth itself
// holds only read-only configuration and is safe for concurrent use.
type Auth struct {
	// Providers is the immutable provider registry. Required.
	Providers *Config

	// Store is the host's persistence adapter. Required.
	Store Store

	// Logger defaults to slog.Default(). Tokens and secrets are never logged.
	Logger *slog.Logger

	// Metrics is optional; nil disables collection.
	Metrics *Metrics

	// HTTPClient is used for provider calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// StateKey signs OAuth state parameters. Defaults to a random
	// per-process key, which is fine for single-process hosts; multi-node
	// deployments must share one so a callback can land on any node.
	StateKey []byte

	// Now allows tests to control time. Defaults to time.Now.
	Now func() time.Time
}

// New validates the provider registry and returns a ready engine.
func New(providers *Config, store Store) (*Auth, error) {
	if err := providers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return (&Auth{Providers: providers, Store: store}).EnsureDefaults(), nil
}

// EnsureDefaults fills in defaults for any unset optional fields.
func (a *Auth) EnsureDefaults() *Auth {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.HTTPClient == nil {
		a.HTTPClient = http.DefaultClient
	}
	if len(a.StateKey) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("generating state key: %v", err))
		}
		a.StateKey = key
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	return a
}

// PublicConfig returns the secret-free provider registry for clients.
func (a *Auth) PublicConfig() PublicConfig {
	return a.Providers.Public()
}

func (a *Auth) oauthClient(provider *OAuthProviderConfig) *Client {
	return &Client{Provider: provider, HTTPClient: a.HTTPClient}
}

// OAuthCallback completes an authorization-code flow: exchanges the code,
// fetches the provider profile, resolves or provisions the user/account
// pair, and issues a session. The returned string is the raw bearer token,
// not the session id.
//
// Linking rules:
//   - A known (provider, provider account id) logs into its linked user.
//     Stored token material is not rewritten on this path.
//   - A new external identity whose email already belongs to an existing
//     user is a conflict; nothing is created.
//   - Otherwise a user and account are provisioned together.
func (a *Auth) OAuthCallback(ctx context.Context, providerKey, code, redirectURI string, meta RequestMeta) (string, error) {
	provider, err := a.Providers.OAuthProvider(providerKey)
	if err != nil {
		return "", err
	}

	client := a.oauthClient(provider)
	token, err := client.Exchange(ctx, code, redirectURI)
	if err != nil {
		a.Metrics.RecordLogin(providerKey, "upstream_error")
		return "", err
	}
	profile, err := client.FetchProfile(ctx, token)
	if err != nil {
		a.Metrics.RecordLogin(providerKey, "upstream_error")
		return "", err
	}

	account, err := a.Store.GetAccountByProvider(ctx, providerKey, profile.ID)
	if err != nil {
		return "", storageError("account lookup", err)
	}

	if account != nil {
		sessionToken, err := a.issueSession(ctx, account.UserID, meta)
		if err != nil {
			return "", err
		}
		a.Logger.Info("oauth login", "provider", providerKey, "user", account.UserID)
		a.Metrics.RecordLogin(providerKey, "ok")
		return sessionToken, nil
	}

	if profile.Email != "" {
		existing, err := a.Store.GetUserByEmail(ctx, profile.Email)
		if err != nil {
			return "", storageError("user lookup", err)
		}
		if existing != nil {
			a.Metrics.RecordLogin(providerKey, "conflict")
			return "", NewAuthError(KindConflict, ErrCodeEmailLinked,
				"a user with this email already exists")
		}
	}

	user := &User{
		ID:   uuid.NewString(),
		Name: profile.Name,
	}
	if profile.Email != "" {
		user.Email = &profile.Email
	}
	if profile.Image != "" {
		user.ProfileImageURL = &profile.Image
	}
	if err := a.Store.CreateUser(ctx, user); err != nil {
		return "", storageError("user create", err)
	}

	newAccount := &Account{
		UserID:            user.ID,
		Provider:          providerKey,
		ProviderAccountID: profile.ID,
		AccessToken:       token.AccessToken,
		Scope:             token.Scope,
		ExpiresAt:         token.ExpiresAt,
	}
	if token.RefreshToken != "" {
		rt := token.RefreshToken
		newAccount.RefreshToken = &rt
	}
	if err := a.Store.CreateAccount(ctx, newAccount); err != nil {
		// A concurrent first login for the same external identity created
		// the account between our lookup and this write. The uniqueness
		// constraint decides the winner; the loser surfaces a conflict and
		// may retry into the existing-account path.
		if isDuplicate(err) {
			a.Metrics.RecordLogin(providerKey, "conflict")
			return "", WrapAuthError(KindConflict, ErrCodeAccountLinked,
				"this provider account is already linked", err)
		}
		return "", storageError("account create", err)
	}

	sessionToken, err := a.issueSession(ctx, user.ID, meta)
	if err != nil {
		return "", err
	}
	a.Logger.Info("oauth signup", "provider", providerKey, "user", user.ID)
	a.Metrics.RecordLogin(providerKey, "ok")
	return sessionToken, nil
}

// SendOTP asks the provider to deliver a one-time code and returns the
// delivery outcome.
func (a *Auth) SendOTP(ctx context.Context, providerKey string, input map[string]string) (bool, error) {
	provider, err := a.Providers.OTPProvider(providerKey)
	if err != nil {
		return false, err
	}
	verifier := &OTPVerifier{Provider: provider}
	ok, err := verifier.Send(ctx, input)
	if err != nil {
		a.Metrics.RecordOTPSend(providerKey, "error")
		return false, WrapAuthError(KindUpstreamAuth, ErrCodeUpstreamAuth,
			fmt.Sprintf("%s: code delivery failed", providerKey), err)
	}
	if ok {
		a.Metrics.RecordOTPSend(providerKey, "ok")
	} else {
		a.Metrics.RecordOTPSend(providerKey, "rejected")
	}
	return ok, nil
}

// VerifyOTP checks the code, then resolves or provisions the user owning
// the verified contact and issues a session. A brand-new user is created
// with only the verified contact field populated.
func (a *Auth) VerifyOTP(ctx context.Context, providerKey string, input map[string]string, code string, meta RequestMeta) (string, error) {
	provider, err := a.Providers.OTPProvider(providerKey)
	if err != nil {
		return "", err
	}
	verifier := &OTPVerifier{Provider: provider}
	if err := verifier.Verify(ctx, input, code); err != nil {
		a.Metrics.RecordLogin(providerKey, "invalid_code")
		return "", err
	}
	contact, err := verifier.Contact(input)
	if err != nil {
		return "", err
	}

	user, err := a.Store.GetUserByPhone(ctx, contact)
	if err != nil {
		return "", storageError("user lookup", err)
	}
	if user == nil {
		user = &User{
			ID:    uuid.NewString(),
			Phone: &contact,
		}
		if err := a.Store.CreateUser(ctx, user); err != nil {
			if isDuplicate(err) {
				return "", WrapAuthError(KindConflict, ErrCodePhoneLinked,
					"this phone number was just registered", err)
			}
			return "", storageError("user create", err)
		}
		a.Logger.Info("otp signup", "provider", providerKey, "user", user.ID)
	}

	sessionToken, err := a.issueSession(ctx, user.ID, meta)
	if err != nil {
		return "", err
	}
	a.Metrics.RecordLogin(providerKey, "ok")
	return sessionToken, nil
}

// TokenForProvider reconstructs an OAuth token handle from the user's
// stored account for downstream API calls. No network call is made.
func (a *Auth) TokenForProvider(ctx context.Context, userID, providerKey string) (*Token, error) {
	if userID == "" {
		return nil, NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
			"no authenticated session")
	}
	provider, err := a.Providers.OAuthProvider(providerKey)
	if err != nil {
		return nil, err
	}
	account, err := a.Store.GetAccountForUser(ctx, userID, providerKey)
	if err != nil {
		return nil, storageError("account lookup", err)
	}
	if account == nil {
		return nil, NewAuthError(KindNotFound, ErrCodeNoLinkedAccount,
			fmt.Sprintf("no %s account linked to this user", providerKey))
	}
	return a.oauthClient(provider).TokenFromAccount(account)
}

// Refresh performs a refresh-token grant using the user's stored account.
// The stored account is not rewritten: persist the result explicitly with
// PersistRefreshedToken if the new material should replace it.
func (a *Auth) Refresh(ctx context.Context, userID, providerKey string) (*Token, error) {
	provider, err := a.Providers.OAuthProvider(providerKey)
	if err != nil {
		return nil, err
	}
	account, err := a.Store.GetAccountForUser(ctx, userID, providerKey)
	if err != nil {
		return nil, storageError("account lookup", err)
	}
	if account == nil {
		return nil, NewAuthError(KindNotFound, ErrCodeNoLinkedAccount,
			fmt.Sprintf("no %s account linked to this user", providerKey))
	}
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return nil, NewAuthError(KindValidation, ErrCodeMissingAccessToken,
			fmt.Sprintf("stored %s account has no refresh token", providerKey))
	}
	return a.oauthClient(provider).Refresh(ctx, *account.RefreshToken)
}

// PersistRefreshedToken overwrites the stored account's token material
// with a freshly refreshed token.
func (a *Auth) PersistRefreshedToken(ctx context.Context, userID, providerKey string, token *Token) error {
	var refresh *string
	if token.RefreshToken != "" {
		rt := token.RefreshToken
		refresh = &rt
	}
	err := a.Store.UpdateAccountToken(ctx, userID, providerKey,
		token.AccessToken, refresh, token.Scope, token.ExpiresAt)
	if err != nil {
		return storageError("account token update", err)
	}
	return nil
}

// issueSession generates a fresh session id and bearer token, persists the
// session with the captured request metadata, and returns the raw token.
// Both values are cryptographically random; collisions are negligible and
// treated as globally unique.
func (a *Auth) issueSession(ctx context.Context, userID string, meta RequestMeta) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	now := a.Now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(SessionValidity),
		CreatedAt: now,
		Agent:     meta.Agent,
		IP:        meta.IP,
	}
	if err := a.Store.CreateSession(ctx, session); err != nil {
		return "", storageError("session create", err)
	}
	a.Metrics.RecordSessionIssued()
	return session.Token, nil
}

// generateSessionToken returns a cryptographically secure 32-byte token,
// hex-encoded to 64 characters.
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
