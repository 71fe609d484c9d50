package authcore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// StateValidity bounds how long an authorization redirect may sit before
// the callback comes home.
const StateValidity = 30 * time.Minute

// AuthCodeURL builds the provider authorization redirect for a browser
// flow. The embedded state is an HS256-signed token carrying the provider
// key, the redirect URI and a random nonce, so the callback handler can
// recover both and reject forged or stale callbacks without any
// server-side state.
func (a *Auth) AuthCodeURL(providerKey, redirectURI string) (string, error) {
	provider, err := a.Providers.OAuthProvider(providerKey)
	if err != nil {
		return "", err
	}
	state, err := a.signState(providerKey, redirectURI)
	if err != nil {
		return "", err
	}
	conf := oauth2.Config{
		ClientID:    provider.ClientID,
		RedirectURL: redirectURI,
		Scopes:      provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  provider.AuthorizationURL,
			TokenURL: provider.TokenURL,
		},
	}
	return conf.AuthCodeURL(state), nil
}

// VerifyState checks a state parameter returned by a provider callback and
// returns the provider key and redirect URI it was minted for.
func (a *Auth) VerifyState(state string) (providerKey, redirectURI string, err error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (any, error) {
		return a.StateKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.Now))
	if err != nil || !token.Valid {
		return "", "", WrapAuthError(KindValidation, ErrCodeInvalidState,
			"oauth state is invalid or expired", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", NewAuthError(KindValidation, ErrCodeInvalidState,
			"oauth state has no claims")
	}
	providerKey, _ = claims["provider"].(string)
	redirectURI, _ = claims["redirect_uri"].(string)
	if providerKey == "" {
		return "", "", NewAuthError(KindValidation, ErrCodeInvalidState,
			"oauth state has no provider")
	}
	if _, err := a.Providers.OAuthProvider(providerKey); err != nil {
		return "", "", err
	}
	return providerKey, redirectURI, nil
}

func (a *Auth) signState(providerKey, redirectURI string) (string, error) {
	nonce, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	now := a.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"provider":     providerKey,
		"redirect_uri": redirectURI,
		"nonce":        nonce[:16],
		"iat":          now.Unix(),
		"exp":          now.Add(StateValidity).Unix(),
	})
	signed, err := token.SignedString(a.StateKey)
	if err != nil {
		return "", fmt.Errorf("signing oauth state: %w", err)
	}
	return signed, nil
}
