package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Token wraps provider config and raw token material for the duration of
// one request. It is never persisted directly; its fields are projected
// into an Account at link time.
type Token struct {
	provider *OAuthProviderConfig

	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    int64 // unix seconds, 0 when the provider reported none
}

// Provider returns the provider key this token was minted for.
func (t *Token) Provider() string { return t.provider.ID }

// Client performs the wire-level OAuth flows for one configured provider:
// authorization-code exchange, refresh-token grant, and the userinfo fetch.
// Client authentication uses HTTP Basic credentials built from the client
// id/secret, which is what the token endpoints here expect.
type Client struct {
	Provider *OAuthProviderConfig

	// HTTPClient is used for all outbound calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// NewClient returns a Client bound to the given provider config.
func NewClient(provider *OAuthProviderConfig) *Client {
	return &Client{Provider: provider}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.Provider.ClientID,
		ClientSecret: c.Provider.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       c.Provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.Provider.AuthorizationURL,
			TokenURL:  c.Provider.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Exchange performs the authorization-code grant against the provider's
// token endpoint and returns the resulting token handle. Token fields come
// verbatim from the provider's response; fields the provider omitted stay
// absent rather than defaulted.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
	tok, err := c.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "token exchange failed", err)
	}
	return c.wrap(tok), nil
}

// Refresh performs the refresh-token grant. The caller is responsible for
// persisting the new token material if it should survive this request.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
	src := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "token refresh failed", err)
	}
	return c.wrap(tok), nil
}

// TokenFromAccount reconstructs a token handle purely from persisted
// account fields. No network call is made.
func (c *Client) TokenFromAccount(account *Account) (*Token, error) {
	if account.AccessToken == "" {
		return nil, NewAuthError(KindValidation, ErrCodeMissingAccessToken,
			fmt.Sprintf("stored %s account has no access token", c.Provider.ID))
	}
	out := &Token{
		provider:    c.Provider,
		AccessToken: account.AccessToken,
		Scope:       account.Scope,
		ExpiresAt:   account.ExpiresAt,
	}
	if account.RefreshToken != nil {
		out.RefreshToken = *account.RefreshToken
	}
	return out, nil
}

// FetchProfile retrieves the provider's userinfo document with a bearer
// header and applies the provider's profile mapper to it.
func (c *Client) FetchProfile(ctx context.Context, token *Token) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Provider.UserInfoURL, nil)
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "building userinfo request failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "userinfo request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "reading userinfo response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(c.Provider.ID,
			fmt.Sprintf("userinfo endpoint returned status %d", resp.StatusCode), nil)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, upstreamError(c.Provider.ID, "parsing userinfo response failed", err)
	}

	profile, err := c.Provider.Profile(raw)
	if err != nil {
		return nil, upstreamError(c.Provider.ID, "mapping userinfo response failed", err)
	}
	return profile, nil
}

func (c *Client) wrap(tok *oauth2.Token) *Token {
	out := &Token{
		provider:     c.Provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if s, ok := tok.Extra("scope").(string); ok {
		out.Scope = s
	}
	if !tok.Expiry.IsZero() {
		out.ExpiresAt = tok.Expiry.Unix()
	}
	return out
}

func upstreamError(provider, message string, err error) *AuthError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		message = fmt.Sprintf("%s (status %d)", message, re.Response.StatusCode)
	}
	return WrapAuthError(KindUpstreamAuth, ErrCodeUpstreamAuth,
		fmt.Sprintf("%s: %s", provider, message), err)
}
