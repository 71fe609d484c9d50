package authcore

import (
	"context"
	"fmt"
)

// UserProfile is the normalized shape every OAuth provider's userinfo
// response is mapped into before identity resolution.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// ProfileMapper normalizes a provider's raw userinfo JSON into a
// UserProfile. This is the single seam that keeps the OAuth client
// provider-agnostic.
type ProfileMapper func(raw map[string]any) (*UserProfile, error)

// OAuthProviderConfig describes one configured OAuth provider.
type OAuthProviderConfig struct {
	ID           string
	Label        string
	ClientID     string
	ClientSecret string
	Scopes       []string

	AuthorizationURL string
	TokenURL         string
	UserInfoURL      string

	Profile ProfileMapper
}

// OTPSendFunc delivers a one-time code to the contact described by input.
// Returns whether delivery was accepted.
type OTPSendFunc func(ctx context.Context, input map[string]string) (bool, error)

// OTPVerifyFunc checks a one-time code against the contact described by
// input. Returns whether the code was valid.
type OTPVerifyFunc func(ctx context.Context, input map[string]string, code string) (bool, error)

// OTPProviderConfig describes one configured OTP provider. TargetField
// names the user contact field the verified value attaches to; the core
// currently supports "phone" only.
type OTPProviderConfig struct {
	ID          string
	Label       string
	TargetField string
	Send        OTPSendFunc
	Verify      OTPVerifyFunc
}

// Config is the process-wide provider registry. Construct it once at
// startup, validate it, and pass it by reference; it must not be mutated
// afterwards.
type Config struct {
	OAuth map[string]*OAuthProviderConfig
	OTP   map[string]*OTPProviderConfig
}

// Validate checks that every configured provider is complete. Run at
// startup so lookups at request time can only fail with "unknown provider".
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("provider config is nil")
	}
	for key, p := range c.OAuth {
		if p == nil {
			return fmt.Errorf("oauth provider %q is nil", key)
		}
		if p.ID != key {
			return fmt.Errorf("oauth provider %q has mismatched id %q", key, p.ID)
		}
		if p.ClientID == "" || p.ClientSecret == "" {
			return fmt.Errorf("oauth provider %q is missing client credentials", key)
		}
		if p.AuthorizationURL == "" || p.TokenURL == "" || p.UserInfoURL == "" {
			return fmt.Errorf("oauth provider %q is missing endpoint urls", key)
		}
		if p.Profile == nil {
			return fmt.Errorf("oauth provider %q is missing a profile mapper", key)
		}
	}
	for key, p := range c.OTP {
		if p == nil {
			return fmt.Errorf("otp provider %q is nil", key)
		}
		if p.ID != key {
			return fmt.Errorf("otp provider %q has mismatched id %q", key, p.ID)
		}
		if p.TargetField == "" {
			return fmt.Errorf("otp provider %q is missing a target field", key)
		}
		if p.Send == nil || p.Verify == nil {
			return fmt.Errorf("otp provider %q is missing send/verify functions", key)
		}
	}
	return nil
}

// OAuthProvider resolves a configured OAuth provider by key.
func (c *Config) OAuthProvider(key string) (*OAuthProviderConfig, error) {
	if c != nil {
		if p, ok := c.OAuth[key]; ok {
			return p, nil
		}
	}
	return nil, NewAuthError(KindConfiguration, ErrCodeUnknownProvider,
		fmt.Sprintf("oauth provider %q is not configured", key))
}

// OTPProvider resolves a configured OTP provider by key.
func (c *Config) OTPProvider(key string) (*OTPProviderConfig, error) {
	if c != nil {
		if p, ok := c.OTP[key]; ok {
			return p, nil
		}
	}
	return nil, NewAuthError(KindConfiguration, ErrCodeUnknownProvider,
		fmt.Sprintf("otp provider %q is not configured", key))
}

// PublicOAuthProvider is the secret-free projection of an OAuth provider
// exposed to clients so they can start an authorization flow.
type PublicOAuthProvider struct {
	Type             string   `json:"type"`
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	ClientID         string   `json:"clientId"`
	Scopes           []string `json:"scope"`
	AuthorizationURL string   `json:"authorization"`
	TokenURL         string   `json:"token"`
}

// PublicOTPProvider is the secret-free projection of an OTP provider.
type PublicOTPProvider struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PublicConfig describes the configured providers without secrets.
type PublicConfig struct {
	OAuth map[string]PublicOAuthProvider `json:"oauth"`
	OTP   map[string]PublicOTPProvider   `json:"otp"`
}

// Public returns the client-facing view of the registry. Client secrets,
// userinfo endpoints and provider functions are never included.
func (c *Config) Public() PublicConfig {
	out := PublicConfig{
		OAuth: make(map[string]PublicOAuthProvider),
		OTP:   make(map[string]PublicOTPProvider),
	}
	if c == nil {
		return out
	}
	for key, p := range c.OAuth {
		out.OAuth[key] = PublicOAuthProvider{
			Type:             "oauth",
			ID:               p.ID,
			Label:            p.Label,
			ClientID:         p.ClientID,
			Scopes:           p.Scopes,
			AuthorizationURL: p.AuthorizationURL,
			TokenURL:         p.TokenURL,
		}
	}
	for key, p := range c.OTP {
		out.OTP[key] = PublicOTPProvider{
			Type:  "otp",
			ID:    p.ID,
			Label: p.Label,
		}
	}
	return out
}
