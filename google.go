package authcore

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleProvider returns an OAuth provider config for Google sign-in,
// registered under the key "google".
func GoogleProvider(clientID, clientSecret string) *OAuthProviderConfig {
	return &OAuthProviderConfig{
		ID:           "google",
		Label:        "Google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		AuthorizationURL: googleAuthURL,
		TokenURL:         googleTokenURL,
		UserInfoURL:      googleUserInfoURL,
		Profile:          GoogleProfileMapper,
	}
}

type googleEnv struct {
	ClientID     string `env:"OAUTH2_GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"OAUTH2_GOOGLE_CLIENT_SECRET"`
}

// GoogleProviderFromEnv builds the Google provider from the
// OAUTH2_GOOGLE_CLIENT_ID and OAUTH2_GOOGLE_CLIENT_SECRET environment
// variables.
func GoogleProviderFromEnv() (*OAuthProviderConfig, error) {
	var cfg googleEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("loading google oauth env: %w", err)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth client credentials are not set")
	}
	return GoogleProvider(cfg.ClientID, cfg.ClientSecret), nil
}

// GoogleProfileMapper normalizes Google's v2 userinfo payload.
func GoogleProfileMapper(raw map[string]any) (*UserProfile, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("google userinfo response has no id")
	}
	name, _ := raw["name"].(string)
	email, _ := raw["email"].(string)
	picture, _ := raw["picture"].(string)
	return &UserProfile{ID: id, Name: name, Email: email, Image: picture}, nil
}
