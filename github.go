package authcore

import (
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
)

const (
	githubAuthURL     = "https://github.com/login/oauth/authorize"
	githubTokenURL    = "https://github.com/login/oauth/access_token"
	githubUserInfoURL = "https://api.github.com/user"
)

// GithubProvider returns an OAuth provider config for GitHub sign-in,
// registered under the key "github".
func GithubProvider(clientID, clientSecret string) *OAuthProviderConfig {
	return &OAuthProviderConfig{
		ID:               "github",
		Label:            "GitHub",
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Scopes:           []string{"read:user", "user:email"},
		AuthorizationURL: githubAuthURL,
		TokenURL:         githubTokenURL,
		UserInfoURL:      githubUserInfoURL,
		Profile:          GithubProfileMapper,
	}
}

type githubEnv struct {
	ClientID     string `env:"OAUTH2_GITHUB_CLIENT_ID"`
	ClientSecret string `env:"OAUTH2_GITHUB_CLIENT_SECRET"`
}

// GithubProviderFromEnv builds the GitHub provider from the
// OAUTH2_GITHUB_CLIENT_ID and OAUTH2_GITHUB_CLIENT_SECRET environment
// variables.
func GithubProviderFromEnv() (*OAuthProviderConfig, error) {
	var cfg githubEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("loading github oauth env: %w", err)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("github oauth client credentials are not set")
	}
	return GithubProvider(cfg.ClientID, cfg.ClientSecret), nil
}

// GithubProfileMapper normalizes GitHub's /user payload. GitHub reports the
// numeric account id; it is rendered as a string since provider account ids
// are opaque here. Name falls back to the login handle when unset.
func GithubProfileMapper(raw map[string]any) (*UserProfile, error) {
	var id string
	switch v := raw["id"].(type) {
	case float64:
		id = strconv.FormatInt(int64(v), 10)
	case string:
		id = v
	}
	if id == "" {
		return nil, fmt.Errorf("github user response has no id")
	}
	name, _ := raw["name"].(string)
	if name == "" {
		name, _ = raw["login"].(string)
	}
	email, _ := raw["email"].(string)
	avatar, _ := raw["avatar_url"].(string)
	return &UserProfile{ID: id, Name: name, Email: email, Image: avatar}, nil
}
