package authcore_test

import (
	"encoding/json"
	"strings"
	"testing"

	ac "github.com/authcore-io/authcore"
	"github.com/authcore-io/authcore/stores/mem"
)

func validOAuthConfig(id string) *ac.OAuthProviderConfig {
	return &ac.OAuthProviderConfig{
		ID:               id,
		Label:            id,
		ClientID:         "cid",
		ClientSecret:     "secret",
		AuthorizationURL: "https://example.com/auth",
		TokenURL:         "https://example.com/token",
		UserInfoURL:      "https://example.com/userinfo",
		Profile:          ac.GoogleProfileMapper,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ac.Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *ac.Config) {},
		},
		{
			name: "mismatched oauth key",
			mutate: func(c *ac.Config) {
				c.OAuth["other"] = validOAuthConfig("google")
			},
			wantErr: "mismatched id",
		},
		{
			name: "missing credentials",
			mutate: func(c *ac.Config) {
				c.OAuth["google"].ClientSecret = ""
			},
			wantErr: "client credentials",
		},
		{
			name: "missing endpoints",
			mutate: func(c *ac.Config) {
				c.OAuth["google"].TokenURL = ""
			},
			wantErr: "endpoint urls",
		},
		{
			name: "missing profile mapper",
			mutate: func(c *ac.Config) {
				c.OAuth["google"].Profile = nil
			},
			wantErr: "profile mapper",
		},
		{
			name: "otp without target field",
			mutate: func(c *ac.Config) {
				c.OTP["sms"].TargetField = ""
			},
			wantErr: "target field",
		},
		{
			name: "otp without verify",
			mutate: func(c *ac.Config) {
				c.OTP["sms"].Verify = nil
			},
			wantErr: "send/verify",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ac.Config{
				OAuth: map[string]*ac.OAuthProviderConfig{"google": validOAuthConfig("google")},
				OTP:   map[string]*ac.OTPProviderConfig{"sms": smsProvider("123456")},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	bad := &ac.Config{
		OAuth: map[string]*ac.OAuthProviderConfig{"google": {ID: "google"}},
	}
	if _, err := ac.New(bad, mem.New()); err == nil {
		t.Fatal("expected error for incomplete provider")
	}
	good := &ac.Config{}
	if _, err := ac.New(good, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestPublicConfigOmitsSecrets(t *testing.T) {
	cfg := &ac.Config{
		OAuth: map[string]*ac.OAuthProviderConfig{"google": validOAuthConfig("google")},
		OTP:   map[string]*ac.OTPProviderConfig{"sms": smsProvider("123456")},
	}
	public := cfg.Public()

	oauth, ok := public.OAuth["google"]
	if !ok {
		t.Fatal("missing google entry")
	}
	if oauth.Type != "oauth" || oauth.ClientID != "cid" {
		t.Errorf("unexpected oauth projection: %+v", oauth)
	}
	otp, ok := public.OTP["sms"]
	if !ok {
		t.Fatal("missing sms entry")
	}
	if otp.Type != "otp" || otp.Label != "SMS" {
		t.Errorf("unexpected otp projection: %+v", otp)
	}

	// The serialized form must never leak the client secret or the
	// userinfo endpoint.
	raw, err := json.Marshal(public)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, leaked := range []string{"secret", "userinfo"} {
		if strings.Contains(string(raw), leaked) {
			t.Errorf("public config leaks %q: %s", leaked, raw)
		}
	}
}

func TestProviderLookup(t *testing.T) {
	cfg := &ac.Config{
		OAuth: map[string]*ac.OAuthProviderConfig{"google": validOAuthConfig("google")},
		OTP:   map[string]*ac.OTPProviderConfig{"sms": smsProvider("123456")},
	}
	if _, err := cfg.OAuthProvider("google"); err != nil {
		t.Errorf("OAuthProvider(google): %v", err)
	}
	if _, err := cfg.OTPProvider("sms"); err != nil {
		t.Errorf("OTPProvider(sms): %v", err)
	}
	if _, err := cfg.OAuthProvider("sms"); ac.CodeOf(err) != ac.ErrCodeUnknownProvider {
		t.Errorf("oauth lookup of otp key must fail, err=%v", err)
	}
	if _, err := cfg.OTPProvider("google"); ac.CodeOf(err) != ac.ErrCodeUnknownProvider {
		t.Errorf("otp lookup of oauth key must fail, err=%v", err)
	}
}

func TestOTPVerifierContact(t *testing.T) {
	verifier := &ac.OTPVerifier{Provider: smsProvider("123456")}
	contact, err := verifier.Contact(map[string]string{"phone": "+15551234"})
	if err != nil || contact != "+15551234" {
		t.Fatalf("Contact = %q, %v", contact, err)
	}
}
