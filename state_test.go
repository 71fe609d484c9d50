package authcore_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	ac "github.com/authcore-io/authcore"
)

func TestAuthCodeURLRoundTrip(t *testing.T) {
	auth, _, provider, _ := setupAuthTest(t)

	redirect := "https://app.example.com/cb"
	raw, err := auth.AuthCodeURL("mock", redirect)
	if err != nil {
		t.Fatalf("AuthCodeURL failed: %v", err)
	}
	if !strings.HasPrefix(raw, provider.server.URL+"/authorize") {
		t.Fatalf("url = %q, want prefix %q", raw, provider.server.URL+"/authorize")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing url: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != redirect {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	state := q.Get("state")
	if state == "" {
		t.Fatal("missing state parameter")
	}

	providerKey, gotRedirect, err := auth.VerifyState(state)
	if err != nil {
		t.Fatalf("VerifyState failed: %v", err)
	}
	if providerKey != "mock" || gotRedirect != redirect {
		t.Errorf("got (%q, %q), want (mock, %q)", providerKey, gotRedirect, redirect)
	}
}

func TestVerifyStateRejections(t *testing.T) {
	auth, _, _, clock := setupAuthTest(t)

	raw, err := auth.AuthCodeURL("mock", "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("AuthCodeURL failed: %v", err)
	}
	parsed, _ := url.Parse(raw)
	state := parsed.Query().Get("state")

	t.Run("tampered", func(t *testing.T) {
		_, _, err := auth.VerifyState(state + "x")
		if ac.CodeOf(err) != ac.ErrCodeInvalidState {
			t.Errorf("code = %q, want %q (err=%v)", ac.CodeOf(err), ac.ErrCodeInvalidState, err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := auth.VerifyState("not-a-jwt")
		if ac.CodeOf(err) != ac.ErrCodeInvalidState {
			t.Errorf("code = %q (err=%v)", ac.CodeOf(err), err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(ac.StateValidity + time.Minute)
		_, _, err := auth.VerifyState(state)
		if ac.CodeOf(err) != ac.ErrCodeInvalidState {
			t.Errorf("code = %q (err=%v)", ac.CodeOf(err), err)
		}
	})

	t.Run("foreign key", func(t *testing.T) {
		other, _, _, _ := setupAuthTest(t)
		_, _, err := other.VerifyState(state)
		if ac.CodeOf(err) != ac.ErrCodeInvalidState {
			t.Errorf("state signed with another key must be rejected, code = %q", ac.CodeOf(err))
		}
	})
}

func TestAuthCodeURLUnknownProvider(t *testing.T) {
	auth, _, _, _ := setupAuthTest(t)
	_, err := auth.AuthCodeURL("nope", "")
	if ac.CodeOf(err) != ac.ErrCodeUnknownProvider {
		t.Fatalf("code = %q (err=%v)", ac.CodeOf(err), err)
	}
}
