package authcore_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ac "github.com/authcore-io/authcore"
)

func setupHandlersTest(t *testing.T) (*ac.Handlers, *ac.Auth) {
	t.Helper()
	auth, _, _, _ := setupAuthTest(t)
	return (&ac.Handlers{Auth: auth}).EnsureDefaults(), auth
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testMeta.Agent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConfigEndpoint(t *testing.T) {
	handlers, _ := setupHandlersTest(t)
	router := handlers.Router()

	w := doJSON(t, router, http.MethodGet, "/config", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body ac.PublicConfig
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := body.OAuth["mock"]; !ok {
		t.Error("missing oauth provider in public config")
	}
	if _, ok := body.OTP["sms"]; !ok {
		t.Error("missing otp provider in public config")
	}
}

func TestAuthorizeEndpointRedirects(t *testing.T) {
	handlers, _ := setupHandlersTest(t)
	router := handlers.Router()

	w := doJSON(t, router, http.MethodGet, "/authorize/mock?redirectUri=https://app.example.com/cb", nil, "")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body=%s)", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc == "" {
		t.Error("missing Location header")
	}

	w = doJSON(t, router, http.MethodGet, "/authorize/nope", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown provider status = %d, want 400", w.Code)
	}
}

func TestOTPEndpointsIssueSession(t *testing.T) {
	handlers, auth := setupHandlersTest(t)
	router := handlers.Router()

	w := doJSON(t, router, http.MethodPost, "/otp/send", map[string]any{
		"provider": "sms",
		"input":    map[string]string{"phone": "+15551234"},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d (body=%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/otp/verify", map[string]any{
		"provider": "sms",
		"input":    map[string]string{"phone": "+15551234"},
		"code":     "123456",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d (body=%s)", w.Code, w.Body.String())
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	token := body["sessionToken"]
	if token == "" {
		t.Fatal("missing sessionToken in response")
	}
	if h, err := auth.Authenticate(context.Background(), token); err != nil || h == nil {
		t.Fatalf("issued token does not authenticate: %v, %v", err, h)
	}

	// Wrong code maps to 400.
	w = doJSON(t, router, http.MethodPost, "/otp/verify", map[string]any{
		"provider": "sms",
		"input":    map[string]string{"phone": "+15551234"},
		"code":     "000000",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("wrong code status = %d, want 400", w.Code)
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != ac.ErrCodeInvalidCode {
		t.Errorf("error = %q, want %q", body["error"], ac.ErrCodeInvalidCode)
	}
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	handlers, _ := setupHandlersTest(t)
	router := handlers.Router()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/sessions"},
		{http.MethodPost, "/logout"},
		{http.MethodPost, "/sessions/revoke_all"},
		{http.MethodDelete, "/sessions/some-id"},
	} {
		w := doJSON(t, router, tc.method, tc.path, nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, w.Code)
		}
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	handlers, auth := setupHandlersTest(t)
	router := handlers.Router()

	verify := func() string {
		w := doJSON(t, router, http.MethodPost, "/otp/verify", map[string]any{
			"provider": "sms",
			"input":    map[string]string{"phone": "+15551234"},
			"code":     "123456",
		}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("verify status = %d", w.Code)
		}
		var body map[string]string
		json.Unmarshal(w.Body.Bytes(), &body)
		return body["sessionToken"]
	}
	token1 := verify()
	token2 := verify()

	// Both sessions are listed, tokens never echoed back.
	w := doJSON(t, router, http.MethodGet, "/sessions", nil, token1)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listed struct {
		Sessions []ac.SessionSummary `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding sessions: %v", err)
	}
	if len(listed.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(listed.Sessions))
	}
	if bytes.Contains(w.Body.Bytes(), []byte(token1)) || bytes.Contains(w.Body.Bytes(), []byte(token2)) {
		t.Error("session list must not contain bearer tokens")
	}

	// Revoke the other session by id, keeping token1's alive.
	handle1, err := auth.Authenticate(context.Background(), token1)
	if err != nil || handle1 == nil {
		t.Fatalf("authenticating token1: %v", err)
	}
	var victim string
	for _, s := range listed.Sessions {
		if s.ID != handle1.ID {
			victim = s.ID
		}
	}
	w = doJSON(t, router, http.MethodDelete, "/sessions/"+victim, nil, token1)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d (body=%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodDelete, "/sessions/no-such-id", nil, token1)
	if w.Code != http.StatusNotFound {
		t.Errorf("revoke unknown id: status = %d, want 404", w.Code)
	}

	// Logout kills the presented session.
	w = doJSON(t, router, http.MethodPost, "/logout", nil, token1)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/sessions", nil, token1)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("post-logout list: status = %d, want 401", w.Code)
	}
}

func TestRevokeAllOverHTTP(t *testing.T) {
	handlers, _ := setupHandlersTest(t)
	router := handlers.Router()

	w := doJSON(t, router, http.MethodPost, "/otp/verify", map[string]any{
		"provider": "sms",
		"input":    map[string]string{"phone": "+15551234"},
		"code":     "123456",
	}, "")
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	token := body["sessionToken"]

	w = doJSON(t, router, http.MethodPost, "/sessions/revoke_all", nil, token)
	if w.Code != http.StatusNoContent {
		t.Fatalf("revoke_all status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/sessions", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("after revoke_all: status = %d, want 401", w.Code)
	}
}

func TestCallbackEndpointBadBody(t *testing.T) {
	handlers, _ := setupHandlersTest(t)
	router := handlers.Router()

	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
