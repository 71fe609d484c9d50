package authcore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

type sessionContextKey struct{}

// SessionFromContext returns the authenticated session handle the bearer
// middleware stored on the request, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *SessionHandle {
	if h, ok := ctx.Value(sessionContextKey{}).(*SessionHandle); ok {
		return h
	}
	return nil
}

// Handlers is an optional HTTP binding over the core operations. It is not
// a server: the host mounts Router() wherever it wants, usually under an
// /auth prefix.
type Handlers struct {
	Auth *Auth

	// Session, when set, mirrors issued bearer tokens into a server-side
	// session so browser clients don't have to hold the token themselves.
	// The host must wrap the router with Session.LoadAndSave.
	Session *scs.SessionManager

	// SessionTokenKey is the scs key the bearer token is stored under.
	// Defaults to "authToken".
	SessionTokenKey string
}

// EnsureDefaults fills in defaults for any unset optional fields.
func (h *Handlers) EnsureDefaults() *Handlers {
	if h.SessionTokenKey == "" {
		h.SessionTokenKey = "authToken"
	}
	return h
}

// Router builds the route table:
//
//	GET    /config                  public provider registry
//	GET    /authorize/{provider}    redirect to the provider's consent page
//	POST   /callback                {code, provider, redirectUri} -> session token
//	POST   /otp/send                {provider, input}
//	POST   /otp/verify              {provider, input, code} -> session token
//	GET    /sessions                [authenticated]
//	POST   /logout                  [authenticated]
//	POST   /sessions/revoke_all     [authenticated]
//	DELETE /sessions/{id}           [authenticated]
func (h *Handlers) Router() *mux.Router {
	h.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/config", h.handleConfig).Methods(http.MethodGet)
	r.HandleFunc("/authorize/{provider}", h.handleAuthorize).Methods(http.MethodGet)
	r.HandleFunc("/callback", h.handleOAuthCallback).Methods(http.MethodPost)
	r.HandleFunc("/otp/send", h.handleSendOTP).Methods(http.MethodPost)
	r.HandleFunc("/otp/verify", h.handleVerifyOTP).Methods(http.MethodPost)
	r.Handle("/sessions", h.requireSession(h.handleListSessions)).Methods(http.MethodGet)
	r.Handle("/logout", h.requireSession(h.handleLogout)).Methods(http.MethodPost)
	r.Handle("/sessions/revoke_all", h.requireSession(h.handleRevokeAll)).Methods(http.MethodPost)
	r.Handle("/sessions/{id}", h.requireSession(h.handleRevoke)).Methods(http.MethodDelete)
	return r
}

func (h *Handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Auth.PublicConfig())
}

func (h *Handlers) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	redirectURI := r.URL.Query().Get("redirectUri")
	target, err := h.Auth.AuthCodeURL(provider, redirectURI)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		Provider    string `json:"provider"`
		RedirectURI string `json:"redirectUri"`
		State       string `json:"state,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	// Browser flows started through /authorize carry a signed state that
	// overrides the client-declared provider and redirect URI.
	if req.State != "" {
		provider, redirectURI, err := h.Auth.VerifyState(req.State)
		if err != nil {
			h.writeError(w, err)
			return
		}
		req.Provider = provider
		req.RedirectURI = redirectURI
	}

	token, err := h.Auth.OAuthCallback(r.Context(), req.Provider, req.Code, req.RedirectURI, requestMeta(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Session != nil {
		h.Session.Put(r.Context(), h.SessionTokenKey, token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionToken": token})
}

func (h *Handlers) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string            `json:"provider"`
		Input    map[string]string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	ok, err := h.Auth.SendOTP(r.Context(), req.Provider, req.Input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": ok})
}

func (h *Handlers) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string            `json:"provider"`
		Input    map[string]string `json:"input"`
		Code     string            `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	token, err := h.Auth.VerifyOTP(r.Context(), req.Provider, req.Input, req.Code, requestMeta(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Session != nil {
		h.Session.Put(r.Context(), h.SessionTokenKey, token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionToken": token})
}

func (h *Handlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	sessions, err := h.Auth.ListSessions(r.Context(), handle.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	if err := h.Auth.Logout(r.Context(), handle); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Session != nil {
		h.Session.Remove(r.Context(), h.SessionTokenKey)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	if err := h.Auth.RevokeAll(r.Context(), handle.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleRevoke(w http.ResponseWriter, r *http.Request) {
	handle := SessionFromContext(r.Context())
	sessionID := mux.Vars(r)["id"]
	if err := h.Auth.Revoke(r.Context(), handle.UserID, sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession authenticates the request's bearer token and stores the
// session handle on the context. Anonymous requests are rejected with 401,
// never silently passed through.
func (h *Handlers) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle, err := h.Auth.Authenticate(r.Context(), h.bearerToken(r))
		if err != nil {
			h.writeError(w, err)
			return
		}
		if handle == nil {
			h.writeError(w, NewAuthError(KindUnauthenticated, ErrCodeUnauthenticated,
				"authentication required"))
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header, falling
// back to the scs session for browser clients when one is configured.
func (h *Handlers) bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if h.Session != nil {
		return h.Session.GetString(r.Context(), h.SessionTokenKey)
	}
	return ""
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{Agent: r.UserAgent(), IP: clientIP(r)}
}

// clientIP extracts the originating client IP from the request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ErrCodeStorage
	message := "internal error"

	var ae *AuthError
	if errors.As(err, &ae) {
		code = ae.Code
		message = ae.Message
		switch ae.Kind {
		case KindConfiguration, KindValidation:
			status = http.StatusBadRequest
		case KindUpstreamAuth:
			status = http.StatusBadGateway
		case KindConflict:
			status = http.StatusConflict
		case KindNotFound:
			status = http.StatusNotFound
		case KindUnauthenticated:
			status = http.StatusUnauthorized
		}
	}
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": message,
	})
}

func (h *Handlers) writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             "invalid_request",
		"error_description": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
