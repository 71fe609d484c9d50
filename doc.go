// Package authcore is an embeddable authentication and session lifecycle
// engine. It brokers third-party OAuth identities and one-time-passcode
// verification into long-lived bearer sessions, while delegating all
// persistence to a host-supplied storage adapter.
//
// # Architecture
//
// User: an identity record in your system (name, optional email, optional
// phone, optional profile image).
//
// Account: a link between a User and one external OAuth identity, carrying
// the provider token material captured at link time. One external identity
// links to at most one User.
//
// Session: a revocable bearer credential bound to a User. Sessions are
// never hard-deleted; revocation is a soft, irreversible state so audit
// history survives logout.
//
// # Basic Usage
//
// Configure providers and a store, then build the engine:
//
//	providers := &authcore.Config{
//	    OAuth: map[string]*authcore.OAuthProviderConfig{
//	        "github": authcore.GithubProvider(clientID, clientSecret),
//	    },
//	    OTP: map[string]*authcore.OTPProviderConfig{
//	        "sms": {ID: "sms", Label: "SMS", TargetField: "phone", Send: sendSMS, Verify: verifySMS},
//	    },
//	}
//
//	auth, err := authcore.New(providers, store)
//
// Complete a browser OAuth flow from your callback route:
//
//	token, err := auth.OAuthCallback(ctx, "github", code, redirectURI, authcore.RequestMeta{
//	    Agent: r.UserAgent(),
//	    IP:    clientIP,
//	})
//
// Authenticate subsequent requests with the bearer token:
//
//	handle, err := auth.Authenticate(ctx, bearer)
//	if handle == nil {
//	    // anonymous
//	}
//	user, err := auth.LoadUser(ctx, handle.UserID)
//
// # Store Implementations
//
// The core depends only on the Store interface. Reference implementations
// live in stores/mem (development and tests), stores/gorm (relational
// databases) and stores/gae (Cloud Datastore). Production hosts with their
// own data layer implement Store directly; the interface documents the
// uniqueness and atomicity guarantees each method must uphold.
//
// # Security
//
// Session tokens are cryptographically secure 32-byte values, hex-encoded
// to 64 characters, returned exactly once at issuance and never re-readable
// through any listing API. Sessions expire after ten years; revocation, not
// expiry, is the primary deactivation mechanism. OAuth state parameters are
// HMAC-signed with a 30 minute lifetime.
//
// # Transport Bindings
//
// The core is transport-agnostic. Handlers (HTTP, gorilla/mux) and the
// grpc subpackage (interceptors) are optional bindings over the same
// operations; hosts mount them or wire the operations into their own
// routing layer.
package authcore
