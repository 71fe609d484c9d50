// Package grpc provides server interceptors that validate bearer session
// tokens carried in gRPC metadata and expose the resolved session to
// service handlers.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/authcore-io/authcore"
)

// DefaultMetadataKey is the default gRPC metadata key the bearer token is
// read from. The value may carry an optional "Bearer " prefix.
const DefaultMetadataKey = "authorization"

type sessionKey struct{}

// WithSession returns a context carrying the resolved session handle.
func WithSession(ctx context.Context, handle *authcore.SessionHandle) context.Context {
	return context.WithValue(ctx, sessionKey{}, handle)
}

// SessionFromContext returns the session handle resolved by the auth
// interceptor, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *authcore.SessionHandle {
	if h, ok := ctx.Value(sessionKey{}).(*authcore.SessionHandle); ok {
		return h
	}
	return nil
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous
// requests.
func UserIDFromContext(ctx context.Context) string {
	if h := SessionFromContext(ctx); h != nil {
		return h.UserID
	}
	return ""
}

// IsAuthenticated reports whether the context carries a resolved session.
func IsAuthenticated(ctx context.Context) bool {
	return SessionFromContext(ctx) != nil
}

// TokenToOutgoingContext attaches a bearer token to outgoing gRPC metadata
// under the default key, for clients calling an authenticated service.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKey)
}

// TokenToOutgoingContextWithKey attaches a bearer token under a custom key.
func TokenToOutgoingContextWithKey(ctx context.Context, token, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}
