package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/authcore-io/authcore"
)

// Authenticator validates a bearer token and returns the session it names,
// or (nil, nil) for anonymous. (*authcore.Auth).Authenticate satisfies it.
type Authenticator func(ctx context.Context, bearerToken string) (*authcore.SessionHandle, error)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Authenticate resolves bearer tokens to sessions. Required.
	Authenticate Authenticator

	// MetadataKey is the metadata key holding the bearer token.
	// Defaults to "authorization".
	MetadataKey string

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but SessionFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// NewInterceptorConfig returns a config that requires auth for every method
// except the named public ones.
func NewInterceptorConfig(authenticate Authenticator, publicMethods ...string) *InterceptorConfig {
	config := &InterceptorConfig{
		Authenticate:  authenticate,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that resolves sessions when a token
// is present but never rejects anonymous requests.
func OptionalAuthConfig(authenticate Authenticator) *InterceptorConfig {
	return &InterceptorConfig{
		Authenticate: authenticate,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *InterceptorConfig) EnsureDefaults() {
	if c.MetadataKey == "" {
		c.MetadataKey = DefaultMetadataKey
	}
	if c.PublicMethods == nil {
		c.PublicMethods = make(map[string]bool)
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// bearer token from metadata into a session handle on the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config.EnsureDefaults()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns the stream counterpart of
// UnaryAuthInterceptor.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config.EnsureDefaults()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &sessionStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticate resolves the request's session and enforces the config's
// auth requirement for the method.
func authenticate(ctx context.Context, config *InterceptorConfig, fullMethod string) (context.Context, error) {
	handle, err := config.Authenticate(ctx, bearerFromMetadata(ctx, config.MetadataKey))
	if err != nil {
		return nil, status.Error(codes.Internal, "session lookup failed")
	}

	if handle == nil {
		if config.RequireAuth && !config.PublicMethods[fullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}
	return WithSession(ctx, handle), nil
}

// bearerFromMetadata extracts the bearer token from incoming metadata,
// stripping an optional "Bearer " prefix.
func bearerFromMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	value := values[0]
	if len(value) > 7 && strings.EqualFold(value[:7], "Bearer ") {
		value = value[7:]
	}
	return strings.TrimSpace(value)
}

// sessionStream overrides the stream context with the authenticated one.
type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionStream) Context() context.Context { return s.ctx }
