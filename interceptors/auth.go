package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"milorg-admin/apperr"
	"milorg-admin/auth"
)

type contextKey string

// IdentityKey holds the *auth.Identity of an authenticated call.
const IdentityKey contextKey = "identity"

// AuthInterceptor verifies the bearer token in the "authorization" metadata.
// Methods listed in public may be called without one; when a token is still
// sent to a public method it is verified and attached.
func AuthInterceptor(verifier auth.Verifier, public ...string) grpc.UnaryServerInterceptor {
	publicMethods := make(map[string]bool, len(public))
	for _, m := range public {
		publicMethods[m] = true
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token, err := bearerToken(ctx)
		if err != nil {
			return nil, Status(err)
		}
		if token == "" {
			if publicMethods[info.FullMethod] {
				return handler(ctx, req)
			}
			return nil, Status(apperr.ErrTokenMissing)
		}

		identity, err := verifier.Verify(ctx, token)
		if err != nil {
			return nil, Status(err)
		}
		return handler(context.WithValue(ctx, IdentityKey, identity), req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", nil
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperr.ErrTokenInvalid.WithMessage("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext returns the identity attached by AuthInterceptor.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(*auth.Identity)
	return identity, ok && identity != nil
}
