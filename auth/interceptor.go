package auth

import (
	"chat-gate/errors"
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// WithUserID injects a verified identity into ctx.
func WithUserID(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, RolesKey, roles)
}

// UserIDFromContext returns the identity placed by the interceptors.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.ErrMissingToken
	}
	return userID, nil
}

// Authenticate validates a raw token (without the Bearer prefix) and returns
// ctx enriched with the identity it carries.
func (v *TokenVerifier) Authenticate(ctx context.Context, token string) (context.Context, error) {
	if token == "" {
		return nil, errors.ErrMissingToken
	}
	claims, err := v.ValidateToken(token)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}
	return WithUserID(ctx, claims.UserID, claims.Roles), nil
}

// fromMetadata reads the standard "Bearer <token>" authorization header.
func (v *TokenVerifier) fromMetadata(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.ErrMissingToken
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, errors.ErrMissingToken
	}
	return v.Authenticate(ctx, strings.TrimPrefix(values[0], "Bearer "))
}

// UnaryInterceptor handles JWT validation for incoming gRPC calls.
// Methods listed in public skip it.
func UnaryInterceptor(v *TokenVerifier, public ...string) grpc.UnaryServerInterceptor {
	publicMethods := toSet(public)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		newCtx, err := v.fromMetadata(ctx)
		if err != nil {
			return nil, errors.MapToGRPCError(err)
		}
		return handler(newCtx, req)
	}
}

// StreamInterceptor is the streaming counterpart of UnaryInterceptor.
func StreamInterceptor(v *TokenVerifier, public ...string) grpc.StreamServerInterceptor {
	publicMethods := toSet(public)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if _, ok := publicMethods[info.FullMethod]; ok {
			return handler(srv, ss)
		}
		newCtx, err := v.fromMetadata(ss.Context())
		if err != nil {
			return errors.MapToGRPCError(err)
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: newCtx})
	}
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context { return s.ctx }

func toSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}
