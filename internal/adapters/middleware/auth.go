package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/contextkeys"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// IdentityClaims is the token payload: the caller id and role.
type IdentityClaims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTIdentityResolver implements domain.IdentityResolver for HS256 tokens
// signed with the configured secret. Tokens are minted elsewhere.
type JWTIdentityResolver struct {
	cfgProvider config.Provider
}

// NewJWTIdentityResolver creates a new JWTIdentityResolver.
func NewJWTIdentityResolver(cfgProvider config.Provider) *JWTIdentityResolver {
	if cfgProvider == nil {
		panic("config provider cannot be nil in NewJWTIdentityResolver")
	}
	return &JWTIdentityResolver{cfgProvider: cfgProvider}
}

// Resolve implements domain.IdentityResolver.
func (r *JWTIdentityResolver) Resolve(_ context.Context, credential string) (domain.Identity, error) {
	authCfg := r.cfgProvider.Get().Auth
	if authCfg.JWTSecret == "" {
		return domain.Identity{}, fmt.Errorf("%w: jwt secret not configured", domain.ErrInternal)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if authCfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(authCfg.JWTIssuer))
	}

	claims := &IdentityClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return []byte(authCfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if claims.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: token carries no id", domain.ErrUnauthenticated)
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthenticated, claims.Role)
	}
	return domain.Identity{ID: claims.ID, Role: role}, nil
}

// SignIdentityToken mints an HS256 token for identity. Used by tests and tooling.
func SignIdentityToken(secret string, identity domain.Identity, registered jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		ID:               identity.ID,
		Role:             string(identity.Role),
		RegisteredClaims: registered,
	})
	return token.SignedString([]byte(secret))
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextkeys.IdentityKey).(domain.Identity)
	return id, ok
}

// WithIdentity stores identity in ctx, along with the id and role used by the logger.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	ctx = context.WithValue(ctx, contextkeys.IdentityKey, identity)
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, identity.ID)
	return context.WithValue(ctx, contextkeys.RoleKey, string(identity.Role))
}

// RequireIdentity rejects requests without a valid bearer token with 401.
func RequireIdentity(resolver domain.IdentityResolver, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := bearerToken(r)
			if !present {
				logger.Warn(r.Context(), "Authentication failed: bearer token missing",
					"path", r.URL.Path, "code", string(domain.CodeUnauthenticated))
				domain.Result{Status: http.StatusUnauthorized, Message: "Unauthorized"}.WriteJSON(w)
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				code := domain.CodeFor(err)
				if errors.Is(err, domain.ErrInternal) {
					logger.Error(r.Context(), "Authentication could not be performed", "path", r.URL.Path, "code", string(code), "error", err.Error())
					domain.Result{Status: http.StatusInternalServerError, Message: "Internal server error"}.WriteJSON(w)
					return
				}
				logger.Warn(r.Context(), "Authentication failed", "path", r.URL.Path, "code", string(code), "error", err.Error())
				domain.Result{Status: http.StatusUnauthorized, Message: "Unauthorized"}.WriteJSON(w)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			logger.Debug(ctx, "Authentication successful", "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(authorizationHeader)
	if h == "" {
		return "", false
	}
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return "", true
	}
	return strings.TrimSpace(h[len(bearerPrefix):]), true
}
