package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/adapters/logger"
	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/contextkeys"
)

const testSecret = "test-secret"

func testProvider(issuer string) config.Provider {
	return config.StaticProvider{Config: &config.Config{Auth: config.AuthConfig{JWTSecret: testSecret, JWTIssuer: issuer}}}
}

func TestJWTIdentityResolver(t *testing.T) {
	r := NewJWTIdentityResolver(testProvider("forum"))
	valid := jwt.RegisteredClaims{Issuer: "forum", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tok, err := SignIdentityToken(testSecret, domain.Identity{ID: "u1", Role: domain.RoleAdmin}, valid)
	require.NoError(t, err)
	id, err := r.Resolve(t.Context(), tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "u1", Role: domain.RoleAdmin}, id)

	cases := map[string]func() string{
		"wrong secret": func() string {
			s, _ := SignIdentityToken("other", domain.Identity{ID: "u1", Role: domain.RoleMember}, valid)
			return s
		},
		"expired": func() string {
			s, _ := SignIdentityToken(testSecret, domain.Identity{ID: "u1", Role: domain.RoleMember}, jwt.RegisteredClaims{
				Issuer: "forum", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			})
			return s
		},
		"wrong issuer": func() string {
			s, _ := SignIdentityToken(testSecret, domain.Identity{ID: "u1", Role: domain.RoleMember}, jwt.RegisteredClaims{
				Issuer: "elsewhere", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			})
			return s
		},
		"unknown role": func() string {
			s, _ := SignIdentityToken(testSecret, domain.Identity{ID: "u1", Role: "owner"}, valid)
			return s
		},
		"missing id": func() string {
			s, _ := SignIdentityToken(testSecret, domain.Identity{Role: domain.RoleMember}, valid)
			return s
		},
		"no expiry": func() string {
			s, _ := SignIdentityToken(testSecret, domain.Identity{ID: "u1", Role: domain.RoleMember}, jwt.RegisteredClaims{Issuer: "forum"})
			return s
		},
		"garbage": func() string { return "not-a-token" },
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(t.Context(), mk())
			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	log := logger.NewFromZap(zaptest.NewLogger(t))
	mw := RequireIdentity(NewJWTIdentityResolver(testProvider("")), log)

	var seen domain.Identity
	h := RequestIDMiddleware(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		assert.Equal(t, "u7", r.Context().Value(contextkeys.UserIDKey))
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":401,"message":"Unauthorized"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(XRequestIDHeader))

	tok, err := SignIdentityToken(testSecret, domain.Identity{ID: "u7", Role: domain.RoleMember}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.Identity{ID: "u7", Role: domain.RoleMember}, seen)
}

func TestRequireIdentity_MissingSecretIsServerError(t *testing.T) {
	log := logger.NewFromZap(zaptest.NewLogger(t))
	mw := RequireIdentity(NewJWTIdentityResolver(config.StaticProvider{Config: &config.Config{}}), log)
	h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("must not be reached") }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	log := logger.NewFromZap(zaptest.NewLogger(t))
	h := RecoverMiddleware(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
