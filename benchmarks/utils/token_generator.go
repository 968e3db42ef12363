package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/timkado/api/forum-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// TokenGenerator mints bearer tokens the identity middleware accepts.
type TokenGenerator struct {
	secret string
	issuer string
}

// NewTokenGenerator creates a new token generator for the given HS256 secret.
func NewTokenGenerator(secret, issuer string) (*TokenGenerator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &TokenGenerator{secret: secret, issuer: issuer}, nil
}

// GenerateToken signs a token for identity that expires after ttl.
func (tg *TokenGenerator) GenerateToken(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	return middleware.SignIdentityToken(tg.secret, identity, jwt.RegisteredClaims{
		Issuer:    tg.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

// GenerateMemberToken signs a member token valid for ttl.
func (tg *TokenGenerator) GenerateMemberToken(userID string, ttl time.Duration) (string, error) {
	return tg.GenerateToken(domain.Identity{ID: userID, Role: domain.RoleMember}, ttl)
}

// GenerateAdminToken signs an admin token valid for ttl.
func (tg *TokenGenerator) GenerateAdminToken(userID string, ttl time.Duration) (string, error) {
	return tg.GenerateToken(domain.Identity{ID: userID, Role: domain.RoleAdmin}, ttl)
}

// GenerateExpiredToken signs a member token that expired an hour ago.
func (tg *TokenGenerator) GenerateExpiredToken(userID string) (string, error) {
	return tg.GenerateToken(domain.Identity{ID: userID, Role: domain.RoleMember}, -time.Hour)
}

// GenerateBatchTokens signs count member tokens with distinct user ids.
func (tg *TokenGenerator) GenerateBatchTokens(count int, ttl time.Duration) ([]string, error) {
	tokens := make([]string, count)
	for i := range tokens {
		token, err := tg.GenerateMemberToken(fmt.Sprintf("bench-user-%d", i), ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token %d: %w", i, err)
		}
		tokens[i] = token
	}
	return tokens, nil
}
