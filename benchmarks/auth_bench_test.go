package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitlab.com/timkado/api/forum-service/benchmarks/mocks"
	"gitlab.com/timkado/api/forum-service/benchmarks/utils"
	"gitlab.com/timkado/api/forum-service/internal/adapters/middleware"
)

// setupAuthBenchmark creates a resolver and a generator sharing one secret.
func setupAuthBenchmark(b *testing.B) (*middleware.JWTIdentityResolver, *utils.TokenGenerator) {
	b.Helper()

	mockConfig := mocks.NewMockConfigProvider()
	cfg := mockConfig.Get()

	tokenGen, err := utils.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		b.Fatalf("Failed to create token generator: %v", err)
	}
	return middleware.NewJWTIdentityResolver(mockConfig), tokenGen
}

// BenchmarkIdentityResolution measures bearer token verification.
func BenchmarkIdentityResolution(b *testing.B) {
	resolver, tokenGen := setupAuthBenchmark(b)
	ctx := context.Background()

	b.Run("ValidMemberToken", func(b *testing.B) {
		token, err := tokenGen.GenerateMemberToken("bench-user", time.Hour)
		if err != nil {
			b.Fatalf("Failed to generate token: %v", err)
		}

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := resolver.Resolve(ctx, token); err != nil {
					b.Errorf("Resolve failed: %v", err)
				}
			}
		})
	})

	b.Run("ExpiredToken", func(b *testing.B) {
		token, err := tokenGen.GenerateExpiredToken("bench-user")
		if err != nil {
			b.Fatalf("Failed to generate token: %v", err)
		}
		metrics := utils.NewForumMetrics()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := resolver.Resolve(ctx, token)
			metrics.RecordAuth(err)
		}
		b.StopTimer()

		if metrics.AuthSuccesses > 0 {
			b.Errorf("Expired tokens must never resolve, got %d successes", metrics.AuthSuccesses)
		}
	})

	b.Run("ManyDistinctTokens", func(b *testing.B) {
		tokens, err := tokenGen.GenerateBatchTokens(1000, time.Hour)
		if err != nil {
			b.Fatalf("Failed to generate tokens: %v", err)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			identity, err := resolver.Resolve(ctx, tokens[i%len(tokens)])
			if err != nil {
				b.Errorf("Resolve failed: %v", err)
				continue
			}
			if want := fmt.Sprintf("bench-user-%d", i%len(tokens)); identity.ID != want {
				b.Errorf("Expected identity %s, got %s", want, identity.ID)
			}
		}
	})
}
