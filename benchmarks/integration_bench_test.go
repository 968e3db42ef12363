package benchmarks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/timkado/api/forum-service/benchmarks/mocks"
	"gitlab.com/timkado/api/forum-service/benchmarks/utils"
	apphttp "gitlab.com/timkado/api/forum-service/internal/adapters/http"
	"gitlab.com/timkado/api/forum-service/internal/adapters/memory"
	"gitlab.com/timkado/api/forum-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/forum-service/internal/application"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// setupIntegrationBenchmark wires the HTTP handlers over memory backends, the way bootstrap does.
func setupIntegrationBenchmark(b *testing.B) (http.Handler, domain.DocumentStore, *utils.TokenGenerator) {
	b.Helper()

	cfgProvider := mocks.NewMockConfigProvider()
	cfg := cfgProvider.Get()
	log := mocks.NewMockLogger()
	store := memory.NewDocumentStore()
	locker := application.NewKeyedMutex()
	events := mocks.NewMockEventPublisher()
	votes := application.NewVoteEngine(store, locker, events, log)
	cache := application.NewReadThroughCache(memory.NewCacheStore(time.Now), log)

	handlers := apphttp.NewHandlers(
		application.NewPostService(store, votes, events, log),
		application.NewCommentService(store, votes, events, log),
		application.NewUserService(store, cache, locker, events, cfgProvider, log),
		middleware.NewJWTIdentityResolver(cfgProvider),
		log,
	)
	mux := http.NewServeMux()
	handlers.Register(mux)

	tokenGen, err := utils.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		b.Fatalf("Failed to create token generator: %v", err)
	}
	return middleware.RequestIDMiddleware(middleware.RecoverMiddleware(log)(mux)), store, tokenGen
}

func serveBench(h http.Handler, method, target, token, body string) int {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

// BenchmarkHTTPFlows measures end-to-end request handling through auth, services and store.
func BenchmarkHTTPFlows(b *testing.B) {
	b.Run("CreatePost", func(b *testing.B) {
		h, _, tokenGen := setupIntegrationBenchmark(b)
		token, err := tokenGen.GenerateMemberToken("author", time.Hour)
		if err != nil {
			b.Fatalf("Failed to generate token: %v", err)
		}
		body := `{"title":"benchmark","description":"created over HTTP","categories":["science"]}`

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if code := serveBench(h, http.MethodPost, "/posts", token, body); code != http.StatusCreated {
				b.Errorf("Expected 201, got %d", code)
			}
		}
	})

	b.Run("ConcurrentVotesOverHTTP", func(b *testing.B) {
		h, store, tokenGen := setupIntegrationBenchmark(b)
		ids, err := utils.SeedPosts(context.Background(), store, testOwnerID, 8)
		if err != nil {
			b.Fatalf("Failed to seed posts: %v", err)
		}
		tokens, err := tokenGen.GenerateBatchTokens(64, time.Hour)
		if err != nil {
			b.Fatalf("Failed to generate tokens: %v", err)
		}
		var worker int64

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			w := int(atomic.AddInt64(&worker, 1))
			token := tokens[w%len(tokens)]
			i := w
			for pb.Next() {
				target := fmt.Sprintf("/posts/%s/vote", ids[i%len(ids)])
				if code := serveBench(h, http.MethodPost, target, token, ""); code != http.StatusOK {
					b.Errorf("Expected 200, got %d", code)
				}
				i++
			}
		})
	})

	b.Run("ListAllPosts", func(b *testing.B) {
		h, store, _ := setupIntegrationBenchmark(b)
		if _, err := utils.SeedPosts(context.Background(), store, testOwnerID, 200); err != nil {
			b.Fatalf("Failed to seed posts: %v", err)
		}

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if code := serveBench(h, http.MethodGet, "/allposts", "", ""); code != http.StatusOK {
					b.Errorf("Expected 200, got %d", code)
				}
			}
		})
	})
}
