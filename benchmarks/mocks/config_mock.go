package mocks

import (
	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
)

// MockConfigProvider implements config.Provider for benchmarking
type MockConfigProvider struct {
	config *config.Config
}

// NewMockConfigProvider creates a new mock config provider with benchmark settings
func NewMockConfigProvider() *MockConfigProvider {
	return &MockConfigProvider{
		config: &config.Config{
			Server: config.ServerConfig{
				HTTPPort: 0, // Random port
				PodID:    "benchmark-test-pod",
			},
			Store: config.StoreConfig{Driver: config.StoreDriverMemory},
			Log: config.LogConfig{
				Level: "error", // Minimize I/O overhead during benchmarks
			},
			Auth: config.AuthConfig{
				JWTSecret: "benchmark-jwt-secret-32chars-1234",
				JWTIssuer: "forum-benchmark",
			},
			Cache: config.CacheConfig{
				Backend:         config.BackendLocal,
				UsersTTLSeconds: 60,
			},
			Vote: config.VoteConfig{
				LockBackend:         config.BackendLocal,
				LockTTLSeconds:      5,
				LockMaxRetries:      50,
				LockRetryDelayMs:    1,
				LockMaxRetryDelayMs: 20,
			},
			App: config.AppConfig{
				ServiceName:            "forum-service-benchmark",
				Version:                "test",
				ShutdownTimeoutSeconds: 1,
				WriteTimeoutSeconds:    5,
			},
		},
	}
}

// Get implements config.Provider
func (m *MockConfigProvider) Get() *config.Config {
	return m.config
}

// UpdateConfig allows updating config during tests
func (m *MockConfigProvider) UpdateConfig(cfg *config.Config) {
	m.config = cfg
}
