package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/forum-service/internal/adapters/logger"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// MockEventPublisher implements domain.EventPublisher and counts events per type.
type MockEventPublisher struct {
	mu     sync.Mutex
	byType map[string]int64

	Published int64
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{byType: make(map[string]int64)}
}

// Publish implements domain.EventPublisher
func (m *MockEventPublisher) Publish(_ context.Context, event domain.ContentEvent) error {
	atomic.AddInt64(&m.Published, 1)
	m.mu.Lock()
	m.byType[event.Type]++
	m.mu.Unlock()
	return nil
}

// Count returns how many events of eventType were published.
func (m *MockEventPublisher) Count(eventType string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byType[eventType]
}

// Reset clears all counters
func (m *MockEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byType = make(map[string]int64)
	atomic.StoreInt64(&m.Published, 0)
}

// NewMockLogger returns a logger that discards everything.
func NewMockLogger() domain.Logger {
	return logger.NewFromZap(zap.NewNop())
}
