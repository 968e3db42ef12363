package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// BenchmarkRunner provides utilities for running benchmarks with metrics collection
type BenchmarkRunner struct {
	startTime      time.Time
	endTime        time.Time
	memStatsStart  runtime.MemStats
	memStatsEnd    runtime.MemStats
	goroutineStart int
	goroutineEnd   int

	operationCount int64
	errorCount     int64

	mu sync.RWMutex
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.startTime = time.Now()
	br.goroutineStart = runtime.NumGoroutine()
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.endTime = time.Now()
	br.goroutineEnd = runtime.NumGoroutine()
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// IncrementOperations increments the operation counter
func (br *BenchmarkRunner) IncrementOperations(count int64) {
	atomic.AddInt64(&br.operationCount, count)
}

// IncrementErrors increments the error counter
func (br *BenchmarkRunner) IncrementErrors(count int64) {
	atomic.AddInt64(&br.errorCount, count)
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.RLock()
	defer br.mu.RUnlock()

	duration := br.endTime.Sub(br.startTime)
	operations := atomic.LoadInt64(&br.operationCount)

	var opsPerSecond float64
	if duration.Seconds() > 0 {
		opsPerSecond = float64(operations) / duration.Seconds()
	}

	return &BenchmarkResults{
		Duration:            duration,
		Operations:          operations,
		Errors:              atomic.LoadInt64(&br.errorCount),
		OperationsPerSecond: opsPerSecond,
		MemoryAllocated:     br.memStatsEnd.TotalAlloc - br.memStatsStart.TotalAlloc,
		GoroutineLeak:       br.goroutineEnd - br.goroutineStart,
	}
}

// BenchmarkResults holds the results of a benchmark run
type BenchmarkResults struct {
	Duration            time.Duration `json:"duration_ns"`
	Operations          int64         `json:"operations"`
	Errors              int64         `json:"errors"`
	OperationsPerSecond float64       `json:"operations_per_second"`
	MemoryAllocated     uint64        `json:"memory_allocated_bytes"`
	GoroutineLeak       int           `json:"goroutine_leak"`
}

// String returns a human-readable representation of the results
func (r *BenchmarkResults) String() string {
	return fmt.Sprintf("Duration: %v, Ops: %d, Errors: %d, Ops/sec: %.2f, Memory: %d bytes, Goroutine leak: %d",
		r.Duration, r.Operations, r.Errors, r.OperationsPerSecond, r.MemoryAllocated, r.GoroutineLeak)
}

// ForumMetrics tracks forum-specific counters during benchmarks
type ForumMetrics struct {
	VotesAdded    int64
	VotesRemoved  int64
	VoteFailures  int64
	LoaderCalls   int64
	AuthSuccesses int64
	AuthFailures  int64
}

// NewForumMetrics creates a new forum metrics tracker
func NewForumMetrics() *ForumMetrics {
	return &ForumMetrics{}
}

// RecordVote records the outcome of one toggle.
func (fm *ForumMetrics) RecordVote(added bool, err error) {
	switch {
	case err != nil:
		atomic.AddInt64(&fm.VoteFailures, 1)
	case added:
		atomic.AddInt64(&fm.VotesAdded, 1)
	default:
		atomic.AddInt64(&fm.VotesRemoved, 1)
	}
}

// RecordAuth records one identity resolution.
func (fm *ForumMetrics) RecordAuth(err error) {
	if err != nil {
		atomic.AddInt64(&fm.AuthFailures, 1)
		return
	}
	atomic.AddInt64(&fm.AuthSuccesses, 1)
}

// RecordLoaderCall counts one cache loader invocation.
func (fm *ForumMetrics) RecordLoaderCall() {
	atomic.AddInt64(&fm.LoaderCalls, 1)
}

// SeedPosts creates count posts owned by owner directly in store and returns their ids.
func SeedPosts(ctx context.Context, store domain.DocumentStore, owner string, count int) ([]string, error) {
	ids := make([]string, 0, count)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := 0; i < count; i++ {
		id, err := store.Create(ctx, domain.CollectionPosts, domain.Fields{
			"createdBy":   owner,
			"title":       fmt.Sprintf("benchmark post %d", i),
			"description": "generated for benchmarks",
			"categories":  []any{"science"},
			"voteCount":   0,
			"usersVote":   []any{},
			"createdAt":   now,
			"updatedAt":   now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed post %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
