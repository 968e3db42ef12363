package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VoteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_vote_toggles_total",
			Help: "Number of applied vote toggles, by content kind and direction.",
		},
		[]string{"kind", "direction"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_cache_lookups_total",
			Help: "Read-through cache lookups, by cache key and result (hit, miss, error).",
		},
		[]string{"key", "result"},
	)

	CacheLoadErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_cache_load_errors_total",
			Help: "Loader failures on cache miss. Failed loads are never cached.",
		},
		[]string{"key"},
	)

	AuthorizationDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_authorization_denials_total",
			Help: "Mutations rejected by the access-control policy, by operation.",
		},
		[]string{"operation"},
	)

	ItemLockAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_item_lock_attempts_total",
			Help: "Per-item lock acquisition attempts, by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
)

// IncrementVoteToggle records one applied toggle.
func IncrementVoteToggle(kind string, added bool) {
	direction := "retracted"
	if added {
		direction = "added"
	}
	VoteTogglesTotal.WithLabelValues(kind, direction).Inc()
}

// IncrementCacheLookup records a cache lookup result: "hit", "miss" or "error".
func IncrementCacheLookup(key, result string) {
	CacheLookupsTotal.WithLabelValues(key, result).Inc()
}

// IncrementCacheLoadError records a failed loader invocation.
func IncrementCacheLoadError(key string) {
	CacheLoadErrorsTotal.WithLabelValues(key).Inc()
}

// IncrementAuthorizationDenied records a policy denial.
func IncrementAuthorizationDenied(operation string) {
	AuthorizationDenialsTotal.WithLabelValues(operation).Inc()
}

// IncrementItemLockAttempt records a lock attempt outcome, e.g. "acquired", "contended", "error", "timeout".
func IncrementItemLockAttempt(backend, outcome string) {
	ItemLockAttemptsTotal.WithLabelValues(backend, outcome).Inc()
}
