package safego

import (
	"context"
	"fmt"
	"runtime/debug"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// Go runs fn in a new goroutine and recovers any panic, logging it under name with a stack trace.
// The returned channel is closed once fn has returned or panicked.
func Go(ctx context.Context, logger domain.Logger, name string, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer Recover(ctx, logger, name)
		fn(ctx)
	}()
	return done
}

// Recover is meant to be deferred. It swallows a panic and logs it; ctx may already be cancelled.
func Recover(ctx context.Context, logger domain.Logger, name string) {
	r := recover()
	if r == nil {
		return
	}
	logCtx := ctx
	if ctx.Err() != nil {
		logCtx = context.WithoutCancel(ctx)
	}
	logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", name),
		"panic_info", fmt.Sprintf("%v", r),
		"stacktrace", string(debug.Stack()),
	)
}
