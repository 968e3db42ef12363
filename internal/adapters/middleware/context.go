package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// RequestIDMiddleware injects a request ID into the context.
// It tries to get it from the X-Request-ID header, otherwise generates a new UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoverMiddleware turns a handler panic into a 500 result and logs it with a stack trace.
func RecoverMiddleware(logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error(r.Context(), "Panic recovered in HTTP handler",
						"path", r.URL.Path,
						"code", string(domain.CodeInternal),
						"panic_info", fmt.Sprintf("%v", rec),
						"stacktrace", string(debug.Stack()),
					)
					domain.Result{Status: http.StatusInternalServerError, Message: "Internal server error"}.WriteJSON(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
