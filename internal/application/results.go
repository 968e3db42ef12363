package application

import (
	"context"
	"strings"

	"gitlab.com/timkado/api/forum-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

const msgInternal = "Internal server error"

// fail logs err under op and turns it into a Result. Server-side failures get
// a fixed message so that no store detail reaches the client.
func fail(ctx context.Context, logger domain.Logger, op string, err error, message string) domain.Result {
	code := domain.CodeFor(err)
	switch code {
	case domain.CodeInternal:
		logger.Error(ctx, "Operation failed", "operation", op, "code", string(code), "error", err.Error())
		message = msgInternal
	case domain.CodeForbidden:
		metrics.IncrementAuthorizationDenied(op)
		logger.Warn(ctx, "Operation denied", "operation", op, "code", string(code), "error", err.Error())
	default:
		logger.Debug(ctx, "Operation rejected", "operation", op, "code", string(code), "error", err.Error())
	}
	return domain.Fail(err, message)
}

func containsKeyword(haystack, keyword string) bool {
	return strings.Contains(haystack, keyword)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
