package http

import (
	"context"
	"log/slog"
)

const serviceName = "DataCore-Service"

func httpLogger(operation string) *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "transport",
		"operation", operation,
	)
}

func logHTTPOperationError(ctx context.Context, operation string, err error, apiErr apiError) {
	httpLogger(operation).ErrorContext(ctx, "request failed",
		"outcome", "failure",
		"status", apiErr.Status,
		"code", apiErr.Code,
		"error", err.Error(),
	)
}
