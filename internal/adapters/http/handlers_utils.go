package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/stillwaterhq/datacore/internal/domain"
)

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON value", domain.ErrInvalidInput)
	}

	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return value
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	apiErr := mapDomainError(err)
	logHTTPOperationError(ctx, operation, err, apiErr)
	writeError(w, apiErr)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	writeMappedError(ctx, w, operation, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
}

func writeMissingBearerError(ctx context.Context, w http.ResponseWriter, operation string) {
	writeMappedError(ctx, w, operation, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized))
}
