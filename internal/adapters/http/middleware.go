package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/application"
	"github.com/stillwaterhq/datacore/internal/domain"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyIdentity  ctxKey = "identity"
)

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger("recover").ErrorContext(r.Context(), "panic recovered",
					"outcome", "failure",
					"panic", rec,
					"path", r.URL.Path,
				)
				writeError(w, apiError{
					Status:  http.StatusInternalServerError,
					Code:    "INTERNAL_ERROR",
					Message: "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		requestID, _ := r.Context().Value(ctxKeyRequestID).(string)
		httpLogger("request").InfoContext(r.Context(), "request completed",
			"outcome", "success",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", requestID,
		)
	})
}

func bearerTokenFromHeader(r *http.Request) string {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if authorization == "" {
		return ""
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func contextWithIdentity(ctx context.Context, identity application.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, identity)
}

func identityFromContext(ctx context.Context) (application.Identity, bool) {
	identity, ok := ctx.Value(ctxKeyIdentity).(application.Identity)
	return identity, ok
}

// mapDomainError converts service-layer failures into transport responses.
// Revoked and expired tokens intentionally produce the same response so a
// caller cannot distinguish the two conditions. Integrity failures surface
// as a bare 500 with no ciphertext detail.
func mapDomainError(err error) apiError {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return apiError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return apiError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "invalid or missing credentials"}
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenRevoked):
		return apiError{Status: http.StatusUnauthorized, Code: "TOKEN_EXPIRED", Message: "token expired"}
	case errors.Is(err, domain.ErrNotFound):
		return apiError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, domain.ErrLockBusy):
		return apiError{Status: http.StatusConflict, Code: "EXPORT_IN_PROGRESS", Message: "an export for this format is already being generated"}
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return apiError{Status: http.StatusConflict, Code: "IDEMPOTENCY_CONFLICT", Message: "idempotency key was already used with a different request"}
	case errors.Is(err, domain.ErrConflict):
		return apiError{Status: http.StatusConflict, Code: "CONFLICT", Message: "resource already exists"}
	case errors.Is(err, domain.ErrEncryptionContextMissing):
		return apiError{Status: http.StatusGone, Code: "CONTENT_UNAVAILABLE", Message: "content is no longer available"}
	case errors.Is(err, domain.ErrIntegrity):
		return apiError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal server error"}
	default:
		return apiError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}
