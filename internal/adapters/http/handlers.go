package http

import (
	"net/http"

	"github.com/stillwaterhq/datacore/internal/application"
)

// Handler exposes the journaling data-protection API over HTTP.
type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

// authMiddleware verifies the bearer token, consults the revocation
// registry, and stores the caller identity on the request context.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerTokenFromHeader(r)
		if token == "" {
			writeMissingBearerError(r.Context(), w, "authenticate")
			return
		}

		identity, err := h.service.ValidateToken(r.Context(), token)
		if err != nil {
			writeMappedError(r.Context(), w, "authenticate", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
	})
}
