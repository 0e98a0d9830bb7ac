package http

import "net/http"

func (h *Handler) revokeToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "revoke_token")
		return
	}

	if err := h.service.RevokeCurrentToken(r.Context(), identity); err != nil {
		writeMappedError(r.Context(), w, "revoke_token", err)
		return
	}

	writeMessage(w, http.StatusOK, "token revoked")
}
