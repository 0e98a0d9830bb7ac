package http

import "net/http"

// purgeData performs the crypto-erasure step of a right-to-be-forgotten
// request for the authenticated user.
func (h *Handler) purgeData(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "purge_user_data")
		return
	}

	result, err := h.service.PurgeUserData(r.Context(), identity.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "purge_user_data", err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
