package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/application"
)

func (h *Handler) requestExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "request_export")
		return
	}

	var req application.ExportRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), w, "request_export", err)
		return
	}

	view, err := h.service.RequestExport(r.Context(), identity, req)
	if err != nil {
		writeMappedError(r.Context(), w, "request_export", err)
		return
	}

	writeSuccess(w, http.StatusCreated, view)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_export")
		return
	}

	exportID, err := uuid.Parse(chi.URLParam(r, "export_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_export", err)
		return
	}

	view, err := h.service.GetExport(r.Context(), identity, exportID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_export", err)
		return
	}

	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_exports")
		return
	}

	views, err := h.service.ListExports(r.Context(), identity)
	if err != nil {
		writeMappedError(r.Context(), w, "list_exports", err)
		return
	}

	writeSuccess(w, http.StatusOK, views)
}
