package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stillwaterhq/datacore/internal/application"
)

func (h *Handler) createJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_journal_entry")
		return
	}

	var req application.JournalEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), w, "create_journal_entry", err)
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	view, err := h.service.CreateJournalEntry(r.Context(), identity, req, idempotencyKey)
	if err != nil {
		writeMappedError(r.Context(), w, "create_journal_entry", err)
		return
	}

	writeSuccess(w, http.StatusCreated, view)
}

func (h *Handler) getJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_journal_entry")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entry_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "get_journal_entry", err)
		return
	}

	view, err := h.service.GetJournalEntry(r.Context(), identity, entryID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_journal_entry", err)
		return
	}

	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) listJournalEntries(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_journal_entries")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	index, err := h.service.ListJournalEntries(r.Context(), identity, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_journal_entries", err)
		return
	}

	writeSuccess(w, http.StatusOK, index)
}

func (h *Handler) updateJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "update_journal_entry")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entry_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "update_journal_entry", err)
		return
	}

	var req application.JournalEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), w, "update_journal_entry", err)
		return
	}

	view, err := h.service.UpdateJournalEntry(r.Context(), identity, entryID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_journal_entry", err)
		return
	}

	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) deleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_journal_entry")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entry_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "delete_journal_entry", err)
		return
	}

	if err := h.service.DeleteJournalEntry(r.Context(), identity, entryID); err != nil {
		writeMappedError(r.Context(), w, "delete_journal_entry", err)
		return
	}

	writeMessage(w, http.StatusOK, "journal entry deleted")
}
