package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the HTTP surface. Health and docs endpoints are public;
// every /datacore/v1 route requires a verified, unrevoked bearer token.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/", handler.swaggerUI)
	r.Get("/swagger/openapi.yaml", handler.swaggerSpec)

	r.Route("/datacore/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)

			r.Post("/journal", handler.createJournalEntry)
			r.Get("/journal", handler.listJournalEntries)
			r.Get("/journal/{entry_id}", handler.getJournalEntry)
			r.Put("/journal/{entry_id}", handler.updateJournalEntry)
			r.Delete("/journal/{entry_id}", handler.deleteJournalEntry)

			r.Post("/exports", handler.requestExport)
			r.Get("/exports", handler.listExports)
			r.Get("/exports/{export_id}", handler.getExport)

			r.Post("/tokens/revoke", handler.revokeToken)

			r.Post("/privacy/purge", handler.purgeData)
		})
	})

	return r
}
