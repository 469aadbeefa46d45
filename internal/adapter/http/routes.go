package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/finchdesk/finch/internal/middleware"
)

// MountRoutes registers all API routes on the router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Post("/messages", h.handleMessage)
			r.Get("/", h.handleConversationStatus)
			r.Delete("/", h.handleConversationDelete)
		})

		r.Put("/knowledge/articles", h.handleKnowledgeUpsert)
		r.Post("/overrides/reload", h.handleOverridesReload)
		r.Get("/topics", h.handleTopics)
		r.Get("/escalations", h.handleEscalations)

		r.Route("/webhooks", func(r chi.Router) {
			r.With(middleware.WebhookHMAC(h.WebhookSecret, "X-Finch-Signature")).
				Post("/support", h.handleSupportWebhook)
		})
	})
}
