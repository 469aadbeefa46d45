package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/finchdesk/finch/internal/domain/conversation"
	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/domain/topic"
)

// Runner executes one orchestration pass for an inbound message.
type Runner interface {
	Run(ctx context.Context, conversationID, userID, message string, userContext map[string]any) *orchestration.Result
}

// ConversationReader answers status and deletion requests.
type ConversationReader interface {
	Status(ctx context.Context, conversationID string) (*conversation.Snapshot, error)
	Delete(ctx context.Context, conversationID string) error
}

// OverrideCatalog exposes the override catalog's admin surface.
type OverrideCatalog interface {
	Reload() error
	Len() int
}

// EscalationLister serves the human-agent escalation feed.
type EscalationLister interface {
	ListEscalations(ctx context.Context, limit int) ([]orchestration.EscalationRecord, error)
}

// KnowledgeWriter ingests knowledge-base articles.
type KnowledgeWriter interface {
	UpsertArticle(ctx context.Context, sn orchestration.Snippet) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator  Runner
	Conversations ConversationReader
	Overrides     OverrideCatalog
	Topics        *topic.Registry
	Escalations   EscalationLister
	Knowledge     KnowledgeWriter
	WebhookSecret string
}

type messageRequest struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// handleMessage runs the pipeline for one customer message. The conversation
// id comes from the URL; an id of "new" lets the server mint one.
func (h *Handlers) handleMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := urlParam(r, "id")
	if conversationID == "new" {
		conversationID = ""
	}

	req, ok := readJSON[messageRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Message, "message") {
		return
	}

	result := h.Orchestrator.Run(r.Context(), conversationID, req.UserID, req.Message, req.Context)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleConversationStatus(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !requireField(w, id, "id") {
		return
	}

	snap, err := h.Conversations.Status(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handlers) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !requireField(w, id, "id") {
		return
	}

	if err := h.Conversations.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleOverridesReload(w http.ResponseWriter, r *http.Request) {
	if err := h.Overrides.Reload(); err != nil {
		writeError(w, http.StatusInternalServerError, "override catalog reload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"entries": h.Overrides.Len(),
	})
}

func (h *Handlers) handleTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": h.Topics.Enabled(),
	})
}

func (h *Handlers) handleEscalations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.Escalations.ListEscalations(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "escalations unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"escalations": records,
	})
}

// handleKnowledgeUpsert ingests one knowledge-base article. Existing ids
// are overwritten.
func (h *Handlers) handleKnowledgeUpsert(w http.ResponseWriter, r *http.Request) {
	article, ok := readJSON[orchestration.Snippet](w, r)
	if !ok {
		return
	}
	if !requireField(w, article.ID, "id") {
		return
	}
	if !requireField(w, article.Title, "title") {
		return
	}
	if !requireField(w, article.Content, "content") {
		return
	}

	if err := h.Knowledge.UpsertArticle(r.Context(), article); err != nil {
		writeDomainError(w, err, "article not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "id": article.ID})
}

// supportWebhookPayload is the helpdesk connector's event shape. Only
// message events reach this endpoint; the connector filters the rest.
type supportWebhookPayload struct {
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Message        string         `json:"message"`
	Context        map[string]any `json:"context,omitempty"`
}

func (h *Handlers) handleSupportWebhook(w http.ResponseWriter, r *http.Request) {
	payload, ok := readJSON[supportWebhookPayload](w, r)
	if !ok {
		return
	}
	if !requireField(w, payload.Message, "message") {
		return
	}

	result := h.Orchestrator.Run(r.Context(), payload.ConversationID, payload.UserID, payload.Message, payload.Context)
	writeJSON(w, http.StatusOK, result)
}
