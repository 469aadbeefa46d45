// Package conversation provides the persisted per-conversation snapshot.
package conversation

import (
	"time"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// Snapshot is the state persisted after each orchestration pass, keyed by
// conversation id. It is sufficient to answer a status query without
// re-running the pipeline.
type Snapshot struct {
	ConversationID  string                          `json:"conversation_id"`
	Message         string                          `json:"message"`
	Response        string                          `json:"response,omitempty"`
	Escalation      *orchestration.EscalationRecord `json:"escalation,omitempty"`
	Confidence      float64                         `json:"confidence"`
	Classification  orchestration.Classification    `json:"classification"`
	Status          orchestration.Status            `json:"status"`
	ResolutionState orchestration.ResolutionState   `json:"resolution_state"`
	OverrideID      string                          `json:"override_id,omitempty"`
	HandoffSummary  string                          `json:"handoff_summary,omitempty"`
	UpdatedAt       time.Time                       `json:"updated_at"`
}
