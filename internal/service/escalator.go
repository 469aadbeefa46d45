package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/domain/orchestration"
)

// EscalatorService builds escalation records for human pickup.
type EscalatorService struct {
	cfg config.Orchestrator
	now func() time.Time // for testing
}

// NewEscalatorService creates an EscalatorService with the given thresholds.
func NewEscalatorService(cfg config.Orchestrator) *EscalatorService {
	return &EscalatorService{cfg: cfg, now: time.Now}
}

// Escalate assembles the escalation record: a plain-text summary of the
// attempted resolution, a priority, and a deduplicated tag set.
func (s *EscalatorService) Escalate(
	conversationID, query string,
	attempted []orchestration.SpecialistResult,
	verification orchestration.Verification,
	userContext map[string]any,
) *orchestration.EscalationRecord {
	timestamp := s.now().UTC()

	reason := verification.Critique
	if reason == "" {
		reason = "Low confidence or unresolved issue"
	}

	return &orchestration.EscalationRecord{
		ConversationID:   conversationID,
		Status:           "escalated",
		Summary:          s.buildSummary(conversationID, query, attempted, verification, userContext, timestamp),
		Priority:         s.priority(verification),
		Tags:             s.tags(attempted, verification),
		RequiresHuman:    true,
		EscalationReason: reason,
		Timestamp:        timestamp,
	}
}

func (s *EscalatorService) buildSummary(
	conversationID, query string,
	attempted []orchestration.SpecialistResult,
	verification orchestration.Verification,
	userContext map[string]any,
	timestamp time.Time,
) string {
	separator := strings.Repeat("=", 50)

	var b strings.Builder
	b.WriteString(separator + "\n")
	b.WriteString("ESCALATION SUMMARY\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Conversation ID: %s\n", conversationID)
	fmt.Fprintf(&b, "Time: %s\n\n", timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Customer Query:\n%s\n\n", query)

	if len(userContext) > 0 {
		b.WriteString("Customer Context:\n")
		keys := make([]string, 0, len(userContext))
		for k := range userContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s: %v\n", k, userContext[k])
		}
		b.WriteString("\n")
	}

	if len(attempted) > 0 {
		b.WriteString("Attempted Responses:\n")
		for _, resp := range attempted {
			fmt.Fprintf(&b, "\n[Agent: %s, Confidence: %.2f]\n", resp.Agent, resp.Confidence)
			b.WriteString(truncate(resp.Response, 300) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Verification Notes:\n")
	fmt.Fprintf(&b, "  - Grounded: %s\n", orDefault(verification.Grounded, "N/A"))
	fmt.Fprintf(&b, "  - Complete: %s\n", orDefault(verification.Complete, "N/A"))
	fmt.Fprintf(&b, "  - Final Confidence: %.2f\n", verification.FinalConfidence)
	if len(verification.Concerns) > 0 {
		fmt.Fprintf(&b, "  - Concerns: %s\n", strings.Join(verification.Concerns, ", "))
	}
	if verification.Critique != "" {
		fmt.Fprintf(&b, "  - Critique: %s\n", verification.Critique)
	}

	b.WriteString("\n" + separator + "\n")
	b.WriteString("ACTION REQUIRED: Please review and respond to customer\n")
	b.WriteString(separator)
	return b.String()
}

// priority applies the hand-tuned thresholds: high below 0.3 confidence or
// above 3 concerns, medium below 0.5, else normal.
func (s *EscalatorService) priority(v orchestration.Verification) string {
	switch {
	case v.FinalConfidence < s.cfg.HighPriorityThreshold || len(v.Concerns) > s.cfg.HighPriorityConcerns:
		return "high"
	case v.FinalConfidence < s.cfg.MediumThreshold:
		return "medium"
	default:
		return "normal"
	}
}

// tags builds the deduplicated tag set for the escalated conversation.
func (s *EscalatorService) tags(attempted []orchestration.SpecialistResult, v orchestration.Verification) []string {
	set := map[string]struct{}{
		"escalated":    {},
		"needs_review": {},
	}

	for _, resp := range attempted {
		if resp.Agent != "" {
			set["attempted_"+resp.Agent] = struct{}{}
		}
	}

	if v.Grounded == "no" {
		set["ungrounded"] = struct{}{}
	}
	if v.Complete == "no" {
		set["incomplete"] = struct{}{}
	}
	if priority := s.priority(v); priority != "normal" {
		set["priority_"+priority] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
