package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/port/llm"
)

const summarizerSystemPrompt = `You are a customer support handoff assistant. Write a concise, structured summary for the human agent who is about to take over this conversation. Include:
1. Customer issue (one sentence)
2. What was already attempted
3. Why it needs human attention
4. Suggested next action`

// SummarizerService produces the AI handoff brief shown to the human agent
// at escalation time.
type SummarizerService struct {
	gen llm.Generator
}

// NewSummarizerService creates a SummarizerService.
func NewSummarizerService(gen llm.Generator) *SummarizerService {
	return &SummarizerService{gen: gen}
}

// Summarize generates the handoff brief. Any failure of the generation call
// falls back to a deterministic template; the result is never empty and the
// call never fails.
func (s *SummarizerService) Summarize(
	ctx context.Context,
	query string,
	verification orchestration.Verification,
	responses []orchestration.SpecialistResult,
) string {
	agents := agentNames(responses)

	if s.gen != nil {
		bestConfidence := 0.0
		for _, r := range responses {
			if r.Confidence > bestConfidence {
				bestConfidence = r.Confidence
			}
		}

		critique := verification.Critique
		if critique == "" {
			critique = "N/A"
		}

		user := fmt.Sprintf(
			"Customer message: %s\nAgents tried: %s\nBest confidence reached: %.0f%%\nVerifier notes: %s",
			query, agents, bestConfidence*100, critique,
		)

		summary, err := s.gen.Complete(ctx, summarizerSystemPrompt, user)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			slog.Warn("handoff summarizer failed, using template fallback", "error", err)
		}
	}

	critique := verification.Critique
	if critique == "" {
		critique = "Low confidence"
	}

	return fmt.Sprintf(
		"CUSTOMER ISSUE: %s\nAGENTS TRIED: %s\nVERIFIER NOTES: %s\nACTION: Manual review required",
		query, agents, critique,
	)
}

func agentNames(responses []orchestration.SpecialistResult) string {
	if len(responses) == 0 {
		return "none"
	}
	names := make([]string, 0, len(responses))
	for _, r := range responses {
		names = append(names, r.Agent)
	}
	return strings.Join(names, ", ")
}
