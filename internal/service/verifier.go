package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/port/llm"
)

const verifierSystemPrompt = `You are a verification agent that checks responses for accuracy and completeness.
Your job is to:
1. Check if the response is grounded in the provided sources
2. Identify any potential hallucinations or unsupported claims
3. Assess if the response fully addresses the user's query
4. Consider tool results and ensure they're properly incorporated
5. Compute a final confidence score

Scoring guidelines:
- 0.9-1.0: Fully grounded, complete answer with strong supporting evidence
- 0.7-0.89: Good answer with minor gaps or slight uncertainty
- 0.5-0.69: Partial answer or moderate uncertainty
- 0.3-0.49: Significant gaps or low confidence
- 0.0-0.29: Unsupported or likely incorrect

Provide your assessment in this format:
GROUNDED: yes/no/partial
COMPLETE: yes/no/partial
CONCERNS: list any issues
FINAL_CONFIDENCE: 0.XX
CRITIQUE: brief explanation`

// VerifierService scores a specialist response for groundedness and
// completeness and decides whether to escalate.
type VerifierService struct {
	gen         llm.Generator
	threshold   float64
	maxConcerns int
}

// NewVerifierService creates a VerifierService. threshold is the minimum
// final confidence for responding without escalation; maxConcerns is the
// number of verifier concerns tolerated before escalating.
func NewVerifierService(gen llm.Generator, threshold float64, maxConcerns int) *VerifierService {
	return &VerifierService{gen: gen, threshold: threshold, maxConcerns: maxConcerns}
}

// Verify assesses the selected specialist result. Malformed model output
// degrades to documented defaults; only the transport call itself can fail.
func (s *VerifierService) Verify(ctx context.Context, query string, best orchestration.SpecialistResult) (orchestration.Verification, error) {
	user := buildVerifierInput(query, best)

	text, err := s.gen.Complete(ctx, verifierSystemPrompt, user)
	if err != nil {
		return orchestration.Verification{}, fmt.Errorf("verify: %w", err)
	}

	v := ParseVerification(text, best.Confidence)
	v.ShouldEscalate = EscalationDecision(v, s.threshold, s.maxConcerns)
	return v, nil
}

// EscalationDecision applies the deterministic escalation rule: escalate if
// the final confidence is below the threshold, the response is ungrounded,
// or the verifier raised more than maxConcerns concerns.
func EscalationDecision(v orchestration.Verification, threshold float64, maxConcerns int) bool {
	return v.FinalConfidence < threshold ||
		v.Grounded == "no" ||
		len(v.Concerns) > maxConcerns
}

// ParseVerification parses the verifier's line-oriented response. Defaults:
// grounded and complete are "partial"; an unparsable FINAL_CONFIDENCE keeps
// the specialist's self-reported confidence; CONCERNS of "none" or "n/a"
// parse to an empty list.
func ParseVerification(text string, specialistConfidence float64) orchestration.Verification {
	result := orchestration.Verification{
		Grounded:        "partial",
		Complete:        "partial",
		FinalConfidence: specialistConfidence,
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "GROUNDED:"):
			result.Grounded = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "GROUNDED:")))

		case strings.HasPrefix(line, "COMPLETE:"):
			result.Complete = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "COMPLETE:")))

		case strings.HasPrefix(line, "CONCERNS:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONCERNS:"))
			lowered := strings.ToLower(raw)
			if raw == "" || lowered == "none" || lowered == "n/a" {
				continue
			}
			for _, c := range strings.Split(raw, ",") {
				if c = strings.TrimSpace(c); c != "" {
					result.Concerns = append(result.Concerns, c)
				}
			}

		case strings.HasPrefix(line, "FINAL_CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "FINAL_CONFIDENCE:"))
			if confidence, err := strconv.ParseFloat(raw, 64); err == nil {
				result.FinalConfidence = confidence
			}

		case strings.HasPrefix(line, "CRITIQUE:"):
			result.Critique = strings.TrimSpace(strings.TrimPrefix(line, "CRITIQUE:"))
		}
	}

	return result
}

func buildVerifierInput(query string, best orchestration.SpecialistResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User Query: %s\n\n", query)
	fmt.Fprintf(&b, "Agent Response: %s\n\n", best.Response)

	b.WriteString("Sources Used:\n")
	if len(best.Evidence) == 0 {
		b.WriteString("No sources provided\n")
	}
	for i, sn := range best.Evidence {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, sn.Title, truncate(sn.Content, 200))
	}

	b.WriteString("\nTool Results:\n")
	if len(best.ToolLog) == 0 {
		b.WriteString("No tools used\n")
	}
	for _, tl := range best.ToolLog {
		result := tl.Result
		if tl.Error != "" {
			result = "error: " + tl.Error
		}
		fmt.Fprintf(&b, "- %s: %s\n", tl.Tool, result)
	}

	fmt.Fprintf(&b, "\nAgent's Self-Reported Confidence: %.2f\n\n", best.Confidence)
	b.WriteString("Verify this response and provide your assessment.")
	return b.String()
}

// truncate shortens s to at most n bytes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
