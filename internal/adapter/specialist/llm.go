// Package specialist provides the generic LLM-backed specialist responder.
// Each enabled topic gets one instance built from its registry entry; the
// topic description becomes the system persona and the knowledge base
// supplies grounding context.
package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/domain/topic"
	"github.com/finchdesk/finch/internal/port/specialist"
)

const defaultConfidence = 0.5

// Register makes the "llm" specialist factory available. Called once from main.
func Register() {
	specialist.Register("llm", func(cfg topic.Config, deps specialist.Deps) (specialist.Specialist, error) {
		if deps.Generator == nil {
			return nil, fmt.Errorf("llm specialist %q: generator is required", cfg.Topic)
		}
		return &llmSpecialist{cfg: cfg, deps: deps}, nil
	})
}

type llmSpecialist struct {
	cfg  topic.Config
	deps specialist.Deps
}

func (s *llmSpecialist) Name() string { return s.cfg.Topic }

// Invoke retrieves grounding snippets, asks the model to answer with a
// trailing self-reported confidence, and returns the captured result.
func (s *llmSpecialist) Invoke(ctx context.Context, req specialist.Request) (*orchestration.SpecialistResult, error) {
	var evidence []orchestration.Snippet
	if s.deps.Searcher != nil {
		snippets, err := s.deps.Searcher.Search(ctx, req.Query, s.cfg.Topic, s.cfg.TopK)
		if err != nil {
			// Retrieval failure is not fatal; the model answers unaided and
			// the verifier will judge groundedness accordingly.
			slog.Warn("specialist retrieval failed", "topic", s.cfg.Topic, "error", err)
		} else {
			evidence = snippets
		}
	}

	system := s.systemPrompt()
	user := s.userPrompt(req, evidence)

	text, err := s.deps.Generator.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("specialist %s: %w", s.cfg.Topic, err)
	}

	response, confidence := extractConfidence(text)

	return &orchestration.SpecialistResult{
		Agent:      s.cfg.Topic,
		Response:   response,
		Confidence: confidence,
		Evidence:   evidence,
	}, nil
}

func (s *llmSpecialist) systemPrompt() string {
	return fmt.Sprintf(`You are a %s specialist for customer support.
%s

Use the provided context from our knowledge base to answer the question.
Be concise but thorough. If you cannot answer with confidence, say so clearly.

At the end of your response, provide a confidence score (0.0 to 1.0) indicating how confident you are in your answer.
Format: CONFIDENCE: 0.XX`, s.cfg.Topic, s.cfg.Description)
}

func (s *llmSpecialist) userPrompt(req specialist.Request, evidence []orchestration.Snippet) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	if len(evidence) == 0 {
		b.WriteString("No knowledge base articles found.\n")
	}
	for i, sn := range evidence {
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, sn.Title, sn.Content)
	}

	for _, key := range []string{"customer_id", "order_id", "customer_email"} {
		if v, ok := req.Context[key]; ok {
			fmt.Fprintf(&b, "\n%s: %v", key, v)
		}
	}

	fmt.Fprintf(&b, "\n\nCustomer Query: %s", req.Query)
	return b.String()
}

// extractConfidence splits a trailing "CONFIDENCE: 0.XX" marker off the
// response text. An absent or malformed marker yields the default.
func extractConfidence(text string) (string, float64) {
	idx := strings.LastIndex(text, "CONFIDENCE:")
	if idx < 0 {
		return strings.TrimSpace(text), defaultConfidence
	}

	tail := strings.TrimSpace(text[idx+len("CONFIDENCE:"):])
	fields := strings.Fields(tail)
	if len(fields) == 0 {
		return strings.TrimSpace(text), defaultConfidence
	}

	confidence, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return strings.TrimSpace(text), defaultConfidence
	}

	return strings.TrimSpace(text[:idx]), confidence
}
