package specialist_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	adapter "github.com/finchdesk/finch/internal/adapter/specialist"
	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/domain/topic"
	"github.com/finchdesk/finch/internal/port/llm"
	"github.com/finchdesk/finch/internal/port/specialist"
)

func init() {
	adapter.Register()
}

type fakeSearcher struct {
	snippets []orchestration.Snippet
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, _, _ string, _ int) ([]orchestration.Snippet, error) {
	return f.snippets, f.err
}

func billingConfig() topic.Config {
	return topic.Config{
		Topic:       "billing",
		Description: "Handles invoices and payments",
		Specialist:  "llm",
		TopK:        3,
	}
}

func newSpecialist(t *testing.T, gen llm.Generator, searcher *fakeSearcher) specialist.Specialist {
	t.Helper()
	sp, err := specialist.New(billingConfig(), specialist.Deps{Generator: gen, Searcher: searcher})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sp
}

func TestInvokeExtractsConfidence(t *testing.T) {
	var capturedSystem, capturedUser string
	gen := llm.GeneratorFunc(func(_ context.Context, system, user string) (string, error) {
		capturedSystem = system
		capturedUser = user
		return "You were charged twice; a refund is on its way.\n\nCONFIDENCE: 0.85", nil
	})
	searcher := &fakeSearcher{snippets: []orchestration.Snippet{
		{ID: "kb-1", Title: "Double charges", Content: "Refunds take 2 days."},
	}}

	sp := newSpecialist(t, gen, searcher)
	req := specialist.Request{
		Query:   "why was I charged twice",
		UserID:  "u1",
		Context: map[string]any{"order_id": "ORD-7", "irrelevant": "x"},
	}

	result, err := sp.Invoke(context.Background(), req)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if result.Agent != "billing" {
		t.Errorf("Agent = %q", result.Agent)
	}
	if result.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", result.Confidence)
	}
	if strings.Contains(result.Response, "CONFIDENCE") {
		t.Errorf("marker not stripped: %q", result.Response)
	}
	if len(result.Evidence) != 1 || result.Evidence[0].ID != "kb-1" {
		t.Errorf("Evidence = %+v", result.Evidence)
	}

	if !strings.Contains(capturedSystem, "billing specialist") {
		t.Errorf("system prompt missing persona:\n%s", capturedSystem)
	}
	if !strings.Contains(capturedSystem, "Handles invoices and payments") {
		t.Errorf("system prompt missing description:\n%s", capturedSystem)
	}
	if !strings.Contains(capturedUser, "[1] Double charges: Refunds take 2 days.") {
		t.Errorf("user prompt missing evidence:\n%s", capturedUser)
	}
	if !strings.Contains(capturedUser, "order_id: ORD-7") {
		t.Errorf("user prompt missing context key:\n%s", capturedUser)
	}
	if strings.Contains(capturedUser, "irrelevant") {
		t.Errorf("unexpected context key forwarded:\n%s", capturedUser)
	}
}

func TestInvokeDefaultConfidence(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "I can help with that.", nil
	})

	result, err := newSpecialist(t, gen, &fakeSearcher{}).Invoke(context.Background(), specialist.Request{Query: "q"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want default 0.5", result.Confidence)
	}
}

func TestInvokeMalformedConfidenceKeepsText(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "Answer.\nCONFIDENCE: very high", nil
	})

	result, err := newSpecialist(t, gen, &fakeSearcher{}).Invoke(context.Background(), specialist.Request{Query: "q"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want default 0.5", result.Confidence)
	}
	if !strings.Contains(result.Response, "Answer.") {
		t.Errorf("Response = %q", result.Response)
	}
}

func TestInvokeRetrievalFailureProceedsUnaided(t *testing.T) {
	var captured string
	gen := llm.GeneratorFunc(func(_ context.Context, _, user string) (string, error) {
		captured = user
		return "Best effort answer.\nCONFIDENCE: 0.4", nil
	})
	searcher := &fakeSearcher{err: errors.New("index down")}

	result, err := newSpecialist(t, gen, searcher).Invoke(context.Background(), specialist.Request{Query: "q"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(result.Evidence) != 0 {
		t.Errorf("Evidence = %+v, want none", result.Evidence)
	}
	if !strings.Contains(captured, "No knowledge base articles found.") {
		t.Errorf("user prompt missing empty-context note:\n%s", captured)
	}
}

func TestInvokeGeneratorErrorPropagates(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("proxy down")
	})

	if _, err := newSpecialist(t, gen, &fakeSearcher{}).Invoke(context.Background(), specialist.Request{Query: "q"}); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestUnknownFactory(t *testing.T) {
	cfg := billingConfig()
	cfg.Specialist = "nope"

	if _, err := specialist.New(cfg, specialist.Deps{}); err == nil {
		t.Fatal("expected error for unknown factory")
	}
}
