package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/port/llm"
	"github.com/finchdesk/finch/internal/service"
)

func TestSummarizeUsesGenerator(t *testing.T) {
	var captured string
	gen := llm.GeneratorFunc(func(_ context.Context, _, user string) (string, error) {
		captured = user
		return "  1. Customer cannot log in.\n2. Technical agent tried a reset.  ", nil
	})

	svc := service.NewSummarizerService(gen)
	got := svc.Summarize(context.Background(), "cannot log in",
		orchestration.Verification{Critique: "Reset did not help"},
		[]orchestration.SpecialistResult{
			{Agent: "technical", Confidence: 0.45},
			{Agent: "general", Confidence: 0.3},
		},
	)

	if got != "1. Customer cannot log in.\n2. Technical agent tried a reset." {
		t.Errorf("summary = %q", got)
	}
	if !strings.Contains(captured, "Agents tried: technical, general") {
		t.Errorf("prompt missing agents:\n%s", captured)
	}
	if !strings.Contains(captured, "Best confidence reached: 45%") {
		t.Errorf("prompt missing best confidence:\n%s", captured)
	}
	if !strings.Contains(captured, "Verifier notes: Reset did not help") {
		t.Errorf("prompt missing verifier notes:\n%s", captured)
	}
}

func TestSummarizeFallbackOnError(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("proxy down")
	})

	svc := service.NewSummarizerService(gen)
	got := svc.Summarize(context.Background(), "cannot log in",
		orchestration.Verification{Critique: "Reset did not help"},
		[]orchestration.SpecialistResult{{Agent: "technical", Confidence: 0.4}},
	)

	want := "CUSTOMER ISSUE: cannot log in\n" +
		"AGENTS TRIED: technical\n" +
		"VERIFIER NOTES: Reset did not help\n" +
		"ACTION: Manual review required"
	if got != want {
		t.Errorf("fallback = %q, want %q", got, want)
	}
}

func TestSummarizeFallbackDefaults(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("down")
	})

	got := service.NewSummarizerService(gen).Summarize(
		context.Background(), "help", orchestration.Verification{}, nil,
	)

	if !strings.Contains(got, "AGENTS TRIED: none") {
		t.Errorf("missing agents default: %q", got)
	}
	if !strings.Contains(got, "VERIFIER NOTES: Low confidence") {
		t.Errorf("missing critique default: %q", got)
	}
}

func TestSummarizeEmptyGeneratorOutputFallsBack(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _, _ string) (string, error) {
		return "   \n", nil
	})

	got := service.NewSummarizerService(gen).Summarize(
		context.Background(), "help", orchestration.Verification{}, nil,
	)

	if !strings.HasPrefix(got, "CUSTOMER ISSUE: help") {
		t.Errorf("expected template fallback, got %q", got)
	}
}
