package orchestration_test

import (
	"testing"

	"github.com/finchdesk/finch/internal/domain/orchestration"
)

func TestNewStateInitializesDefaults(t *testing.T) {
	s := orchestration.NewState("conv-1", "user-1", "help", nil)

	if s.Status != orchestration.StatusPending {
		t.Errorf("Status = %q, want pending", s.Status)
	}
	if s.ResolutionState != orchestration.ResolutionInProgress {
		t.Errorf("ResolutionState = %q, want in_progress", s.ResolutionState)
	}
	if s.Context == nil {
		t.Error("Context should never be nil")
	}
}

func TestBestResponse(t *testing.T) {
	s := orchestration.NewState("c", "u", "m", nil)

	if s.BestResponse() != nil {
		t.Error("expected nil with no responses")
	}

	s.SpecialistResponses = []orchestration.SpecialistResult{
		{Agent: "billing", Confidence: 0.6},
		{Agent: "technical", Confidence: 0.9},
		{Agent: "general", Confidence: 0.9},
	}

	best := s.BestResponse()
	if best == nil {
		t.Fatal("expected a best response")
	}
	// Ties go to the first-seen result.
	if best.Agent != "technical" {
		t.Errorf("best = %q, want technical", best.Agent)
	}
}

func TestClassificationTopics(t *testing.T) {
	tests := []struct {
		name string
		c    orchestration.Classification
		want []string
	}{
		{
			name: "all topics present",
			c: orchestration.Classification{
				PrimaryTopic: "billing",
				AllTopics: []orchestration.TopicScore{
					{Topic: "billing", Confidence: 0.9},
					{Topic: "technical", Confidence: 0.4},
				},
			},
			want: []string{"billing", "technical"},
		},
		{
			name: "falls back to primary",
			c:    orchestration.Classification{PrimaryTopic: "returns"},
			want: []string{"returns"},
		},
		{
			name: "falls back to general",
			c:    orchestration.Classification{},
			want: []string{"general"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.Topics()
			if len(got) != len(tt.want) {
				t.Fatalf("Topics() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Topics()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDetectConfirmation(t *testing.T) {
	confirmations := []string{
		"Thanks, that fixed it!",
		"perfect, all set",
		"TY",
		"ok got it",
		"never mind, works now",
	}
	for _, msg := range confirmations {
		if !orchestration.DetectConfirmation(msg) {
			t.Errorf("DetectConfirmation(%q) = false, want true", msg)
		}
	}

	nonConfirmations := []string{
		"my invoice is wrong",
		"the app crashes on login",
		"",
	}
	for _, msg := range nonConfirmations {
		if orchestration.DetectConfirmation(msg) {
			t.Errorf("DetectConfirmation(%q) = true, want false", msg)
		}
	}
}
