// Package orchestration provides the domain model for a single pass of the
// support conversation pipeline: classification, specialist responses,
// verification, and the terminal respond/escalate outcome.
package orchestration

import "time"

// Status is the pipeline outcome for one orchestration pass.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusEscalated Status = "escalated"
	StatusError     Status = "error"
)

// ResolutionState tracks the customer-perceived outcome, distinct from Status.
type ResolutionState string

const (
	ResolutionInProgress ResolutionState = "in_progress"
	ResolutionAssumed    ResolutionState = "resolved_assumed"
	ResolutionConfirmed  ResolutionState = "resolved_confirmed"
	ResolutionEscalated  ResolutionState = "escalated"
)

// Classification sources.
const (
	SourceOverride   = "override"
	SourceClassifier = "classifier"
)

// TopicScore pairs a topic with a classifier confidence.
type TopicScore struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// Classification is the topic routing decision for a message.
type Classification struct {
	PrimaryTopic      string       `json:"primary_topic"`
	PrimaryConfidence float64      `json:"primary_confidence"`
	SecondaryTopics   []string     `json:"secondary_topics,omitempty"`
	AllTopics         []TopicScore `json:"all_topics,omitempty"`
	Source            string       `json:"source,omitempty"`
}

// Topics returns every classified topic in order, falling back to the
// primary topic (or "general") when the classifier produced none.
func (c Classification) Topics() []string {
	if len(c.AllTopics) == 0 {
		if c.PrimaryTopic != "" {
			return []string{c.PrimaryTopic}
		}
		return []string{"general"}
	}
	topics := make([]string, 0, len(c.AllTopics))
	for _, t := range c.AllTopics {
		topics = append(topics, t.Topic)
	}
	return topics
}

// Snippet is a ranked knowledge-base passage used as response evidence.
type Snippet struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Topic   string  `json:"topic,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
}

// ToolInvocation records one external tool call made by a specialist.
type ToolInvocation struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// SpecialistResult is the captured output of one specialist invocation.
// Invocation failures are recorded as a zero-confidence result rather than
// aborting the dispatch of other topics.
type SpecialistResult struct {
	Agent      string           `json:"agent"`
	Response   string           `json:"response"`
	Confidence float64          `json:"confidence"`
	Evidence   []Snippet        `json:"evidence,omitempty"`
	ToolLog    []ToolInvocation `json:"tool_log,omitempty"`
}

// Verification is the verifier's judgment of the selected specialist response.
type Verification struct {
	Grounded        string   `json:"grounded"` // "yes", "no", "partial"
	Complete        string   `json:"complete"` // "yes", "no", "partial"
	Concerns        []string `json:"concerns,omitempty"`
	FinalConfidence float64  `json:"final_confidence"`
	Critique        string   `json:"critique,omitempty"`
	ShouldEscalate  bool     `json:"should_escalate"`
}

// EscalationRecord is the handoff package prepared for human pickup.
type EscalationRecord struct {
	ConversationID   string    `json:"conversation_id"`
	Status           string    `json:"status"` // always "escalated"
	Summary          string    `json:"summary"`
	Priority         string    `json:"priority"` // "high", "medium", "normal"
	Tags             []string  `json:"tags"`
	RequiresHuman    bool      `json:"requires_human"`
	EscalationReason string    `json:"escalation_reason"`
	HandoffSummary   string    `json:"handoff_summary,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// State is the mutable record threaded through one orchestration pass.
// Each State is private to a single request; it is never shared.
type State struct {
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Message        string         `json:"message"`
	Context        map[string]any `json:"context,omitempty"`

	Classification      Classification     `json:"classification"`
	SpecialistResponses []SpecialistResult `json:"specialist_responses,omitempty"`
	Verification        Verification       `json:"verification"`

	FinalResponse   string            `json:"final_response"`
	FinalConfidence float64           `json:"final_confidence"`
	Status          Status            `json:"status"`
	Escalation      *EscalationRecord `json:"escalation,omitempty"`
	Sources         []Snippet         `json:"sources,omitempty"`
	ResolutionState ResolutionState   `json:"resolution_state"`
	OverrideID      string            `json:"override_id"`
	HandoffSummary  string            `json:"handoff_summary,omitempty"`
}

// NewState initializes a pending State for an inbound message.
func NewState(conversationID, userID, message string, context map[string]any) *State {
	if context == nil {
		context = map[string]any{}
	}
	return &State{
		ConversationID:  conversationID,
		UserID:          userID,
		Message:         message,
		Context:         context,
		Status:          StatusPending,
		ResolutionState: ResolutionInProgress,
	}
}

// BestResponse returns the highest-confidence specialist result, ties broken
// by first-seen order. Returns nil when no specialist responded.
func (s *State) BestResponse() *SpecialistResult {
	var best *SpecialistResult
	for i := range s.SpecialistResponses {
		r := &s.SpecialistResponses[i]
		if best == nil || r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}

// Result is the JSON-serializable envelope returned to callers.
type Result struct {
	Status            Status          `json:"status"`
	Message           string          `json:"message"`
	Confidence        float64         `json:"confidence"`
	Sources           []Snippet       `json:"sources,omitempty"`
	EscalationSummary string          `json:"escalation_summary,omitempty"`
	Agent             string          `json:"agent,omitempty"`
	Topic             string          `json:"topic,omitempty"`
	ResolutionState   ResolutionState `json:"resolution_state"`
	OverrideUsed      bool            `json:"override_used"`
	HandoffSummary    string          `json:"handoff_summary,omitempty"`
	Error             string          `json:"error,omitempty"`
}
