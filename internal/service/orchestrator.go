package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/finchdesk/finch/internal/domain/conversation"
	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/domain/override"
	"github.com/finchdesk/finch/internal/port/database"
	"github.com/finchdesk/finch/internal/port/messagequeue"
	"github.com/finchdesk/finch/internal/port/specialist"
)

const apologyResponse = "I apologize, but I'm having trouble processing your request. " +
	"Let me connect you with a human agent who can help."

// Orchestrator runs one full pass of the support pipeline: override check,
// classification, specialist dispatch, verification, and the terminal
// respond or escalate step.
type Orchestrator struct {
	matcher     *override.Matcher
	classifier  *ClassifierService
	specialists map[string]specialist.Specialist
	verifier    *VerifierService
	escalator   *EscalatorService
	summarizer  *SummarizerService
	store       database.Store
	queue       messagequeue.Queue
	log         *slog.Logger
}

// NewOrchestrator wires the pipeline together. specialists is keyed by topic;
// queue may be nil when escalation publication is disabled.
func NewOrchestrator(
	matcher *override.Matcher,
	classifier *ClassifierService,
	specialists map[string]specialist.Specialist,
	verifier *VerifierService,
	escalator *EscalatorService,
	summarizer *SummarizerService,
	store database.Store,
	queue messagequeue.Queue,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		matcher:     matcher,
		classifier:  classifier,
		specialists: specialists,
		verifier:    verifier,
		escalator:   escalator,
		summarizer:  summarizer,
		store:       store,
		queue:       queue,
		log:         log,
	}
}

// Run processes one inbound message and always returns a usable result.
// Internal failures collapse to an apology envelope with status "error";
// the error return carries the cause for logging while the Result stays
// customer-safe.
func (o *Orchestrator) Run(ctx context.Context, conversationID, userID, message string, userContext map[string]any) *orchestration.Result {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	state := orchestration.NewState(conversationID, userID, message, userContext)

	if err := o.run(ctx, state); err != nil {
		o.log.Error("orchestration failed",
			"conversation_id", conversationID,
			"error", err,
		)
		return &orchestration.Result{
			Status:          orchestration.StatusError,
			Message:         apologyResponse,
			Confidence:      0,
			ResolutionState: orchestration.ResolutionInProgress,
			Error:           err.Error(),
		}
	}

	return buildResult(state)
}

func (o *Orchestrator) run(ctx context.Context, state *orchestration.State) error {
	if match := o.matcher.Match(state.Message); match != nil {
		o.log.Info("override matched",
			"conversation_id", state.ConversationID,
			"override_id", match.ID,
			"topic", match.Topic,
		)
		state.OverrideID = match.ID
		state.FinalResponse = match.Answer
		state.FinalConfidence = match.Confidence
		state.Classification = orchestration.Classification{
			PrimaryTopic:      match.Topic,
			PrimaryConfidence: match.Confidence,
			AllTopics: []orchestration.TopicScore{
				{Topic: match.Topic, Confidence: match.Confidence},
			},
			Source: orchestration.SourceOverride,
		}
		return o.respond(ctx, state)
	}

	classification, err := o.classifier.Classify(ctx, state.Message)
	if err != nil {
		return err
	}
	state.Classification = classification
	o.log.Info("classified",
		"conversation_id", state.ConversationID,
		"primary_topic", classification.PrimaryTopic,
		"confidence", classification.PrimaryConfidence,
	)

	o.dispatch(ctx, state)

	if err := o.verify(ctx, state); err != nil {
		return err
	}

	if state.Verification.ShouldEscalate {
		o.summarize(ctx, state)
		return o.escalate(ctx, state)
	}
	return o.respond(ctx, state)
}

// dispatch invokes one specialist per classified topic concurrently. A
// specialist failure never aborts the pass; it is recorded as a
// zero-confidence result so the verifier sees the gap.
func (o *Orchestrator) dispatch(ctx context.Context, state *orchestration.State) {
	configs := o.classifier.SpecialistConfigs(state.Classification.Topics())

	req := specialist.Request{
		Query:   state.Message,
		UserID:  state.UserID,
		Context: state.Context,
	}

	results := make([]orchestration.SpecialistResult, len(configs))
	g, gctx := errgroup.WithContext(ctx)

	for i, cfg := range configs {
		i, cfg := i, cfg
		sp, ok := o.specialists[cfg.Topic]
		if !ok {
			results[i] = failedResult(cfg.Topic)
			continue
		}
		g.Go(func() error {
			result, err := sp.Invoke(gctx, req)
			if err != nil {
				o.log.Warn("specialist failed",
					"conversation_id", state.ConversationID,
					"topic", cfg.Topic,
					"error", err,
				)
				results[i] = failedResult(cfg.Topic)
				return nil
			}
			o.log.Info("specialist responded",
				"conversation_id", state.ConversationID,
				"topic", cfg.Topic,
				"confidence", result.Confidence,
			)
			results[i] = *result
			return nil
		})
	}
	// Used purely as a join barrier; the goroutines above never return errors.
	_ = g.Wait()

	state.SpecialistResponses = results
}

func failedResult(topic string) orchestration.SpecialistResult {
	return orchestration.SpecialistResult{
		Agent:      topic,
		Response:   fmt.Sprintf("Error: Unable to process with %s specialist", topic),
		Confidence: 0,
	}
}

// verify scores the best specialist response. With no responses at all the
// pass escalates immediately without a verifier call.
func (o *Orchestrator) verify(ctx context.Context, state *orchestration.State) error {
	best := state.BestResponse()
	if best == nil {
		state.Verification = orchestration.Verification{
			FinalConfidence: 0,
			ShouldEscalate:  true,
			Critique:        "No specialist responses available",
		}
		return nil
	}

	verification, err := o.verifier.Verify(ctx, state.Message, *best)
	if err != nil {
		return err
	}

	state.Verification = verification
	state.FinalResponse = best.Response
	state.FinalConfidence = verification.FinalConfidence
	state.Sources = best.Evidence

	o.log.Info("verified",
		"conversation_id", state.ConversationID,
		"final_confidence", verification.FinalConfidence,
		"should_escalate", verification.ShouldEscalate,
	)
	return nil
}

func (o *Orchestrator) summarize(ctx context.Context, state *orchestration.State) {
	state.HandoffSummary = o.summarizer.Summarize(ctx, state.Message, state.Verification, state.SpecialistResponses)
}

// respond finalizes a successful pass and persists the snapshot. The
// resolution state is confirmed when the message itself reads as a customer
// acknowledgment, assumed otherwise.
func (o *Orchestrator) respond(ctx context.Context, state *orchestration.State) error {
	state.Status = orchestration.StatusSuccess
	if orchestration.DetectConfirmation(state.Message) {
		state.ResolutionState = orchestration.ResolutionConfirmed
	} else {
		state.ResolutionState = orchestration.ResolutionAssumed
	}

	if err := o.store.SaveConversation(ctx, snapshot(state)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	o.log.Info("responding",
		"conversation_id", state.ConversationID,
		"confidence", state.FinalConfidence,
		"resolution_state", state.ResolutionState,
	)
	return nil
}

// escalate builds the handoff record, persists it, and announces it on the
// queue. Publication is best effort; the database write is authoritative.
func (o *Orchestrator) escalate(ctx context.Context, state *orchestration.State) error {
	record := o.escalator.Escalate(
		state.ConversationID,
		state.Message,
		state.SpecialistResponses,
		state.Verification,
		state.Context,
	)
	record.HandoffSummary = state.HandoffSummary

	state.Status = orchestration.StatusEscalated
	state.ResolutionState = orchestration.ResolutionEscalated
	state.Escalation = record

	if err := o.store.SaveConversation(ctx, snapshot(state)); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := o.store.SaveEscalation(ctx, record); err != nil {
		return fmt.Errorf("save escalation: %w", err)
	}

	o.publishEscalation(ctx, record)

	o.log.Info("escalated",
		"conversation_id", state.ConversationID,
		"priority", record.Priority,
		"reason", record.EscalationReason,
	)
	return nil
}

func (o *Orchestrator) publishEscalation(ctx context.Context, record *orchestration.EscalationRecord) {
	if o.queue == nil {
		return
	}

	payload := messagequeue.EscalationCreatedPayload{
		ConversationID: record.ConversationID,
		Priority:       record.Priority,
		Tags:           record.Tags,
		Reason:         record.EscalationReason,
		Timestamp:      record.Timestamp,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.log.Warn("escalation payload marshal failed", "error", err)
		return
	}
	if err := o.queue.Publish(ctx, messagequeue.SubjectEscalationCreated, data); err != nil {
		o.log.Warn("escalation publish failed",
			"conversation_id", record.ConversationID,
			"error", err,
		)
	}
}

func snapshot(state *orchestration.State) *conversation.Snapshot {
	return &conversation.Snapshot{
		ConversationID:  state.ConversationID,
		Message:         state.Message,
		Response:        state.FinalResponse,
		Escalation:      state.Escalation,
		Confidence:      state.FinalConfidence,
		Classification:  state.Classification,
		Status:          state.Status,
		ResolutionState: state.ResolutionState,
		OverrideID:      state.OverrideID,
		HandoffSummary:  state.HandoffSummary,
	}
}

func buildResult(state *orchestration.State) *orchestration.Result {
	escalationSummary := state.HandoffSummary
	if escalationSummary == "" && state.Escalation != nil {
		escalationSummary = state.Escalation.Summary
	}

	topic := state.Classification.PrimaryTopic
	if topic == "" {
		topic = "unknown"
	}

	return &orchestration.Result{
		Status:            state.Status,
		Message:           state.FinalResponse,
		Confidence:        state.FinalConfidence,
		Sources:           state.Sources,
		EscalationSummary: escalationSummary,
		Agent:             topic,
		Topic:             topic,
		ResolutionState:   state.ResolutionState,
		OverrideUsed:      state.OverrideID != "",
		HandoffSummary:    state.HandoffSummary,
	}
}
