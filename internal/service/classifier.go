// Package service implements the conversation orchestration pipeline and
// its decision engines.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/finchdesk/finch/internal/domain/orchestration"
	"github.com/finchdesk/finch/internal/domain/topic"
	"github.com/finchdesk/finch/internal/port/llm"
)

const classifierPromptFmt = `You are a topic classifier for a customer support system.
Your job is to classify customer queries into one or more of these topics:

%s

Analyze the query and return:
1. The primary topic (most relevant)
2. Any secondary topics (if the query touches multiple areas)
3. A confidence score (0.0 to 1.0) for each topic

Format your response as:
PRIMARY: topic_name (confidence)
SECONDARY: topic_name (confidence), topic_name (confidence)

If no topic matches well, use:
PRIMARY: general (0.5)`

// ClassifierService assigns topics to inbound messages for routing.
type ClassifierService struct {
	gen    llm.Generator
	topics *topic.Registry
}

// NewClassifierService creates a ClassifierService.
func NewClassifierService(gen llm.Generator, topics *topic.Registry) *ClassifierService {
	return &ClassifierService{gen: gen, topics: topics}
}

// Classify asks the model for a structured topic assignment. Malformed
// model output degrades to documented defaults; only the transport call
// itself can fail.
func (s *ClassifierService) Classify(ctx context.Context, query string) (orchestration.Classification, error) {
	system := fmt.Sprintf(classifierPromptFmt, s.topics.Describe())

	text, err := s.gen.Complete(ctx, system, "Customer query: "+query)
	if err != nil {
		return orchestration.Classification{}, fmt.Errorf("classify: %w", err)
	}

	c := ParseClassification(text)
	c.Source = orchestration.SourceClassifier
	return c, nil
}

// SpecialistConfigs resolves topics to enabled registry entries, preserving
// input order and dropping unknown or disabled topics silently.
func (s *ClassifierService) SpecialistConfigs(topics []string) []topic.Config {
	return s.topics.SpecialistConfigs(topics)
}

// ParseClassification parses the classifier's line-oriented response.
// It never fails: an unparsable PRIMARY line leaves the "general"/0.5
// default, malformed confidences fall back to 0.5 (primary) or 0.3
// (secondary).
func ParseClassification(text string) orchestration.Classification {
	result := orchestration.Classification{
		PrimaryTopic:      "general",
		PrimaryConfidence: 0.5,
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "PRIMARY:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "PRIMARY:"))
			name, confidence, ok := parseTopicScore(rest, 0.5)
			if !ok {
				continue
			}
			result.PrimaryTopic = name
			result.PrimaryConfidence = confidence
			result.AllTopics = append(result.AllTopics, orchestration.TopicScore{
				Topic:      name,
				Confidence: confidence,
			})

		case strings.HasPrefix(line, "SECONDARY:"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "SECONDARY:"))
			for _, part := range strings.Split(rest, ",") {
				name, confidence, ok := parseTopicScore(strings.TrimSpace(part), 0.3)
				if !ok {
					continue
				}
				result.SecondaryTopics = append(result.SecondaryTopics, name)
				result.AllTopics = append(result.AllTopics, orchestration.TopicScore{
					Topic:      name,
					Confidence: confidence,
				})
			}
		}
	}

	return result
}

// parseTopicScore parses "topic_name (0.9)". A missing parenthesis rejects
// the fragment entirely; an unparsable number inside it falls back.
func parseTopicScore(s string, fallback float64) (string, float64, bool) {
	open := strings.Index(s, "(")
	if open < 0 {
		return "", 0, false
	}

	name := strings.TrimSpace(s[:open])
	if name == "" {
		return "", 0, false
	}

	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s[open+1:]), ")"))
	confidence, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		confidence = fallback
	}

	return name, confidence, true
}
