// Package classify maps free-text issue descriptions onto the service catalog
// using weighted keyword scoring. It never asks the language model to invent
// options: ambiguity produces a deterministic clarification prompt instead.
package classify

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
)

// Confidence tiers for a classification.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Classification methods.
const (
	MethodKeyword             = "keyword"
	MethodClarificationNeeded = "clarification_needed"
)

// Result is the outcome of one classification call. It is consumed
// immediately by the caller and never persisted.
type Result struct {
	IssueType       string
	Description     string
	Price           float64
	Confidence      string
	Method          string
	MatchedKeywords []string
}

// Classified reports whether the result is usable without clarification.
// Medium and high confidence both count.
func (r Result) Classified() bool {
	return r.Method == MethodKeyword && r.Confidence != ConfidenceLow
}

// Classifier scores descriptions against active catalog entries.
type Classifier struct {
	catalog catalog.Repository

	// highMultiplier is the ratio the top score must exceed the runner-up by
	// to be called a clear winner. Empirically tuned, so configurable.
	highMultiplier float64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithHighMultiplier overrides the high-confidence score ratio (default 2.0).
func WithHighMultiplier(m float64) Option {
	return func(c *Classifier) {
		if m > 1 {
			c.highMultiplier = m
		}
	}
}

// New returns a classifier reading from the given catalog.
func New(repo catalog.Repository, opts ...Option) *Classifier {
	if repo == nil {
		panic("classify: catalog repository required")
	}
	c := &Classifier{catalog: repo, highMultiplier: 2.0}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scoredEntry struct {
	entry   catalog.Entry
	score   int
	matched []string
}

// Classify scores the description against every active catalog entry.
// Score per entry is the sum of len(keyword) x occurrences over all matched
// keywords, which favors specific multi-keyword matches over single generic
// ones.
func (c *Classifier) Classify(ctx context.Context, description string) (Result, error) {
	entries, err := c.catalog.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("classify: catalog unavailable: %w", err)
	}

	normalized := strings.ToLower(strings.TrimSpace(description))

	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		var score int
		var matched []string
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(kw)
			if count := strings.Count(normalized, kw); count > 0 {
				score += len(kw) * count
				matched = append(matched, kw)
			}
		}
		if score > 0 {
			scored = append(scored, scoredEntry{entry: entry, score: score, matched: matched})
		}
	}

	if len(scored) == 0 {
		return Result{
			Confidence: ConfidenceLow,
			Method:     MethodClarificationNeeded,
		}, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	top := scored[0]
	second := 0
	if len(scored) > 1 {
		second = scored[1].score
	}

	confidence := ConfidenceLow
	switch {
	case float64(top.score) > c.highMultiplier*float64(second):
		confidence = ConfidenceHigh
	case top.score > second:
		confidence = ConfidenceMedium
	}

	if confidence == ConfidenceLow {
		// Genuine tie between entries; force clarification.
		return Result{
			Confidence: ConfidenceLow,
			Method:     MethodClarificationNeeded,
		}, nil
	}

	return Result{
		IssueType:       top.entry.IssueType,
		Description:     top.entry.Description,
		Price:           top.entry.Price,
		Confidence:      confidence,
		Method:          MethodKeyword,
		MatchedKeywords: top.matched,
	}, nil
}

// ClarificationQuestion builds the deterministic fallback prompt listing every
// catalog option with its price, so the caller always has a safe reply when
// classification fails.
func (c *Classifier) ClarificationQuestion(ctx context.Context) (string, error) {
	entries, err := c.catalog.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("classify: catalog unavailable: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("I want to make sure I route this correctly. Which of these best matches your issue?")
	for i, entry := range entries {
		sb.WriteString(fmt.Sprintf(" Option %d: %s for $%.2f.", i+1, entry.Description, entry.Price))
	}
	sb.WriteString(" You can say the option number or describe the issue again.")
	return sb.String(), nil
}

var (
	optionNumberRE = regexp.MustCompile(`(?i)\b(?:option\s*)?([1-9])\b`)
	ordinals       = []string{"first", "second", "third", "fourth", "fifth", "sixth", "seventh", "eighth", "ninth"}
)

// ExtractDirectSelection resolves an explicit selection from a clarification
// reply: "option 2", "the second one", or a direct keyword/type mention. It
// returns nil when the reply names nothing recognizable.
func (c *Classifier) ExtractDirectSelection(ctx context.Context, text string) (*catalog.Entry, error) {
	entries, err := c.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("classify: catalog unavailable: %w", err)
	}
	normalized := strings.ToLower(strings.TrimSpace(text))

	if match := optionNumberRE.FindStringSubmatch(normalized); match != nil {
		idx := int(match[1][0]-'0') - 1
		if idx >= 0 && idx < len(entries) {
			entry := entries[idx]
			return &entry, nil
		}
	}

	for i, ordinal := range ordinals {
		if strings.Contains(normalized, ordinal) && i < len(entries) {
			entry := entries[i]
			return &entry, nil
		}
	}

	// Direct mention of the issue type or one of its keywords.
	best := -1
	bestScore := 0
	for i, entry := range entries {
		if strings.Contains(normalized, strings.ReplaceAll(entry.IssueType, "_", " ")) {
			entry := entry
			return &entry, nil
		}
		score := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(normalized, strings.ToLower(kw)) {
				score += len(kw)
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		entry := entries[best]
		return &entry, nil
	}
	return nil, nil
}
