package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
)

func newTestClassifier(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	return New(catalog.NewStaticRepository(), opts...)
}

func TestClassifyPrinterIssue(t *testing.T) {
	c := newTestClassifier(t)
	result, err := c.Classify(context.Background(), "my printer keeps jamming, paper jam every time")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.IssueType != "printer_problems" {
		t.Errorf("IssueType = %q, want printer_problems", result.IssueType)
	}
	if result.Confidence == ConfidenceLow {
		t.Errorf("Confidence = low, want at least medium")
	}
	if result.Method != MethodKeyword {
		t.Errorf("Method = %q, want keyword", result.Method)
	}
	if result.Price != 10 {
		t.Errorf("Price = %v, want 10", result.Price)
	}
	if len(result.MatchedKeywords) == 0 {
		t.Error("expected matched keywords")
	}
	if !result.Classified() {
		t.Error("Classified() = false for a keyword match above low confidence")
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := newTestClassifier(t)
	result, err := c.Classify(context.Background(), "the weather is lovely today")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Method != MethodClarificationNeeded {
		t.Errorf("Method = %q, want clarification_needed", result.Method)
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("Confidence = %q, want low", result.Confidence)
	}
	if result.Classified() {
		t.Error("Classified() = true for a no-match result")
	}
}

func TestClassifyTieForcesClarification(t *testing.T) {
	repo := catalog.NewStaticRepository(
		catalog.Entry{IssueType: "a", Keywords: []string{"widget"}, IsActive: true},
		catalog.Entry{IssueType: "b", Keywords: []string{"gadget"}, IsActive: true},
	)
	c := New(repo)
	// "widget" and "gadget" have equal length, so one mention of each ties.
	result, err := c.Classify(context.Background(), "my widget and my gadget are broken")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Method != MethodClarificationNeeded {
		t.Errorf("Method = %q, want clarification_needed on a tie", result.Method)
	}
}

func TestClassifyConfidenceTiers(t *testing.T) {
	repo := catalog.NewStaticRepository(
		catalog.Entry{IssueType: "long", Keywords: []string{"abcdefghij"}, IsActive: true},
		catalog.Entry{IssueType: "short", Keywords: []string{"abcd"}, IsActive: true},
	)
	c := New(repo)

	// Score 10 vs 4: 10 > 2*4, clear winner.
	result, err := c.Classify(context.Background(), "abcdefghij abcd")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %q, want high for 10 vs 4", result.Confidence)
	}

	// Score 10 vs 8: narrow win, medium.
	result, err = c.Classify(context.Background(), "abcdefghij abcd abcd")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Confidence != ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium for 10 vs 8", result.Confidence)
	}
}

func TestWithHighMultiplier(t *testing.T) {
	repo := catalog.NewStaticRepository(
		catalog.Entry{IssueType: "long", Keywords: []string{"abcdefghij"}, IsActive: true},
		catalog.Entry{IssueType: "short", Keywords: []string{"abcd"}, IsActive: true},
	)
	// With a 3x bar, 10 vs 4 is only a narrow win.
	c := New(repo, WithHighMultiplier(3.0))
	result, err := c.Classify(context.Background(), "abcdefghij abcd")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Confidence != ConfidenceMedium {
		t.Errorf("Confidence = %q, want medium under 3x multiplier", result.Confidence)
	}
}

func TestClarificationQuestion(t *testing.T) {
	c := newTestClassifier(t)
	question, err := c.ClarificationQuestion(context.Background())
	if err != nil {
		t.Fatalf("ClarificationQuestion: %v", err)
	}
	for _, want := range []string{"Option 1", "Option 4", "$10.00", "$25.00"} {
		if !strings.Contains(question, want) {
			t.Errorf("question missing %q: %s", want, question)
		}
	}

	// Deterministic: two calls produce identical text.
	again, _ := c.ClarificationQuestion(context.Background())
	if question != again {
		t.Error("clarification question is not stable")
	}
}

func TestExtractDirectSelection(t *testing.T) {
	c := newTestClassifier(t)
	tests := []struct {
		input string
		want  string
	}{
		{"option 2", "email_issues"},
		{"the second one please", "email_issues"},
		{"1", "printer_problems"},
		{"it's the printer", "printer_problems"},
		{"wifi connectivity", "wifi_connectivity"},
		{"none of those", ""},
	}
	for _, tt := range tests {
		entry, err := c.ExtractDirectSelection(context.Background(), tt.input)
		if err != nil {
			t.Fatalf("ExtractDirectSelection(%q): %v", tt.input, err)
		}
		got := ""
		if entry != nil {
			got = entry.IssueType
		}
		if got != tt.want {
			t.Errorf("ExtractDirectSelection(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
