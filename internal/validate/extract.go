package validate

import (
	"regexp"
	"strings"
)

// Callers often pack several facts into one utterance ("I'm John, my email is
// a@b.com"), so extraction looks for embedded substrings before validating.
var (
	embeddedEmailRE = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	embeddedPhoneRE = regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`)
	spokenNameRE    = regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm|this is|call me)\s+([a-zA-Z][a-zA-Z .'-]*[a-zA-Z])`)
)

// ExtractEmail returns the first email-shaped substring of text, or "".
func ExtractEmail(text string) string {
	return embeddedEmailRE.FindString(text)
}

// ExtractPhone returns the first phone-shaped substring of text that carries
// 10-15 digits, or "".
func ExtractPhone(text string) string {
	for _, candidate := range embeddedPhoneRE.FindAllString(text, -1) {
		digits := nonDigitRE.ReplaceAllString(candidate, "")
		if len(digits) >= 10 && len(digits) <= 15 {
			return strings.TrimSpace(candidate)
		}
	}
	return ""
}

// ExtractName pulls a name out of common spoken lead-ins ("Hi, I'm John Doe").
// Returns "" when no lead-in is present; callers fall back to the raw text.
func ExtractName(text string) string {
	match := spokenNameRE.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	name := strings.TrimSpace(match[1])
	// STT tends to append trailing filler after the name ("I'm John Doe and my
	// printer is broken"); cut at the first clause boundary.
	for _, sep := range []string{" and ", " And ", ", "} {
		if idx := strings.Index(name, sep); idx > 0 {
			name = name[:idx]
		}
	}
	return strings.TrimSpace(name)
}
