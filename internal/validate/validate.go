// Package validate holds the deterministic field checks the agent runs before
// trusting anything the caller (or the language model) claims about collected
// data. All functions are pure and stateless.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the uniform outcome of every validator.
type Result struct {
	IsValid      bool
	Sanitized    string
	ErrorMessage string
}

func valid(sanitized string) Result {
	return Result{IsValid: true, Sanitized: sanitized}
}

func invalid(msg string) Result {
	return Result{IsValid: false, ErrorMessage: msg}
}

var (
	emailRE    = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,}$`)
	alphaRunRE = regexp.MustCompile(`[a-zA-Z]{2}`)
	nonDigitRE = regexp.MustCompile(`\D`)
)

// Email trims and lowercases the input, then checks it against a standard
// local@domain.tld shape. The sanitized value is the lowercase form.
func Email(s string) Result {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	if cleaned == "" {
		return invalid("email address is empty")
	}
	if !emailRE.MatchString(cleaned) {
		return invalid(fmt.Sprintf("%q does not look like a valid email address", cleaned))
	}
	return valid(cleaned)
}

// Phone strips all non-digit characters and accepts 10-15 digits. Exactly ten
// digits are reformatted as (AAA) BBB-CCCC; anything longer is returned trimmed
// as given.
func Phone(s string) Result {
	trimmed := strings.TrimSpace(s)
	digits := nonDigitRE.ReplaceAllString(trimmed, "")
	if len(digits) < 10 || len(digits) > 15 {
		return invalid(fmt.Sprintf("phone number must contain 10 to 15 digits, got %d", len(digits)))
	}
	if len(digits) == 10 {
		return valid(fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:10]))
	}
	return valid(trimmed)
}

// Name accepts 2-100 characters containing at least two consecutive letters,
// which rejects bare numbers and stray punctuation picked up by the STT layer.
func Name(s string) Result {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return invalid("name must be between 2 and 100 characters")
	}
	if !alphaRunRE.MatchString(trimmed) {
		return invalid("name must contain letters")
	}
	return valid(trimmed)
}

// Address accepts 10-500 characters.
func Address(s string) Result {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 10 || len(trimmed) > 500 {
		return invalid("address must be between 10 and 500 characters")
	}
	return valid(trimmed)
}

// Issue accepts 5-1000 characters of free-text issue description.
func Issue(s string) Result {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 5 || len(trimmed) > 1000 {
		return invalid("issue description must be between 5 and 1000 characters")
	}
	return valid(trimmed)
}
