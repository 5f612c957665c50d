package validate

import (
	"strings"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantClean string
	}{
		{"uppercase with padding", "  USER@EXAMPLE.COM  ", true, "user@example.com"},
		{"plain", "john@example.com", true, "john@example.com"},
		{"subdomain", "a.b@mail.example.co.uk", true, "a.b@mail.example.co.uk"},
		{"not an email", "not-an-email", false, ""},
		{"missing tld", "user@example", false, ""},
		{"single letter tld", "user@example.c", false, ""},
		{"empty", "   ", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Email(tt.input)
			if got.IsValid != tt.wantValid {
				t.Fatalf("Email(%q).IsValid = %v, want %v (%s)", tt.input, got.IsValid, tt.wantValid, got.ErrorMessage)
			}
			if tt.wantValid && got.Sanitized != tt.wantClean {
				t.Errorf("Email(%q).Sanitized = %q, want %q", tt.input, got.Sanitized, tt.wantClean)
			}
			if !tt.wantValid && got.ErrorMessage == "" {
				t.Error("invalid result is missing an error message")
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantClean string
	}{
		{"formatted", "(510) 555-1234", true, "(510) 555-1234"},
		{"bare digits", "5105551234", true, "(510) 555-1234"},
		{"dashed", "510-555-1234", true, "(510) 555-1234"},
		{"international", "+44 20 7946 0958 123", true, "+44 20 7946 0958 123"},
		{"too short", "123456", false, ""},
		{"too long", "1234567890123456", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phone(tt.input)
			if got.IsValid != tt.wantValid {
				t.Fatalf("Phone(%q).IsValid = %v, want %v", tt.input, got.IsValid, tt.wantValid)
			}
			if tt.wantValid && got.Sanitized != tt.wantClean {
				t.Errorf("Phone(%q).Sanitized = %q, want %q", tt.input, got.Sanitized, tt.wantClean)
			}
		})
	}
}

func TestName(t *testing.T) {
	if got := Name("John Doe"); !got.IsValid || got.Sanitized != "John Doe" {
		t.Errorf("Name(John Doe) = %+v, want valid with identical sanitized value", got)
	}
	if got := Name("J"); got.IsValid {
		t.Error("Name(J) should be invalid")
	}
	if got := Name("123"); got.IsValid {
		t.Error("Name(123) should be invalid: no alphabetic run")
	}
	if got := Name(strings.Repeat("a", 101)); got.IsValid {
		t.Error("101-char name should be invalid")
	}
}

func TestAddressAndIssue(t *testing.T) {
	if got := Address("123 Main St, Anytown, USA"); !got.IsValid {
		t.Errorf("Address rejected a plausible address: %s", got.ErrorMessage)
	}
	if got := Address("short"); got.IsValid {
		t.Error("Address under 10 chars should be invalid")
	}
	if got := Issue("my printer keeps jamming"); !got.IsValid {
		t.Errorf("Issue rejected a plausible description: %s", got.ErrorMessage)
	}
	if got := Issue("bad"); got.IsValid {
		t.Error("Issue under 5 chars should be invalid")
	}
	if got := Issue(strings.Repeat("x", 1001)); got.IsValid {
		t.Error("Issue over 1000 chars should be invalid")
	}
}

func TestExtractEmail(t *testing.T) {
	if got := ExtractEmail("I'm John, my email is a@b.com, thanks"); got != "a@b.com" {
		t.Errorf("ExtractEmail = %q, want a@b.com", got)
	}
	if got := ExtractEmail("no address here"); got != "" {
		t.Errorf("ExtractEmail = %q, want empty", got)
	}
}

func TestExtractPhone(t *testing.T) {
	if got := ExtractPhone("call me at 510-555-1234 tomorrow"); got != "510-555-1234" {
		t.Errorf("ExtractPhone = %q, want 510-555-1234", got)
	}
	if got := ExtractPhone("I have 99 problems"); got != "" {
		t.Errorf("ExtractPhone = %q, want empty", got)
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hi, I'm John Doe", "John Doe"},
		{"my name is Jane Smith", "Jane Smith"},
		{"this is Bob O'Neil and my printer is broken", "Bob O'Neil"},
		{"just some words", ""},
	}
	for _, tt := range tests {
		if got := ExtractName(tt.input); got != tt.want {
			t.Errorf("ExtractName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
