package redact

import (
	"regexp"
	"strings"
	"testing"
)

func TestSample_RevealsEnds(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123-45-6789", "123*****789"},
		{"4111-1111-1111-1111", "4111-*********-1111"},
		{"jane.doe@example.com", "jane.d********le.com"},
	}

	for _, tt := range tests {
		result := Sample(tt.input)
		if result != tt.expected {
			t.Errorf("Sample(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
		if len([]rune(result)) != len([]rune(tt.input)) {
			t.Errorf("Sample(%q) changed length: %d -> %d", tt.input, len(tt.input), len(result))
		}
	}
}

func TestSample_ShortValuesFullyMasked(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"admin", "*****"},
		{"0123456789", "**********"},
		{"", ""},
	}

	for _, tt := range tests {
		if result := Sample(tt.input); result != tt.expected {
			t.Errorf("Sample(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestSample_MultibyteRunes(t *testing.T) {
	input := "ÅÅÅÅÅÅÅÅÅÅÅÅ" // 12 runes
	result := Sample(input)
	if len([]rune(result)) != 12 {
		t.Fatalf("expected 12 runes, got %d", len([]rune(result)))
	}
	if !strings.HasPrefix(result, "ÅÅÅ*") || !strings.HasSuffix(result, "*ÅÅÅ") {
		t.Errorf("unexpected sample %q", result)
	}
}

func TestText_MasksEveryMatch(t *testing.T) {
	ssn := regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	input := "first 123-45-6789 then 987-65-4321"

	result := Text(input, []*regexp.Regexp{ssn})
	if strings.Contains(result, "123-45-6789") || strings.Contains(result, "987-65-4321") {
		t.Errorf("Text(%q) = %q, expected matches to be masked", input, result)
	}
	if !strings.HasPrefix(result, "first 123*****789") {
		t.Errorf("unexpected masking: %q", result)
	}
}

func TestText_PreservesNonSensitive(t *testing.T) {
	ssn := regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	input := "quarterly report"
	if result := Text(input, []*regexp.Regexp{ssn}); result != input {
		t.Errorf("Non-sensitive input should not be modified: got %q", result)
	}
}
