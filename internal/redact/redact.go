package redact

import (
	"regexp"
	"strings"
)

const (
	maskRune = '*'

	// Matches at or below this many runes are masked entirely.
	minRevealLength = 10
	// Fraction of the value left visible at each end.
	revealFraction = 0.3
)

// Sample masks the middle of a matched value, leaving roughly the first and
// last 30% visible. Values of ten runes or fewer are masked completely.
// The output always has the same rune length as the input.
//
//	"123-45-6789" → "123*****789"
//	"admin"       → "*****"
func Sample(value string) string {
	runes := []rune(value)
	n := len(runes)
	if n <= minRevealLength {
		return strings.Repeat(string(maskRune), n)
	}

	visible := int(float64(n) * revealFraction)
	out := make([]rune, n)
	for i, r := range runes {
		if i < visible || i >= n-visible {
			out[i] = r
		} else {
			out[i] = maskRune
		}
	}
	return string(out)
}

// Text replaces every match of every pattern in input with its Sample form.
// Used before free text reaches a log sink.
func Text(input string, patterns []*regexp.Regexp) string {
	result := input
	for _, pattern := range patterns {
		result = pattern.ReplaceAllStringFunc(result, Sample)
	}
	return result
}
