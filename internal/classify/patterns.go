package classify

import (
	"regexp"

	"github.com/gzhole/dataclassify/internal/redact"
)

// detector is one entry of the sensitive-pattern catalog.
type detector struct {
	name string
	base int // confidence before the match-count bonus
	re   *regexp.Regexp
}

const (
	matchBonusPerHit = 5
	maxMatchBonus    = 20
)

// catalog is fixed at build time. Order is the order detected patterns are
// reported in.
var catalog = []detector{
	// PII
	{"ssn", 95, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"phone", 70, regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}\b`)},
	{"email", 85, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"drivers_license", 60, regexp.MustCompile(`\b[A-Z]{1,2}\d{6,8}\b`)},

	// Financial
	{"credit_card", 90, regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
	{"bank_account", 75, regexp.MustCompile(`(?i)\b(?:bank\s+)?(?:account|acct)\s*(?:number|no\.?|num|#)?\s*[:#]?\s*\d{8,17}\b`)},
	{"routing_number", 80, regexp.MustCompile(`(?i)\b(?:routing|aba|rtn)\s*(?:number|no\.?|num|#)?\s*[:#]?\s*\d{9}\b`)},

	// Academic
	{"student_id", 80, regexp.MustCompile(`(?i)\bstudent[\s_-]*(?:id|number|no\.?|#)\s*[:#]?\s*[A-Z0-9]{5,12}\b`)},
	{"grade_pattern", 65, regexp.MustCompile(`\b(?i:grade|gpa)\s*[:=]?\s*(?:[A-F][+-]?(?:[^A-Za-z0-9]|$)|[0-4]\.\d{1,2}\b)`)},

	// Technical / credentials
	{"api_key", 90, regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}`)},
	{"password_hash", 95, regexp.MustCompile(`\$(?:2[aby]?\$\d{2}\$[./A-Za-z0-9]{53}|argon2(?:id|i|d)\$\S+|6\$[^$\s]+\$[./A-Za-z0-9]{86})`)},
	{"jwt_token", 90, regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{5,}\.eyJ[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{10,}`)},

	// PHI
	{"mrn", 85, regexp.MustCompile(`(?i)\b(?:mrn|medical\s+record\s*(?:number|no\.?|#)?)\s*[:#]?\s*[A-Z0-9]{6,10}\b`)},
	{"dob", 75, regexp.MustCompile(`(?i)\b(?:dob|d\.o\.b\.?|date\s+of\s+birth|birth\s*date)\s*[:=]?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)},
}

// PatternTypeOf maps a catalog pattern name to its category.
func PatternTypeOf(name string) PatternType {
	switch name {
	case "ssn", "phone", "email", "drivers_license":
		return TypePII
	case "credit_card", "bank_account", "routing_number":
		return TypeFinancial
	case "student_id", "grade_pattern":
		return TypeAcademic
	case "api_key", "password_hash", "jwt_token":
		return TypeTechnical
	case "mrn", "dob":
		return TypePHI
	default:
		return TypeSensitive
	}
}

// PatternNames lists the catalog in reporting order.
func PatternNames() []string {
	names := make([]string, len(catalog))
	for i, d := range catalog {
		names[i] = d.name
	}
	return names
}

// PatternExpressions returns the compiled catalog regexes, for callers that
// need to mask the same shapes elsewhere (e.g. audit logs).
func PatternExpressions() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(catalog))
	for i, d := range catalog {
		res[i] = d.re
	}
	return res
}

// Scan runs every catalog detector over content. A detector that matches
// one or more times produces exactly one DetectedPattern; the match count
// only affects confidence. Scan does not depend on rule state.
func Scan(fileName, content string) []DetectedPattern {
	detected := []DetectedPattern{}
	for _, d := range catalog {
		matches := d.re.FindAllString(content, -1)
		if len(matches) == 0 {
			continue
		}
		detected = append(detected, DetectedPattern{
			Pattern:        d.name,
			Type:           PatternTypeOf(d.name),
			Location:       fileName,
			Confidence:     min(100, d.base+min(len(matches)*matchBonusPerHit, maxMatchBonus)),
			Matches:        len(matches),
			RedactedSample: redact.Sample(matches[0]),
		})
	}
	return detected
}
