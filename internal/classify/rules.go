package classify

import (
	"fmt"
	"maps"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// matcher is the pre-compiled form of a regex or glob condition value.
type matcher interface {
	match(s string) bool
}

type regexMatcher struct{ re *regexp.Regexp }

func (m regexMatcher) match(s string) bool { return m.re.MatchString(s) }

type globMatcher struct {
	pattern string
	fold    bool
}

func (m globMatcher) match(s string) bool {
	if m.fold {
		s = strings.ToLower(s)
	}
	ok, err := path.Match(m.pattern, s)
	return err == nil && ok
}

// compileRule validates r and returns a copy whose regex and glob
// conditions are compiled. The caller's slices and maps are not shared with
// the returned rule.
func compileRule(r Rule) (Rule, error) {
	if strings.TrimSpace(r.ID) == "" {
		return Rule{}, fmt.Errorf("%w: rule has no id", ErrInvalidRule)
	}

	out := r
	out.Conditions = make([]Condition, len(r.Conditions))
	for i, c := range r.Conditions {
		if err := compileCondition(&c); err != nil {
			return Rule{}, fmt.Errorf("%w: rule %s condition %d: %v", ErrInvalidRule, r.ID, i, err)
		}
		out.Conditions[i] = c
	}

	out.Actions = make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		if a.Type == ActionLabel {
			if _, ok := a.Label(); !ok {
				return Rule{}, fmt.Errorf("%w: rule %s action %d: unknown classification %q",
					ErrInvalidRule, r.ID, i, a.Parameters["classification"])
			}
		}
		a.Parameters = maps.Clone(a.Parameters)
		out.Actions[i] = a
	}

	return out, nil
}

func compileCondition(c *Condition) error {
	switch c.Field {
	case FieldContent, FieldFilename, FieldExtension, FieldPath, FieldSize, FieldMetadata:
	default:
		return fmt.Errorf("unknown field %q", c.Field)
	}

	c.matcher = nil
	switch c.Operator {
	case OpContains, OpEquals:
	case OpRegex:
		expr := c.Value
		if !c.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("bad regex %q: %w", c.Value, err)
		}
		c.matcher = regexMatcher{re: re}
	case OpMatches:
		pattern := c.Value
		if !c.CaseSensitive {
			pattern = strings.ToLower(pattern)
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad glob %q: %w", c.Value, err)
		}
		c.matcher = globMatcher{pattern: pattern, fold: !c.CaseSensitive}
	case OpGreaterThan, OpLessThan:
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return fmt.Errorf("operator %s needs a numeric value, got %q", c.Operator, c.Value)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

func label(c Classification) Action {
	return Action{Type: ActionLabel, Parameters: map[string]string{"classification": string(c)}}
}

// BuiltinRules returns the five rules every engine starts with, highest
// priority first.
func BuiltinRules(now time.Time) []Rule {
	rules := []Rule{
		{
			ID:          "rule-pii-detection",
			Name:        "PII Detection",
			Description: "Personally identifiable information such as social security numbers.",
			Priority:    100,
			Conditions: []Condition{
				{Field: FieldContent, Operator: OpRegex, Value: `\b\d{3}-\d{2}-\d{4}\b`},
				{Field: FieldContent, Operator: OpContains, Value: "social security"},
				{Field: FieldContent, Operator: OpContains, Value: "date of birth"},
			},
			Actions: []Action{
				label(Confidential),
				{Type: ActionEncrypt, Parameters: map[string]string{"algorithm": "AES-256"}},
				{Type: ActionRestrictAccess, Parameters: map[string]string{"level": "need_to_know"}},
			},
		},
		{
			ID:          "rule-ferpa-student-data",
			Name:        "FERPA Student Data",
			Description: "Student educational records protected under FERPA.",
			Priority:    90,
			Conditions: []Condition{
				{Field: FieldContent, Operator: OpContains, Value: "student"},
				{Field: FieldContent, Operator: OpContains, Value: "grade"},
				{Field: FieldFilename, Operator: OpRegex, Value: `(student|grade|transcript|roster|enrollment)`},
			},
			Actions: []Action{
				label(Restricted),
				{Type: ActionRestrictAccess, Parameters: map[string]string{"level": "educational_officials"}},
				{Type: ActionNotify, Parameters: map[string]string{"recipient": "registrar"}},
			},
		},
		{
			ID:          "rule-financial-data",
			Name:        "Financial Data",
			Description: "Payment card and bank account information.",
			Priority:    80,
			Conditions: []Condition{
				{Field: FieldContent, Operator: OpRegex, Value: `\b(?:\d{4}[-\s]?){3}\d{4}\b`},
				{Field: FieldContent, Operator: OpContains, Value: "routing number"},
				{Field: FieldContent, Operator: OpContains, Value: "account number"},
				{Field: FieldFilename, Operator: OpRegex, Value: `(invoice|payroll|bank|statement)`},
			},
			Actions: []Action{
				label(Restricted),
				{Type: ActionEncrypt, Parameters: map[string]string{"algorithm": "AES-256"}},
				{Type: ActionNotify, Parameters: map[string]string{"recipient": "compliance"}},
			},
		},
		{
			ID:          "rule-system-credentials",
			Name:        "System Credentials",
			Description: "API keys, private keys and other secrets.",
			Priority:    70,
			Conditions: []Condition{
				{Field: FieldContent, Operator: OpRegex, Value: `\b(?:api[_-]?key|secret[_-]?key|access[_-]?token|password)\s*[:=]\s*\S{8,}`},
				{Field: FieldContent, Operator: OpContains, Value: "-----begin"},
				{Field: FieldExtension, Operator: OpRegex, Value: `^(env|pem|key|p12|pfx)$`},
			},
			Actions: []Action{
				label(TopSecret),
				{Type: ActionQuarantine, Parameters: map[string]string{"reason": "credential exposure"}},
				{Type: ActionNotify, Parameters: map[string]string{"recipient": "security"}},
			},
		},
		{
			ID:          "rule-public-content",
			Name:        "Public Content",
			Description: "Content intended for public release.",
			Priority:    10,
			Conditions: []Condition{
				{Field: FieldPath, Operator: OpContains, Value: "/public/"},
				{Field: FieldFilename, Operator: OpMatches, Value: "readme*"},
				{Field: FieldContent, Operator: OpContains, Value: "for public release"},
			},
			Actions: []Action{label(Public)},
		},
	}

	for i := range rules {
		rules[i].Enabled = true
		rules[i].Created = now
		rules[i].Modified = now
	}
	return rules
}
