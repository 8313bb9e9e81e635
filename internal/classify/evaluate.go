package classify

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Evaluation is the outcome of running the rule set against one input.
type Evaluation struct {
	AppliedRules   []string
	Classification Classification
	Confidence     int
}

const (
	confidencePerHit = 10
	maxHitBonus      = 30
)

// Evaluate runs rules in descending priority order (ties keep their
// original order). A rule matches when any one of its conditions is true;
// conditions are tried in order and the first true one decides the rule's
// hit count. Label actions of matching rules can only raise the running
// classification, never lower it. With no matching rule the result is
// public with confidence 0.
func Evaluate(rules []Rule, fileName, content string, metadata Metadata) Evaluation {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	in := input{fileName: fileName, content: content, metadata: metadata}
	ev := Evaluation{
		AppliedRules:   []string{},
		Classification: Public,
	}
	bestLevel := 0

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}

		hits := 0
		for _, cond := range rule.Conditions {
			if hits = evaluateCondition(cond, in); hits > 0 {
				break
			}
		}
		if hits == 0 {
			continue
		}

		ev.AppliedRules = append(ev.AppliedRules, rule.ID)
		for _, action := range rule.Actions {
			if c, ok := action.Label(); ok && c.Level() > bestLevel {
				bestLevel = c.Level()
				ev.Classification = c
			}
		}

		confidence := min(100, rule.Priority+min(hits*confidencePerHit, maxHitBonus))
		ev.Confidence = max(ev.Confidence, confidence)
	}

	return ev
}

// input is the view of one classification request that conditions read.
type input struct {
	fileName string
	content  string
	metadata Metadata
}

// evaluateCondition returns how many times the condition matched; 0 means
// false. Regex and glob conditions that did not go through compileRule are
// compiled here. Conditions that cannot be evaluated (bad pattern, missing
// metadata key, non-numeric operand) are false.
func evaluateCondition(c Condition, in input) int {
	if c.matcher == nil && (c.Operator == OpRegex || c.Operator == OpMatches) {
		if err := compileCondition(&c); err != nil {
			return 0
		}
	}

	switch c.Operator {
	case OpGreaterThan, OpLessThan:
		got, ok := in.number(c)
		if !ok {
			return 0
		}
		want, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return 0
		}
		if (c.Operator == OpGreaterThan && got > want) || (c.Operator == OpLessThan && got < want) {
			return 1
		}
		return 0
	}

	field, ok := in.text(c)
	if !ok {
		return 0
	}

	switch c.Operator {
	case OpContains:
		value := c.Value
		if !c.CaseSensitive {
			field, value = strings.ToLower(field), strings.ToLower(value)
		}
		if value == "" {
			return 1
		}
		return strings.Count(field, value)
	case OpEquals:
		if c.CaseSensitive && field == c.Value {
			return 1
		}
		if !c.CaseSensitive && strings.EqualFold(field, c.Value) {
			return 1
		}
		return 0
	case OpMatches:
		if c.matcher != nil && c.matcher.match(field) {
			return 1
		}
		return 0
	case OpRegex:
		rm, ok := c.matcher.(regexMatcher)
		if !ok {
			return 0
		}
		return len(rm.re.FindAllStringIndex(field, -1))
	default:
		return 0
	}
}

// text resolves the condition's field to a string.
func (in input) text(c Condition) (string, bool) {
	switch c.Field {
	case FieldContent:
		return in.content, true
	case FieldFilename:
		return in.fileName, true
	case FieldExtension:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(in.fileName)), "."), true
	case FieldPath:
		return in.metadata.Path(), true
	case FieldSize:
		return strconv.FormatFloat(in.size(), 'f', -1, 64), true
	case FieldMetadata:
		if c.Key == "" {
			return in.metadata.flatten(), true
		}
		v, ok := in.metadata[c.Key]
		if !ok || v == nil {
			return "", false
		}
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}

// number resolves the condition's field to a number.
func (in input) number(c Condition) (float64, bool) {
	if c.Field == FieldSize {
		return in.size(), true
	}
	s, ok := in.text(c)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// size is metadata["size"] when numeric, otherwise the content length.
func (in input) size() float64 {
	if f, ok := toFloat(in.metadata["size"]); ok {
		return f
	}
	return float64(len(in.content))
}

// Path returns metadata["path"] when it is a string.
func (m Metadata) Path() string {
	p, _ := m["path"].(string)
	return p
}

func (m Metadata) flatten() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
