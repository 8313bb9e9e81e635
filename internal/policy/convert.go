package policy

import (
	"fmt"
	"time"

	"github.com/gzhole/dataclassify/internal/classify"
)

// EngineRules converts the YAML rule specs into engine rules. Rules are
// enabled unless they say otherwise. Compilation of regexes and globs is
// left to the engine.
func (rs *RuleSet) EngineRules() ([]classify.Rule, error) {
	rules := make([]classify.Rule, 0, len(rs.Rules))
	for _, s := range rs.Rules {
		r, err := convertRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Options returns the engine options that install this rule set: the
// built-in rules unless disabled, followed by the custom rules, with every
// ID listed in defaults.disable switched off.
func (rs *RuleSet) Options(now time.Time) ([]classify.Option, error) {
	custom, err := rs.EngineRules()
	if err != nil {
		return nil, err
	}

	var rules []classify.Rule
	if !rs.Defaults.DisableBuiltins {
		rules = append(rules, classify.BuiltinRules(now)...)
	}
	rules = append(rules, custom...)

	disabled := make(map[string]bool, len(rs.Defaults.Disable))
	for _, id := range rs.Defaults.Disable {
		disabled[id] = true
	}
	for i := range rules {
		if disabled[rules[i].ID] {
			rules[i].Enabled = false
		}
	}

	return []classify.Option{
		classify.WithoutBuiltinRules(),
		classify.WithRules(rules...),
	}, nil
}

func convertRule(s RuleSpec) (classify.Rule, error) {
	r := classify.Rule{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Priority:    s.Priority,
		Enabled:     s.Enabled == nil || *s.Enabled,
	}
	if r.Name == "" {
		r.Name = s.ID
	}

	for i, c := range s.Conditions {
		if len(c.Value) == 0 {
			return classify.Rule{}, fmt.Errorf("%w: rule %s condition %d has no value", classify.ErrInvalidRule, s.ID, i)
		}
		for _, v := range c.Value {
			r.Conditions = append(r.Conditions, classify.Condition{
				Field:         c.Field,
				Operator:      c.Operator,
				Value:         v,
				Key:           c.Key,
				CaseSensitive: c.CaseSensitive,
			})
		}
	}

	if s.Label != "" {
		r.Actions = append(r.Actions, classify.Action{
			Type:       classify.ActionLabel,
			Parameters: map[string]string{"classification": s.Label},
		})
	}
	r.Actions = append(r.Actions, s.Actions...)

	return r, nil
}
