package policy

import "github.com/gzhole/dataclassify/internal/classify"

// RuleSet is the on-disk rules file.
type RuleSet struct {
	Version  string     `yaml:"version"`
	Defaults Defaults   `yaml:"defaults"`
	Rules    []RuleSpec `yaml:"rules"`
}

type Defaults struct {
	// DisableBuiltins drops the engine's built-in rules entirely.
	DisableBuiltins bool `yaml:"disable_builtins"`
	// Disable lists rule IDs (built-in or custom) that are registered but
	// never evaluated.
	Disable []string `yaml:"disable,omitempty"`
}

// RuleSpec is one rule as written in YAML. Label is shorthand for a
// "label" action.
type RuleSpec struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Priority    int               `yaml:"priority"`
	Enabled     *bool             `yaml:"enabled,omitempty"`
	Label       string            `yaml:"label,omitempty"`
	Conditions  []ConditionSpec   `yaml:"conditions"`
	Actions     []classify.Action `yaml:"actions,omitempty"`
}

// ConditionSpec mirrors classify.Condition, except that Value may be a list.
// Each listed value becomes its own condition, which is equivalent under
// the engine's any-condition-matches semantics.
type ConditionSpec struct {
	Field         classify.Field    `yaml:"field"`
	Operator      classify.Operator `yaml:"operator"`
	Value         StringOrList      `yaml:"value"`
	Key           string            `yaml:"key,omitempty"`
	CaseSensitive bool              `yaml:"case_sensitive,omitempty"`
}

// StringOrList allows YAML fields to accept either a single string or a list.
// "student" → ["student"], ["student", "grade"] → ["student", "grade"]
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}
