package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a rules file. A missing file yields an empty rule set, which
// leaves the engine with its built-in rules only.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuleSet(), nil
		}
		return nil, err
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", path, err)
	}
	if rs.Version == "" {
		rs.Version = currentVersion
	}

	return &rs, nil
}

const currentVersion = "1"

func DefaultRuleSet() *RuleSet {
	return &RuleSet{Version: currentVersion}
}
