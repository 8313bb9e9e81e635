package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrPackNotFound is returned when no enabled or disabled file exists for a
// pack name.
var ErrPackNotFound = errors.New("pack not found")

// Pack is a named bundle of rules shipped as its own YAML file.
type Pack struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	PackVersion string     `yaml:"version"`
	Author      string     `yaml:"author"`
	Defaults    Defaults   `yaml:"defaults"`
	Rules       []RuleSpec `yaml:"rules"`
}

// PackInfo is a summary of a pack for listing.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	RuleCount   int
	Err         error
}

// LoadPacks reads all .yaml files from the packs directory and merges them
// into the base rule set. Pack rules are appended after the base rules and
// disabled IDs are unioned. Files whose name starts with "_" are listed but
// not merged. A pack that fails to parse is reported in its PackInfo and
// skipped.
func LoadPacks(packsDir string, base *RuleSet) (*RuleSet, []PackInfo, error) {
	var infos []PackInfo

	entries, err := os.ReadDir(packsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return nil, nil, err
	}

	result := cloneRuleSet(base)

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(packsDir, entry.Name())
		baseName := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		enabled := !strings.HasPrefix(baseName, "_")

		pack, err := loadPack(path)
		if err != nil {
			infos = append(infos, PackInfo{
				Name:    strings.TrimPrefix(baseName, "_"),
				Enabled: enabled,
				Path:    path,
				Err:     err,
			})
			continue
		}

		info := PackInfo{
			Name:        pack.Name,
			Description: pack.Description,
			Version:     pack.PackVersion,
			Author:      pack.Author,
			Enabled:     enabled,
			Path:        path,
			RuleCount:   len(pack.Rules),
		}
		if info.Name == "" {
			info.Name = strings.TrimPrefix(baseName, "_")
		}
		infos = append(infos, info)

		if !enabled {
			continue
		}

		mergePackInto(result, pack)
	}

	return result, infos, nil
}

// SetPackEnabled renames <name>.yaml to _<name>.yaml or back. It reports
// whether anything changed.
func SetPackEnabled(packsDir, name string, enabled bool) (bool, error) {
	enabledPath := filepath.Join(packsDir, name+".yaml")
	disabledPath := filepath.Join(packsDir, "_"+name+".yaml")

	from, to := disabledPath, enabledPath
	if !enabled {
		from, to = enabledPath, disabledPath
	}

	if _, err := os.Stat(from); err == nil {
		if err := os.Rename(from, to); err != nil {
			return false, fmt.Errorf("failed to rename pack %s: %w", name, err)
		}
		return true, nil
	}
	if _, err := os.Stat(to); err == nil {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s in %s", ErrPackNotFound, name, packsDir)
}

// FindPack returns the file backing a pack, enabled or not.
func FindPack(packsDir, name string) (string, error) {
	for _, candidate := range []string{name + ".yaml", "_" + name + ".yaml"} {
		path := filepath.Join(packsDir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrPackNotFound, name, packsDir)
}

func loadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse pack %s: %w", path, err)
	}

	return &pack, nil
}

func mergePackInto(target *RuleSet, pack *Pack) {
	target.Rules = append(target.Rules, pack.Rules...)

	if pack.Defaults.DisableBuiltins {
		target.Defaults.DisableBuiltins = true
	}

	existing := make(map[string]bool)
	for _, id := range target.Defaults.Disable {
		existing[id] = true
	}
	for _, id := range pack.Defaults.Disable {
		if !existing[id] {
			existing[id] = true
			target.Defaults.Disable = append(target.Defaults.Disable, id)
		}
	}
}

func cloneRuleSet(rs *RuleSet) *RuleSet {
	clone := &RuleSet{
		Version: rs.Version,
		Defaults: Defaults{
			DisableBuiltins: rs.Defaults.DisableBuiltins,
		},
	}

	clone.Defaults.Disable = make([]string, len(rs.Defaults.Disable))
	copy(clone.Defaults.Disable, rs.Defaults.Disable)

	clone.Rules = make([]RuleSpec, len(rs.Rules))
	copy(clone.Rules, rs.Rules)

	return clone
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
