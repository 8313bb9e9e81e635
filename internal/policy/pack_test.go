package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func baseRuleSet() *RuleSet {
	return &RuleSet{
		Version: "1",
		Defaults: Defaults{
			Disable: []string{"rule-public-content"},
		},
		Rules: []RuleSpec{
			{
				ID:       "hr-salary",
				Priority: 60,
				Label:    "confidential",
				Conditions: []ConditionSpec{
					{Field: "content", Operator: "contains", Value: StringOrList{"salary"}},
				},
			},
		},
	}
}

func writePack(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPacks_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	result, infos, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected 0 pack infos, got %d", len(infos))
	}
	if len(result.Rules) != len(base.Rules) {
		t.Errorf("expected %d rules, got %d", len(base.Rules), len(result.Rules))
	}
}

func TestLoadPacks_NonExistentDir(t *testing.T) {
	base := baseRuleSet()
	result, _, err := LoadPacks("/nonexistent/path/packs", base)
	if err != nil {
		t.Fatalf("unexpected error for non-existent dir: %v", err)
	}
	if len(result.Rules) != len(base.Rules) {
		t.Errorf("expected base rules unchanged")
	}
}

func TestLoadPacks_MergesRules(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	writePack(t, dir, "health.yaml", `
name: "Health Records"
description: "Patient data"
version: "1.0.0"
author: "Compliance"
rules:
  - id: "hipaa-chart"
    priority: 95
    label: restricted
    conditions:
      - field: content
        operator: contains
        value: ["diagnosis", "patient"]
  - id: "hipaa-filename"
    priority: 85
    label: confidential
    conditions:
      - field: filename
        operator: matches
        value: "chart_*.pdf"
`)

	result, infos, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(infos) != 1 {
		t.Fatalf("expected 1 pack info, got %d", len(infos))
	}
	if infos[0].Name != "Health Records" {
		t.Errorf("expected pack name 'Health Records', got %q", infos[0].Name)
	}
	if infos[0].RuleCount != 2 {
		t.Errorf("expected 2 rules in pack, got %d", infos[0].RuleCount)
	}
	if !infos[0].Enabled {
		t.Error("expected pack to be enabled")
	}

	if len(result.Rules) != len(base.Rules)+2 {
		t.Errorf("expected %d merged rules, got %d", len(base.Rules)+2, len(result.Rules))
	}
	if got := result.Rules[1].Conditions[0].Value; len(got) != 2 {
		t.Errorf("expected list value to parse into 2 entries, got %v", got)
	}
}

func TestLoadPacks_DisabledPack(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	writePack(t, dir, "_draft.yaml", `
name: "Draft"
rules:
  - id: "draft-rule"
    label: top_secret
    conditions:
      - field: content
        operator: contains
        value: "anything"
`)

	result, infos, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(infos) != 1 {
		t.Fatalf("expected 1 pack info, got %d", len(infos))
	}
	if infos[0].Enabled {
		t.Error("expected pack to be disabled")
	}
	if len(result.Rules) != len(base.Rules) {
		t.Errorf("disabled pack rules should not merge: expected %d, got %d", len(base.Rules), len(result.Rules))
	}
}

func TestLoadPacks_MergesDisabledIDs(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	writePack(t, dir, "quiet.yaml", `
name: "Quiet"
defaults:
  disable:
    - "rule-public-content"
    - "rule-financial-data"
rules: []
`)

	result, _, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// rule-public-content is already disabled in base
	if len(result.Defaults.Disable) != 2 {
		t.Errorf("expected 2 disabled ids, got %v", result.Defaults.Disable)
	}
}

func TestLoadPacks_BrokenPackIsReported(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	writePack(t, dir, "broken.yaml", "rules: [unterminated")
	writePack(t, dir, "notes.txt", "ignored")

	result, infos, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 pack info, got %d", len(infos))
	}
	if infos[0].Err == nil || infos[0].Name != "broken" {
		t.Errorf("expected parse error for 'broken', got %+v", infos[0])
	}
	if len(result.Rules) != len(base.Rules) {
		t.Errorf("broken pack must not change rules")
	}
}

func TestLoadPacks_MultiplePacks(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()

	writePack(t, dir, "a-pack.yaml", `
name: "Pack A"
rules:
  - id: "a-rule"
    conditions:
      - {field: content, operator: contains, value: "a"}
`)
	writePack(t, dir, "b-pack.yml", `
name: "Pack B"
rules:
  - id: "b-rule-1"
    conditions:
      - {field: content, operator: contains, value: "b1"}
  - id: "b-rule-2"
    conditions:
      - {field: content, operator: contains, value: "b2"}
`)

	result, infos, err := LoadPacks(dir, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 pack infos, got %d", len(infos))
	}
	if len(result.Rules) != len(base.Rules)+3 {
		t.Errorf("expected %d merged rules, got %d", len(base.Rules)+3, len(result.Rules))
	}
}

func TestLoadPacks_DoesNotMutateBase(t *testing.T) {
	dir := t.TempDir()
	base := baseRuleSet()
	baseRuleCount := len(base.Rules)
	baseDisableCount := len(base.Defaults.Disable)

	writePack(t, dir, "mutation.yaml", `
name: "Mutation Test"
defaults:
  disable: ["rule-pii-detection"]
rules:
  - id: "extra-rule"
    conditions:
      - {field: content, operator: contains, value: "extra"}
`)

	if _, _, err := LoadPacks(dir, base); err != nil {
		t.Fatal(err)
	}

	if len(base.Rules) != baseRuleCount {
		t.Errorf("base rules were mutated: expected %d, got %d", baseRuleCount, len(base.Rules))
	}
	if len(base.Defaults.Disable) != baseDisableCount {
		t.Errorf("base disable list was mutated: expected %d, got %d", baseDisableCount, len(base.Defaults.Disable))
	}
}

func TestSetPackEnabled(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, "finance.yaml", "name: Finance\nrules: []\n")

	changed, err := SetPackEnabled(dir, "finance", false)
	if err != nil || !changed {
		t.Fatalf("disable: changed=%v err=%v", changed, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "_finance.yaml")); err != nil {
		t.Errorf("expected _finance.yaml after disabling: %v", err)
	}

	changed, err = SetPackEnabled(dir, "finance", false)
	if err != nil || changed {
		t.Errorf("second disable should be a no-op: changed=%v err=%v", changed, err)
	}

	path, err := FindPack(dir, "finance")
	if err != nil || filepath.Base(path) != "_finance.yaml" {
		t.Errorf("FindPack returned %q, %v", path, err)
	}

	changed, err = SetPackEnabled(dir, "finance", true)
	if err != nil || !changed {
		t.Fatalf("enable: changed=%v err=%v", changed, err)
	}

	_, err = SetPackEnabled(dir, "missing", true)
	if !errors.Is(err, ErrPackNotFound) {
		t.Errorf("expected ErrPackNotFound, got %v", err)
	}
	if _, err := FindPack(dir, "missing"); !errors.Is(err, ErrPackNotFound) {
		t.Errorf("expected ErrPackNotFound from FindPack, got %v", err)
	}
}
