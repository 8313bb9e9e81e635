package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/policy"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate classification rules",
	Long: `Inspect the effective rule set: built-in rules, the rules file and
enabled packs, merged in that order.

Examples:
  dataclassify rules list
  dataclassify rules validate ./rules.yaml`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective rules, highest priority first",
	RunE:  rulesList,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that a rules file (and enabled packs) compile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  rulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}

func rulesList(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	rules := rt.engine.Rules()
	fmt.Fprintf(out, "%-28s %8s  %-8s %-13s %s\n", "ID", "PRIORITY", "ENABLED", "LABEL", "CONDITIONS")
	fmt.Fprintln(out, strings.Repeat("─", 72))
	for _, r := range rules {
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(out, "%-28s %8d  %-8s %-13s %d\n", r.ID, r.Priority, enabled, ruleLabel(r), len(r.Conditions))
	}
	fmt.Fprintln(out, strings.Repeat("─", 72))
	fmt.Fprintf(out, "%d rules (rules file: %s)\n", len(rules), rt.cfg.Rules.Path)
	return nil
}

func rulesValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Rules.Path = args[0]
	}

	rs, infos, err := loadRuleSet(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, info := range infos {
		if info.Err != nil {
			return fmt.Errorf("pack %s: %w", info.Path, info.Err)
		}
	}

	n, err := validateRuleSet(rs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\xe2\x9c\x85 %s: %d rules compile (%d packs)\n", cfg.Rules.Path, n, len(infos))
	return nil
}

// validateRuleSet builds a throwaway engine from rs and returns how many
// rules it registered.
func validateRuleSet(rs *policy.RuleSet) (int, error) {
	opts, err := rs.Options(time.Now())
	if err != nil {
		return 0, err
	}
	engine, err := classify.NewEngine(opts...)
	if err != nil {
		return 0, err
	}
	return len(engine.Rules()), nil
}

func ruleLabel(r classify.Rule) string {
	best := classify.Classification("")
	for _, a := range r.Actions {
		if c, ok := a.Label(); ok && c.Level() > best.Level() {
			best = c
		}
	}
	if best == "" {
		return "-"
	}
	return string(best)
}
