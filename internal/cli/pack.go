package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/dataclassify/internal/policy"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Manage rule packs",
	Long: `Manage dataclassify rule packs.

Rule packs are YAML rule files for a specific domain (health records, HR,
payments). Packs are stored in ~/.dataclassify/packs/ and merged after the
rules file at runtime. A pack whose file name starts with "_" is disabled.

Examples:
  dataclassify pack list              # List installed packs
  dataclassify pack enable health     # Enable a pack
  dataclassify pack disable payments  # Disable a pack
  dataclassify pack show health       # Show pack details`,
}

var packListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed rule packs",
	RunE:  packList,
}

var packEnableCmd = &cobra.Command{
	Use:   "enable <pack-name>",
	Short: "Enable a disabled rule pack",
	Args:  cobra.ExactArgs(1),
	RunE:  packEnable,
}

var packDisableCmd = &cobra.Command{
	Use:   "disable <pack-name>",
	Short: "Disable a rule pack (prefix with underscore)",
	Args:  cobra.ExactArgs(1),
	RunE:  packDisable,
}

var packShowCmd = &cobra.Command{
	Use:   "show <pack-name>",
	Short: "Show the contents of a rule pack",
	Args:  cobra.ExactArgs(1),
	RunE:  packShow,
}

func init() {
	packCmd.AddCommand(packListCmd)
	packCmd.AddCommand(packEnableCmd)
	packCmd.AddCommand(packDisableCmd)
	packCmd.AddCommand(packShowCmd)
	rootCmd.AddCommand(packCmd)
}

func packsDir() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.Rules.PacksDir, 0700); err != nil {
		return "", err
	}
	return cfg.Rules.PacksDir, nil
}

func packList(cmd *cobra.Command, args []string) error {
	dir, err := packsDir()
	if err != nil {
		return err
	}

	_, infos, err := policy.LoadPacks(dir, policy.DefaultRuleSet())
	if err != nil {
		return fmt.Errorf("failed to load packs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No rule packs installed.")
		fmt.Fprintf(out, "\nTo install packs, copy YAML files to: %s\n", dir)
		return nil
	}

	fmt.Fprintln(out, "Installed Rule Packs:")
	fmt.Fprintln(out, strings.Repeat("─", 60))
	for _, info := range infos {
		status := "\xe2\x9c\x85" // check mark
		if !info.Enabled {
			status = "\xe2\x9d\x8c" // cross mark
		}
		fmt.Fprintf(out, "  %s  %-25s %s\n", status, info.Name, info.Description)
		if info.Err != nil {
			fmt.Fprintf(out, "       error: %v\n", info.Err)
		} else if info.Version != "" {
			fmt.Fprintf(out, "       v%s by %s  (%d rules)\n", info.Version, info.Author, info.RuleCount)
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "\nPacks directory: %s\n", dir)
	return nil
}

func packEnable(cmd *cobra.Command, args []string) error {
	return setPack(cmd, args[0], true)
}

func packDisable(cmd *cobra.Command, args []string) error {
	return setPack(cmd, args[0], false)
}

func setPack(cmd *cobra.Command, name string, enabled bool) error {
	dir, err := packsDir()
	if err != nil {
		return err
	}

	changed, err := policy.SetPackEnabled(dir, name, enabled)
	if err != nil {
		return err
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "Pack '%s' is already %s.\n", name, state)
		return nil
	}
	fmt.Fprintf(out, "Pack '%s' %s.\n", name, state)
	return nil
}

func packShow(cmd *cobra.Command, args []string) error {
	dir, err := packsDir()
	if err != nil {
		return err
	}

	path, err := policy.FindPack(dir, args[0])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
