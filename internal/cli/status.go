package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gzhole/dataclassify/internal/config"
	"github.com/gzhole/dataclassify/internal/policy"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataclassify status: config, rules, packs, audit log",
	Long: `Check which configuration, rules file, packs and audit log dataclassify
would use, and whether the effective rule set compiles.

  dataclassify status`,
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out, "  dataclassify Status")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(out)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(out, "  Binary:    %s (%s)\n", binPath, Version)
	fmt.Fprintf(out, "  Config:    %s\n", cfg.ConfigDir)
	fmt.Fprintf(out, "  Logging:   %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Rules ─────────────────────────────────────────────")
	checkRulesFile(out, cfg.Rules.Path)

	rs, infos, err := loadRuleSet(cfg)
	if err != nil {
		fmt.Fprintf(out, "  ❌ %v\n", err)
	} else {
		printPackStatus(out, infos)
		if n, err := validateRuleSet(rs); err != nil {
			fmt.Fprintf(out, "  ❌ Rule set does not compile: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✅ Effective rules: %d\n", n)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Engine ────────────────────────────────────────────")
	printEngineStatus(out, cfg)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "─── Audit Log ─────────────────────────────────────────")
	if !cfg.Audit.Enabled {
		fmt.Fprintln(out, "  ⬚  Audit logging disabled")
	} else {
		checkAuditLog(out, cfg.Audit.Path)
	}
	fmt.Fprintln(out)

	return nil
}

func checkRulesFile(w io.Writer, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  ✅ Rules file: %s\n", path)
	} else {
		fmt.Fprintln(w, "  ⬚  Rules file: using built-in rules (no custom file)")
	}
}

func printPackStatus(w io.Writer, infos []policy.PackInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "  ⬚  No rule packs installed")
		return
	}
	enabled, broken := 0, 0
	for _, info := range infos {
		if info.Err != nil {
			broken++
		} else if info.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(w, "  ✅ Rule packs: %d installed, %d enabled\n", len(infos), enabled)
	if broken > 0 {
		fmt.Fprintf(w, "  ⚠  %d pack(s) failed to parse\n", broken)
	}
}

func printEngineStatus(w io.Writer, cfg *config.Config) {
	if cfg.Engine.HistoryLimit == 0 {
		fmt.Fprintln(w, "  History:   unbounded")
	} else {
		fmt.Fprintf(w, "  History:   last %d results per file\n", cfg.Engine.HistoryLimit)
	}
	fmt.Fprintf(w, "  Scan:      %d workers, files up to %d KB\n", cfg.Scan.Workers, cfg.Scan.MaxFileBytes/1024)
}

func checkAuditLog(w io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "  ⬚  %s (not yet created, starts on first classification)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(w, "  ✅ %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(w, "  ✅ %s (%d KB)\n", path, sizeKB)
	}
}
