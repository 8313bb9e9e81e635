package cli

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	rulesPath  string
	logPath    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dataclassify",
	Short: "dataclassify - Rule-based data classification and compliance tagging",
	Long: `dataclassify scans files for sensitive data (PII, financial, academic,
credential and health patterns), assigns a sensitivity level from public to
top_secret using prioritized rules, and flags FERPA, PCI and GDPR
obligations. Every classification is appended to a redacted audit log.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: ~/.dataclassify/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to rules YAML file (default: ~/.dataclassify/rules.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.dataclassify/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Operational log level: debug, info, warn, error (overrides config)")
}

func Execute() error {
	return rootCmd.Execute()
}
