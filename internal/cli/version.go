package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/dataclassify/internal/classify"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print dataclassify version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dataclassify %s\n", Version)
		fmt.Fprintf(out, "  Commit:   %s\n", GitCommit)
		fmt.Fprintf(out, "  Built:    %s\n", BuildDate)
		fmt.Fprintf(out, "  Patterns: %d\n", len(classify.PatternNames()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
