package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/logger"
)

var (
	logFilterClassification string
	logFilterFlagged        bool
	logFilterRun            string
	logLast                 int
	logSummary              bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the dataclassify audit log with filtering and summary options.

Examples:
  dataclassify log                             # Show all entries
  dataclassify log --last 20                   # Show last 20 entries
  dataclassify log --classification restricted # Show only restricted files
  dataclassify log --flagged                   # Show only entries with compliance flags
  dataclassify log --summary                   # Show summary stats`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterClassification, "classification", "", "Filter by classification (public, internal, confidential, restricted, top_secret)")
	logCmd.Flags().BoolVar(&logFilterFlagged, "flagged", false, "Show only entries with compliance flags")
	logCmd.Flags().StringVar(&logFilterRun, "run", "", "Show only entries from one scan run")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := logger.ReadEvents(cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, eventFilter{
		classification: logFilterClassification,
		flagged:        logFilterFlagged,
		runID:          logFilterRun,
	})

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}

	printEvents(out, filtered)
	return nil
}

type eventFilter struct {
	classification string
	flagged        bool
	runID          string
}

func filterEvents(events []logger.AuditEvent, f eventFilter) []logger.AuditEvent {
	if f.classification == "" && !f.flagged && f.runID == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if f.classification != "" && !strings.EqualFold(e.Classification, f.classification) {
			continue
		}
		if f.flagged && !e.Flagged {
			continue
		}
		if f.runID != "" && e.RunID != f.runID {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		c := classify.Classification(e.Classification)
		fmt.Fprintf(w, "%s %s %-12s %s (%d%%)\n", levelIcon(c), formatTimestamp(e.Timestamp), e.Classification, e.FileName, e.Confidence)

		if len(e.AppliedRules) > 0 {
			fmt.Fprintf(w, "     Rules: %s\n", strings.Join(e.AppliedRules, ", "))
		}
		if len(e.Patterns) > 0 {
			names := make([]string, len(e.Patterns))
			for i, p := range e.Patterns {
				names[i] = fmt.Sprintf("%s x%d", p.Name, p.Matches)
			}
			fmt.Fprintf(w, "     Patterns: %s\n", strings.Join(names, ", "))
		}
		if len(e.Compliance) > 0 {
			fmt.Fprintf(w, "     Compliance: %s\n", strings.ToUpper(strings.Join(e.Compliance, ", ")))
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		fmt.Fprintf(w, "     File: %s\n", e.FileID)
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.AuditEvent) {
	counts := map[string]int{}
	frameworks := map[string]int{}
	flaggedCount := 0
	runs := map[string]bool{}

	for _, e := range all {
		counts[e.Classification]++
		for _, fw := range e.Compliance {
			frameworks[fw]++
		}
		if e.Flagged {
			flaggedCount++
		}
		if e.RunID != "" {
			runs[e.RunID] = true
		}
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  dataclassify Audit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total events:    %d\n", len(all))
	fmt.Fprintf(w, "  Scan runs:       %d\n", len(runs))
	for _, c := range []classify.Classification{classify.TopSecret, classify.Restricted, classify.Confidential, classify.Internal, classify.Public} {
		fmt.Fprintf(w, "  %-16s %d\n", string(c)+":", counts[string(c)])
	}
	fmt.Fprintf(w, "  Flagged:         %d\n", flaggedCount)
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	if len(all) > 0 {
		fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
		fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))
	}

	if len(frameworks) > 0 {
		keys := make([]string, 0, len(frameworks))
		for k := range frameworks {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Compliance flags:")
		for _, k := range keys {
			fmt.Fprintf(w, "    %-8s %d\n", strings.ToUpper(k), frameworks[k])
		}
	}

	// Most recent restricted and top_secret files
	var sensitive []logger.AuditEvent
	for _, e := range all {
		if classify.Classification(e.Classification).Level() >= classify.Restricted.Level() {
			sensitive = append(sensitive, e)
		}
	}
	if len(sensitive) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Restricted or higher:")
		limit := min(len(sensitive), 10)
		for _, e := range sensitive[len(sensitive)-limit:] {
			fmt.Fprintf(w, "    %s %s\n", formatTimestamp(e.Timestamp), e.FileID)
		}
	}

	fmt.Fprintln(w)
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
