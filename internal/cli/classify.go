package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gzhole/dataclassify/internal/classify"
)

var (
	classifyID   string
	classifyName string
	classifyPath string
	classifyMeta map[string]string
	classifyJSON bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Classify a single file or standard input",
	Long: `Classify one piece of content and print the sensitivity level, the
rules that fired, detected patterns (redacted) and compliance flags.

Examples:
  dataclassify classify grades_export.csv
  cat notes.txt | dataclassify classify --name notes.txt
  dataclassify classify --json --meta owner=registrar roster.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: classifyCommand,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyID, "id", "", "File id for history and inventory (default: the file path, or a random UUID for stdin)")
	classifyCmd.Flags().StringVar(&classifyName, "name", "", "File name used by filename/extension conditions (default: base name of the file)")
	classifyCmd.Flags().StringVar(&classifyPath, "path", "", "Path recorded in metadata (default: absolute path of the file)")
	classifyCmd.Flags().StringToStringVar(&classifyMeta, "meta", nil, "Extra metadata as key=value pairs")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(classifyCmd)
}

func classifyCommand(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	in := classifyInput{id: classifyID, name: classifyName, path: classifyPath}
	if len(args) == 1 {
		if err := in.fromFile(args[0], rt.cfg.Scan.MaxFileBytes); err != nil {
			return err
		}
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("no input: pass a file or pipe content on stdin")
		}
		content, err := readLimited(os.Stdin, rt.cfg.Scan.MaxFileBytes)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		in.content = content
		if in.id == "" {
			in.id = uuid.NewString()
		}
		if in.name == "" {
			in.name = "stdin"
		}
	}

	metadata := classify.Metadata{"size": len(in.content)}
	for k, v := range classifyMeta {
		metadata[k] = v
	}
	if in.path != "" {
		metadata["path"] = in.path
	}

	result := rt.engine.ClassifyContent(in.id, in.name, in.content, metadata)

	out := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(out, result)
	return nil
}

type classifyInput struct {
	id, name, path string
	content        string
}

func (in *classifyInput) fromFile(file string, maxBytes int64) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	content, err := readLimited(f, maxBytes)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	in.content = content

	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	if in.id == "" {
		in.id = abs
	}
	if in.name == "" {
		in.name = filepath.Base(file)
	}
	if in.path == "" {
		in.path = abs
	}
	return nil
}

// readLimited reads all of r, failing if it holds more than maxBytes.
func readLimited(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxBytes)
	}
	return string(data), nil
}

func printResult(w io.Writer, r classify.Result) {
	fmt.Fprintf(w, "%s %s  %s (confidence %d%%)\n",
		levelIcon(r.NewClassification), r.FileName, strings.ToUpper(string(r.NewClassification)), r.ConfidenceLevel)

	if len(r.AppliedRules) > 0 {
		fmt.Fprintf(w, "     Rules: %s\n", strings.Join(r.AppliedRules, ", "))
	}
	for _, p := range r.DetectedPatterns {
		fmt.Fprintf(w, "     Pattern: %-16s %-10s x%d  %s\n", p.Pattern, p.Type, p.Matches, p.RedactedSample)
	}
	for _, f := range r.ComplianceFlags {
		fmt.Fprintf(w, "     Compliance: %s (%s) %s\n", strings.ToUpper(string(f.Framework)), f.Severity, f.Regulation)
	}
	for _, a := range r.RecommendedActions {
		fmt.Fprintf(w, "     → %s\n", a)
	}
}

func levelIcon(c classify.Classification) string {
	switch c {
	case classify.TopSecret:
		return "\xf0\x9f\x9b\x91" // stop sign
	case classify.Restricted:
		return "\xf0\x9f\x94\x92" // lock
	case classify.Confidential:
		return "\xf0\x9f\x94\x8d" // magnifying glass
	case classify.Internal:
		return "\xf0\x9f\x8f\xa2" // office
	default:
		return "\xe2\x9c\x85" // check mark
	}
}
