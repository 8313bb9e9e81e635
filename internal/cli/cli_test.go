package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "grades_export.csv"), "student: John Doe, grade: A-, ssn 123-45-6789")
	writeFile(t, filepath.Join(root, "billing", "pay.txt"), "card 4111-1111-1111-1111")
	writeFile(t, filepath.Join(root, "public", "README.md"), "Quarterly newsletter")
	writeFile(t, filepath.Join(root, "big.log"), strings.Repeat("x", 200))
	writeFile(t, filepath.Join(root, "image.bin"), "PNG\x00\x01\x02")
	writeFile(t, filepath.Join(root, ".git", "config"), "ssn 123-45-6789")

	engine, err := classify.NewEngine()
	require.NoError(t, err)

	stats, err := scanDirectory(context.Background(), engine, root, scanOptions{workers: 3, maxBytes: 100})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Classified)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)

	items := engine.Inventory()
	require.Len(t, items, 3)
	assert.Equal(t, "billing/pay.txt", items[0].ID)
	assert.Equal(t, classify.Restricted, items[0].Classification)
	assert.Equal(t, "grades_export.csv", items[1].ID)
	assert.Equal(t, classify.Restricted, items[1].Classification)
	assert.Equal(t, "public/README.md", items[2].ID)
	assert.Equal(t, classify.Public, items[2].Classification)
	assert.True(t, filepath.IsAbs(items[2].Path))
}

func TestScanDirectory_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	writeFile(t, file, "hello")

	engine, err := classify.NewEngine()
	require.NoError(t, err)

	_, err = scanDirectory(context.Background(), engine, file, scanOptions{workers: 1, maxBytes: 100})
	assert.Error(t, err)
}

func TestScanDirectory_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")

	engine, err := classify.NewEngine()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = scanDirectory(ctx, engine, root, scanOptions{workers: 1, maxBytes: 100})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadLimited(t *testing.T) {
	s, err := readLimited(strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	_, err = readLimited(strings.NewReader("abcd"), 3)
	assert.Error(t, err)
}

func TestFilterEvents(t *testing.T) {
	events := []logger.AuditEvent{
		{FileID: "1", Classification: "public", RunID: "r1"},
		{FileID: "2", Classification: "restricted", Flagged: true, RunID: "r1"},
		{FileID: "3", Classification: "restricted", RunID: "r2"},
	}

	tests := []struct {
		name     string
		filter   eventFilter
		expected []string
	}{
		{"none", eventFilter{}, []string{"1", "2", "3"}},
		{"classification", eventFilter{classification: "RESTRICTED"}, []string{"2", "3"}},
		{"flagged", eventFilter{flagged: true}, []string{"2"}},
		{"run", eventFilter{runID: "r1"}, []string{"1", "2"}},
		{"combined", eventFilter{classification: "restricted", runID: "r2"}, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, e := range filterEvents(events, tt.filter) {
				ids = append(ids, e.FileID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestRuleLabel(t *testing.T) {
	for _, r := range classify.BuiltinRules(time.Now()) {
		assert.NotEqual(t, "-", ruleLabel(r), r.ID)
	}
	assert.Equal(t, "-", ruleLabel(classify.Rule{ID: "x"}))
}

func TestClassifyCommand_JSONAndAudit(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	input := filepath.Join(t.TempDir(), "grades_export.csv")
	writeFile(t, input, "student: John Doe, grade: A-, ssn 123-45-6789")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "--json", "--id", "file-1", "--log-level", "error", input})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		classifyJSON, classifyID, logLevel = false, "", ""
	})

	require.NoError(t, rootCmd.Execute())

	var result classify.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "file-1", result.FileID)
	assert.Equal(t, "grades_export.csv", result.FileName)
	assert.Equal(t, classify.Restricted, result.NewClassification)

	events, err := logger.ReadEvents(filepath.Join(home, ".dataclassify", "audit.jsonl"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "restricted", events[0].Classification)
	assert.True(t, events[0].Flagged)
}
