package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/redact"
)

// defaultMaxLogBytes is the size at which the audit log is rotated to
// <path>.1.
const defaultMaxLogBytes = 10 * 1024 * 1024

type AuditEvent struct {
	Timestamp      string         `json:"timestamp"`
	EventID        string         `json:"event_id"`
	RunID          string         `json:"run_id,omitempty"`
	FileID         string         `json:"file_id"`
	FileName       string         `json:"file_name"`
	Classification string         `json:"classification"`
	Confidence     int            `json:"confidence"`
	AppliedRules   []string       `json:"applied_rules,omitempty"`
	Patterns       []AuditPattern `json:"patterns,omitempty"`
	Compliance     []string       `json:"compliance,omitempty"`
	Flagged        bool           `json:"flagged,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// AuditPattern is the logged form of a detected pattern. Only the redacted
// sample is kept.
type AuditPattern struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Matches int    `json:"matches"`
	Sample  string `json:"sample,omitempty"`
}

// AuditLogger appends one JSON line per classification. It satisfies
// classify.Recorder.
type AuditLogger struct {
	path     string
	file     *os.File
	size     int64
	maxBytes int64
	runID    string
	mu       sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetRunID tags every subsequent event, e.g. with the id of a directory
// scan.
func (l *AuditLogger) SetRunID(id string) {
	l.mu.Lock()
	l.runID = id
	l.mu.Unlock()
}

// Record converts a classification result into an audit event and logs it.
func (l *AuditLogger) Record(result classify.Result) error {
	event := AuditEvent{
		Timestamp:      result.Timestamp.UTC().Format(time.RFC3339),
		FileID:         result.FileID,
		FileName:       result.FileName,
		Classification: string(result.NewClassification),
		Confidence:     result.ConfidenceLevel,
		AppliedRules:   result.AppliedRules,
		Flagged:        len(result.ComplianceFlags) > 0,
	}
	for _, p := range result.DetectedPatterns {
		event.Patterns = append(event.Patterns, AuditPattern{
			Name:    p.Pattern,
			Type:    string(p.Type),
			Matches: p.Matches,
			Sample:  p.RedactedSample,
		})
	}
	for _, f := range result.ComplianceFlags {
		event.Compliance = append(event.Compliance, string(f.Framework))
	}
	return l.Log(event)
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// File names and errors can themselves carry sensitive values.
	patterns := classify.PatternExpressions()
	event.FileID = redact.Text(event.FileID, patterns)
	event.FileName = redact.Text(event.FileName, patterns)
	if event.Error != "" {
		event.Error = redact.Text(event.Error, patterns)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if l.size > 0 && l.size+int64(len(data)) > l.maxBytes {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}

	n, err := l.file.Write(data)
	l.size += int64(n)
	return err
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// rotate moves the current log to <path>.1, replacing any older backup.
func (l *AuditLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	l.file = nil
	renameErr := os.Rename(l.path, l.path+".1")
	if err := l.open(); err != nil {
		return err
	}
	return renameErr
}

// ReadEvents loads every well-formed event from a JSONL audit log. A
// missing file yields no events.
func ReadEvents(path string) ([]AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
