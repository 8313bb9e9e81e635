package classify

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gzhole/dataclassify/internal/metrics"
)

// Recorder receives every classification result after it has been stored,
// e.g. to append it to an audit log. Errors are logged, never returned to
// the ClassifyContent caller.
type Recorder interface {
	Record(result Result) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules registers additional rules after the built-in set.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.extra = append(e.extra, rules...) }
}

// WithoutBuiltinRules starts the engine with only the rules passed through
// WithRules.
func WithoutBuiltinRules() Option {
	return func(e *Engine) { e.builtins = false }
}

// WithHistoryLimit keeps at most n results per file; 0 keeps everything.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.historyLimit = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine classifies content against an ordered rule set and keeps the
// per-file history and latest-state inventory in memory. It is safe for
// concurrent use.
type Engine struct {
	mu        sync.RWMutex
	rules     []Rule
	history   map[string][]Result
	inventory map[string]InventoryItem

	historyLimit int
	builtins     bool
	extra        []Rule

	log      *zap.Logger
	metrics  *metrics.Collector
	recorder Recorder
	now      func() time.Time
}

// NewEngine builds an engine. Every rule is compiled up front; an invalid
// regex, glob, operator or label fails construction.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		history:   make(map[string][]Result),
		inventory: make(map[string]InventoryItem),
		builtins:  true,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	var initial []Rule
	if e.builtins {
		initial = append(initial, BuiltinRules(e.now())...)
	}
	initial = append(initial, e.extra...)
	e.extra = nil

	for _, r := range initial {
		if err := e.AddRule(r); err != nil {
			return nil, fmt.Errorf("registering rule %q: %w", r.ID, err)
		}
	}
	return e, nil
}

// AddRule compiles and registers a rule. IDs must be unique.
func (e *Engine) AddRule(r Rule) error {
	compiled, err := compileRule(r)
	if err != nil {
		return err
	}
	now := e.now()
	if compiled.Created.IsZero() {
		compiled.Created = now
	}
	if compiled.Modified.IsZero() {
		compiled.Modified = compiled.Created
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.rules {
		if existing.ID == compiled.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, compiled.ID)
		}
	}
	e.rules = append(e.rules, compiled)
	return nil
}

// Rules returns the registered rules, highest priority first.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		rules[i] = cloneRule(r)
	}
	e.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules
}

// ClassifyContent scans content, evaluates the rules, derives compliance
// flags and recommendations, appends the result to the file's history and
// replaces the file's inventory row. It always returns a result.
func (e *Engine) ClassifyContent(fileID, fileName, content string, metadata Metadata) Result {
	start := time.Now()

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	patterns := Scan(fileName, content)
	ev := Evaluate(rules, fileName, content, metadata)
	flags := AnalyzeCompliance(patterns, ev.Classification)

	result := Result{
		FileID:             fileID,
		FileName:           fileName,
		NewClassification:  ev.Classification,
		ConfidenceLevel:    min(ev.Confidence, 100),
		AppliedRules:       ev.AppliedRules,
		DetectedPatterns:   patterns,
		RecommendedActions: Recommend(ev.Classification, patterns, flags),
		ComplianceFlags:    flags,
		Timestamp:          e.now(),
	}
	item := newInventoryItem(result, metadata)

	e.mu.Lock()
	h := append(e.history[fileID], cloneResult(result))
	if e.historyLimit > 0 && len(h) > e.historyLimit {
		h = append([]Result(nil), h[len(h)-e.historyLimit:]...)
	}
	e.history[fileID] = h
	e.inventory[fileID] = item
	tracked := len(e.inventory)
	e.mu.Unlock()

	elapsed := time.Since(start)
	e.observe(result, tracked, elapsed)

	e.log.Debug("content classified",
		zap.String("file_id", fileID),
		zap.String("classification", string(result.NewClassification)),
		zap.Int("confidence", result.ConfidenceLevel),
		zap.Strings("rules", result.AppliedRules),
		zap.Int("patterns", len(patterns)),
		zap.Int("flags", len(flags)),
		zap.Duration("elapsed", elapsed),
	)

	if e.recorder != nil {
		if err := e.recorder.Record(cloneResult(result)); err != nil {
			e.metrics.ObserveAuditFailure()
			e.log.Warn("failed to record classification", zap.String("file_id", fileID), zap.Error(err))
		}
	}

	return result
}

func (e *Engine) observe(result Result, tracked int, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveClassification(string(result.NewClassification), elapsed)
	for _, id := range result.AppliedRules {
		e.metrics.ObserveRule(id)
	}
	for _, p := range result.DetectedPatterns {
		e.metrics.ObservePattern(p.Pattern, string(p.Type))
	}
	for _, f := range result.ComplianceFlags {
		e.metrics.ObserveFlag(string(f.Framework), string(f.Severity))
	}
	e.metrics.SetInventorySize(tracked)
}

// History returns every stored result for fileID, oldest first. Unknown
// files yield an empty slice.
func (e *Engine) History(fileID string) []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h := e.history[fileID]
	out := make([]Result, len(h))
	for i, r := range h {
		out[i] = cloneResult(r)
	}
	return out
}

// Inventory returns the latest state of every classified file, sorted by id.
func (e *Engine) Inventory() []InventoryItem {
	return e.filterInventory(func(InventoryItem) bool { return true })
}

// InventoryByClassification returns the inventory rows carrying c.
func (e *Engine) InventoryByClassification(c Classification) []InventoryItem {
	return e.filterInventory(func(item InventoryItem) bool { return item.Classification == c })
}

func (e *Engine) filterInventory(keep func(InventoryItem) bool) []InventoryItem {
	e.mu.RLock()
	items := make([]InventoryItem, 0, len(e.inventory))
	for _, item := range e.inventory {
		if keep(item) {
			items = append(items, cloneItem(item))
		}
	}
	e.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// ComplianceSummary counts classifications, compliance frameworks and data
// types across the current inventory. It is recomputed on every call.
func (e *Engine) ComplianceSummary() ComplianceSummary {
	summary := ComplianceSummary{
		ByClassification: make(map[Classification]int),
		ByFramework:      make(map[string]int),
		ByDataType:       make(map[PatternType]int),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	summary.TotalItems = len(e.inventory)
	for _, item := range e.inventory {
		summary.ByClassification[item.Classification]++
		for _, fw := range item.ComplianceRequirements {
			summary.ByFramework[fw]++
		}
		for _, dt := range item.DataTypes {
			summary.ByDataType[dt]++
		}
	}
	return summary
}

func newInventoryItem(r Result, metadata Metadata) InventoryItem {
	path := metadata.Path()
	if path == "" {
		path = r.FileName
	}

	dataTypes := []PatternType{}
	seen := make(map[PatternType]bool)
	for _, p := range r.DetectedPatterns {
		if !seen[p.Type] {
			seen[p.Type] = true
			dataTypes = append(dataTypes, p.Type)
		}
	}

	requirements := make([]string, 0, len(r.ComplianceFlags))
	for _, f := range r.ComplianceFlags {
		requirements = append(requirements, strings.ToUpper(string(f.Framework)))
	}

	return InventoryItem{
		ID:                     r.FileID,
		Name:                   r.FileName,
		Path:                   path,
		Type:                   "file",
		Classification:         r.NewClassification,
		Sensitivity:            r.NewClassification,
		DataTypes:              dataTypes,
		Owner:                  "system",
		LastClassified:         r.Timestamp,
		ComplianceRequirements: requirements,
		AccessLevel:            accessLevelFor(r.NewClassification),
	}
}

func accessLevelFor(c Classification) AccessLevel {
	switch c {
	case Public:
		return AccessPublic
	case Restricted, TopSecret:
		return AccessRestricted
	default:
		return AccessPrivate
	}
}

func cloneRule(r Rule) Rule {
	r.Conditions = append([]Condition(nil), r.Conditions...)
	actions := make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		a.Parameters = maps.Clone(a.Parameters)
		actions[i] = a
	}
	r.Actions = actions
	return r
}

func cloneResult(r Result) Result {
	r.AppliedRules = append([]string{}, r.AppliedRules...)
	r.DetectedPatterns = append([]DetectedPattern{}, r.DetectedPatterns...)
	r.RecommendedActions = append([]string{}, r.RecommendedActions...)
	flags := make([]ComplianceFlag, len(r.ComplianceFlags))
	for i, f := range r.ComplianceFlags {
		flags[i] = cloneFlag(f)
	}
	r.ComplianceFlags = flags
	return r
}

func cloneItem(item InventoryItem) InventoryItem {
	item.DataTypes = append([]PatternType{}, item.DataTypes...)
	item.ComplianceRequirements = append([]string{}, item.ComplianceRequirements...)
	return item
}
