package classify

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/dataclassify/internal/metrics"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type recorderFunc func(Result) error

func (f recorderFunc) Record(r Result) error { return f(r) }

func TestEngine_GradesExportScenario(t *testing.T) {
	e := newTestEngine(t)

	result := e.ClassifyContent("file-1", "grades_export.csv",
		"student: John Doe, grade: A-, ssn 123-45-6789", Metadata{})

	ssn, ok := patternByName(result.DetectedPatterns, "ssn")
	require.True(t, ok)
	assert.Equal(t, TypePII, ssn.Type)
	grade, ok := patternByName(result.DetectedPatterns, "grade_pattern")
	require.True(t, ok)
	assert.Equal(t, TypeAcademic, grade.Type)

	assert.Equal(t, []string{"rule-pii-detection", "rule-ferpa-student-data"}, result.AppliedRules)
	assert.Equal(t, Restricted, result.NewClassification)
	assert.Equal(t, 100, result.ConfidenceLevel)

	require.Len(t, result.ComplianceFlags, 2)
	assert.Equal(t, FrameworkFERPA, result.ComplianceFlags[0].Framework)
	assert.Equal(t, SeverityHigh, result.ComplianceFlags[0].Severity)
	assert.Equal(t, FrameworkGDPR, result.ComplianceFlags[1].Framework)
	assert.Equal(t, SeverityHigh, result.ComplianceFlags[1].Severity)

	assert.Contains(t, result.RecommendedActions, "Ensure FERPA compliance for student education records")
	assert.Equal(t, "file-1", result.FileID)
	assert.False(t, result.Timestamp.IsZero())
}

func TestEngine_PublicPathDoesNotDowngrade(t *testing.T) {
	e := newTestEngine(t)

	result := e.ClassifyContent("f", "notes.txt", "ssn 123-45-6789",
		Metadata{"path": "/srv/public/notes.txt"})
	assert.Equal(t, Confidential, result.NewClassification)
	assert.Contains(t, result.AppliedRules, "rule-public-content")
}

func TestEngine_CreditCardRaisesSinglePCIFlag(t *testing.T) {
	e := newTestEngine(t)

	result := e.ClassifyContent("pay", "pay.txt", "card 4111-1111-1111-1111", nil)
	require.Len(t, result.ComplianceFlags, 1)
	assert.Equal(t, FrameworkPCI, result.ComplianceFlags[0].Framework)
	assert.Equal(t, SeverityCritical, result.ComplianceFlags[0].Severity)
	assert.Equal(t, Restricted, result.NewClassification)
}

func TestEngine_PublicOnlyHasNoFlags(t *testing.T) {
	e := newTestEngine(t)

	result := e.ClassifyContent("news", "notes.txt", "Quarterly newsletter",
		Metadata{"path": "/srv/public/notes.txt"})
	assert.Equal(t, Public, result.NewClassification)
	assert.Equal(t, []string{"rule-public-content"}, result.AppliedRules)
	assert.Equal(t, 20, result.ConfidenceLevel)
	assert.Empty(t, result.ComplianceFlags)
	assert.Empty(t, result.DetectedPatterns)
	assert.Empty(t, result.RecommendedActions)
}

func TestEngine_HistoryAccumulatesInventoryOverwrites(t *testing.T) {
	e := newTestEngine(t, WithClock(tickingClock()))

	e.ClassifyContent("doc", "doc.txt", "nothing here", nil)
	e.ClassifyContent("doc", "doc.txt", "ssn 123-45-6789", nil)

	history := e.History("doc")
	require.Len(t, history, 2)
	assert.Equal(t, Public, history[0].NewClassification)
	assert.Equal(t, Confidential, history[1].NewClassification)
	assert.True(t, history[0].Timestamp.Before(history[1].Timestamp))

	count := 0
	for _, item := range e.Inventory() {
		if item.ID == "doc" {
			count++
			assert.Equal(t, Confidential, item.Classification)
			assert.Equal(t, history[1].Timestamp, item.LastClassified)
		}
	}
	assert.Equal(t, 1, count)
}

func TestEngine_HistoryOfUnknownFileIsEmpty(t *testing.T) {
	e := newTestEngine(t)
	h := e.History("missing")
	assert.NotNil(t, h)
	assert.Empty(t, h)
}

func TestEngine_HistoryIsACopy(t *testing.T) {
	e := newTestEngine(t)
	e.ClassifyContent("doc", "doc.txt", "ssn 123-45-6789", nil)

	h := e.History("doc")
	h[0].AppliedRules[0] = "tampered"
	h[0].NewClassification = TopSecret

	again := e.History("doc")
	assert.Equal(t, "rule-pii-detection", again[0].AppliedRules[0])
	assert.Equal(t, Confidential, again[0].NewClassification)
}

func TestEngine_HistoryLimit(t *testing.T) {
	e := newTestEngine(t, WithHistoryLimit(2), WithClock(tickingClock()))

	var results []Result
	for i := 0; i < 3; i++ {
		results = append(results, e.ClassifyContent("doc", "doc.txt", fmt.Sprintf("run %d", i), nil))
	}

	h := e.History("doc")
	require.Len(t, h, 2)
	assert.Equal(t, results[1].Timestamp, h[0].Timestamp)
	assert.Equal(t, results[2].Timestamp, h[1].Timestamp)
}

func TestEngine_InventoryItem(t *testing.T) {
	e := newTestEngine(t)

	e.ClassifyContent("b", "pay.txt", "card 4111-1111-1111-1111", Metadata{"path": "/finance/pay.txt"})
	e.ClassifyContent("a", "grades.csv", "ssn 123-45-6789", nil)

	items := e.Inventory()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)

	a := items[0]
	assert.Equal(t, "grades.csv", a.Path)
	assert.Equal(t, "file", a.Type)
	assert.Equal(t, "system", a.Owner)
	assert.Equal(t, Restricted, a.Classification)
	assert.Equal(t, a.Classification, a.Sensitivity)
	assert.Equal(t, AccessRestricted, a.AccessLevel)
	assert.Equal(t, []PatternType{TypePII}, a.DataTypes)
	assert.Equal(t, []string{"GDPR"}, a.ComplianceRequirements)

	b := items[1]
	assert.Equal(t, "/finance/pay.txt", b.Path)
	assert.Equal(t, []string{"PCI"}, b.ComplianceRequirements)
}

func TestEngine_InventoryByClassification(t *testing.T) {
	e := newTestEngine(t)
	e.ClassifyContent("1", "a.txt", "ssn 123-45-6789", nil)
	e.ClassifyContent("2", "b.txt", "hello", nil)
	e.ClassifyContent("3", "c.txt", "date of birth on file", nil)

	confidential := e.InventoryByClassification(Confidential)
	require.Len(t, confidential, 2)
	assert.Equal(t, "1", confidential[0].ID)
	assert.Equal(t, "3", confidential[1].ID)

	public := e.InventoryByClassification(Public)
	require.Len(t, public, 1)
	assert.Equal(t, AccessPublic, public[0].AccessLevel)

	assert.Empty(t, e.InventoryByClassification(TopSecret))
}

func TestEngine_ComplianceSummary(t *testing.T) {
	e := newTestEngine(t)

	empty := e.ComplianceSummary()
	assert.Equal(t, 0, empty.TotalItems)
	assert.NotNil(t, empty.ByClassification)

	e.ClassifyContent("ssn", "a.txt", "ssn 123-45-6789", nil)
	e.ClassifyContent("card", "b.txt", "card 4111-1111-1111-1111", nil)
	e.ClassifyContent("clean", "c.txt", "hello", nil)
	e.ClassifyContent("clean", "c.txt", "hello again", nil)

	s := e.ComplianceSummary()
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 1, s.ByClassification[Confidential])
	assert.Equal(t, 1, s.ByClassification[Restricted])
	assert.Equal(t, 1, s.ByClassification[Public])
	assert.Equal(t, map[string]int{"GDPR": 1, "PCI": 1}, s.ByFramework)
	assert.Equal(t, 1, s.ByDataType[TypePII])
	assert.Equal(t, 1, s.ByDataType[TypeFinancial])
}

func TestEngine_AddRule(t *testing.T) {
	e := newTestEngine(t, WithoutBuiltinRules())
	assert.Empty(t, e.Rules())

	err := e.AddRule(Rule{
		ID:         "rule-hr",
		Priority:   60,
		Enabled:    true,
		Conditions: []Condition{{Field: FieldContent, Operator: OpContains, Value: "salary"}},
		Actions:    []Action{label(Confidential)},
	})
	require.NoError(t, err)

	rules := e.Rules()
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Created.IsZero())
	assert.Equal(t, rules[0].Created, rules[0].Modified)

	result := e.ClassifyContent("hr", "hr.txt", "salary bands", nil)
	assert.Equal(t, Confidential, result.NewClassification)
	assert.Equal(t, 70, result.ConfidenceLevel)

	err = e.AddRule(Rule{ID: "rule-hr"})
	assert.True(t, errors.Is(err, ErrDuplicateRule))
}

func TestEngine_RulesSortedByPriority(t *testing.T) {
	e := newTestEngine(t, WithRules(Rule{ID: "rule-low", Priority: 1, Enabled: true}))

	rules := e.Rules()
	require.Len(t, rules, 6)
	assert.Equal(t, "rule-pii-detection", rules[0].ID)
	assert.Equal(t, "rule-low", rules[5].ID)
	for i := 1; i < len(rules); i++ {
		assert.GreaterOrEqual(t, rules[i-1].Priority, rules[i].Priority)
	}
}

func TestNewEngine_RejectsInvalidRules(t *testing.T) {
	_, err := NewEngine(WithRules(Rule{
		ID:         "rule-bad",
		Enabled:    true,
		Conditions: []Condition{{Field: FieldContent, Operator: OpRegex, Value: "(unclosed"}},
	}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRule))

	_, err = NewEngine(WithRules(Rule{ID: "rule-pii-detection"}))
	assert.True(t, errors.Is(err, ErrDuplicateRule))
}

func TestEngine_IndependentInstances(t *testing.T) {
	a := newTestEngine(t)
	b := newTestEngine(t)

	a.ClassifyContent("x", "x.txt", "hello", nil)
	assert.Len(t, a.Inventory(), 1)
	assert.Empty(t, b.Inventory())
}

func TestEngine_RecorderAndMetrics(t *testing.T) {
	m := metrics.NewCollector("test")
	var recorded []Result
	e := newTestEngine(t,
		WithMetrics(m),
		WithRecorder(recorderFunc(func(r Result) error {
			recorded = append(recorded, r)
			if r.FileID == "fail" {
				return errors.New("disk full")
			}
			return nil
		})),
	)

	ok := e.ClassifyContent("ok", "a.txt", "ssn 123-45-6789", nil)
	failed := e.ClassifyContent("fail", "b.txt", "hello", nil)

	require.Len(t, recorded, 2)
	assert.Equal(t, ok, recorded[0])
	assert.Equal(t, Public, failed.NewClassification)
	assert.Len(t, e.Inventory(), 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("confidential")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatternDetections.WithLabelValues("ssn", "pii")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleMatches.WithLabelValues("rule-pii-detection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComplianceFlags.WithLabelValues("gdpr", "high")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InventoryItems))
}

func TestEngine_ConcurrentClassification(t *testing.T) {
	e := newTestEngine(t)

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e.ClassifyContent("shared", "shared.txt", "ssn 123-45-6789", nil)
				e.ClassifyContent(fmt.Sprintf("w%d-%d", w, i), "f.txt", "hello", nil)
				_ = e.Inventory()
				_ = e.ComplianceSummary()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, e.History("shared"), workers*perWorker)
	assert.Len(t, e.Inventory(), workers*perWorker+1)
}
