package classify

import (
	"errors"
	"time"
)

// Classification is an ordinal sensitivity label.
type Classification string

const (
	Public       Classification = "public"
	Internal     Classification = "internal"
	Confidential Classification = "confidential"
	Restricted   Classification = "restricted"
	TopSecret    Classification = "top_secret"
)

// Level returns the ordinal of a classification (public=1 … top_secret=5).
// Unknown labels rank 0 so they never win an upgrade.
func (c Classification) Level() int {
	switch c {
	case Public:
		return 1
	case Internal:
		return 2
	case Confidential:
		return 3
	case Restricted:
		return 4
	case TopSecret:
		return 5
	default:
		return 0
	}
}

// Valid reports whether c is one of the five known labels.
func (c Classification) Valid() bool { return c.Level() > 0 }

// PatternType is the category a detected pattern belongs to.
type PatternType string

const (
	TypePII       PatternType = "pii"
	TypePHI       PatternType = "phi"
	TypeFinancial PatternType = "financial"
	TypeAcademic  PatternType = "academic"
	TypeTechnical PatternType = "technical"
	TypeSensitive PatternType = "sensitive"
)

// Framework is a regulatory framework a compliance flag refers to.
type Framework string

const (
	FrameworkFERPA Framework = "ferpa"
	FrameworkHIPAA Framework = "hipaa"
	FrameworkPCI   Framework = "pci"
	FrameworkSOX   Framework = "sox"
	FrameworkGDPR  Framework = "gdpr"
	FrameworkCCPA  Framework = "ccpa"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessPrivate    AccessLevel = "private"
	AccessRestricted AccessLevel = "restricted"
)

var (
	// ErrInvalidRule is returned when a rule cannot be compiled.
	ErrInvalidRule = errors.New("invalid classification rule")
	// ErrDuplicateRule is returned when a rule ID is already registered.
	ErrDuplicateRule = errors.New("duplicate classification rule")
)

// Field names a value a condition is evaluated against.
type Field string

const (
	FieldContent   Field = "content"
	FieldFilename  Field = "filename"
	FieldExtension Field = "extension"
	FieldPath      Field = "path"
	FieldSize      Field = "size"
	FieldMetadata  Field = "metadata"
)

type Operator string

const (
	OpContains    Operator = "contains"
	OpMatches     Operator = "matches" // glob, path.Match syntax
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpRegex       Operator = "regex"
)

type ActionType string

const (
	ActionLabel          ActionType = "label"
	ActionEncrypt        ActionType = "encrypt"
	ActionRestrictAccess ActionType = "restrict_access"
	ActionMove           ActionType = "move"
	ActionNotify         ActionType = "notify"
	ActionQuarantine     ActionType = "quarantine"
)

// Condition is a single predicate of a rule. Key selects one metadata entry
// when Field is "metadata".
type Condition struct {
	Field         Field    `json:"field" yaml:"field"`
	Operator      Operator `json:"operator" yaml:"operator"`
	Value         string   `json:"value" yaml:"value"`
	Key           string   `json:"key,omitempty" yaml:"key,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty" yaml:"case_sensitive,omitempty"`

	matcher matcher
}

// Action is an annotation attached to a rule. Only "label" actions are
// interpreted by the engine; the rest are advisory for enforcement systems.
type Action struct {
	Type       ActionType        `json:"type" yaml:"type"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Label returns the classification carried by a label action.
func (a Action) Label() (Classification, bool) {
	if a.Type != ActionLabel {
		return "", false
	}
	c := Classification(a.Parameters["classification"])
	return c, c.Valid()
}

// Rule is a prioritized bundle of OR-combined conditions plus actions.
type Rule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Priority    int         `json:"priority"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Enabled     bool        `json:"enabled"`
	Created     time.Time   `json:"created"`
	Modified    time.Time   `json:"modified"`
}

// Metadata carries caller-supplied attributes. "path" (string) and "size"
// (number) are interpreted by conditions; other keys are only visible to
// metadata conditions.
type Metadata map[string]any

// DetectedPattern is one catalog detector that matched at least once.
type DetectedPattern struct {
	Pattern        string      `json:"pattern"`
	Type           PatternType `json:"type"`
	Location       string      `json:"location"`
	Confidence     int         `json:"confidence"`
	Matches        int         `json:"matches"`
	RedactedSample string      `json:"redactedSample"`
}

type ComplianceFlag struct {
	Framework       Framework `json:"framework"`
	Regulation      string    `json:"regulation"`
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	RequiredActions []string  `json:"requiredActions"`
}

// Result is the record produced by one ClassifyContent call.
type Result struct {
	FileID             string            `json:"fileId"`
	FileName           string            `json:"fileName"`
	NewClassification  Classification    `json:"newClassification"`
	ConfidenceLevel    int               `json:"confidenceLevel"`
	AppliedRules       []string          `json:"appliedRules"`
	DetectedPatterns   []DetectedPattern `json:"detectedPatterns"`
	RecommendedActions []string          `json:"recommendedActions"`
	ComplianceFlags    []ComplianceFlag  `json:"complianceFlags"`
	Timestamp          time.Time         `json:"timestamp"`
}

// InventoryItem is the latest known classification state of a file.
type InventoryItem struct {
	ID                     string         `json:"id"`
	Name                   string         `json:"name"`
	Path                   string         `json:"path"`
	Type                   string         `json:"type"`
	Classification         Classification `json:"classification"`
	Sensitivity            Classification `json:"sensitivity"`
	DataTypes              []PatternType  `json:"dataTypes"`
	Owner                  string         `json:"owner"`
	LastClassified         time.Time      `json:"lastClassified"`
	ComplianceRequirements []string       `json:"complianceRequirements"`
	AccessLevel            AccessLevel    `json:"accessLevel"`
}

// ComplianceSummary aggregates counts across the whole inventory.
type ComplianceSummary struct {
	TotalItems       int                    `json:"totalItems"`
	ByClassification map[Classification]int `json:"byClassification"`
	ByFramework      map[string]int         `json:"byFramework"`
	ByDataType       map[PatternType]int    `json:"byDataType"`
}
