package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the classification metrics on a private registry so that
// several engines (and tests) never collide on the default registerer.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	PatternDetections      *prometheus.CounterVec
	RuleMatches            *prometheus.CounterVec
	ComplianceFlags        *prometheus.CounterVec
	InventoryItems         prometheus.Gauge
	AuditFailures          prometheus.Counter
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total classifications by resulting level",
		},
		[]string{"classification"},
	)

	c.ClassificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Time spent classifying one piece of content",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	c.PatternDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pattern_detections_total",
			Help:      "Detected sensitive patterns by name and type",
		},
		[]string{"pattern", "type"},
	)

	c.RuleMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Rule matches by rule id",
		},
		[]string{"rule"},
	)

	c.ComplianceFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_flags_total",
			Help:      "Compliance flags raised by framework and severity",
		},
		[]string{"framework", "severity"},
	)

	c.InventoryItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_items",
			Help:      "Number of files currently tracked in the inventory",
		},
	)

	c.AuditFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit records that could not be written",
		},
	)

	c.registry.MustRegister(
		c.ClassificationsTotal,
		c.ClassificationDuration,
		c.PatternDetections,
		c.RuleMatches,
		c.ComplianceFlags,
		c.InventoryItems,
		c.AuditFailures,
	)

	return c
}

// Registry exposes the underlying registry as a gatherer.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveClassification(classification string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ClassificationsTotal.WithLabelValues(classification).Inc()
	c.ClassificationDuration.Observe(elapsed.Seconds())
}

func (c *Collector) ObservePattern(name, patternType string) {
	if c == nil {
		return
	}
	c.PatternDetections.WithLabelValues(name, patternType).Inc()
}

func (c *Collector) ObserveRule(id string) {
	if c == nil {
		return
	}
	c.RuleMatches.WithLabelValues(id).Inc()
}

func (c *Collector) ObserveFlag(framework, severity string) {
	if c == nil {
		return
	}
	c.ComplianceFlags.WithLabelValues(framework, severity).Inc()
}

func (c *Collector) SetInventorySize(n int) {
	if c == nil {
		return
	}
	c.InventoryItems.Set(float64(n))
}

func (c *Collector) ObserveAuditFailure() {
	if c == nil {
		return
	}
	c.AuditFailures.Inc()
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, for pickup by a node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Registry())
}
