package suggestion

import (
	"time"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// Config carries the minimum qualifying-record counts per detector.  Each
// detector gates independently; there is no shared threshold.
type Config struct {
	// MinUpcomingDeadlines is how many 8-to-30-day deadlines justify a
	// medium deadline suggestion.
	MinUpcomingDeadlines int `mapstructure:"min_upcoming_deadlines" json:"min_upcoming_deadlines"`
	// MinTrendRecords is the per-window record count the trend detector
	// needs before comparing averages.
	MinTrendRecords int `mapstructure:"min_trend_records" json:"min_trend_records"`
	// MinHighRiskEscalations is the high-risk escalation count the
	// violation detector needs before reporting anything.
	MinHighRiskEscalations int `mapstructure:"min_high_risk_escalations" json:"min_high_risk_escalations"`
	// MinIncidentRecords is the incident-response record count the
	// recurrence detector needs before grouping.
	MinIncidentRecords int `mapstructure:"min_incident_records" json:"min_incident_records"`
	// MinFilingRecords is the filing count the regulatory-pattern detector
	// needs before analyzing concentration or change flags.
	MinFilingRecords int `mapstructure:"min_filing_records" json:"min_filing_records"`
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		MinUpcomingDeadlines:   3,
		MinTrendRecords:        3,
		MinHighRiskEscalations: 2,
		MinIncidentRecords:     2,
		MinFilingRecords:       3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinUpcomingDeadlines <= 0 {
		c.MinUpcomingDeadlines = def.MinUpcomingDeadlines
	}
	if c.MinTrendRecords <= 0 {
		c.MinTrendRecords = def.MinTrendRecords
	}
	if c.MinHighRiskEscalations <= 0 {
		c.MinHighRiskEscalations = def.MinHighRiskEscalations
	}
	if c.MinIncidentRecords <= 0 {
		c.MinIncidentRecords = def.MinIncidentRecords
	}
	if c.MinFilingRecords <= 0 {
		c.MinFilingRecords = def.MinFilingRecords
	}
	return c
}

// CheckOptions scopes one CheckTriggers run.
type CheckOptions struct {
	// CategoryFilter, when set, narrows the record list to one task
	// category before any detector runs.
	CategoryFilter *compliance.TaskCategory
	// AsOf anchors every time window.  Zero means now.
	AsOf time.Time
}

// Service runs the five detectors over an entity's decision history.
// Services are stateless and safe for concurrent use.
type Service struct {
	cfg Config
}

// NewService builds a detector service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg.withDefaults()}
}

// NewDefaultService builds a detector service with DefaultConfig.
func NewDefaultService() *Service {
	return NewService(DefaultConfig())
}

// Config returns the effective detector configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// CheckTriggers runs all five detectors over the caller-scoped record list
// and concatenates their findings in fixed order: deadline proximity, risk
// trend, violation pattern, recurring incidents, regulatory patterns.
//
// The caller is responsible for scoping records to the entity; time-window
// filtering happens here.  Insufficient history yields an empty result,
// never an error.
func (s *Service) CheckTriggers(entityName string, records []compliance.DecisionRecord, opts CheckOptions) []Suggestion {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	if opts.CategoryFilter != nil {
		records = filterByCategory(records, *opts.CategoryFilter)
	}

	var suggestions []Suggestion
	if sg := s.detectDeadlineProximity(entityName, records, asOf); sg != nil {
		suggestions = append(suggestions, *sg)
	}
	if sg := s.detectRiskTrend(entityName, records, asOf); sg != nil {
		suggestions = append(suggestions, *sg)
	}
	if sg := s.detectViolationPattern(entityName, records, asOf); sg != nil {
		suggestions = append(suggestions, *sg)
	}
	if sg := s.detectRecurringIncidents(entityName, records, asOf); sg != nil {
		suggestions = append(suggestions, *sg)
	}
	suggestions = append(suggestions, s.detectRegulatoryPatterns(entityName, records, asOf)...)
	return suggestions
}

func filterByCategory(records []compliance.DecisionRecord, category compliance.TaskCategory) []compliance.DecisionRecord {
	filtered := make([]compliance.DecisionRecord, 0, len(records))
	for _, rec := range records {
		if rec.Category == category {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
