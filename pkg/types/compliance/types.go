// Package compliance defines the shared vocabulary of the risk and decision
// engine: the closed enums describing entities, tasks, and jurisdictions, the
// immutable context records handed to the engine, the persisted decision
// record shape consumed by the historical-pattern detectors, and the wire DTOs
// exchanged by the HTTP layer and the Go client SDK.
package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/turtacn/CompliSense/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// EntityType
// ─────────────────────────────────────────────────────────────────────────────

// EntityType classifies the legal form of the organization being assessed.
type EntityType string

const (
	EntityCorporation          EntityType = "CORPORATION"
	EntityLLC                  EntityType = "LLC"
	EntityPartnership          EntityType = "PARTNERSHIP"
	EntityNonProfit            EntityType = "NON_PROFIT"
	EntityGovernment           EntityType = "GOVERNMENT"
	EntityFinancialInstitution EntityType = "FINANCIAL_INSTITUTION"
	EntityHealthcareProvider   EntityType = "HEALTHCARE_PROVIDER"
	EntityStartup              EntityType = "STARTUP"
	EntityUnknown              EntityType = "UNKNOWN"
)

// IsValid checks if the EntityType is a member of the closed enum.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityCorporation, EntityLLC, EntityPartnership, EntityNonProfit,
		EntityGovernment, EntityFinancialInstitution, EntityHealthcareProvider,
		EntityStartup, EntityUnknown:
		return true
	default:
		return false
	}
}

// ParseEntityType parses a case-insensitive entity type string.
// An empty string parses to EntityUnknown; any other unrecognized value
// is rejected rather than silently defaulted, so typos surface as errors.
func ParseEntityType(s string) (EntityType, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return EntityUnknown, nil
	}
	t := EntityType(strings.ToUpper(trimmed))
	if !t.IsValid() {
		return "", fmt.Errorf("unrecognized entity type: %q", s)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Industry
// ─────────────────────────────────────────────────────────────────────────────

// Industry classifies the primary sector the entity operates in.
type Industry string

const (
	IndustryFinancialServices  Industry = "FINANCIAL_SERVICES"
	IndustryHealthcare         Industry = "HEALTHCARE"
	IndustryTechnology         Industry = "TECHNOLOGY"
	IndustryManufacturing      Industry = "MANUFACTURING"
	IndustryRetail             Industry = "RETAIL"
	IndustryEnergy             Industry = "ENERGY"
	IndustryTelecommunications Industry = "TELECOMMUNICATIONS"
	IndustryEducation          Industry = "EDUCATION"
	IndustryOther              Industry = "OTHER"
	IndustryUnknown            Industry = "UNKNOWN"
)

// IsValid checks if the Industry is a member of the closed enum.
func (i Industry) IsValid() bool {
	switch i {
	case IndustryFinancialServices, IndustryHealthcare, IndustryTechnology,
		IndustryManufacturing, IndustryRetail, IndustryEnergy,
		IndustryTelecommunications, IndustryEducation, IndustryOther,
		IndustryUnknown:
		return true
	default:
		return false
	}
}

// ParseIndustry parses a case-insensitive industry string.  Empty parses to
// IndustryUnknown; unrecognized values are rejected.
func ParseIndustry(s string) (Industry, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return IndustryUnknown, nil
	}
	i := Industry(strings.ToUpper(trimmed))
	if !i.IsValid() {
		return "", fmt.Errorf("unrecognized industry: %q", s)
	}
	return i, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// TaskCategory
// ─────────────────────────────────────────────────────────────────────────────

// TaskCategory classifies the compliance activity being triaged.
type TaskCategory string

const (
	CategoryGeneralInquiry     TaskCategory = "GENERAL_INQUIRY"
	CategoryDataPrivacy        TaskCategory = "DATA_PRIVACY"
	CategoryRegulatoryFiling   TaskCategory = "REGULATORY_FILING"
	CategoryPolicyReview       TaskCategory = "POLICY_REVIEW"
	CategoryContractReview     TaskCategory = "CONTRACT_REVIEW"
	CategoryIncidentResponse   TaskCategory = "INCIDENT_RESPONSE"
	CategoryAuditPreparation   TaskCategory = "AUDIT_PREPARATION"
	CategoryTrainingCompliance TaskCategory = "TRAINING_COMPLIANCE"
	CategoryRiskAssessment     TaskCategory = "RISK_ASSESSMENT"
	CategoryUnknown            TaskCategory = "UNKNOWN"
)

// IsValid checks if the TaskCategory is a member of the closed enum.
func (c TaskCategory) IsValid() bool {
	switch c {
	case CategoryGeneralInquiry, CategoryDataPrivacy, CategoryRegulatoryFiling,
		CategoryPolicyReview, CategoryContractReview, CategoryIncidentResponse,
		CategoryAuditPreparation, CategoryTrainingCompliance,
		CategoryRiskAssessment, CategoryUnknown:
		return true
	default:
		return false
	}
}

// ParseTaskCategory parses a case-insensitive task category string.  Empty
// parses to CategoryUnknown; unrecognized values are rejected.
func ParseTaskCategory(s string) (TaskCategory, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return CategoryUnknown, nil
	}
	c := TaskCategory(strings.ToUpper(trimmed))
	if !c.IsValid() {
		return "", fmt.Errorf("unrecognized task category: %q", s)
	}
	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Jurisdiction
// ─────────────────────────────────────────────────────────────────────────────

// Jurisdiction identifies a regulatory jurisdiction the entity operates under.
type Jurisdiction string

const (
	JurisdictionUSFederal Jurisdiction = "US_FEDERAL"
	JurisdictionUSState   Jurisdiction = "US_STATE"
	JurisdictionEU        Jurisdiction = "EU"
	JurisdictionUK        Jurisdiction = "UK"
	JurisdictionCanada    Jurisdiction = "CANADA"
	JurisdictionAPAC      Jurisdiction = "APAC"
	JurisdictionMulti     Jurisdiction = "MULTI"
	JurisdictionUnknown   Jurisdiction = "UNKNOWN"
)

// IsValid checks if the Jurisdiction is a member of the closed enum.
func (j Jurisdiction) IsValid() bool {
	switch j {
	case JurisdictionUSFederal, JurisdictionUSState, JurisdictionEU,
		JurisdictionUK, JurisdictionCanada, JurisdictionAPAC,
		JurisdictionMulti, JurisdictionUnknown:
		return true
	default:
		return false
	}
}

// ParseJurisdiction parses a case-insensitive jurisdiction string.  Empty
// parses to JurisdictionUnknown; unrecognized values are rejected.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return JurisdictionUnknown, nil
	}
	j := Jurisdiction(strings.ToUpper(trimmed))
	if !j.IsValid() {
		return "", fmt.Errorf("unrecognized jurisdiction: %q", s)
	}
	return j, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PotentialImpact
// ─────────────────────────────────────────────────────────────────────────────

// PotentialImpact grades the worst-case consequence of mishandling the task.
type PotentialImpact string

const (
	ImpactLow      PotentialImpact = "LOW"
	ImpactMedium   PotentialImpact = "MEDIUM"
	ImpactHigh     PotentialImpact = "HIGH"
	ImpactCritical PotentialImpact = "CRITICAL"
	ImpactUnknown  PotentialImpact = "UNKNOWN"
)

// IsValid checks if the PotentialImpact is a member of the closed enum.
func (p PotentialImpact) IsValid() bool {
	switch p {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical, ImpactUnknown:
		return true
	default:
		return false
	}
}

// ParsePotentialImpact parses a case-insensitive impact string, so "Critical"
// normalizes to ImpactCritical.  Empty parses to ImpactUnknown; unrecognized
// values are rejected.
func ParsePotentialImpact(s string) (PotentialImpact, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ImpactUnknown, nil
	}
	p := PotentialImpact(strings.ToUpper(trimmed))
	if !p.IsValid() {
		return "", fmt.Errorf("unrecognized potential impact: %q", s)
	}
	return p, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// EntityContext
// ─────────────────────────────────────────────────────────────────────────────

// EntityContext carries the facts about the organization being assessed.
// Instances are immutable per call: the engine never mutates a context, and
// derived records copy rather than alias the slices it holds.
type EntityContext struct {
	Name               string         `json:"name"`
	EntityType         EntityType     `json:"entity_type"`
	Industry           Industry       `json:"industry"`
	Jurisdictions      []Jurisdiction `json:"jurisdictions"`
	EmployeeCount      *int           `json:"employee_count,omitempty"`
	AnnualRevenue      *float64       `json:"annual_revenue,omitempty"`
	HasPersonalData    bool           `json:"has_personal_data"`
	IsRegulated        bool           `json:"is_regulated"`
	PreviousViolations int            `json:"previous_violations"`
}

// Validate checks structural validity.  An empty jurisdiction list is not an
// error: the jurisdiction analyzer applies a documented moderate default.
// Missing optional fields (employee count, revenue) are likewise not errors.
func (e EntityContext) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("entity name cannot be empty")
	}
	if !e.EntityType.IsValid() {
		return fmt.Errorf("invalid entity_type: %q", e.EntityType)
	}
	if !e.Industry.IsValid() {
		return fmt.Errorf("invalid industry: %q", e.Industry)
	}
	for _, j := range e.Jurisdictions {
		if !j.IsValid() {
			return fmt.Errorf("invalid jurisdiction: %q", j)
		}
	}
	if e.PreviousViolations < 0 {
		return fmt.Errorf("previous_violations cannot be negative, got %d", e.PreviousViolations)
	}
	if e.EmployeeCount != nil && *e.EmployeeCount < 0 {
		return fmt.Errorf("employee_count cannot be negative, got %d", *e.EmployeeCount)
	}
	if e.AnnualRevenue != nil && *e.AnnualRevenue < 0 {
		return fmt.Errorf("annual_revenue cannot be negative, got %f", *e.AnnualRevenue)
	}
	return nil
}

// Normalized returns a copy with enum fields upper-cased (empty mapping to
// the UNKNOWN arm) and the jurisdiction slice deep-copied.  Unrecognized enum
// values are preserved as-is so that Validate reports them.
func (e EntityContext) Normalized() EntityContext {
	out := e
	if t, err := ParseEntityType(string(e.EntityType)); err == nil {
		out.EntityType = t
	}
	if i, err := ParseIndustry(string(e.Industry)); err == nil {
		out.Industry = i
	}
	out.Jurisdictions = make([]Jurisdiction, len(e.Jurisdictions))
	for idx, j := range e.Jurisdictions {
		if parsed, err := ParseJurisdiction(string(j)); err == nil {
			out.Jurisdictions[idx] = parsed
		} else {
			out.Jurisdictions[idx] = j
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// TaskContext
// ─────────────────────────────────────────────────────────────────────────────

// TaskContext carries the facts about the compliance task being triaged.
// Instances are immutable per call.
type TaskContext struct {
	Description          string          `json:"description"`
	Category             TaskCategory    `json:"category"`
	AffectsPersonalData  bool            `json:"affects_personal_data"`
	AffectsFinancialData bool            `json:"affects_financial_data"`
	InvolvesCrossBorder  bool            `json:"involves_cross_border"`
	RegulatoryDeadline   *time.Time      `json:"regulatory_deadline,omitempty"`
	PotentialImpact      PotentialImpact `json:"potential_impact"`
	StakeholderCount     *int            `json:"stakeholder_count,omitempty"`
}

// Validate checks structural validity.  A missing deadline or stakeholder
// count is not an error.
func (t TaskContext) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("task description cannot be empty")
	}
	if !t.Category.IsValid() {
		return fmt.Errorf("invalid task category: %q", t.Category)
	}
	if !t.PotentialImpact.IsValid() {
		return fmt.Errorf("invalid potential_impact: %q", t.PotentialImpact)
	}
	if t.StakeholderCount != nil && *t.StakeholderCount < 0 {
		return fmt.Errorf("stakeholder_count cannot be negative, got %d", *t.StakeholderCount)
	}
	return nil
}

// Normalized returns a copy with the description trimmed, enum fields parsed
// case-insensitively (empty mapping to UNKNOWN), and the deadline converted
// to UTC.  Unrecognized enum values are preserved so that Validate reports
// them.
func (t TaskContext) Normalized() TaskContext {
	out := t
	out.Description = strings.TrimSpace(t.Description)
	if c, err := ParseTaskCategory(string(t.Category)); err == nil {
		out.Category = c
	}
	if p, err := ParsePotentialImpact(string(t.PotentialImpact)); err == nil {
		out.PotentialImpact = p
	}
	if t.RegulatoryDeadline != nil {
		utc := t.RegulatoryDeadline.UTC()
		out.RegulatoryDeadline = &utc
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// DecisionRecord — persisted outcome consumed by the pattern detectors
// ─────────────────────────────────────────────────────────────────────────────

// DecisionRecord is the flattened, persistence-friendly projection of one
// completed decision analysis.  The proactive suggestion detectors operate on
// windows of these records; the storage layer scopes them to an entity before
// they reach the detectors.
type DecisionRecord struct {
	ID                 common.ID              `json:"id"`
	EntityName         string                 `json:"entity_name"`
	Timestamp          time.Time              `json:"timestamp"`
	Category           TaskCategory           `json:"category"`
	Decision           common.ActionDecision  `json:"decision"`
	RiskLevel          common.RiskLevel       `json:"risk_level"`
	RiskScore          float64                `json:"risk_score"`
	ConfidenceScore    float64                `json:"confidence_score"`
	TaskDescription    string                 `json:"task_description"`
	Jurisdictions      []Jurisdiction         `json:"jurisdictions,omitempty"`
	RegulatoryDeadline *time.Time             `json:"regulatory_deadline,omitempty"`
	Metadata           common.Metadata        `json:"metadata,omitempty"`
}

// MetadataFlag reports whether the record's metadata carries key set to a
// truthy marker (boolean true or the string "true").
func (r DecisionRecord) MetadataFlag(key string) bool {
	if r.Metadata == nil {
		return false
	}
	switch v := r.Metadata[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ScenarioChange — sparse what-if patch
// ─────────────────────────────────────────────────────────────────────────────

// ScenarioChange is a sparse patch applied to a baseline analysis during
// what-if exploration.  Nil fields carry the baseline value over unchanged.
// Factor values, when present, must lie in [0,1].  Entity or Task, when
// present, replace the baseline context entirely and cause the decision to be
// recomputed from scratch.
type ScenarioChange struct {
	JurisdictionRisk    *float64       `json:"jurisdiction_risk,omitempty"`
	EntityRisk          *float64       `json:"entity_risk,omitempty"`
	TaskRisk            *float64       `json:"task_risk,omitempty"`
	DataSensitivityRisk *float64       `json:"data_sensitivity_risk,omitempty"`
	RegulatoryRisk      *float64       `json:"regulatory_risk,omitempty"`
	ImpactRisk          *float64       `json:"impact_risk,omitempty"`
	Entity              *EntityContext `json:"entity,omitempty"`
	Task                *TaskContext   `json:"task,omitempty"`
}

// Validate checks that every supplied factor value lies in [0,1] and that any
// replacement context is itself valid.
func (c ScenarioChange) Validate() error {
	check := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be in [0,1], got %f", name, *v)
		}
		return nil
	}
	if err := check("jurisdiction_risk", c.JurisdictionRisk); err != nil {
		return err
	}
	if err := check("entity_risk", c.EntityRisk); err != nil {
		return err
	}
	if err := check("task_risk", c.TaskRisk); err != nil {
		return err
	}
	if err := check("data_sensitivity_risk", c.DataSensitivityRisk); err != nil {
		return err
	}
	if err := check("regulatory_risk", c.RegulatoryRisk); err != nil {
		return err
	}
	if err := check("impact_risk", c.ImpactRisk); err != nil {
		return err
	}
	if c.Entity != nil {
		if err := c.Entity.Normalized().Validate(); err != nil {
			return fmt.Errorf("replacement entity: %w", err)
		}
	}
	if c.Task != nil {
		if err := c.Task.Normalized().Validate(); err != nil {
			return fmt.Errorf("replacement task: %w", err)
		}
	}
	return nil
}

// ReplacesContext reports whether the change swaps in a new entity or task,
// which forces a full decision recomputation instead of an override re-check.
func (c ScenarioChange) ReplacesContext() bool {
	return c.Entity != nil || c.Task != nil
}

// IsEmpty reports whether the change patches nothing at all.
func (c ScenarioChange) IsEmpty() bool {
	return c.JurisdictionRisk == nil && c.EntityRisk == nil && c.TaskRisk == nil &&
		c.DataSensitivityRisk == nil && c.RegulatoryRisk == nil && c.ImpactRisk == nil &&
		c.Entity == nil && c.Task == nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Wire DTOs — HTTP surface and client SDK
// ─────────────────────────────────────────────────────────────────────────────

// RiskFactorsDTO is the wire shape of the six scored risk dimensions.
type RiskFactorsDTO struct {
	JurisdictionRisk    float64 `json:"jurisdiction_risk"`
	EntityRisk          float64 `json:"entity_risk"`
	TaskRisk            float64 `json:"task_risk"`
	DataSensitivityRisk float64 `json:"data_sensitivity_risk"`
	RegulatoryRisk      float64 `json:"regulatory_risk"`
	ImpactRisk          float64 `json:"impact_risk"`
}

// SimilarCaseDTO summarizes a historical analysis retrieved by factor-vector
// similarity.
type SimilarCaseDTO struct {
	AnalysisID common.ID             `json:"analysis_id"`
	EntityName string                `json:"entity_name,omitempty"`
	RiskScore  float64               `json:"risk_score"`
	RiskLevel  common.RiskLevel      `json:"risk_level"`
	Decision   common.ActionDecision `json:"decision"`
	Similarity float64               `json:"similarity"`
}

// SuggestionDTO is the wire shape of one proactive suggestion.
type SuggestionDTO struct {
	TriggerName string          `json:"trigger_name"`
	TriggerType string          `json:"trigger_type"`
	Priority    string          `json:"priority"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	ActionID    string          `json:"action_id"`
	ActionLabel string          `json:"action_label"`
	Metadata    common.Metadata `json:"metadata,omitempty"`
}

// AssessmentDTO is the wire shape of a completed decision analysis.
type AssessmentDTO struct {
	ID               common.ID             `json:"id"`
	Entity           EntityContext         `json:"entity"`
	Task             TaskContext           `json:"task"`
	Factors          RiskFactorsDTO        `json:"factors"`
	OverallScore     float64               `json:"overall_score"`
	RiskLevel        common.RiskLevel      `json:"risk_level"`
	Decision         common.ActionDecision `json:"decision"`
	Confidence       float64               `json:"confidence"`
	Reasoning        []string              `json:"reasoning"`
	Recommendations  []string              `json:"recommendations"`
	EscalationReason string                `json:"escalation_reason,omitempty"`
	Regulations      []string              `json:"regulations,omitempty"`
	SimilarCases     []SimilarCaseDTO      `json:"similar_cases,omitempty"`
	PatternAnalysis  common.Metadata       `json:"pattern_analysis,omitempty"`
	Suggestions      []SuggestionDTO       `json:"suggestions,omitempty"`
	AnalyzedAt       common.Timestamp      `json:"analyzed_at"`
}

// AssessmentRequest is the payload for creating a new assessment.
type AssessmentRequest struct {
	Entity EntityContext `json:"entity"`
	Task   TaskContext   `json:"task"`
}

// Validate normalizes nothing; it checks the raw payload so that the caller
// receives errors about exactly what was sent.
func (r AssessmentRequest) Validate() error {
	if err := r.Entity.Normalized().Validate(); err != nil {
		return fmt.Errorf("entity: %w", err)
	}
	if err := r.Task.Normalized().Validate(); err != nil {
		return fmt.Errorf("task: %w", err)
	}
	return nil
}

// AssessmentListRequest carries filters for listing stored assessments.
type AssessmentListRequest struct {
	EntityName string            `json:"entity_name,omitempty"`
	Pagination common.Pagination `json:"pagination"`
}

// Validate checks the pagination bounds.
func (r AssessmentListRequest) Validate() error {
	return r.Pagination.Validate()
}

// SuggestionScanRequest asks for a proactive-trigger scan over an entity's
// recorded decision history.
type SuggestionScanRequest struct {
	EntityName string        `json:"entity_name"`
	Category   *TaskCategory `json:"category,omitempty"`
}

// Validate checks the scan parameters.
func (r SuggestionScanRequest) Validate() error {
	if strings.TrimSpace(r.EntityName) == "" {
		return fmt.Errorf("entity_name cannot be empty")
	}
	if r.Category != nil && !r.Category.IsValid() {
		return fmt.Errorf("invalid task category: %q", *r.Category)
	}
	return nil
}

// FactorDeltaDTO is one row of the per-factor what-if delta table.
type FactorDeltaDTO struct {
	Factor        string  `json:"factor"`
	Baseline      float64 `json:"baseline"`
	Modified      float64 `json:"modified"`
	Delta         float64 `json:"delta"`
	Weight        float64 `json:"weight"`
	WeightedDelta float64 `json:"weighted_delta"`
}

// DecisionChangeDTO describes whether and how severely the decision moved.
type DecisionChangeDTO struct {
	Changed          bool                  `json:"changed"`
	LevelChanged     bool                  `json:"level_changed"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	NewDecision      common.ActionDecision `json:"new_decision"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	NewLevel         common.RiskLevel      `json:"new_level"`
	Impact           string                `json:"impact"`
	Severity         string                `json:"severity"`
}

// WhatIfResultDTO is the wire shape of a single scenario evaluation.
type WhatIfResultDTO struct {
	BaselineScore    float64               `json:"baseline_score"`
	NewScore         float64               `json:"new_score"`
	ScoreDelta       float64               `json:"score_delta"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	NewLevel         common.RiskLevel      `json:"new_level"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	NewDecision      common.ActionDecision `json:"new_decision"`
	FactorDeltas     []FactorDeltaDTO      `json:"factor_deltas"`
	Explanation      []string              `json:"explanation"`
	DecisionChange   DecisionChangeDTO     `json:"decision_change"`
}

// WhatIfRequest evaluates a single scenario against a stored baseline.
type WhatIfRequest struct {
	Change ScenarioChange `json:"change"`
}

// Validate checks the change patch.
func (r WhatIfRequest) Validate() error {
	return r.Change.Validate()
}

// NamedScenario pairs a caller-chosen label with a change patch.
type NamedScenario struct {
	Name   string         `json:"name"`
	Change ScenarioChange `json:"change"`
}

// WhatIfCompareRequest evaluates several scenarios against the same baseline.
type WhatIfCompareRequest struct {
	Scenarios []NamedScenario `json:"scenarios"`
}

// Validate checks that at least one scenario is supplied and each is valid.
func (r WhatIfCompareRequest) Validate() error {
	if len(r.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	for idx, s := range r.Scenarios {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("scenario %d: name cannot be empty", idx)
		}
		if err := s.Change.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// ScenarioOutcomeDTO pairs a scenario label with its evaluation result.
type ScenarioOutcomeDTO struct {
	Name   string          `json:"name"`
	Result WhatIfResultDTO `json:"result"`
}

// WhatIfComparisonDTO is the wire shape of a multi-scenario comparison.
type WhatIfComparisonDTO struct {
	BaselineScore    float64               `json:"baseline_score"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	Scenarios        []ScenarioOutcomeDTO  `json:"scenarios"`
}

// RegulationDTO describes one catalog entry of the static regulation table.
type RegulationDTO struct {
	Name         string       `json:"name"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	Condition    string       `json:"condition,omitempty"`
}

// NewAssessmentRequest creates an AssessmentRequest from the two contexts.
func NewAssessmentRequest(entity EntityContext, task TaskContext) AssessmentRequest {
	return AssessmentRequest{Entity: entity, Task: task}
}

// NewAssessmentListRequest creates a list request with default pagination.
func NewAssessmentListRequest(entityName string) AssessmentListRequest {
	return AssessmentListRequest{
		EntityName: entityName,
		Pagination: common.Pagination{Page: 1, PageSize: 20},
	}
}
