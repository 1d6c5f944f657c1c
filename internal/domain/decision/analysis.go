// Package decision implements the decision engine: it derives the six risk
// factors from entity and task facts, combines them through the weighted risk
// model, applies the categorical override rules, calibrates confidence, and
// emits an auditable decision-analysis record.
package decision

import (
	"time"

	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ─────────────────────────────────────────────────────────────────────────────
// DecisionAnalysis
// ─────────────────────────────────────────────────────────────────────────────

// DecisionAnalysis is the complete, auditable outcome of one engine run.
// It is created once per call and never mutated afterwards; the what-if
// engine derives new values instead of touching a baseline.
//
// SimilarCases, PatternAnalysis, and Suggestions are optional attachments
// populated by platform collaborators after the core analysis completes.
type DecisionAnalysis struct {
	ID               common.ID                   `json:"id"`
	Entity           compliance.EntityContext    `json:"entity"`
	Task             compliance.TaskContext      `json:"task"`
	Factors          risk.FactorSet              `json:"factors"`
	OverallScore     float64                     `json:"overall_score"`
	RiskLevel        common.RiskLevel            `json:"risk_level"`
	Decision         common.ActionDecision       `json:"decision"`
	Confidence       float64                     `json:"confidence"`
	Reasoning        []string                    `json:"reasoning"`
	Recommendations  []string                    `json:"recommendations"`
	EscalationReason string                      `json:"escalation_reason,omitempty"`
	Regulations      []string                    `json:"regulations,omitempty"`
	SimilarCases     []compliance.SimilarCaseDTO `json:"similar_cases,omitempty"`
	PatternAnalysis  common.Metadata             `json:"pattern_analysis,omitempty"`
	Suggestions      []compliance.SuggestionDTO  `json:"suggestions,omitempty"`
	AnalyzedAt       common.Timestamp            `json:"analyzed_at"`
}

// Validate checks the structural invariants a stored analysis must satisfy
// before it can serve as a what-if baseline.
func (a *DecisionAnalysis) Validate() error {
	if a == nil {
		return errors.New(errors.ErrCodeScenarioBaselineMissing, "baseline analysis is nil")
	}
	if err := a.Factors.Validate(); err != nil {
		return err
	}
	if !a.RiskLevel.IsValid() {
		return errors.Validation("analysis risk level is invalid")
	}
	if !a.Decision.IsValid() {
		return errors.Validation("analysis decision is invalid")
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return errors.Validation("analysis confidence must be in [0,1]")
	}
	return nil
}

// Record flattens the analysis into the persistence-friendly projection the
// pattern detectors and the decision store consume.  Slices and the deadline
// pointer are copied so the record never aliases the analysis.
func (a *DecisionAnalysis) Record() compliance.DecisionRecord {
	rec := compliance.DecisionRecord{
		ID:              a.ID,
		EntityName:      a.Entity.Name,
		Timestamp:       time.Time(a.AnalyzedAt),
		Category:        a.Task.Category,
		Decision:        a.Decision,
		RiskLevel:       a.RiskLevel,
		RiskScore:       a.OverallScore,
		ConfidenceScore: a.Confidence,
		TaskDescription: a.Task.Description,
	}
	if len(a.Entity.Jurisdictions) > 0 {
		rec.Jurisdictions = make([]compliance.Jurisdiction, len(a.Entity.Jurisdictions))
		copy(rec.Jurisdictions, a.Entity.Jurisdictions)
	}
	if a.Task.RegulatoryDeadline != nil {
		deadline := *a.Task.RegulatoryDeadline
		rec.RegulatoryDeadline = &deadline
	}
	return rec
}

// ToDTO converts the analysis to its wire shape.
func (a *DecisionAnalysis) ToDTO() compliance.AssessmentDTO {
	return compliance.AssessmentDTO{
		ID:               a.ID,
		Entity:           a.Entity,
		Task:             a.Task,
		Factors:          FactorsToDTO(a.Factors),
		OverallScore:     a.OverallScore,
		RiskLevel:        a.RiskLevel,
		Decision:         a.Decision,
		Confidence:       a.Confidence,
		Reasoning:        a.Reasoning,
		Recommendations:  a.Recommendations,
		EscalationReason: a.EscalationReason,
		Regulations:      a.Regulations,
		SimilarCases:     a.SimilarCases,
		PatternAnalysis:  a.PatternAnalysis,
		Suggestions:      a.Suggestions,
		AnalyzedAt:       a.AnalyzedAt,
	}
}

// FactorsToDTO converts a factor set to its wire shape.
func FactorsToDTO(fs risk.FactorSet) compliance.RiskFactorsDTO {
	return compliance.RiskFactorsDTO{
		JurisdictionRisk:    fs.JurisdictionRisk,
		EntityRisk:          fs.EntityRisk,
		TaskRisk:            fs.TaskRisk,
		DataSensitivityRisk: fs.DataSensitivityRisk,
		RegulatoryRisk:      fs.RegulatoryRisk,
		ImpactRisk:          fs.ImpactRisk,
	}
}

// FactorsFromDTO converts a wire factor set back to the domain shape.
func FactorsFromDTO(dto compliance.RiskFactorsDTO) risk.FactorSet {
	return risk.FactorSet{
		JurisdictionRisk:    dto.JurisdictionRisk,
		EntityRisk:          dto.EntityRisk,
		TaskRisk:            dto.TaskRisk,
		DataSensitivityRisk: dto.DataSensitivityRisk,
		RegulatoryRisk:      dto.RegulatoryRisk,
		ImpactRisk:          dto.ImpactRisk,
	}
}
