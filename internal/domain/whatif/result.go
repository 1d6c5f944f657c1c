// Package whatif implements counterfactual analysis over completed decision
// analyses: patch individual risk factors or swap the entity/task context,
// then report how the score, level, and decision would move.
package whatif

import (
	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ─────────────────────────────────────────────────────────────────────────────
// ChangeSeverity
// ─────────────────────────────────────────────────────────────────────────────

// ChangeSeverity grades how consequential a decision transition is.
type ChangeSeverity string

const (
	SeverityNone        ChangeSeverity = "NONE"
	SeverityModerate    ChangeSeverity = "MODERATE"
	SeveritySignificant ChangeSeverity = "SIGNIFICANT"
	SeverityCritical    ChangeSeverity = "CRITICAL"
)

// IsValid checks whether the severity is a recognized value.
func (s ChangeSeverity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityModerate, SeveritySignificant, SeverityCritical:
		return true
	}
	return false
}

func (s ChangeSeverity) String() string {
	return string(s)
}

// decisionTransition keys the severity table on an (old, new) decision pair.
type decisionTransition struct {
	from common.ActionDecision
	to   common.ActionDecision
}

// transitionSeverity grades every possible decision move.  Loosening toward
// autonomy from an escalation is the most consequential shift of all; the
// table is asymmetric on purpose.
var transitionSeverity = map[decisionTransition]ChangeSeverity{
	{common.DecisionAutonomous, common.DecisionReviewRequired}: SeveritySignificant,
	{common.DecisionAutonomous, common.DecisionEscalate}:       SeverityCritical,
	{common.DecisionReviewRequired, common.DecisionEscalate}:   SeveritySignificant,
	{common.DecisionReviewRequired, common.DecisionAutonomous}: SeverityModerate,
	{common.DecisionEscalate, common.DecisionReviewRequired}:   SeverityModerate,
	{common.DecisionEscalate, common.DecisionAutonomous}:       SeverityCritical,
}

// SeverityOf returns the graded severity of moving between two decisions.
func SeverityOf(from, to common.ActionDecision) ChangeSeverity {
	if from == to {
		return SeverityNone
	}
	if sev, ok := transitionSeverity[decisionTransition{from, to}]; ok {
		return sev
	}
	return SeverityNone
}

// ─────────────────────────────────────────────────────────────────────────────
// Result types
// ─────────────────────────────────────────────────────────────────────────────

// FactorDelta is one row of the per-factor sensitivity table.
type FactorDelta struct {
	Factor        risk.Factor `json:"factor"`
	Baseline      float64     `json:"baseline"`
	Modified      float64     `json:"modified"`
	Delta         float64     `json:"delta"`
	Weight        float64     `json:"weight"`
	WeightedDelta float64     `json:"weighted_delta"`
}

// ToDTO converts the delta row to its wire shape.
func (d FactorDelta) ToDTO() compliance.FactorDeltaDTO {
	return compliance.FactorDeltaDTO{
		Factor:        string(d.Factor),
		Baseline:      d.Baseline,
		Modified:      d.Modified,
		Delta:         d.Delta,
		Weight:        d.Weight,
		WeightedDelta: d.WeightedDelta,
	}
}

// DecisionChange describes whether and how severely the decision moved.
type DecisionChange struct {
	Changed          bool                  `json:"changed"`
	LevelChanged     bool                  `json:"level_changed"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	NewDecision      common.ActionDecision `json:"new_decision"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	NewLevel         common.RiskLevel      `json:"new_level"`
	Impact           string                `json:"impact"`
	Severity         ChangeSeverity        `json:"severity"`
}

// ToDTO converts the change descriptor to its wire shape.
func (c DecisionChange) ToDTO() compliance.DecisionChangeDTO {
	return compliance.DecisionChangeDTO{
		Changed:          c.Changed,
		LevelChanged:     c.LevelChanged,
		BaselineDecision: c.BaselineDecision,
		NewDecision:      c.NewDecision,
		BaselineLevel:    c.BaselineLevel,
		NewLevel:         c.NewLevel,
		Impact:           c.Impact,
		Severity:         string(c.Severity),
	}
}

// Result is the outcome of evaluating one scenario against a baseline.
// ScoreDelta is the exact sum of the weighted factor deltas, so a
// single-factor change satisfies delta × weight without rounding drift.
type Result struct {
	BaselineScore    float64               `json:"baseline_score"`
	NewScore         float64               `json:"new_score"`
	ScoreDelta       float64               `json:"score_delta"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	NewLevel         common.RiskLevel      `json:"new_level"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	NewDecision      common.ActionDecision `json:"new_decision"`
	ModifiedFactors  risk.FactorSet        `json:"modified_factors"`
	FactorDeltas     []FactorDelta         `json:"factor_deltas"`
	DecisionChange   DecisionChange        `json:"decision_change"`
	Explanation      []string              `json:"explanation"`
}

// ToDTO converts the result to its wire shape.
func (r *Result) ToDTO() compliance.WhatIfResultDTO {
	deltas := make([]compliance.FactorDeltaDTO, len(r.FactorDeltas))
	for i, d := range r.FactorDeltas {
		deltas[i] = d.ToDTO()
	}
	return compliance.WhatIfResultDTO{
		BaselineScore:    r.BaselineScore,
		NewScore:         r.NewScore,
		ScoreDelta:       r.ScoreDelta,
		BaselineLevel:    r.BaselineLevel,
		NewLevel:         r.NewLevel,
		BaselineDecision: r.BaselineDecision,
		NewDecision:      r.NewDecision,
		FactorDeltas:     deltas,
		Explanation:      r.Explanation,
		DecisionChange:   r.DecisionChange.ToDTO(),
	}
}

// ScenarioOutcome pairs a caller-chosen scenario label with its result.
type ScenarioOutcome struct {
	Name   string  `json:"name"`
	Result *Result `json:"result"`
}

// Comparison is the outcome of evaluating several scenarios against one
// unchanged baseline.
type Comparison struct {
	BaselineScore    float64               `json:"baseline_score"`
	BaselineLevel    common.RiskLevel      `json:"baseline_level"`
	BaselineDecision common.ActionDecision `json:"baseline_decision"`
	Outcomes         []ScenarioOutcome     `json:"outcomes"`
}

// ToDTO converts the comparison to its wire shape.
func (c *Comparison) ToDTO() compliance.WhatIfComparisonDTO {
	scenarios := make([]compliance.ScenarioOutcomeDTO, len(c.Outcomes))
	for i, o := range c.Outcomes {
		scenarios[i] = compliance.ScenarioOutcomeDTO{Name: o.Name, Result: o.Result.ToDTO()}
	}
	return compliance.WhatIfComparisonDTO{
		BaselineScore:    c.BaselineScore,
		BaselineLevel:    c.BaselineLevel,
		BaselineDecision: c.BaselineDecision,
		Scenarios:        scenarios,
	}
}
