// Package risk implements the weighted multi-factor risk model at the heart
// of the decision engine: six independently scored [0,1] dimensions combined
// by a fixed weight table into an overall score, classified against strict
// thresholds, with a display-only rationale trail.
package risk

import (
	"fmt"
	"math"

	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Factor identifiers and weights
// ─────────────────────────────────────────────────────────────────────────────

// Factor identifies one of the six scored risk dimensions.
type Factor string

const (
	FactorJurisdiction    Factor = "jurisdiction_risk"
	FactorEntity          Factor = "entity_risk"
	FactorTask            Factor = "task_risk"
	FactorDataSensitivity Factor = "data_sensitivity_risk"
	FactorRegulatory      Factor = "regulatory_risk"
	FactorImpact          Factor = "impact_risk"
)

// Fixed factor weights.  The table is read-only static data; it sums to 1.0
// and VerifyWeights asserts that at startup.
const (
	WeightJurisdiction    = 0.15
	WeightEntity          = 0.15
	WeightTask            = 0.20
	WeightDataSensitivity = 0.20
	WeightRegulatory      = 0.20
	WeightImpact          = 0.10
)

// Classification thresholds, shared verbatim with the decision engine.
const (
	// MediumThreshold is the lowest overall score classified MEDIUM.
	MediumThreshold = 0.35
	// HighThreshold is the lowest overall score classified HIGH.
	HighThreshold = 0.65
)

// Rationale contribution tiers.  Display-only; they never affect the score
// or its classification.
const (
	rationaleHighCutoff   = 0.7
	rationaleMediumCutoff = 0.4
)

// weightSumTolerance bounds the floating-point slack allowed when asserting
// that the weight table sums to 1.0.
const weightSumTolerance = 1e-9

// factorOrder fixes the canonical iteration order for rationale lines,
// delta tables, and vector encodings.
var factorOrder = [6]Factor{
	FactorJurisdiction,
	FactorEntity,
	FactorTask,
	FactorDataSensitivity,
	FactorRegulatory,
	FactorImpact,
}

// factorWeights maps each factor to its fixed weight.
var factorWeights = map[Factor]float64{
	FactorJurisdiction:    WeightJurisdiction,
	FactorEntity:          WeightEntity,
	FactorTask:            WeightTask,
	FactorDataSensitivity: WeightDataSensitivity,
	FactorRegulatory:      WeightRegulatory,
	FactorImpact:          WeightImpact,
}

// Factors lists the six dimensions in canonical order.
func Factors() []Factor {
	out := make([]Factor, len(factorOrder))
	copy(out, factorOrder[:])
	return out
}

// WeightOf returns the fixed weight of a factor, or 0 for an unknown factor.
func WeightOf(f Factor) float64 {
	return factorWeights[f]
}

// VerifyWeights asserts that the weight table covers all six factors and sums
// to 1.0 within tolerance.  Call during process startup; a failure means the
// binary was built with a broken table and must not serve traffic.
func VerifyWeights() error {
	if len(factorWeights) != len(factorOrder) {
		return errors.New(errors.ErrCodeRiskWeightsInvalid,
			fmt.Sprintf("weight table has %d entries, want %d", len(factorWeights), len(factorOrder)))
	}
	sum := 0.0
	for _, f := range factorOrder {
		w, ok := factorWeights[f]
		if !ok {
			return errors.New(errors.ErrCodeRiskWeightsInvalid,
				fmt.Sprintf("weight table missing entry for %s", f))
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.New(errors.ErrCodeRiskWeightsInvalid,
			fmt.Sprintf("factor weights sum to %.12f, want 1.0", sum))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FactorSet — the six scored dimensions
// ─────────────────────────────────────────────────────────────────────────────

// FactorSet holds one score per risk dimension.  Construct through
// NewFactorSet so out-of-range scores are rejected; a zero FactorSet is valid
// (all dimensions at minimum risk).
type FactorSet struct {
	JurisdictionRisk    float64 `json:"jurisdiction_risk"`
	EntityRisk          float64 `json:"entity_risk"`
	TaskRisk            float64 `json:"task_risk"`
	DataSensitivityRisk float64 `json:"data_sensitivity_risk"`
	RegulatoryRisk      float64 `json:"regulatory_risk"`
	ImpactRisk          float64 `json:"impact_risk"`
}

// NewFactorSet constructs a FactorSet, rejecting any score outside [0,1].
func NewFactorSet(jurisdiction, entity, task, dataSensitivity, regulatory, impact float64) (FactorSet, error) {
	fs := FactorSet{
		JurisdictionRisk:    jurisdiction,
		EntityRisk:          entity,
		TaskRisk:            task,
		DataSensitivityRisk: dataSensitivity,
		RegulatoryRisk:      regulatory,
		ImpactRisk:          impact,
	}
	if err := fs.Validate(); err != nil {
		return FactorSet{}, err
	}
	return fs, nil
}

// Validate checks that every score lies in [0,1].
func (fs FactorSet) Validate() error {
	for _, f := range factorOrder {
		score := fs.Score(f)
		if score < 0 || score > 1 {
			return errors.New(errors.ErrCodeRiskFactorOutOfRange,
				fmt.Sprintf("%s must be in [0,1], got %.4f", f, score))
		}
	}
	return nil
}

// Score returns the value of one dimension, or 0 for an unknown factor.
func (fs FactorSet) Score(f Factor) float64 {
	switch f {
	case FactorJurisdiction:
		return fs.JurisdictionRisk
	case FactorEntity:
		return fs.EntityRisk
	case FactorTask:
		return fs.TaskRisk
	case FactorDataSensitivity:
		return fs.DataSensitivityRisk
	case FactorRegulatory:
		return fs.RegulatoryRisk
	case FactorImpact:
		return fs.ImpactRisk
	default:
		return 0
	}
}

// WithScore returns a copy with one dimension replaced.  Unknown factors
// return the receiver unchanged.
func (fs FactorSet) WithScore(f Factor, score float64) FactorSet {
	out := fs
	switch f {
	case FactorJurisdiction:
		out.JurisdictionRisk = score
	case FactorEntity:
		out.EntityRisk = score
	case FactorTask:
		out.TaskRisk = score
	case FactorDataSensitivity:
		out.DataSensitivityRisk = score
	case FactorRegulatory:
		out.RegulatoryRisk = score
	case FactorImpact:
		out.ImpactRisk = score
	}
	return out
}

// OverallScore returns the exact weighted sum of the six dimensions.
// No internal rounding is applied; terms accumulate in canonical factor
// order so repeated evaluation is bit-identical.
func (fs FactorSet) OverallScore() float64 {
	sum := 0.0
	for _, f := range factorOrder {
		sum += fs.Score(f) * factorWeights[f]
	}
	return sum
}

// Vector returns the six scores in canonical order, the layout used for
// similarity search over historical analyses.
func (fs FactorSet) Vector() []float32 {
	out := make([]float32, len(factorOrder))
	for i, f := range factorOrder {
		out[i] = float32(fs.Score(f))
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Classification
// ─────────────────────────────────────────────────────────────────────────────

// Classify maps an overall score to a risk level using strict,
// non-configurable cutoffs: LOW below 0.35, MEDIUM in [0.35,0.65),
// HIGH at or above 0.65.
func Classify(score float64) common.RiskLevel {
	switch {
	case score < MediumThreshold:
		return common.RiskLow
	case score < HighThreshold:
		return common.RiskMedium
	default:
		return common.RiskHigh
	}
}

// Level classifies the FactorSet's overall score.
func (fs FactorSet) Level() common.RiskLevel {
	return Classify(fs.OverallScore())
}

// ─────────────────────────────────────────────────────────────────────────────
// Rationale
// ─────────────────────────────────────────────────────────────────────────────

// contributionTier labels a single factor's magnitude: HIGH at or above 0.7,
// MEDIUM at or above 0.4, LOW otherwise.
func contributionTier(score float64) string {
	switch {
	case score >= rationaleHighCutoff:
		return "HIGH"
	case score >= rationaleMediumCutoff:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Rationale returns one line per factor, in canonical order, labelling each
// with its contribution tier, raw value, and weighted contribution, followed
// by a summary line spelling out the full weighted-sum expression.  The
// output is display-only and never feeds back into scoring.
func (fs FactorSet) Rationale() []string {
	lines := make([]string, 0, len(factorOrder)+1)
	for _, f := range factorOrder {
		score := fs.Score(f)
		weight := factorWeights[f]
		lines = append(lines, fmt.Sprintf("%s: %.2f (%s contribution, weighted %.3f)",
			f, score, contributionTier(score), score*weight))
	}

	summary := "overall = "
	for i, f := range factorOrder {
		if i > 0 {
			summary += " + "
		}
		summary += fmt.Sprintf("%.2f×%.2f", factorWeights[f], fs.Score(f))
	}
	summary += fmt.Sprintf(" = %.4f", fs.OverallScore())
	lines = append(lines, summary)

	return lines
}
