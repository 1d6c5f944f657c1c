package whatif

import (
	"fmt"
	"math"

	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

const (
	// negligibleScoreDelta is the band below which a score move is reported
	// as noise rather than a shift.
	negligibleScoreDelta = 0.01
	// explainedWeightedDelta is the weighted impact a factor must exceed to
	// earn its own explanation line.
	explainedWeightedDelta = 0.001
)

// Engine evaluates counterfactual scenarios.  It owns no state beyond the
// decision engine it re-runs for context replacements and override re-checks.
type Engine struct {
	decisions *decision.Engine
}

// NewEngine builds a what-if engine around an existing decision engine, so
// scenario re-runs share the caller's override configuration.
func NewEngine(decisions *decision.Engine) *Engine {
	return &Engine{decisions: decisions}
}

// NewDefaultEngine builds a what-if engine over a default decision engine.
func NewDefaultEngine() *Engine {
	return NewEngine(decision.NewDefaultEngine())
}

// AnalyzeScenario evaluates one change patch against a baseline analysis.
//
// Factor patches apply sparsely over the baseline factor set; unlisted
// factors carry over unchanged.  The new score and level always come from the
// patched factors.  When the change replaces the entity or task, the decision
// comes from a full engine re-run on the merged pair, which can change which
// override fires; otherwise the override rules re-evaluate against the
// baseline facts with the patched level.
//
// An empty change reproduces the baseline exactly.
func (e *Engine) AnalyzeScenario(baseline *decision.DecisionAnalysis, change compliance.ScenarioChange) (*Result, error) {
	if baseline == nil {
		return nil, errors.New(errors.ErrCodeScenarioBaselineMissing, "baseline analysis is required")
	}
	if err := baseline.Validate(); err != nil {
		return nil, err
	}
	if err := change.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeScenarioValueOutOfRange, "scenario change rejected")
	}

	patched := baseline.Factors
	deltas := make([]FactorDelta, 0, 6)
	scoreDelta := 0.0
	for _, factor := range risk.Factors() {
		baseVal := baseline.Factors.Score(factor)
		newVal := baseVal
		if patch := patchFor(change, factor); patch != nil {
			newVal = *patch
			patched = patched.WithScore(factor, newVal)
		}
		delta := newVal - baseVal
		weighted := delta * risk.WeightOf(factor)
		scoreDelta += weighted
		deltas = append(deltas, FactorDelta{
			Factor:        factor,
			Baseline:      baseVal,
			Modified:      newVal,
			Delta:         delta,
			Weight:        risk.WeightOf(factor),
			WeightedDelta: weighted,
		})
	}

	newScore := patched.OverallScore()
	newLevel := risk.Classify(newScore)

	var newDecision common.ActionDecision
	if change.ReplacesContext() {
		entity := baseline.Entity
		if change.Entity != nil {
			entity = *change.Entity
		}
		task := baseline.Task
		if change.Task != nil {
			task = *change.Task
		}
		rerun, err := e.decisions.AnalyzeAndDecide(entity, task)
		if err != nil {
			return nil, err
		}
		newDecision = rerun.Decision
	} else {
		newDecision, _ = e.decisions.ApplyOverrides(baseline.Entity, baseline.Task, newLevel)
	}

	result := &Result{
		BaselineScore:    baseline.OverallScore,
		NewScore:         newScore,
		ScoreDelta:       scoreDelta,
		BaselineLevel:    baseline.RiskLevel,
		NewLevel:         newLevel,
		BaselineDecision: baseline.Decision,
		NewDecision:      newDecision,
		ModifiedFactors:  patched,
		FactorDeltas:     deltas,
		DecisionChange: DecisionChange{
			Changed:          newDecision != baseline.Decision,
			LevelChanged:     newLevel != baseline.RiskLevel,
			BaselineDecision: baseline.Decision,
			NewDecision:      newDecision,
			BaselineLevel:    baseline.RiskLevel,
			NewLevel:         newLevel,
			Impact:           impactText(baseline.Decision, newDecision),
			Severity:         SeverityOf(baseline.Decision, newDecision),
		},
	}
	result.Explanation = explain(result)
	return result, nil
}

// CompareScenarios evaluates every scenario against the same unchanged
// baseline.  Scenarios are never compared against each other.
func (e *Engine) CompareScenarios(baseline *decision.DecisionAnalysis, scenarios []compliance.NamedScenario) (*Comparison, error) {
	if baseline == nil {
		return nil, errors.New(errors.ErrCodeScenarioBaselineMissing, "baseline analysis is required")
	}

	comparison := &Comparison{
		BaselineScore:    baseline.OverallScore,
		BaselineLevel:    baseline.RiskLevel,
		BaselineDecision: baseline.Decision,
		Outcomes:         make([]ScenarioOutcome, 0, len(scenarios)),
	}
	for _, scenario := range scenarios {
		result, err := e.AnalyzeScenario(baseline, scenario.Change)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeScenarioComparisonFailed,
				fmt.Sprintf("scenario %q failed", scenario.Name))
		}
		comparison.Outcomes = append(comparison.Outcomes, ScenarioOutcome{Name: scenario.Name, Result: result})
	}
	return comparison, nil
}

// patchFor maps a factor to its patch pointer in the change, if any.
func patchFor(change compliance.ScenarioChange, f risk.Factor) *float64 {
	switch f {
	case risk.FactorJurisdiction:
		return change.JurisdictionRisk
	case risk.FactorEntity:
		return change.EntityRisk
	case risk.FactorTask:
		return change.TaskRisk
	case risk.FactorDataSensitivity:
		return change.DataSensitivityRisk
	case risk.FactorRegulatory:
		return change.RegulatoryRisk
	case risk.FactorImpact:
		return change.ImpactRisk
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Explanation
// ─────────────────────────────────────────────────────────────────────────────

// explain builds the ordered narrative: score delta, level line, decision
// line, the factors that mattered, and a band interpretation of the new
// score.
func explain(r *Result) []string {
	lines := make([]string, 0, 6+len(r.FactorDeltas))

	if math.Abs(r.ScoreDelta) < negligibleScoreDelta {
		lines = append(lines, fmt.Sprintf("overall score change is negligible (%+.4f)", r.ScoreDelta))
	} else {
		lines = append(lines, fmt.Sprintf("overall score moves from %.4f to %.4f (%+.4f)", r.BaselineScore, r.NewScore, r.ScoreDelta))
	}

	if r.NewLevel != r.BaselineLevel {
		lines = append(lines, fmt.Sprintf("risk level changes from %s to %s", r.BaselineLevel, r.NewLevel))
	} else {
		lines = append(lines, fmt.Sprintf("risk level remains %s", r.BaselineLevel))
	}

	if r.NewDecision != r.BaselineDecision {
		lines = append(lines, fmt.Sprintf("decision changes from %s to %s: %s", r.BaselineDecision, r.NewDecision, decisionNote(r.NewDecision)))
	} else {
		lines = append(lines, fmt.Sprintf("decision remains %s: %s", r.NewDecision, decisionNote(r.NewDecision)))
	}

	for _, d := range r.FactorDeltas {
		if math.Abs(d.WeightedDelta) <= explainedWeightedDelta {
			continue
		}
		direction := "rises"
		if d.Delta < 0 {
			direction = "falls"
		}
		lines = append(lines, fmt.Sprintf("%s %s from %.2f to %.2f (weighted impact %+.4f)",
			d.Factor, direction, d.Baseline, d.Modified, d.WeightedDelta))
	}

	lines = append(lines, bandInterpretation(r.NewScore))
	return lines
}

func decisionNote(d common.ActionDecision) string {
	switch d {
	case common.DecisionEscalate:
		return "specialist escalation required"
	case common.DecisionReviewRequired:
		return "human review required before execution"
	default:
		return "autonomous execution allowed"
	}
}

func bandInterpretation(score float64) string {
	switch risk.Classify(score) {
	case common.RiskLow:
		return fmt.Sprintf("a score of %.4f sits in the low band: routine handling applies", score)
	case common.RiskMedium:
		return fmt.Sprintf("a score of %.4f sits in the medium band: human review is the default posture", score)
	default:
		return fmt.Sprintf("a score of %.4f sits in the high band: specialist escalation is the default posture", score)
	}
}

func impactText(from, to common.ActionDecision) string {
	if from == to {
		return fmt.Sprintf("decision remains %s", to)
	}
	return fmt.Sprintf("decision shifts from %s to %s", from, to)
}
