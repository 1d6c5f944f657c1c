package decision

import (
	"fmt"
	"time"

	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ─────────────────────────────────────────────────────────────────────────────
// Derivation tables
// ─────────────────────────────────────────────────────────────────────────────

// entityTypeBaseRisk maps entity types to their baseline risk contribution.
var entityTypeBaseRisk = map[compliance.EntityType]float64{
	compliance.EntityCorporation:          0.3,
	compliance.EntityLLC:                  0.3,
	compliance.EntityPartnership:          0.3,
	compliance.EntityNonProfit:            0.2,
	compliance.EntityGovernment:           0.4,
	compliance.EntityFinancialInstitution: 0.5,
	compliance.EntityHealthcareProvider:   0.5,
	compliance.EntityStartup:              0.25,
	compliance.EntityUnknown:              0.3,
}

// industryRiskBump maps industries to the additive adjustment applied on top
// of the entity-type base.  Industries absent from the table contribute zero.
var industryRiskBump = map[compliance.Industry]float64{
	compliance.IndustryFinancialServices:  0.2,
	compliance.IndustryHealthcare:         0.2,
	compliance.IndustryEnergy:             0.15,
	compliance.IndustryTechnology:         0.1,
	compliance.IndustryTelecommunications: 0.1,
}

// categoryBaseRisk maps task categories to their baseline risk contribution.
var categoryBaseRisk = map[compliance.TaskCategory]float64{
	compliance.CategoryGeneralInquiry:     0.1,
	compliance.CategoryTrainingCompliance: 0.2,
	compliance.CategoryPolicyReview:       0.3,
	compliance.CategoryContractReview:     0.4,
	compliance.CategoryRiskAssessment:     0.45,
	compliance.CategoryAuditPreparation:   0.5,
	compliance.CategoryRegulatoryFiling:   0.6,
	compliance.CategoryDataPrivacy:        0.65,
	compliance.CategoryIncidentResponse:   0.9,
	compliance.CategoryUnknown:            0.4,
}

// impactBaseRisk maps declared potential impact to its baseline contribution.
var impactBaseRisk = map[compliance.PotentialImpact]float64{
	compliance.ImpactLow:      0.2,
	compliance.ImpactMedium:   0.5,
	compliance.ImpactHigh:     0.75,
	compliance.ImpactCritical: 0.95,
	compliance.ImpactUnknown:  0.3,
}

const (
	regulatedEntityBump    = 0.25
	violationBumpPerCount  = 0.15
	violationBumpCap       = 0.45
	taskFlagBump           = 0.05
	dataSensitivityFloor   = 0.1
	entityPersonalDataBump = 0.25
	affectsPersonalBump    = 0.30
	affectsFinancialBump   = 0.35
	regulatoryFloor        = 0.2
	regulatedOversightBump = 0.3
	twoJurisdictionBump    = 0.10
	manyJurisdictionBump   = 0.25
	regulationCountBump    = 0.05
	regulationCountCap     = 0.25
	largeStakeholderBump   = 0.15
	midStakeholderBump     = 0.10
	smallStakeholderBump   = 0.05
)

// Confidence calibration constants.  Confidence shrinks toward the middle of
// the score range, where a small perturbation could flip the classification,
// and recovers as scores move deep into a band.
const (
	simpleTaskConfidence  = 0.90
	lowBandCeiling        = 0.90
	lowBandFloor          = 0.75
	mediumBandCeiling     = 0.85
	mediumBandFloor       = 0.70
	highBandBase          = 0.80
	highBandCeiling       = 0.90
	confidenceSlope       = 0.15
	highConfidenceRange   = 0.25
	highConfidenceRecover = 0.10
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Config carries the engine thresholds operators may tune per deployment.
type Config struct {
	// ViolationReviewThreshold is the previous-violation count at which a
	// decision is forced to at least REVIEW_REQUIRED regardless of risk level.
	ViolationReviewThreshold int `mapstructure:"violation_review_threshold" json:"violation_review_threshold"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{ViolationReviewThreshold: 2}
}

func (c Config) withDefaults() Config {
	if c.ViolationReviewThreshold <= 0 {
		c.ViolationReviewThreshold = DefaultConfig().ViolationReviewThreshold
	}
	return c
}

// Engine derives risk factors from compliance facts and turns them into an
// actionable decision.  Engines are stateless and safe for concurrent use.
type Engine struct {
	cfg           Config
	jurisdictions *risk.JurisdictionAnalyzer
	now           func() time.Time
}

// NewEngine builds an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:           cfg.withDefaults(),
		jurisdictions: risk.NewJurisdictionAnalyzer(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NewDefaultEngine builds an engine with DefaultConfig.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultConfig())
}

// AnalyzeAndDecide runs the full pipeline for one entity/task pair: input
// normalization and validation, factor derivation, weighted scoring, override
// application, confidence calibration, and reasoning assembly.
//
// The same inputs always produce the same analysis apart from the generated
// ID and timestamp.
func (e *Engine) AnalyzeAndDecide(entity compliance.EntityContext, task compliance.TaskContext) (*DecisionAnalysis, error) {
	entity = entity.Normalized()
	task = task.Normalized()

	if task.Description == "" {
		return nil, errors.New(errors.ErrCodeTaskDescriptionEmpty, "task description is required")
	}
	if err := entity.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "entity context rejected")
	}
	if err := task.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "task context rejected")
	}

	jurisdictionRisk, jurisdictionNotes := e.jurisdictions.AnalyzeRisk(entity, task)
	regulations := e.jurisdictions.IdentifyApplicableRegulations(entity, task)

	factors, err := risk.NewFactorSet(
		jurisdictionRisk,
		deriveEntityRisk(entity),
		deriveTaskRisk(task),
		deriveDataSensitivityRisk(entity, task),
		deriveRegulatoryRisk(entity, regulations),
		deriveImpactRisk(task),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAnalysisFailed, "derived factors rejected")
	}

	score := factors.OverallScore()
	level := risk.Classify(score)
	decided, overrideNotes := e.ApplyOverrides(entity, task, level)
	confidence := confidenceFor(score, level, entity, task)

	analysis := &DecisionAnalysis{
		ID:              common.NewID(),
		Entity:          entity,
		Task:            task,
		Factors:         factors,
		OverallScore:    score,
		RiskLevel:       level,
		Decision:        decided,
		Confidence:      confidence,
		Reasoning:       assembleReasoning(entity, task, factors, jurisdictionNotes, overrideNotes),
		Recommendations: recommendationsFor(decided, entity, task),
		Regulations:     regulations,
		AnalyzedAt:      common.Timestamp(e.now()),
	}
	if decided == common.DecisionEscalate {
		analysis.EscalationReason = escalationReasonFor(task, score)
	}
	return analysis, nil
}

// ApplyOverrides applies the categorical rules that sit above the weighted
// score.  It returns the final decision together with the override notes that
// explain any adjustment.
//
// Incident response always escalates.  A violation history at or above the
// configured threshold, or any violation history combined with a non-low risk
// level, raises autonomous decisions to review; overrides never downgrade.
func (e *Engine) ApplyOverrides(entity compliance.EntityContext, task compliance.TaskContext, level common.RiskLevel) (common.ActionDecision, []string) {
	var notes []string

	if task.Category == compliance.CategoryIncidentResponse {
		notes = append(notes, "override: incident response tasks always escalate to a specialist")
		return common.DecisionEscalate, notes
	}

	decided := decisionForLevel(level)

	violationGate := entity.PreviousViolations >= e.cfg.ViolationReviewThreshold ||
		(entity.PreviousViolations >= 1 && level != common.RiskLow)
	if violationGate && decided == common.DecisionAutonomous {
		notes = append(notes, fmt.Sprintf(
			"override: %d previous violation(s) require human review regardless of score",
			entity.PreviousViolations))
		decided = common.DecisionReviewRequired
	}
	return decided, notes
}

func decisionForLevel(level common.RiskLevel) common.ActionDecision {
	switch level {
	case common.RiskLow:
		return common.DecisionAutonomous
	case common.RiskMedium:
		return common.DecisionReviewRequired
	default:
		return common.DecisionEscalate
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Factor derivation
// ─────────────────────────────────────────────────────────────────────────────

// deriveEntityRisk combines the entity-type base, the industry adjustment,
// the regulated-status bump, and a capped violation-history bump.
func deriveEntityRisk(entity compliance.EntityContext) float64 {
	score := entityTypeBaseRisk[entity.EntityType]
	score += industryRiskBump[entity.Industry]
	if entity.IsRegulated {
		score += regulatedEntityBump
	}
	if entity.PreviousViolations > 0 {
		bump := violationBumpPerCount * float64(entity.PreviousViolations)
		if bump > violationBumpCap {
			bump = violationBumpCap
		}
		score += bump
	}
	return cap1(score)
}

// deriveTaskRisk combines the category base with small bumps for personal
// data, financial data, and the presence of a regulatory deadline.
func deriveTaskRisk(task compliance.TaskContext) float64 {
	score := categoryBaseRisk[task.Category]
	if task.AffectsPersonalData {
		score += taskFlagBump
	}
	if task.AffectsFinancialData {
		score += taskFlagBump
	}
	if task.RegulatoryDeadline != nil {
		score += taskFlagBump
	}
	return cap1(score)
}

// deriveDataSensitivityRisk starts from a floor and adds the entity's
// personal-data holdings plus what the task itself touches.
func deriveDataSensitivityRisk(entity compliance.EntityContext, task compliance.TaskContext) float64 {
	score := dataSensitivityFloor
	if entity.HasPersonalData {
		score += entityPersonalDataBump
	}
	if task.AffectsPersonalData {
		score += affectsPersonalBump
	}
	if task.AffectsFinancialData {
		score += affectsFinancialBump
	}
	return cap1(score)
}

// deriveRegulatoryRisk measures exposure to active regulatory oversight:
// regulated status, jurisdictional spread, and the breadth of applicable
// regulations.
func deriveRegulatoryRisk(entity compliance.EntityContext, regulations []string) float64 {
	score := regulatoryFloor
	if entity.IsRegulated {
		score += regulatedOversightBump
	}
	switch n := len(entity.Jurisdictions); {
	case n >= 3:
		score += manyJurisdictionBump
	case n == 2:
		score += twoJurisdictionBump
	}
	if len(regulations) > 0 {
		bump := regulationCountBump * float64(len(regulations))
		if bump > regulationCountCap {
			bump = regulationCountCap
		}
		score += bump
	}
	return cap1(score)
}

// deriveImpactRisk maps the declared impact to a base and widens it with the
// stakeholder footprint.
func deriveImpactRisk(task compliance.TaskContext) float64 {
	score := impactBaseRisk[task.PotentialImpact]
	if task.StakeholderCount != nil {
		switch n := *task.StakeholderCount; {
		case n >= 10000:
			score += largeStakeholderBump
		case n >= 1000:
			score += midStakeholderBump
		case n >= 100:
			score += smallStakeholderBump
		}
	}
	return cap1(score)
}

// ─────────────────────────────────────────────────────────────────────────────
// Confidence
// ─────────────────────────────────────────────────────────────────────────────

// confidenceFor calibrates how certain the engine is about its classification.
// Scores near a band boundary earn less confidence than scores deep inside a
// band; trivially simple low-risk tasks are pinned at the ceiling.
func confidenceFor(score float64, level common.RiskLevel, entity compliance.EntityContext, task compliance.TaskContext) float64 {
	switch level {
	case common.RiskLow:
		if isSimpleTask(entity, task) {
			return simpleTaskConfidence
		}
		c := lowBandCeiling - (score/risk.MediumThreshold)*confidenceSlope
		return clamp(c, lowBandFloor, lowBandCeiling)
	case common.RiskMedium:
		span := risk.HighThreshold - risk.MediumThreshold
		c := mediumBandCeiling - ((score-risk.MediumThreshold)/span)*confidenceSlope
		return clamp(c, mediumBandFloor, mediumBandCeiling)
	default:
		c := highBandBase + ((score-risk.HighThreshold)/highConfidenceRange)*highConfidenceRecover
		if c > highBandCeiling {
			c = highBandCeiling
		}
		return c
	}
}

// isSimpleTask reports whether the task is a plain general inquiry with no
// data exposure on either side.
func isSimpleTask(entity compliance.EntityContext, task compliance.TaskContext) bool {
	return task.Category == compliance.CategoryGeneralInquiry &&
		!task.AffectsPersonalData &&
		!task.AffectsFinancialData &&
		!entity.HasPersonalData
}

// ─────────────────────────────────────────────────────────────────────────────
// Reasoning and recommendations
// ─────────────────────────────────────────────────────────────────────────────

// assembleReasoning orders the explanation: jurisdictional findings first,
// then the weighted factor breakdown, then entity and task observations, and
// finally any override notes.
func assembleReasoning(entity compliance.EntityContext, task compliance.TaskContext, factors risk.FactorSet, jurisdictionNotes, overrideNotes []string) []string {
	lines := make([]string, 0, 16)
	lines = append(lines, jurisdictionNotes...)
	lines = append(lines, factors.Rationale()...)

	lines = append(lines, fmt.Sprintf("entity operates in %d jurisdiction(s)", len(entity.Jurisdictions)))
	if entity.PreviousViolations > 0 {
		lines = append(lines, fmt.Sprintf("entity has %d previous compliance violation(s) on record", entity.PreviousViolations))
	}
	if entity.IsRegulated {
		lines = append(lines, "entity operates under active regulatory oversight")
	}

	lines = append(lines, fmt.Sprintf("task category: %s", task.Category))
	if task.AffectsPersonalData {
		lines = append(lines, "task affects personal data")
	}
	if task.AffectsFinancialData {
		lines = append(lines, "task affects financial data")
	}
	if task.RegulatoryDeadline != nil {
		lines = append(lines, fmt.Sprintf("regulatory deadline in effect: %s", task.RegulatoryDeadline.Format("2006-01-02")))
	}

	lines = append(lines, overrideNotes...)
	return lines
}

// recommendationsFor returns the action guidance for a decision.  Every
// decision yields at least one recommendation.
func recommendationsFor(decided common.ActionDecision, entity compliance.EntityContext, task compliance.TaskContext) []string {
	var recs []string
	switch decided {
	case common.DecisionEscalate:
		recs = append(recs, "Escalate to a compliance specialist before proceeding")
	case common.DecisionReviewRequired:
		recs = append(recs, "Obtain human compliance review before execution")
	default:
		recs = append(recs, "Proceed autonomously; record the outcome for audit")
	}

	if task.AffectsPersonalData {
		recs = append(recs, "Verify data-subject rights handling before processing personal data")
	}
	if task.RegulatoryDeadline != nil {
		recs = append(recs, fmt.Sprintf("Track the regulatory deadline (%s) in the compliance calendar", task.RegulatoryDeadline.Format("2006-01-02")))
	}
	if entity.PreviousViolations > 0 {
		recs = append(recs, "Review remediation status of previous violations before expanding scope")
	}
	if task.InvolvesCrossBorder {
		recs = append(recs, "Confirm cross-border transfer mechanisms are in place")
	}
	return recs
}

// escalationReasonFor names why the engine escalated.
func escalationReasonFor(task compliance.TaskContext, score float64) string {
	if task.Category == compliance.CategoryIncidentResponse {
		return "incident response tasks require immediate specialist escalation"
	}
	return fmt.Sprintf("overall risk score %.2f is at or above the high-risk threshold %.2f", score, risk.HighThreshold)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func cap1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
