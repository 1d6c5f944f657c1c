package risk

import (
	"fmt"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ─────────────────────────────────────────────────────────────────────────────
// Static lookup tables
// ─────────────────────────────────────────────────────────────────────────────

// noJurisdictionScore is the documented moderate default applied when the
// entity declares no jurisdictions at all.
const noJurisdictionScore = 0.5

// multiJurisdictionScore is the candidate added whenever more than one
// jurisdiction is in scope.
const multiJurisdictionScore = 0.8

// crossBorderScore is the candidate added when the task involves cross-border
// activity.
const crossBorderScore = 0.85

// jurisdictionComplexity is the static base complexity per jurisdiction.
// Values span 0.5–0.95; the worst applicable candidate dominates.
var jurisdictionComplexity = map[compliance.Jurisdiction]float64{
	compliance.JurisdictionEU:        0.9,
	compliance.JurisdictionMulti:     0.95,
	compliance.JurisdictionUSFederal: 0.7,
	compliance.JurisdictionUK:        0.75,
	compliance.JurisdictionCanada:    0.65,
	compliance.JurisdictionAPAC:      0.7,
	compliance.JurisdictionUSState:   0.6,
	compliance.JurisdictionUnknown:   0.5,
}

// industryJurisdiction keys the cross-risk table.
type industryJurisdiction struct {
	Industry     compliance.Industry
	Jurisdiction compliance.Jurisdiction
}

// industryCrossRisk raises the candidate score where a heavily regulated
// industry meets a demanding regulator.
var industryCrossRisk = map[industryJurisdiction]float64{
	{compliance.IndustryFinancialServices, compliance.JurisdictionEU}:        0.95,
	{compliance.IndustryFinancialServices, compliance.JurisdictionUSFederal}: 0.9,
	{compliance.IndustryHealthcare, compliance.JurisdictionUSFederal}:        0.95,
	{compliance.IndustryHealthcare, compliance.JurisdictionEU}:               0.9,
	{compliance.IndustryTechnology, compliance.JurisdictionMulti}:            0.9,
	{compliance.IndustryTechnology, compliance.JurisdictionEU}:               0.85,
}

// jurisdictionNotes carries the reasoning line emitted for jurisdictions
// whose presence alone is noteworthy.
var jurisdictionNotes = map[compliance.Jurisdiction]string{
	compliance.JurisdictionEU:        "EU regulatory regime applies (GDPR and related frameworks)",
	compliance.JurisdictionUSFederal: "US federal regulatory oversight applies",
	compliance.JurisdictionMulti:     "multi-regional scope carries the highest jurisdictional complexity",
}

// ─────────────────────────────────────────────────────────────────────────────
// JurisdictionAnalyzer
// ─────────────────────────────────────────────────────────────────────────────

// JurisdictionAnalyzer evaluates the jurisdictional exposure of a task and
// resolves the applicable regulation catalog.  It is stateless: all lookup
// tables are read-only static data, so a single instance is safe for
// unrestricted concurrent use.
type JurisdictionAnalyzer struct{}

// NewJurisdictionAnalyzer constructs a JurisdictionAnalyzer.
func NewJurisdictionAnalyzer() *JurisdictionAnalyzer {
	return &JurisdictionAnalyzer{}
}

// AnalyzeRisk scores the jurisdictional risk of the (entity, task) pair and
// returns the reasoning lines in emission order.
//
// Candidate scores accumulate from: multi-jurisdiction presence, each
// jurisdiction's static base complexity, industry×jurisdiction cross-risk
// matches, and cross-border involvement.  The final score is the maximum
// candidate: the worst exposure dominates, never an average.
func (a *JurisdictionAnalyzer) AnalyzeRisk(entity compliance.EntityContext, task compliance.TaskContext) (float64, []string) {
	if len(entity.Jurisdictions) == 0 {
		return noJurisdictionScore, []string{
			"no jurisdictions declared; applying moderate default jurisdictional risk",
		}
	}

	candidates := make([]float64, 0, 2+2*len(entity.Jurisdictions))
	reasoning := make([]string, 0, 2+2*len(entity.Jurisdictions))

	if len(entity.Jurisdictions) > 1 {
		candidates = append(candidates, multiJurisdictionScore)
		reasoning = append(reasoning, fmt.Sprintf(
			"multi-jurisdictional complexity: %d jurisdictions in scope", len(entity.Jurisdictions)))
	}

	hasEU := false
	for _, j := range entity.Jurisdictions {
		if j == compliance.JurisdictionEU {
			hasEU = true
		}

		base, ok := jurisdictionComplexity[j]
		if !ok {
			base = jurisdictionComplexity[compliance.JurisdictionUnknown]
		}
		candidates = append(candidates, base)
		if note, noted := jurisdictionNotes[j]; noted {
			reasoning = append(reasoning, note)
		}

		if cross, matched := industryCrossRisk[industryJurisdiction{entity.Industry, j}]; matched {
			candidates = append(candidates, cross)
			reasoning = append(reasoning, fmt.Sprintf(
				"elevated exposure: %s activity under %s regulation", entity.Industry, j))
		}
	}

	if task.InvolvesCrossBorder {
		candidates = append(candidates, crossBorderScore)
		if hasEU {
			reasoning = append(reasoning, "cross-border data transfer within EU scope (GDPR Chapter V transfer rules)")
		} else {
			reasoning = append(reasoning, "cross-border activity increases jurisdictional exposure")
		}
	}

	score := candidates[0]
	for _, c := range candidates[1:] {
		if c > score {
			score = c
		}
	}
	return score, reasoning
}

// ─────────────────────────────────────────────────────────────────────────────
// Regulation catalog
// ─────────────────────────────────────────────────────────────────────────────

// IdentifyApplicableRegulations resolves the regulations bearing on the
// (entity, task) pair from the static jurisdiction→regulation table, narrowed
// by industry and task category.  Jurisdictions are processed in input order
// and duplicates are preserved: a regulation reachable through two
// jurisdictions appears twice, which downstream counts rely on.
func (a *JurisdictionAnalyzer) IdentifyApplicableRegulations(entity compliance.EntityContext, task compliance.TaskContext) []string {
	regs := make([]string, 0, 2*len(entity.Jurisdictions))

	for _, j := range entity.Jurisdictions {
		switch j {
		case compliance.JurisdictionEU:
			regs = append(regs, "GDPR")
			if entity.Industry == compliance.IndustryFinancialServices {
				regs = append(regs, "MiFID II", "PSD2")
			}
			if task.Category == compliance.CategoryDataPrivacy {
				regs = append(regs, "ePrivacy Directive")
			}
		case compliance.JurisdictionUSFederal:
			regs = append(regs, "FTC Act")
			if entity.Industry == compliance.IndustryFinancialServices {
				regs = append(regs, "SOX", "GLBA")
			}
			if entity.Industry == compliance.IndustryHealthcare {
				regs = append(regs, "HIPAA")
			}
			if task.Category == compliance.CategoryDataPrivacy {
				regs = append(regs, "COPPA")
			}
		case compliance.JurisdictionUK:
			regs = append(regs, "UK GDPR")
			if entity.Industry == compliance.IndustryFinancialServices {
				regs = append(regs, "FCA Handbook")
			}
		case compliance.JurisdictionCanada:
			regs = append(regs, "PIPEDA")
		case compliance.JurisdictionUSState:
			if task.Category == compliance.CategoryDataPrivacy || entity.HasPersonalData {
				regs = append(regs, "CCPA")
			}
		case compliance.JurisdictionAPAC:
			if task.Category == compliance.CategoryDataPrivacy || entity.HasPersonalData {
				regs = append(regs, "PDPA")
			}
		case compliance.JurisdictionMulti:
			if entity.HasPersonalData {
				regs = append(regs, "ISO 27701")
			}
		}
	}

	return regs
}

// Catalog returns the full static regulation table, one entry per
// (jurisdiction, regulation) pair with the condition under which it applies.
// The catalog backs the read-only regulation listing surface.
func (a *JurisdictionAnalyzer) Catalog() []compliance.RegulationDTO {
	return []compliance.RegulationDTO{
		{Name: "GDPR", Jurisdiction: compliance.JurisdictionEU},
		{Name: "MiFID II", Jurisdiction: compliance.JurisdictionEU, Condition: "industry FINANCIAL_SERVICES"},
		{Name: "PSD2", Jurisdiction: compliance.JurisdictionEU, Condition: "industry FINANCIAL_SERVICES"},
		{Name: "ePrivacy Directive", Jurisdiction: compliance.JurisdictionEU, Condition: "category DATA_PRIVACY"},
		{Name: "FTC Act", Jurisdiction: compliance.JurisdictionUSFederal},
		{Name: "SOX", Jurisdiction: compliance.JurisdictionUSFederal, Condition: "industry FINANCIAL_SERVICES"},
		{Name: "GLBA", Jurisdiction: compliance.JurisdictionUSFederal, Condition: "industry FINANCIAL_SERVICES"},
		{Name: "HIPAA", Jurisdiction: compliance.JurisdictionUSFederal, Condition: "industry HEALTHCARE"},
		{Name: "COPPA", Jurisdiction: compliance.JurisdictionUSFederal, Condition: "category DATA_PRIVACY"},
		{Name: "UK GDPR", Jurisdiction: compliance.JurisdictionUK},
		{Name: "FCA Handbook", Jurisdiction: compliance.JurisdictionUK, Condition: "industry FINANCIAL_SERVICES"},
		{Name: "PIPEDA", Jurisdiction: compliance.JurisdictionCanada},
		{Name: "CCPA", Jurisdiction: compliance.JurisdictionUSState, Condition: "category DATA_PRIVACY or personal data held"},
		{Name: "PDPA", Jurisdiction: compliance.JurisdictionAPAC, Condition: "category DATA_PRIVACY or personal data held"},
		{Name: "ISO 27701", Jurisdiction: compliance.JurisdictionMulti, Condition: "personal data held"},
	}
}
