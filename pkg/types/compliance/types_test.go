package compliance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CompliSense/pkg/types/common"
)

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestEntityType_IsValid_AllTypes(t *testing.T) {
	types := []EntityType{
		EntityCorporation, EntityLLC, EntityPartnership, EntityNonProfit,
		EntityGovernment, EntityFinancialInstitution, EntityHealthcareProvider,
		EntityStartup, EntityUnknown,
	}
	for _, et := range types {
		assert.True(t, et.IsValid(), "expected %s to be valid", et)
	}
}

func TestEntityType_IsValid_Unrecognized(t *testing.T) {
	assert.False(t, EntityType("SOLE_PROPRIETORSHIP").IsValid())
	assert.False(t, EntityType("").IsValid())
}

func TestParseEntityType_CaseInsensitive(t *testing.T) {
	et, err := ParseEntityType("corporation")
	require.NoError(t, err)
	assert.Equal(t, EntityCorporation, et)
}

func TestParseEntityType_EmptyMapsToUnknown(t *testing.T) {
	et, err := ParseEntityType("")
	require.NoError(t, err)
	assert.Equal(t, EntityUnknown, et)
}

func TestParseEntityType_RejectsTypo(t *testing.T) {
	_, err := ParseEntityType("CORPORATON")
	assert.Error(t, err)
}

func TestIndustry_IsValid_AllIndustries(t *testing.T) {
	industries := []Industry{
		IndustryFinancialServices, IndustryHealthcare, IndustryTechnology,
		IndustryManufacturing, IndustryRetail, IndustryEnergy,
		IndustryTelecommunications, IndustryEducation, IndustryOther,
		IndustryUnknown,
	}
	for _, i := range industries {
		assert.True(t, i.IsValid(), "expected %s to be valid", i)
	}
}

func TestParseIndustry_CaseInsensitive(t *testing.T) {
	i, err := ParseIndustry("financial_services")
	require.NoError(t, err)
	assert.Equal(t, IndustryFinancialServices, i)
}

func TestTaskCategory_IsValid_AllCategories(t *testing.T) {
	categories := []TaskCategory{
		CategoryGeneralInquiry, CategoryDataPrivacy, CategoryRegulatoryFiling,
		CategoryPolicyReview, CategoryContractReview, CategoryIncidentResponse,
		CategoryAuditPreparation, CategoryTrainingCompliance,
		CategoryRiskAssessment, CategoryUnknown,
	}
	for _, c := range categories {
		assert.True(t, c.IsValid(), "expected %s to be valid", c)
	}
}

func TestParseTaskCategory_RejectsUnrecognized(t *testing.T) {
	_, err := ParseTaskCategory("LITIGATION")
	assert.Error(t, err)
}

func TestJurisdiction_IsValid_AllJurisdictions(t *testing.T) {
	jurisdictions := []Jurisdiction{
		JurisdictionUSFederal, JurisdictionUSState, JurisdictionEU,
		JurisdictionUK, JurisdictionCanada, JurisdictionAPAC,
		JurisdictionMulti, JurisdictionUnknown,
	}
	for _, j := range jurisdictions {
		assert.True(t, j.IsValid(), "expected %s to be valid", j)
	}
}

func TestParsePotentialImpact_MixedCase(t *testing.T) {
	p, err := ParsePotentialImpact("Critical")
	require.NoError(t, err)
	assert.Equal(t, ImpactCritical, p)
}

func TestParsePotentialImpact_EmptyMapsToUnknown(t *testing.T) {
	p, err := ParsePotentialImpact("  ")
	require.NoError(t, err)
	assert.Equal(t, ImpactUnknown, p)
}

func validEntity() EntityContext {
	return EntityContext{
		Name:          "Acme Corp",
		EntityType:    EntityCorporation,
		Industry:      IndustryTechnology,
		Jurisdictions: []Jurisdiction{JurisdictionUSFederal},
	}
}

func validTask() TaskContext {
	return TaskContext{
		Description:     "Quarterly policy review",
		Category:        CategoryPolicyReview,
		PotentialImpact: ImpactLow,
	}
}

func TestEntityContext_Validate_Valid(t *testing.T) {
	assert.NoError(t, validEntity().Validate())
}

func TestEntityContext_Validate_EmptyName(t *testing.T) {
	e := validEntity()
	e.Name = "   "
	assert.Error(t, e.Validate())
}

func TestEntityContext_Validate_InvalidEntityType(t *testing.T) {
	e := validEntity()
	e.EntityType = "CONGLOMERATE"
	assert.Error(t, e.Validate())
}

func TestEntityContext_Validate_InvalidJurisdiction(t *testing.T) {
	e := validEntity()
	e.Jurisdictions = []Jurisdiction{"MARS"}
	assert.Error(t, e.Validate())
}

func TestEntityContext_Validate_EmptyJurisdictionsAllowed(t *testing.T) {
	e := validEntity()
	e.Jurisdictions = nil
	assert.NoError(t, e.Validate())
}

func TestEntityContext_Validate_NegativeViolations(t *testing.T) {
	e := validEntity()
	e.PreviousViolations = -1
	assert.Error(t, e.Validate())
}

func TestEntityContext_Validate_NegativeEmployeeCount(t *testing.T) {
	e := validEntity()
	e.EmployeeCount = intPtr(-5)
	assert.Error(t, e.Validate())
}

func TestEntityContext_Validate_MissingOptionalsAllowed(t *testing.T) {
	e := validEntity()
	e.EmployeeCount = nil
	e.AnnualRevenue = nil
	assert.NoError(t, e.Validate())
}

func TestEntityContext_Normalized_ParsesEnumsAndCopiesSlice(t *testing.T) {
	e := EntityContext{
		Name:          "Acme",
		EntityType:    "corporation",
		Industry:      "healthcare",
		Jurisdictions: []Jurisdiction{"eu", "uk"},
	}
	n := e.Normalized()
	assert.Equal(t, EntityCorporation, n.EntityType)
	assert.Equal(t, IndustryHealthcare, n.Industry)
	assert.Equal(t, []Jurisdiction{JurisdictionEU, JurisdictionUK}, n.Jurisdictions)

	// The original is untouched and the slices do not alias.
	assert.Equal(t, EntityType("corporation"), e.EntityType)
	n.Jurisdictions[0] = JurisdictionCanada
	assert.Equal(t, Jurisdiction("eu"), e.Jurisdictions[0])
}

func TestEntityContext_Normalized_PreservesTypos(t *testing.T) {
	e := validEntity()
	e.Industry = "FINTECH"
	n := e.Normalized()
	assert.Equal(t, Industry("FINTECH"), n.Industry)
	assert.Error(t, n.Validate())
}

func TestTaskContext_Validate_Valid(t *testing.T) {
	assert.NoError(t, validTask().Validate())
}

func TestTaskContext_Validate_WhitespaceDescription(t *testing.T) {
	task := validTask()
	task.Description = "  \t "
	assert.Error(t, task.Validate())
}

func TestTaskContext_Validate_NegativeStakeholders(t *testing.T) {
	task := validTask()
	task.StakeholderCount = intPtr(-1)
	assert.Error(t, task.Validate())
}

func TestTaskContext_Normalized_TrimsAndNormalizesDeadline(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	deadline := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	task := TaskContext{
		Description:        "  Review GDPR contract  ",
		Category:           "contract_review",
		PotentialImpact:    "High",
		RegulatoryDeadline: &deadline,
	}
	n := task.Normalized()
	assert.Equal(t, "Review GDPR contract", n.Description)
	assert.Equal(t, CategoryContractReview, n.Category)
	assert.Equal(t, ImpactHigh, n.PotentialImpact)
	assert.Equal(t, time.UTC, n.RegulatoryDeadline.Location())
	assert.True(t, n.RegulatoryDeadline.Equal(deadline))

	// The original deadline pointer is not mutated.
	assert.Equal(t, loc, task.RegulatoryDeadline.Location())
}

func TestDecisionRecord_MetadataFlag_BoolTrue(t *testing.T) {
	r := DecisionRecord{Metadata: common.Metadata{"violation_detected": true}}
	assert.True(t, r.MetadataFlag("violation_detected"))
}

func TestDecisionRecord_MetadataFlag_StringTrue(t *testing.T) {
	r := DecisionRecord{Metadata: common.Metadata{"regulatory_change": "TRUE"}}
	assert.True(t, r.MetadataFlag("regulatory_change"))
}

func TestDecisionRecord_MetadataFlag_FalseValues(t *testing.T) {
	r := DecisionRecord{Metadata: common.Metadata{
		"a": false,
		"b": "false",
		"c": 1,
	}}
	assert.False(t, r.MetadataFlag("a"))
	assert.False(t, r.MetadataFlag("b"))
	assert.False(t, r.MetadataFlag("c"))
	assert.False(t, r.MetadataFlag("missing"))
}

func TestDecisionRecord_MetadataFlag_NilMetadata(t *testing.T) {
	r := DecisionRecord{}
	assert.False(t, r.MetadataFlag("anything"))
}

func TestScenarioChange_Validate_FactorInRange(t *testing.T) {
	c := ScenarioChange{RegulatoryRisk: floatPtr(0.95)}
	assert.NoError(t, c.Validate())
}

func TestScenarioChange_Validate_FactorOutOfRange(t *testing.T) {
	c := ScenarioChange{TaskRisk: floatPtr(1.2)}
	assert.Error(t, c.Validate())

	c = ScenarioChange{ImpactRisk: floatPtr(-0.1)}
	assert.Error(t, c.Validate())
}

func TestScenarioChange_Validate_InvalidReplacementEntity(t *testing.T) {
	c := ScenarioChange{Entity: &EntityContext{Name: ""}}
	assert.Error(t, c.Validate())
}

func TestScenarioChange_ReplacesContext(t *testing.T) {
	assert.False(t, ScenarioChange{TaskRisk: floatPtr(0.5)}.ReplacesContext())

	e := validEntity()
	assert.True(t, ScenarioChange{Entity: &e}.ReplacesContext())
}

func TestScenarioChange_IsEmpty(t *testing.T) {
	assert.True(t, ScenarioChange{}.IsEmpty())
	assert.False(t, ScenarioChange{EntityRisk: floatPtr(0.3)}.IsEmpty())
}

func TestAssessmentRequest_Validate_Valid(t *testing.T) {
	req := NewAssessmentRequest(validEntity(), validTask())
	assert.NoError(t, req.Validate())
}

func TestAssessmentRequest_Validate_RawEnumsAccepted(t *testing.T) {
	e := validEntity()
	e.EntityType = "startup"
	task := validTask()
	task.PotentialImpact = "Critical"
	req := NewAssessmentRequest(e, task)
	assert.NoError(t, req.Validate())
}

func TestAssessmentRequest_Validate_BadTask(t *testing.T) {
	req := NewAssessmentRequest(validEntity(), TaskContext{})
	assert.Error(t, req.Validate())
}

func TestWhatIfCompareRequest_Validate_NoScenarios(t *testing.T) {
	req := WhatIfCompareRequest{}
	assert.Error(t, req.Validate())
}

func TestWhatIfCompareRequest_Validate_UnnamedScenario(t *testing.T) {
	req := WhatIfCompareRequest{Scenarios: []NamedScenario{
		{Name: "", Change: ScenarioChange{}},
	}}
	assert.Error(t, req.Validate())
}

func TestSuggestionScanRequest_Validate_EmptyEntity(t *testing.T) {
	req := SuggestionScanRequest{EntityName: ""}
	assert.Error(t, req.Validate())
}

func TestSuggestionScanRequest_Validate_WithCategoryFilter(t *testing.T) {
	cat := CategoryRegulatoryFiling
	req := SuggestionScanRequest{EntityName: "Acme", Category: &cat}
	assert.NoError(t, req.Validate())
}

func TestNewAssessmentListRequest_Defaults(t *testing.T) {
	req := NewAssessmentListRequest("Acme")
	assert.Equal(t, "Acme", req.EntityName)
	assert.Equal(t, 1, req.Pagination.Page)
	assert.Equal(t, 20, req.Pagination.PageSize)
	assert.NoError(t, req.Validate())
}

func TestScenarioChange_JSONRoundTrip_SparseFields(t *testing.T) {
	raw := `{"regulatory_risk":0.95}`
	var c ScenarioChange
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	require.NotNil(t, c.RegulatoryRisk)
	assert.Equal(t, 0.95, *c.RegulatoryRisk)
	assert.Nil(t, c.TaskRisk)
	assert.Nil(t, c.Entity)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestEntityContext_JSONOmitsEmptyOptionals(t *testing.T) {
	out, err := json.Marshal(validEntity())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "employee_count")
	assert.NotContains(t, string(out), "annual_revenue")
	assert.Contains(t, string(out), "\"previous_violations\":0")
}

func TestTaskContext_JSONDeadlineRoundTrip(t *testing.T) {
	task := validTask()
	task.RegulatoryDeadline = timePtr(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC))
	out, err := json.Marshal(task)
	require.NoError(t, err)

	var back TaskContext
	require.NoError(t, json.Unmarshal(out, &back))
	require.NotNil(t, back.RegulatoryDeadline)
	assert.True(t, back.RegulatoryDeadline.Equal(*task.RegulatoryDeadline))
}
