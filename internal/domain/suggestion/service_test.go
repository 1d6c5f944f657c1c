package suggestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MinUpcomingDeadlines)
	assert.Equal(t, 3, cfg.MinTrendRecords)
	assert.Equal(t, 2, cfg.MinHighRiskEscalations)
	assert.Equal(t, 2, cfg.MinIncidentRecords)
	assert.Equal(t, 3, cfg.MinFilingRecords)
}

func TestNewService_ZeroConfigGetsDefaults(t *testing.T) {
	svc := NewService(Config{})
	assert.Equal(t, DefaultConfig(), svc.Config())
}

func TestService_CheckTriggers_EmptyHistory(t *testing.T) {
	svc := NewDefaultService()
	assert.Empty(t, svc.CheckTriggers("Acme", nil, CheckOptions{AsOf: anchor()}))
}

func TestService_CheckTriggers_QuietHistoryRaisesNothing(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		baseRecord(5), baseRecord(12), baseRecord(40), baseRecord(55),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Deadline proximity
// ─────────────────────────────────────────────────────────────────────────────

func TestService_DeadlineProximity_UrgentRaisesHigh(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(2), 3),
		withDeadline(baseRecord(10), 20),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerDeadlineProximity, got[0].Type)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 1, got[0].Metadata["urgent_count"])
	assert.Equal(t, 1, got[0].Metadata["upcoming_count"])
}

func TestService_DeadlineProximity_OverdueCountsAsUrgent(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(5), -4),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 1, got[0].Metadata["urgent_count"])
}

func TestService_DeadlineProximity_UpcomingRaisesMedium(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(1), 10),
		withDeadline(baseRecord(2), 15),
		withDeadline(baseRecord(3), 25),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerDeadlineProximity, got[0].Type)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.Equal(t, 0, got[0].Metadata["urgent_count"])
	assert.Equal(t, 3, got[0].Metadata["upcoming_count"])
}

func TestService_DeadlineProximity_BelowMinimumStaysQuiet(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(1), 10),
		withDeadline(baseRecord(2), 15),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_DeadlineProximity_StaleRecordsIgnored(t *testing.T) {
	svc := NewDefaultService()
	// The record itself is outside the 90-day lookback even though its
	// deadline is imminent.
	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(120), 2),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_DeadlineProximity_SevenDayBoundaryIsUrgent(t *testing.T) {
	svc := NewDefaultService()
	exactlySeven := baseRecord(1)
	deadline := anchor().Add(7 * 24 * time.Hour)
	exactlySeven.RegulatoryDeadline = &deadline

	got := svc.CheckTriggers("Acme", []compliance.DecisionRecord{exactlySeven}, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityHigh, got[0].Priority)
}

// ─────────────────────────────────────────────────────────────────────────────
// Risk trend
// ─────────────────────────────────────────────────────────────────────────────

func TestService_RiskTrend_RisingAverageRaisesHigh(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withScore(baseRecord(5), 0.5),
		withScore(baseRecord(10), 0.5),
		withScore(baseRecord(15), 0.5),
		withScore(baseRecord(35), 0.3),
		withScore(baseRecord(40), 0.3),
		withScore(baseRecord(45), 0.3),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRiskTrend, got[0].Type)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 3, got[0].Metadata["recent_count"])
	assert.Equal(t, 3, got[0].Metadata["older_count"])
	assert.InDelta(t, 0.5, got[0].Metadata["recent_avg"].(float64), 1e-9)
	assert.InDelta(t, 0.3, got[0].Metadata["older_avg"].(float64), 1e-9)
}

func TestService_RiskTrend_EscalationRateRaisesMedium(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		escalated(withScore(baseRecord(5), 0.5)),
		escalated(withScore(baseRecord(10), 0.5)),
		withScore(baseRecord(15), 0.4),
		withScore(baseRecord(35), 0.4),
		withScore(baseRecord(40), 0.4),
		withScore(baseRecord(45), 0.4),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRiskTrend, got[0].Type)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.InDelta(t, 2.0/3.0, got[0].Metadata["recent_escalation_rate"].(float64), 1e-9)
	assert.InDelta(t, 0.0, got[0].Metadata["older_escalation_rate"].(float64), 1e-9)
}

func TestService_RiskTrend_InsufficientWindowStaysQuiet(t *testing.T) {
	svc := NewDefaultService()

	// Only two older records; the recent rise alone must not fire.
	records := []compliance.DecisionRecord{
		withScore(baseRecord(5), 0.9),
		withScore(baseRecord(10), 0.9),
		withScore(baseRecord(15), 0.9),
		withScore(baseRecord(35), 0.2),
		withScore(baseRecord(40), 0.2),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_RiskTrend_ThirtyDayBoundaryIsRecent(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		withScore(baseRecord(5), 0.5),
		withScore(baseRecord(10), 0.5),
		withScore(baseRecord(30), 0.5),
		withScore(baseRecord(35), 0.3),
		withScore(baseRecord(40), 0.3),
		withScore(baseRecord(45), 0.3),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Metadata["recent_count"])
	assert.Equal(t, 3, got[0].Metadata["older_count"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Violation pattern
// ─────────────────────────────────────────────────────────────────────────────

func TestService_ViolationPattern_FlaggedRaisesHigh(t *testing.T) {
	svc := NewDefaultService()
	flagged := highEscalation(baseRecord(20))
	flagged.Metadata = common.Metadata{MetadataKeyViolationDetected: true}
	records := []compliance.DecisionRecord{
		flagged,
		highEscalation(baseRecord(40)),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerViolationPattern, got[0].Type)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 2, got[0].Metadata["high_risk_escalations"])
	assert.Equal(t, 1, got[0].Metadata["flagged_violations"])
}

func TestService_ViolationPattern_StringFlagCounts(t *testing.T) {
	svc := NewDefaultService()
	flagged := highEscalation(baseRecord(20))
	flagged.Metadata = common.Metadata{MetadataKeyViolationDetected: "TRUE"}
	records := []compliance.DecisionRecord{
		flagged,
		highEscalation(baseRecord(40)),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityHigh, got[0].Priority)
}

func TestService_ViolationPattern_RepeatedEscalationsRaiseMedium(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		highEscalation(baseRecord(10)),
		highEscalation(baseRecord(30)),
		highEscalation(baseRecord(50)),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerViolationPattern, got[0].Type)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.Equal(t, 3, got[0].Metadata["high_risk_escalations"])
	assert.Equal(t, 0, got[0].Metadata["flagged_violations"])
}

func TestService_ViolationPattern_TwoUnflaggedStayQuiet(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		highEscalation(baseRecord(10)),
		highEscalation(baseRecord(30)),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_ViolationPattern_LowRiskEscalationsDoNotQualify(t *testing.T) {
	svc := NewDefaultService()

	// ESCALATE decisions at non-high risk levels never count.
	mediumEsc := escalated(baseRecord(10))
	mediumEsc.RiskLevel = common.RiskMedium
	records := []compliance.DecisionRecord{
		mediumEsc,
		escalated(baseRecord(20)),
		highEscalation(baseRecord(30)),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Recurring incidents
// ─────────────────────────────────────────────────────────────────────────────

func TestService_RecurringIncidents_SameIssueRaisesHigh(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Phishing attack targeting the finance team mailbox reported by staff"),
		incident(baseRecord(9), "Phishing attack targeting the finance team mailbox escalated again"),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRecurringIncidents, got[0].Type)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 2, got[0].Metadata["incident_count"])
	assert.Equal(t, 2, got[0].Metadata["largest_group_size"])
	assert.Contains(t, got[0].Message, "phishing attack targeting the finance team")
}

func TestService_RecurringIncidents_GroupingIgnoresCaseAndPadding(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Unauthorized access to billing database"),
		incident(baseRecord(9), "  UNAUTHORIZED ACCESS TO BILLING DATABASE  "),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 2, got[0].Metadata["largest_group_size"])
}

func TestService_RecurringIncidents_DistinctIssuesRaiseMedium(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Lost laptop with customer spreadsheets"),
		incident(baseRecord(9), "Misdirected email containing payroll data"),
		incident(baseRecord(15), "Expired TLS certificate on the payments gateway"),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRecurringIncidents, got[0].Type)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.Equal(t, 3, got[0].Metadata["incident_count"])
	assert.Equal(t, 1, got[0].Metadata["largest_group_size"])
}

func TestService_RecurringIncidents_TwoDistinctStayQuiet(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Lost laptop with customer spreadsheets"),
		incident(baseRecord(9), "Misdirected email containing payroll data"),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_RecurringIncidents_OldIncidentsOutsideWindow(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Phishing attack targeting the finance team mailbox reported"),
		incident(baseRecord(45), "Phishing attack targeting the finance team mailbox reported"),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Regulatory patterns
// ─────────────────────────────────────────────────────────────────────────────

func TestService_RegulatoryPatterns_ConcentrationRaisesMedium(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		filing(baseRecord(10), compliance.JurisdictionEU),
		filing(baseRecord(30), compliance.JurisdictionEU),
		filing(baseRecord(50), compliance.JurisdictionEU),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRegulatoryPattern, got[0].Type)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.Equal(t, 3, got[0].Metadata["filing_count"])
	assert.Equal(t, "EU", got[0].Metadata["busiest_jurisdiction"])
	assert.Equal(t, 3, got[0].Metadata["busiest_count"])
}

func TestService_RegulatoryPatterns_ChangeFlagRaisesHigh(t *testing.T) {
	svc := NewDefaultService()
	flaggedFiling := filing(baseRecord(10), compliance.JurisdictionEU)
	flaggedFiling.Metadata = common.Metadata{MetadataKeyRegulatoryChange: true}
	records := []compliance.DecisionRecord{
		flaggedFiling,
		filing(baseRecord(30), compliance.JurisdictionUK),
		filing(baseRecord(50), compliance.JurisdictionCanada),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityHigh, got[0].Priority)
	assert.Equal(t, 3, got[0].Metadata["filing_count"])
	assert.Equal(t, 1, got[0].Metadata["change_flag_count"])
}

func TestService_RegulatoryPatterns_BothFindingsEmitMediumFirst(t *testing.T) {
	svc := NewDefaultService()
	flaggedFiling := filing(baseRecord(10), compliance.JurisdictionEU)
	flaggedFiling.Metadata = common.Metadata{MetadataKeyRegulatoryChange: true}
	records := []compliance.DecisionRecord{
		flaggedFiling,
		filing(baseRecord(30), compliance.JurisdictionEU),
		filing(baseRecord(50), compliance.JurisdictionEU),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 2)
	assert.Equal(t, PriorityMedium, got[0].Priority)
	assert.Equal(t, PriorityHigh, got[1].Priority)
	assert.Equal(t, TriggerRegulatoryPattern, got[0].Type)
	assert.Equal(t, TriggerRegulatoryPattern, got[1].Type)
}

func TestService_RegulatoryPatterns_BelowMinimumStaysQuiet(t *testing.T) {
	svc := NewDefaultService()
	flaggedFiling := filing(baseRecord(10), compliance.JurisdictionEU)
	flaggedFiling.Metadata = common.Metadata{MetadataKeyRegulatoryChange: true}
	records := []compliance.DecisionRecord{
		flaggedFiling,
		filing(baseRecord(30), compliance.JurisdictionEU),
	}
	assert.Empty(t, svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()}))
}

func TestService_RegulatoryPatterns_TieBreaksLexicographically(t *testing.T) {
	svc := NewDefaultService()
	records := []compliance.DecisionRecord{
		filing(baseRecord(10), compliance.JurisdictionEU, compliance.JurisdictionAPAC),
		filing(baseRecord(30), compliance.JurisdictionEU, compliance.JurisdictionAPAC),
		filing(baseRecord(50), compliance.JurisdictionEU, compliance.JurisdictionAPAC),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, "APAC", got[0].Metadata["busiest_jurisdiction"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Orchestration
// ─────────────────────────────────────────────────────────────────────────────

func TestService_CheckTriggers_FixedDetectorOrder(t *testing.T) {
	svc := NewDefaultService()

	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(2), 3),
		highEscalation(baseRecord(10)),
		highEscalation(baseRecord(20)),
		highEscalation(baseRecord(30)),
		filing(baseRecord(15), compliance.JurisdictionEU),
		filing(baseRecord(25), compliance.JurisdictionEU),
		filing(baseRecord(35), compliance.JurisdictionEU),
	}

	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 3)
	assert.Equal(t, TriggerDeadlineProximity, got[0].Type)
	assert.Equal(t, TriggerViolationPattern, got[1].Type)
	assert.Equal(t, TriggerRegulatoryPattern, got[2].Type)
}

func TestService_CheckTriggers_CategoryFilterNarrowsRecords(t *testing.T) {
	svc := NewDefaultService()

	records := []compliance.DecisionRecord{
		incident(baseRecord(3), "Phishing attack targeting the finance team mailbox"),
		incident(baseRecord(9), "Phishing attack targeting the finance team mailbox"),
		filing(baseRecord(15), compliance.JurisdictionEU),
		filing(baseRecord(25), compliance.JurisdictionEU),
		filing(baseRecord(35), compliance.JurisdictionEU),
	}

	category := compliance.CategoryRegulatoryFiling
	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor(), CategoryFilter: &category})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerRegulatoryPattern, got[0].Type)
}

func TestService_CheckTriggers_ZeroAsOfUsesNow(t *testing.T) {
	svc := NewDefaultService()

	rec := baseRecord(0)
	rec.Timestamp = time.Now().UTC().Add(-24 * time.Hour)
	deadline := time.Now().UTC().Add(48 * time.Hour)
	rec.RegulatoryDeadline = &deadline

	got := svc.CheckTriggers("Acme", []compliance.DecisionRecord{rec}, CheckOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, TriggerDeadlineProximity, got[0].Type)
	assert.Equal(t, PriorityHigh, got[0].Priority)
}

func TestService_CheckTriggers_CustomMinimums(t *testing.T) {
	svc := NewService(Config{
		MinUpcomingDeadlines:   1,
		MinTrendRecords:        3,
		MinHighRiskEscalations: 2,
		MinIncidentRecords:     2,
		MinFilingRecords:       3,
	})

	records := []compliance.DecisionRecord{
		withDeadline(baseRecord(1), 10),
	}
	got := svc.CheckTriggers("Acme", records, CheckOptions{AsOf: anchor()})
	require.Len(t, got, 1)
	assert.Equal(t, PriorityMedium, got[0].Priority)
}

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

func TestParseTriggerType(t *testing.T) {
	tests := []struct {
		input   string
		want    TriggerType
		wantErr bool
	}{
		{"DEADLINE_PROXIMITY", TriggerDeadlineProximity, false},
		{"risk_trend", TriggerRiskTrend, false},
		{"  Violation_Pattern  ", TriggerViolationPattern, false},
		{"RECURRING_INCIDENTS", TriggerRecurringIncidents, false},
		{"REGULATORY_PATTERN", TriggerRegulatoryPattern, false},
		{"", "", true},
		{"SOMETHING_ELSE", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTriggerType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTriggerType_IsValid(t *testing.T) {
	for _, trigger := range []TriggerType{
		TriggerDeadlineProximity, TriggerRiskTrend, TriggerViolationPattern,
		TriggerRecurringIncidents, TriggerRegulatoryPattern,
	} {
		assert.True(t, trigger.IsValid(), trigger)
	}
	assert.False(t, TriggerType("OTHER").IsValid())
}

func TestPriority_IsValid(t *testing.T) {
	assert.True(t, PriorityMedium.IsValid())
	assert.True(t, PriorityHigh.IsValid())
	assert.False(t, Priority("LOW").IsValid())
}

func TestSuggestion_ToDTO(t *testing.T) {
	s := Suggestion{
		TriggerName: "deadline_proximity",
		Type:        TriggerDeadlineProximity,
		Priority:    PriorityHigh,
		Title:       "Urgent regulatory deadlines",
		Message:     "2 deadlines due within 7 days",
		ActionID:    "review_deadline_calendar",
		ActionLabel: "Review deadline calendar",
		Metadata:    common.Metadata{"urgent_count": 2},
	}

	dto := s.ToDTO()
	assert.Equal(t, "deadline_proximity", dto.TriggerName)
	assert.Equal(t, "DEADLINE_PROXIMITY", dto.TriggerType)
	assert.Equal(t, "HIGH", dto.Priority)
	assert.Equal(t, s.Title, dto.Title)
	assert.Equal(t, s.Message, dto.Message)
	assert.Equal(t, s.ActionID, dto.ActionID)
	assert.Equal(t, s.ActionLabel, dto.ActionLabel)
	assert.Equal(t, 2, dto.Metadata["urgent_count"])
}

func TestToDTOs(t *testing.T) {
	assert.Nil(t, ToDTOs(nil))

	batch := []Suggestion{
		{TriggerName: "risk_trend", Type: TriggerRiskTrend, Priority: PriorityHigh},
		{TriggerName: "violation_pattern", Type: TriggerViolationPattern, Priority: PriorityMedium},
	}
	dtos := ToDTOs(batch)
	require.Len(t, dtos, 2)
	assert.Equal(t, "RISK_TREND", dtos[0].TriggerType)
	assert.Equal(t, "MEDIUM", dtos[1].Priority)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func anchor() time.Time {
	return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
}

func baseRecord(daysAgo int) compliance.DecisionRecord {
	return compliance.DecisionRecord{
		ID:              common.NewID(),
		EntityName:      "Acme Manufacturing",
		Timestamp:       anchor().AddDate(0, 0, -daysAgo),
		Category:        compliance.CategoryGeneralInquiry,
		Decision:        common.DecisionAutonomous,
		RiskLevel:       common.RiskLow,
		RiskScore:       0.3,
		ConfidenceScore: 0.9,
		TaskDescription: "routine policy question",
	}
}

func withDeadline(rec compliance.DecisionRecord, daysFromAnchor int) compliance.DecisionRecord {
	deadline := anchor().AddDate(0, 0, daysFromAnchor)
	rec.RegulatoryDeadline = &deadline
	return rec
}

func withScore(rec compliance.DecisionRecord, score float64) compliance.DecisionRecord {
	rec.RiskScore = score
	return rec
}

func escalated(rec compliance.DecisionRecord) compliance.DecisionRecord {
	rec.Decision = common.DecisionEscalate
	return rec
}

func highEscalation(rec compliance.DecisionRecord) compliance.DecisionRecord {
	rec.Decision = common.DecisionEscalate
	rec.RiskLevel = common.RiskHigh
	rec.RiskScore = 0.8
	return rec
}

// incident records carry an ESCALATE decision from the category override but
// a medium computed risk level, so they stay out of the violation detector.
func incident(rec compliance.DecisionRecord, description string) compliance.DecisionRecord {
	rec.Category = compliance.CategoryIncidentResponse
	rec.TaskDescription = description
	rec.Decision = common.DecisionEscalate
	rec.RiskLevel = common.RiskMedium
	rec.RiskScore = 0.55
	return rec
}

func filing(rec compliance.DecisionRecord, jurisdictions ...compliance.Jurisdiction) compliance.DecisionRecord {
	rec.Category = compliance.CategoryRegulatoryFiling
	rec.Jurisdictions = jurisdictions
	rec.Decision = common.DecisionReviewRequired
	rec.RiskLevel = common.RiskMedium
	rec.RiskScore = 0.5
	return rec
}
