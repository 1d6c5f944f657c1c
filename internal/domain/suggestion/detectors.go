package suggestion

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// Detection windows.  Minimum counts live in Config; the windows themselves
// are part of the detector contract and stay fixed.
const (
	deadlineLookback = 90 * 24 * time.Hour
	urgentHorizon    = 7 * 24 * time.Hour
	upcomingHorizon  = 30 * 24 * time.Hour

	trendRecentWindow = 30 * 24 * time.Hour
	trendOlderWindow  = 60 * 24 * time.Hour

	violationLookback = 90 * 24 * time.Hour
	incidentLookback  = 30 * 24 * time.Hour
	filingLookback    = 90 * 24 * time.Hour

	// incidentPrefixRunes is how much of a normalized task description two
	// incident records must share to count as the same recurring issue.
	incidentPrefixRunes = 50
)

// Secondary thresholds inside individual detectors.
const (
	trendHighScoreDelta   = 0.15
	trendEscalateRateGate = 0.5
	trendEscalateRateGap  = 0.2
	violationMediumCount  = 3
	incidentMediumTotal   = 3
	busiestFilingMinimum  = 3
)

// Metadata flag keys detectors look for on historical records.
const (
	MetadataKeyViolationDetected = "violation_detected"
	MetadataKeyRegulatoryChange  = "regulatory_change"
)

// ─────────────────────────────────────────────────────────────────────────────
// Deadline proximity
// ─────────────────────────────────────────────────────────────────────────────

// detectDeadlineProximity scans recent records that carry a regulatory
// deadline.  Any deadline due within seven days of asOf, overdue included,
// raises a high-priority suggestion; otherwise enough deadlines in the
// 8-to-30-day horizon raise a medium one.
func (s *Service) detectDeadlineProximity(entity string, records []compliance.DecisionRecord, asOf time.Time) *Suggestion {
	urgentCutoff := asOf.Add(urgentHorizon)
	upcomingCutoff := asOf.Add(upcomingHorizon)

	urgent, upcoming := 0, 0
	for _, rec := range records {
		if rec.RegulatoryDeadline == nil || !withinLookback(rec.Timestamp, asOf, deadlineLookback) {
			continue
		}
		deadline := *rec.RegulatoryDeadline
		switch {
		case !deadline.After(urgentCutoff):
			urgent++
		case !deadline.After(upcomingCutoff):
			upcoming++
		}
	}

	meta := common.Metadata{"urgent_count": urgent, "upcoming_count": upcoming}
	if urgent >= 1 {
		return &Suggestion{
			TriggerName: "deadline_proximity",
			Type:        TriggerDeadlineProximity,
			Priority:    PriorityHigh,
			Title:       "Urgent regulatory deadlines",
			Message:     fmt.Sprintf("%d regulatory deadline(s) for %s due within 7 days, overdue included; immediate action required", urgent, entity),
			ActionID:    "review_deadline_calendar",
			ActionLabel: "Review deadline calendar",
			Metadata:    meta,
		}
	}
	if upcoming >= s.cfg.MinUpcomingDeadlines {
		return &Suggestion{
			TriggerName: "deadline_proximity",
			Type:        TriggerDeadlineProximity,
			Priority:    PriorityMedium,
			Title:       "Upcoming regulatory deadlines",
			Message:     fmt.Sprintf("%d regulatory deadline(s) for %s fall due in the next 8 to 30 days", upcoming, entity),
			ActionID:    "review_deadline_calendar",
			ActionLabel: "Review deadline calendar",
			Metadata:    meta,
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Risk trend
// ─────────────────────────────────────────────────────────────────────────────

// detectRiskTrend compares the last 30 days against the 30 days before that.
// Both windows need enough records before any comparison happens.
func (s *Service) detectRiskTrend(entity string, records []compliance.DecisionRecord, asOf time.Time) *Suggestion {
	recentStart := asOf.Add(-trendRecentWindow)
	olderStart := asOf.Add(-trendOlderWindow)

	var recent, older []compliance.DecisionRecord
	for _, rec := range records {
		switch {
		case rec.Timestamp.After(asOf):
			continue
		case !rec.Timestamp.Before(recentStart):
			recent = append(recent, rec)
		case !rec.Timestamp.Before(olderStart):
			older = append(older, rec)
		}
	}
	if len(recent) < s.cfg.MinTrendRecords || len(older) < s.cfg.MinTrendRecords {
		return nil
	}

	recentAvg := averageRiskScore(recent)
	olderAvg := averageRiskScore(older)
	meta := common.Metadata{
		"recent_count": len(recent),
		"older_count":  len(older),
		"recent_avg":   recentAvg,
		"older_avg":    olderAvg,
	}

	if recentAvg-olderAvg >= trendHighScoreDelta {
		return &Suggestion{
			TriggerName: "risk_trend",
			Type:        TriggerRiskTrend,
			Priority:    PriorityHigh,
			Title:       "Risk scores trending upward",
			Message:     fmt.Sprintf("average risk score for %s rose from %.2f to %.2f over the last 60 days", entity, olderAvg, recentAvg),
			ActionID:    "schedule_risk_review",
			ActionLabel: "Schedule a risk review",
			Metadata:    meta,
		}
	}

	recentRate := escalateRate(recent)
	olderRate := escalateRate(older)
	if recentRate >= trendEscalateRateGate && recentRate > olderRate+trendEscalateRateGap {
		meta["recent_escalation_rate"] = recentRate
		meta["older_escalation_rate"] = olderRate
		return &Suggestion{
			TriggerName: "risk_trend",
			Type:        TriggerRiskTrend,
			Priority:    PriorityMedium,
			Title:       "Escalation rate climbing",
			Message:     fmt.Sprintf("%.0f%% of recent decisions for %s escalated, up from %.0f%% in the prior month", recentRate*100, entity, olderRate*100),
			ActionID:    "schedule_risk_review",
			ActionLabel: "Schedule a risk review",
			Metadata:    meta,
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Violation pattern
// ─────────────────────────────────────────────────────────────────────────────

// detectViolationPattern looks for clusters of high-risk escalations.  An
// explicit violation flag on any of them raises the priority.
func (s *Service) detectViolationPattern(entity string, records []compliance.DecisionRecord, asOf time.Time) *Suggestion {
	qualifying, flagged := 0, 0
	for _, rec := range records {
		if !withinLookback(rec.Timestamp, asOf, violationLookback) {
			continue
		}
		if rec.RiskLevel != common.RiskHigh || rec.Decision != common.DecisionEscalate {
			continue
		}
		qualifying++
		if rec.MetadataFlag(MetadataKeyViolationDetected) {
			flagged++
		}
	}
	if qualifying < s.cfg.MinHighRiskEscalations {
		return nil
	}

	meta := common.Metadata{"high_risk_escalations": qualifying, "flagged_violations": flagged}
	if flagged >= 1 {
		return &Suggestion{
			TriggerName: "violation_pattern",
			Type:        TriggerViolationPattern,
			Priority:    PriorityHigh,
			Title:       "Violation pattern detected",
			Message:     fmt.Sprintf("%d high-risk escalation(s) for %s in the last 90 days include an explicitly flagged violation", qualifying, entity),
			ActionID:    "open_violation_review",
			ActionLabel: "Open violation review",
			Metadata:    meta,
		}
	}
	if qualifying >= violationMediumCount {
		return &Suggestion{
			TriggerName: "violation_pattern",
			Type:        TriggerViolationPattern,
			Priority:    PriorityMedium,
			Title:       "Repeated high-risk escalations",
			Message:     fmt.Sprintf("%d high-risk escalation(s) recorded for %s in the last 90 days", qualifying, entity),
			ActionID:    "open_violation_review",
			ActionLabel: "Open violation review",
			Metadata:    meta,
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Recurring incidents
// ─────────────────────────────────────────────────────────────────────────────

// detectRecurringIncidents groups recent incident-response records by the
// leading part of their normalized description, so re-reports of the same
// issue cluster together even when details differ further in.
func (s *Service) detectRecurringIncidents(entity string, records []compliance.DecisionRecord, asOf time.Time) *Suggestion {
	groups := make(map[string]int)
	total := 0
	for _, rec := range records {
		if rec.Category != compliance.CategoryIncidentResponse || !withinLookback(rec.Timestamp, asOf, incidentLookback) {
			continue
		}
		total++
		groups[incidentGroupKey(rec.TaskDescription)]++
	}
	if total < s.cfg.MinIncidentRecords {
		return nil
	}

	largestKey, largestSize := "", 0
	for key, size := range groups {
		if size > largestSize || (size == largestSize && key < largestKey) {
			largestKey, largestSize = key, size
		}
	}

	meta := common.Metadata{"incident_count": total, "largest_group_size": largestSize}
	if largestSize >= 2 {
		return &Suggestion{
			TriggerName: "recurring_incidents",
			Type:        TriggerRecurringIncidents,
			Priority:    PriorityHigh,
			Title:       "Recurring incident detected",
			Message:     fmt.Sprintf("%d incident-response task(s) for %s in the last 30 days repeat the same issue: %q", largestSize, entity, largestKey),
			ActionID:    "open_incident_postmortem",
			ActionLabel: "Open incident postmortem",
			Metadata:    meta,
		}
	}
	if total >= incidentMediumTotal {
		return &Suggestion{
			TriggerName: "recurring_incidents",
			Type:        TriggerRecurringIncidents,
			Priority:    PriorityMedium,
			Title:       "Elevated incident activity",
			Message:     fmt.Sprintf("%d incident-response task(s) recorded for %s in the last 30 days", total, entity),
			ActionID:    "open_incident_postmortem",
			ActionLabel: "Open incident postmortem",
			Metadata:    meta,
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Regulatory patterns
// ─────────────────────────────────────────────────────────────────────────────

// detectRegulatoryPatterns watches filing activity.  Concentration in one
// jurisdiction and an explicit regulatory-change flag are independent
// findings; both may emit for the same window.
func (s *Service) detectRegulatoryPatterns(entity string, records []compliance.DecisionRecord, asOf time.Time) []Suggestion {
	var filings []compliance.DecisionRecord
	for _, rec := range records {
		if rec.Category == compliance.CategoryRegulatoryFiling && withinLookback(rec.Timestamp, asOf, filingLookback) {
			filings = append(filings, rec)
		}
	}
	if len(filings) < s.cfg.MinFilingRecords {
		return nil
	}

	var out []Suggestion

	busiest, busiestCount := busiestJurisdiction(filings)
	if busiestCount >= busiestFilingMinimum {
		out = append(out, Suggestion{
			TriggerName: "regulatory_patterns",
			Type:        TriggerRegulatoryPattern,
			Priority:    PriorityMedium,
			Title:       "Concentrated filing activity",
			Message:     fmt.Sprintf("%d regulatory filing(s) for %s in the last 90 days concentrate in %s (%d filings)", len(filings), entity, busiest, busiestCount),
			ActionID:    "review_filing_calendar",
			ActionLabel: "Review filing calendar",
			Metadata: common.Metadata{
				"filing_count":         len(filings),
				"busiest_jurisdiction": string(busiest),
				"busiest_count":        busiestCount,
			},
		})
	}

	changeFlags := 0
	for _, rec := range filings {
		if rec.MetadataFlag(MetadataKeyRegulatoryChange) {
			changeFlags++
		}
	}
	if changeFlags >= 1 {
		out = append(out, Suggestion{
			TriggerName: "regulatory_patterns",
			Type:        TriggerRegulatoryPattern,
			Priority:    PriorityHigh,
			Title:       "Regulatory change flagged",
			Message:     fmt.Sprintf("%d filing record(s) for %s carry a regulatory-change flag; review current obligations for impact", changeFlags, entity),
			ActionID:    "assess_regulatory_change",
			ActionLabel: "Assess regulatory change impact",
			Metadata: common.Metadata{
				"filing_count":      len(filings),
				"change_flag_count": changeFlags,
			},
		})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// withinLookback reports whether ts falls inside [asOf-lookback, asOf].
func withinLookback(ts, asOf time.Time, lookback time.Duration) bool {
	return !ts.After(asOf) && !ts.Before(asOf.Add(-lookback))
}

func averageRiskScore(records []compliance.DecisionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, rec := range records {
		sum += rec.RiskScore
	}
	return sum / float64(len(records))
}

func escalateRate(records []compliance.DecisionRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	escalated := 0
	for _, rec := range records {
		if rec.Decision == common.DecisionEscalate {
			escalated++
		}
	}
	return float64(escalated) / float64(len(records))
}

// incidentGroupKey normalizes a task description down to its leading runes so
// near-identical incident reports land in the same group.
func incidentGroupKey(description string) string {
	normalized := strings.ToLower(strings.TrimSpace(description))
	runes := []rune(normalized)
	if len(runes) > incidentPrefixRunes {
		runes = runes[:incidentPrefixRunes]
	}
	return string(runes)
}

// busiestJurisdiction counts filings per jurisdiction; a record spanning
// several jurisdictions counts toward each.  Ties resolve to the
// lexicographically smallest name so the result is deterministic.
func busiestJurisdiction(filings []compliance.DecisionRecord) (compliance.Jurisdiction, int) {
	counts := make(map[compliance.Jurisdiction]int)
	for _, rec := range filings {
		for _, j := range rec.Jurisdictions {
			counts[j]++
		}
	}
	names := make([]compliance.Jurisdiction, 0, len(counts))
	for j := range counts {
		names = append(names, j)
	}
	sort.Slice(names, func(i, k int) bool { return names[i] < names[k] })

	best, bestCount := compliance.Jurisdiction(""), 0
	for _, j := range names {
		if counts[j] > bestCount {
			best, bestCount = j, counts[j]
		}
	}
	return best, bestCount
}
