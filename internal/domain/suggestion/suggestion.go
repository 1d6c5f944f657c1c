// Package suggestion implements the proactive detectors that scan an entity's
// decision history for patterns worth surfacing before anyone asks: deadline
// pressure, risk trends, violation clusters, recurring incidents, and
// regulatory filing activity.
//
// Detectors are pure functions over a caller-scoped record list.  They perform
// no I/O and never error on insufficient history; a minimum-count gate simply
// yields no suggestion.
package suggestion

import (
	"fmt"
	"strings"

	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// ─────────────────────────────────────────────────────────────────────────────
// TriggerType
// ─────────────────────────────────────────────────────────────────────────────

// TriggerType identifies which detector raised a suggestion.
type TriggerType string

const (
	TriggerDeadlineProximity  TriggerType = "DEADLINE_PROXIMITY"
	TriggerRiskTrend          TriggerType = "RISK_TREND"
	TriggerViolationPattern   TriggerType = "VIOLATION_PATTERN"
	TriggerRecurringIncidents TriggerType = "RECURRING_INCIDENTS"
	TriggerRegulatoryPattern  TriggerType = "REGULATORY_PATTERN"
)

// IsValid checks whether the trigger type is a recognized value.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerDeadlineProximity, TriggerRiskTrend, TriggerViolationPattern,
		TriggerRecurringIncidents, TriggerRegulatoryPattern:
		return true
	}
	return false
}

func (t TriggerType) String() string {
	return string(t)
}

// ParseTriggerType converts a string to a TriggerType, case-insensitively.
func ParseTriggerType(s string) (TriggerType, error) {
	t := TriggerType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", errors.New(errors.ErrCodeTriggerTypeInvalid, fmt.Sprintf("unrecognized trigger type: %q", s))
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Priority
// ─────────────────────────────────────────────────────────────────────────────

// Priority is the urgency a suggestion carries.  Detectors only raise
// suggestions worth acting on, so there is no LOW tier.
type Priority string

const (
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid checks whether the priority is a recognized value.
func (p Priority) IsValid() bool {
	return p == PriorityMedium || p == PriorityHigh
}

func (p Priority) String() string {
	return string(p)
}

// ─────────────────────────────────────────────────────────────────────────────
// Suggestion
// ─────────────────────────────────────────────────────────────────────────────

// Suggestion is one proactive alert raised from historical decision records.
// Metadata carries the raw counts behind the message so consumers can act on
// values without parsing text.
type Suggestion struct {
	TriggerName string          `json:"trigger_name"`
	Type        TriggerType     `json:"trigger_type"`
	Priority    Priority        `json:"priority"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	ActionID    string          `json:"action_id"`
	ActionLabel string          `json:"action_label"`
	Metadata    common.Metadata `json:"metadata,omitempty"`
}

// ToDTO converts the suggestion to its wire shape.
func (s Suggestion) ToDTO() compliance.SuggestionDTO {
	return compliance.SuggestionDTO{
		TriggerName: s.TriggerName,
		TriggerType: string(s.Type),
		Priority:    string(s.Priority),
		Title:       s.Title,
		Message:     s.Message,
		ActionID:    s.ActionID,
		ActionLabel: s.ActionLabel,
		Metadata:    s.Metadata,
	}
}

// ToDTOs converts a batch of suggestions to wire shapes, preserving order.
func ToDTOs(suggestions []Suggestion) []compliance.SuggestionDTO {
	if len(suggestions) == 0 {
		return nil
	}
	out := make([]compliance.SuggestionDTO, len(suggestions))
	for i, s := range suggestions {
		out[i] = s.ToDTO()
	}
	return out
}
