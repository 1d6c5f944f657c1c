//go:build e2e

package e2e_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// uniqueEntity returns an entity name no earlier run can have used, so the
// suite stays correct against a long-lived stack with persistent stores.
func uniqueEntity(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// waitFor polls fn until it reports done, the poll errors, or the timeout
// lapses. It is how the suite absorbs the asynchronous hop through Kafka:
// the worker projects decisions into OpenSearch on its own schedule.
func waitFor(t *testing.T, timeout, interval time.Duration, what string, fn func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		done, err := fn()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s waiting for %s", timeout, what)
		}
		time.Sleep(interval)
	}
}

// escalatingRequest builds an assessment the decision engine must escalate:
// a regulated financial institution with prior violations moving personal
// data across borders under a near-term deadline.
func escalatingRequest(entityName string, deadline time.Time) compliance.AssessmentRequest {
	employees := 3200
	revenue := 950_000_000.0
	stakeholders := 40_000

	return compliance.AssessmentRequest{
		Entity: compliance.EntityContext{
			Name:               entityName,
			EntityType:         compliance.EntityFinancialInstitution,
			Industry:           compliance.IndustryFinancialServices,
			Jurisdictions:      []compliance.Jurisdiction{compliance.JurisdictionEU, compliance.JurisdictionUSFederal},
			EmployeeCount:      &employees,
			AnnualRevenue:      &revenue,
			HasPersonalData:    true,
			IsRegulated:        true,
			PreviousViolations: 3,
		},
		Task: compliance.TaskContext{
			Description:          "Migrate customer transaction records to the EU data platform",
			Category:             compliance.CategoryDataPrivacy,
			AffectsPersonalData:  true,
			AffectsFinancialData: true,
			InvolvesCrossBorder:  true,
			RegulatoryDeadline:   &deadline,
			PotentialImpact:      compliance.ImpactCritical,
			StakeholderCount:     &stakeholders,
		},
	}
}

// routineRequest builds an assessment the engine clears for autonomous
// execution.
func routineRequest(entityName string) compliance.AssessmentRequest {
	return compliance.AssessmentRequest{
		Entity: compliance.EntityContext{
			Name:          entityName,
			EntityType:    compliance.EntityCorporation,
			Industry:      compliance.IndustryOther,
			Jurisdictions: []compliance.Jurisdiction{compliance.JurisdictionUSFederal},
		},
		Task: compliance.TaskContext{
			Description:     "Answer a routine policy question",
			Category:        compliance.CategoryGeneralInquiry,
			PotentialImpact: compliance.ImpactLow,
		},
	}
}
