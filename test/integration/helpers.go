//go:build integration

// Package integration exercises application services against real backing
// stores.  Unlike the per-package repository tests, these tests compose the
// domain engines, application services, and PostgreSQL repositories into the
// same pipelines the binaries wire, and assert on what ends up persisted.
// Tests require Docker and are gated behind the "integration" build tag.
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/CompliSense/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// startPostgres launches a PostgreSQL 16 container, applies the platform
// schema, and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "complisense_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/complisense_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, pool)
	return pool
}

// applySchema creates the tables the repositories depend on, mirroring the
// migration files.
func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	ddl := `
	CREATE TABLE IF NOT EXISTS decision_analyses (
		id                      TEXT PRIMARY KEY,
		entity_name             TEXT NOT NULL,
		entity                  JSONB NOT NULL,
		task                    JSONB NOT NULL,
		factor_jurisdiction     DOUBLE PRECISION NOT NULL,
		factor_entity           DOUBLE PRECISION NOT NULL,
		factor_task             DOUBLE PRECISION NOT NULL,
		factor_data_sensitivity DOUBLE PRECISION NOT NULL,
		factor_regulatory       DOUBLE PRECISION NOT NULL,
		factor_impact           DOUBLE PRECISION NOT NULL,
		overall_score           DOUBLE PRECISION NOT NULL,
		risk_level              TEXT NOT NULL,
		decision                TEXT NOT NULL,
		confidence              DOUBLE PRECISION NOT NULL,
		reasoning               TEXT[] NOT NULL DEFAULT '{}',
		recommendations         TEXT[] NOT NULL DEFAULT '{}',
		escalation_reason       TEXT NOT NULL DEFAULT '',
		regulations             TEXT[] NOT NULL DEFAULT '{}',
		category                TEXT NOT NULL,
		jurisdictions           TEXT[] NOT NULL DEFAULT '{}',
		regulatory_deadline     TIMESTAMPTZ,
		analyzed_at             TIMESTAMPTZ NOT NULL,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS suggestions (
		id           TEXT PRIMARY KEY,
		entity_name  TEXT NOT NULL,
		trigger_name TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		priority     TEXT NOT NULL,
		title        TEXT NOT NULL,
		message      TEXT NOT NULL,
		action_id    TEXT NOT NULL DEFAULT '',
		action_label TEXT NOT NULL DEFAULT '',
		metadata     JSONB,
		raised_at    TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err := pool.Exec(ctx, ddl)
	require.NoError(t, err)
}

// newRepositories builds the two PostgreSQL repositories over one pool.
func newRepositories(pool *pgxpool.Pool) (*repositories.DecisionRepository, *repositories.SuggestionRepository) {
	log := logging.NewNopLogger()
	return repositories.NewDecisionRepository(pool, log), repositories.NewSuggestionRepository(pool, log)
}

// highRiskRequest builds an assessment request that the engine escalates: a
// regulated financial institution with prior violations moving personal data
// across borders under a near-term deadline.
func highRiskRequest(entityName string, deadline time.Time) compliance.AssessmentRequest {
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

// lowRiskRequest builds an assessment request the engine clears for
// autonomous execution: a routine inquiry from an unregulated single-
// jurisdiction corporation.
func lowRiskRequest(entityName string) compliance.AssessmentRequest {
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
