// Package simulation provides the application-level service for what-if
// analysis. It loads a recorded assessment as the baseline and hands it to
// the scenario engine, so callers reason about hypothetical factor changes
// without recording anything.
package simulation

import (
	"context"

	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/domain/whatif"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// BaselineLoader reads a recorded analysis so it can serve as the what-if
// baseline.
type BaselineLoader interface {
	FindByID(ctx context.Context, id common.ID) (*decision.DecisionAnalysis, error)
}

// Service exposes the scenario operations consumed by the interface layer.
type Service interface {
	// Evaluate applies one hypothetical change to a recorded baseline and
	// returns the projected outcome next to the recorded one.
	Evaluate(ctx context.Context, baselineID common.ID, req compliance.WhatIfRequest) (*compliance.WhatIfResultDTO, error)

	// Compare evaluates several named scenarios against the same baseline
	// and ranks the outcomes.
	Compare(ctx context.Context, baselineID common.ID, req compliance.WhatIfCompareRequest) (*compliance.WhatIfComparisonDTO, error)
}

type service struct {
	engine *whatif.Engine
	store  BaselineLoader
	logger logging.Logger
}

// NewService creates a simulation service around the given scenario engine
// and baseline store.
func NewService(engine *whatif.Engine, store BaselineLoader, logger logging.Logger) Service {
	return &service{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

func (s *service) Evaluate(ctx context.Context, baselineID common.ID, req compliance.WhatIfRequest) (*compliance.WhatIfResultDTO, error) {
	if baselineID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "baseline analysis id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "what-if request rejected")
	}

	baseline, err := s.store.FindByID(ctx, baselineID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.AnalyzeScenario(baseline, req.Change)
	if err != nil {
		return nil, err
	}

	dto := result.ToDTO()
	s.logger.Debug("Scenario evaluated",
		logging.String("baseline_id", string(baselineID)),
		logging.String("severity", string(result.DecisionChange.Severity)),
		logging.Bool("decision_changed", result.DecisionChange.Changed))
	return &dto, nil
}

func (s *service) Compare(ctx context.Context, baselineID common.ID, req compliance.WhatIfCompareRequest) (*compliance.WhatIfComparisonDTO, error) {
	if baselineID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "baseline analysis id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "comparison request rejected")
	}

	baseline, err := s.store.FindByID(ctx, baselineID)
	if err != nil {
		return nil, err
	}

	comparison, err := s.engine.CompareScenarios(baseline, req.Scenarios)
	if err != nil {
		return nil, err
	}

	dto := comparison.ToDTO()
	s.logger.Debug("Scenarios compared",
		logging.String("baseline_id", string(baselineID)),
		logging.Int("scenarios", len(req.Scenarios)))
	return &dto, nil
}
