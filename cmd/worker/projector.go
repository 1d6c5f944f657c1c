package main

import (
	"context"
	"fmt"

	neo4jrepos "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/milvus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
)

// decisionProjector fans each recorded decision out into the read models:
// the OpenSearch index, the Milvus vector collection, and the Neo4j lineage
// graph.  All three writes are idempotent on the analysis ID, so redelivery
// after a partial failure converges instead of duplicating.
type decisionProjector struct {
	indexer      *opensearch.Indexer
	vectors      *milvus.Searcher
	lineage      *neo4jrepos.LineageRepository
	embeddingDim int
	metrics      *prometheus.AppMetrics
	logger       logging.Logger
}

// Handle is the consumer callback for the decision.recorded topic.
func (p *decisionProjector) Handle(ctx context.Context, msg *kafka.Message) error {
	err := p.project(ctx, msg)
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		p.metrics.EventsConsumedTotal.WithLabelValues(msg.Topic, status).Inc()
	}
	return err
}

func (p *decisionProjector) project(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	var payload kafka.DecisionRecordedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.AnalysisID == "" || payload.EntityName == "" {
		return fmt.Errorf("decision event %s is missing its identity fields", env.EventID)
	}

	if err := p.indexer.IndexDecision(ctx, opensearch.DecisionDocument{
		AnalysisID:         payload.AnalysisID,
		EntityName:         payload.EntityName,
		Category:           payload.Category,
		TaskDescription:    payload.TaskDescription,
		Decision:           payload.Decision,
		RiskLevel:          payload.RiskLevel,
		RiskScore:          payload.RiskScore,
		Confidence:         payload.Confidence,
		Jurisdictions:      payload.Jurisdictions,
		RegulatoryDeadline: payload.RegulatoryDeadline,
		AnalyzedAt:         payload.AnalyzedAt,
	}); err != nil {
		return fmt.Errorf("index decision %s: %w", payload.AnalysisID, err)
	}

	if vec := p.factorVector(payload.FactorScores); vec != nil {
		if _, err := p.vectors.Upsert(ctx, milvus.AnalysisVector{
			AnalysisID: payload.AnalysisID,
			EntityName: payload.EntityName,
			Category:   payload.Category,
			RiskLevel:  payload.RiskLevel,
			Decision:   payload.Decision,
			RiskScore:  payload.RiskScore,
			AnalyzedAt: payload.AnalyzedAt,
			Vector:     vec,
		}); err != nil {
			return fmt.Errorf("upsert vector %s: %w", payload.AnalysisID, err)
		}
	} else if len(payload.FactorScores) > 0 {
		// A mismatched vector would be rejected by the collection anyway;
		// retrying cannot fix the event, so index and lineage still proceed.
		p.logger.Warn("Factor vector dimension mismatch, skipping vector projection",
			logging.String("analysis_id", payload.AnalysisID),
			logging.Int("got", len(payload.FactorScores)),
			logging.Int("want", p.embeddingDim),
		)
	}

	if err := p.lineage.RecordDecision(ctx, neo4jrepos.DecisionLineage{
		AnalysisID:    payload.AnalysisID,
		EntityName:    payload.EntityName,
		Category:      payload.Category,
		Decision:      payload.Decision,
		RiskLevel:     payload.RiskLevel,
		RiskScore:     payload.RiskScore,
		AnalyzedAt:    payload.AnalyzedAt,
		Regulations:   payload.Regulations,
		Jurisdictions: payload.Jurisdictions,
	}); err != nil {
		return fmt.Errorf("record lineage %s: %w", payload.AnalysisID, err)
	}

	p.logger.Debug("Decision projected",
		logging.String("analysis_id", payload.AnalysisID),
		logging.String("entity", payload.EntityName),
	)
	return nil
}

// factorVector narrows the payload's factor scores to the collection's
// element type.  A nil return means the event carries no storable vector.
func (p *decisionProjector) factorVector(scores []float64) []float32 {
	if len(scores) == 0 || len(scores) != p.embeddingDim {
		return nil
	}
	vec := make([]float32, len(scores))
	for i, s := range scores {
		vec[i] = float32(s)
	}
	return vec
}
