// Package repositories holds the decision-lineage graph repository.  The
// graph links entities to their recorded decisions and decisions to the
// regulations and jurisdictions they touch, so regulation-change impact and
// entity relatedness are one traversal away.
package repositories

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	driver "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 100
)

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

// DecisionLineage is the graph projection of one recorded decision.  The
// analyzed_at property is stored as an RFC 3339 UTC string so range
// comparisons and max() work lexicographically.
type DecisionLineage struct {
	AnalysisID    string
	EntityName    string
	Category      string
	Decision      string
	RiskLevel     string
	RiskScore     float64
	AnalyzedAt    time.Time
	Regulations   []string
	Jurisdictions []string
}

// RegulationUsage is one regulation's citation footprint across an entity's
// decisions.
type RegulationUsage struct {
	Regulation string
	Citations  int64
	LastCited  time.Time
}

// ImpactedEntity is one entity touched by a regulation, with how often and
// how riskily its decisions cited it.
type ImpactedEntity struct {
	EntityName   string
	Citations    int64
	MaxRiskScore float64
	LastAnalyzed time.Time
}

// RelatedEntity is an entity connected through shared regulation citations.
type RelatedEntity struct {
	EntityName        string
	SharedRegulations int64
}

// lineageConstraints are the uniqueness constraints behind MERGE idempotency.
var lineageConstraints = []string{
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	`CREATE CONSTRAINT decision_analysis_id_unique IF NOT EXISTS FOR (d:Decision) REQUIRE d.analysis_id IS UNIQUE`,
	`CREATE CONSTRAINT regulation_name_unique IF NOT EXISTS FOR (r:Regulation) REQUIRE r.name IS UNIQUE`,
	`CREATE CONSTRAINT jurisdiction_code_unique IF NOT EXISTS FOR (j:Jurisdiction) REQUIRE j.code IS UNIQUE`,
}

// ─────────────────────────────────────────────────────────────────────────────
// LineageRepository
// ─────────────────────────────────────────────────────────────────────────────

// LineageRepository maintains the decision-lineage graph.  The worker feeds
// it from recorded decision events; the advisory and reporting layers query
// it for regulation impact and entity relatedness.
type LineageRepository struct {
	exec   driver.Executor
	logger logging.Logger
}

// NewLineageRepository constructs a ready-to-use LineageRepository.
func NewLineageRepository(exec driver.Executor, log logging.Logger) *LineageRepository {
	return &LineageRepository{exec: exec, logger: log}
}

// EnsureSchema creates the uniqueness constraints.  Each statement runs in
// its own transaction because Neo4j does not mix schema and data commands.
func (r *LineageRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range lineageConstraints {
		_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return err
		}
	}
	r.logger.Info("Ensured lineage graph constraints",
		logging.Int("constraints", len(lineageConstraints)))
	return nil
}

// RecordDecision upserts one decision with its entity, regulation, and
// jurisdiction links.  MERGE on analysis_id makes event redelivery
// overwrite the same node instead of duplicating it.
func (r *LineageRepository) RecordDecision(ctx context.Context, lineage DecisionLineage) error {
	if lineage.AnalysisID == "" {
		return errors.New(errors.ErrCodeValidation, "analysis id is required")
	}
	if lineage.EntityName == "" {
		return errors.New(errors.ErrCodeValidation, "entity name is required")
	}

	upsert := `
		MERGE (e:Entity {name: $entityName})
		ON CREATE SET e.first_seen = datetime()
		SET e.last_seen = datetime()
		MERGE (d:Decision {analysis_id: $analysisId})
		ON CREATE SET d.created_at = datetime()
		SET d.category = $category,
		    d.decision = $decision,
		    d.risk_level = $riskLevel,
		    d.risk_score = $riskScore,
		    d.analyzed_at = $analyzedAt
		MERGE (e)-[:DECIDED]->(d)
	`
	citeRegulations := `
		MATCH (d:Decision {analysis_id: $analysisId})
		UNWIND $regulations AS regName
		MERGE (r:Regulation {name: regName})
		MERGE (d)-[:CITES]->(r)
	`
	linkJurisdictions := `
		MATCH (d:Decision {analysis_id: $analysisId})
		UNWIND $jurisdictions AS code
		MERGE (j:Jurisdiction {code: code})
		MERGE (d)-[:IN_JURISDICTION]->(j)
	`

	_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		params := map[string]any{
			"entityName": lineage.EntityName,
			"analysisId": lineage.AnalysisID,
			"category":   lineage.Category,
			"decision":   lineage.Decision,
			"riskLevel":  lineage.RiskLevel,
			"riskScore":  lineage.RiskScore,
			"analyzedAt": lineage.AnalyzedAt.UTC().Format(time.RFC3339),
		}
		if _, err := tx.Run(ctx, upsert, params); err != nil {
			return nil, err
		}
		if len(lineage.Regulations) > 0 {
			_, err := tx.Run(ctx, citeRegulations, map[string]any{
				"analysisId":  lineage.AnalysisID,
				"regulations": stringsToAny(lineage.Regulations),
			})
			if err != nil {
				return nil, err
			}
		}
		if len(lineage.Jurisdictions) > 0 {
			_, err := tx.Run(ctx, linkJurisdictions, map[string]any{
				"analysisId":    lineage.AnalysisID,
				"jurisdictions": stringsToAny(lineage.Jurisdictions),
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Recorded decision lineage",
		logging.String("analysis_id", lineage.AnalysisID),
		logging.String("entity", lineage.EntityName),
		logging.Int("regulations", len(lineage.Regulations)))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// EntityRegulations returns the regulations an entity's decisions cite, most
// cited first.
func (r *LineageRepository) EntityRegulations(ctx context.Context, entityName string, limit int) ([]RegulationUsage, error) {
	if entityName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "entity name is required")
	}

	query := `
		MATCH (:Entity {name: $entityName})-[:DECIDED]->(d:Decision)-[:CITES]->(r:Regulation)
		RETURN r.name AS regulation, count(d) AS citations, max(d.analyzed_at) AS last_cited
		ORDER BY citations DESC, regulation ASC
		LIMIT $limit
	`
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"entityName": entityName,
			"limit":      int64(queryLimit(limit)),
		})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (RegulationUsage, error) {
			return RegulationUsage{
				Regulation: stringValue(rec, "regulation"),
				Citations:  int64Value(rec, "citations"),
				LastCited:  timeValue(rec, "last_cited"),
			}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]RegulationUsage), nil
}

// RegulationImpact returns the entities whose decisions cite a regulation.
// It answers "who is exposed when this regulation changes".
func (r *LineageRepository) RegulationImpact(ctx context.Context, regulation string, limit int) ([]ImpactedEntity, error) {
	if regulation == "" {
		return nil, errors.New(errors.ErrCodeValidation, "regulation name is required")
	}

	query := `
		MATCH (e:Entity)-[:DECIDED]->(d:Decision)-[:CITES]->(:Regulation {name: $regulation})
		RETURN e.name AS entity_name,
		       count(d) AS citations,
		       max(d.risk_score) AS max_risk_score,
		       max(d.analyzed_at) AS last_analyzed
		ORDER BY citations DESC, entity_name ASC
		LIMIT $limit
	`
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"regulation": regulation,
			"limit":      int64(queryLimit(limit)),
		})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (ImpactedEntity, error) {
			return ImpactedEntity{
				EntityName:   stringValue(rec, "entity_name"),
				Citations:    int64Value(rec, "citations"),
				MaxRiskScore: float64Value(rec, "max_risk_score"),
				LastAnalyzed: timeValue(rec, "last_analyzed"),
			}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]ImpactedEntity), nil
}

// RelatedEntities returns entities whose decisions cite the same regulations
// as the given entity, ranked by how many regulations they share.
func (r *LineageRepository) RelatedEntities(ctx context.Context, entityName string, limit int) ([]RelatedEntity, error) {
	if entityName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "entity name is required")
	}

	query := `
		MATCH (:Entity {name: $entityName})-[:DECIDED]->(:Decision)-[:CITES]->(r:Regulation)
		      <-[:CITES]-(:Decision)<-[:DECIDED]-(other:Entity)
		WHERE other.name <> $entityName
		RETURN other.name AS entity_name, count(DISTINCT r) AS shared_regulations
		ORDER BY shared_regulations DESC, entity_name ASC
		LIMIT $limit
	`
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"entityName": entityName,
			"limit":      int64(queryLimit(limit)),
		})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (RelatedEntity, error) {
			return RelatedEntity{
				EntityName:        stringValue(rec, "entity_name"),
				SharedRegulations: int64Value(rec, "shared_regulations"),
			}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]RelatedEntity), nil
}

// DecisionTrail returns the stored lineage of one decision.
func (r *LineageRepository) DecisionTrail(ctx context.Context, analysisID string) (*DecisionLineage, error) {
	if analysisID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "analysis id is required")
	}

	query := `
		MATCH (e:Entity)-[:DECIDED]->(d:Decision {analysis_id: $analysisId})
		OPTIONAL MATCH (d)-[:CITES]->(r:Regulation)
		OPTIONAL MATCH (d)-[:IN_JURISDICTION]->(j:Jurisdiction)
		RETURN e.name AS entity_name,
		       d.category AS category,
		       d.decision AS decision,
		       d.risk_level AS risk_level,
		       d.risk_score AS risk_score,
		       d.analyzed_at AS analyzed_at,
		       collect(DISTINCT r.name) AS regulations,
		       collect(DISTINCT j.code) AS jurisdictions
	`
	res, err := r.exec.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"analysisId": analysisID})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (DecisionLineage, error) {
			return DecisionLineage{
				AnalysisID:    analysisID,
				EntityName:    stringValue(rec, "entity_name"),
				Category:      stringValue(rec, "category"),
				Decision:      stringValue(rec, "decision"),
				RiskLevel:     stringValue(rec, "risk_level"),
				RiskScore:     float64Value(rec, "risk_score"),
				AnalyzedAt:    timeValue(rec, "analyzed_at"),
				Regulations:   stringSliceValue(rec, "regulations"),
				Jurisdictions: stringSliceValue(rec, "jurisdictions"),
			}, nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Not-found is decided here rather than inside the transaction so the
	// driver's transaction wrapping cannot recode it.
	trails := res.([]DecisionLineage)
	if len(trails) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "decision not found in lineage graph")
	}
	return &trails[0], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Deletes
// ─────────────────────────────────────────────────────────────────────────────

// DeleteDecision detaches and deletes one decision node.  Deleting a
// decision that is not in the graph is not an error.
func (r *LineageRepository) DeleteDecision(ctx context.Context, analysisID string) error {
	if analysisID == "" {
		return errors.New(errors.ErrCodeValidation, "analysis id is required")
	}

	query := `
		MATCH (d:Decision {analysis_id: $analysisId})
		DETACH DELETE d
	`
	_, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"analysisId": analysisID})
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Deleted decision from lineage graph",
		logging.String("analysis_id", analysisID))
	return nil
}

// DeleteOlderThan detaches and deletes decision nodes analyzed before the
// cutoff and reports how many were removed.  The worker's retention sweep
// calls it alongside the document and vector sweeps.  Entity, regulation,
// and jurisdiction nodes stay; they are shared across decisions.
func (r *LineageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		MATCH (d:Decision)
		WHERE d.analyzed_at < $cutoff
		DETACH DELETE d
	`
	res, err := r.exec.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"cutoff": cutoff.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return int64(summary.Counters().NodesDeleted()), nil
	})
	if err != nil {
		return 0, err
	}

	deleted := res.(int64)
	r.logger.Info("Swept aged decision nodes",
		logging.Int64("deleted", deleted),
		logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)))
	return deleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Record mapping
// ─────────────────────────────────────────────────────────────────────────────

func queryLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func stringValue(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func int64Value(rec *neo4j.Record, key string) int64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
	}
	return 0
}

func float64Value(rec *neo4j.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}

func timeValue(rec *neo4j.Record, key string) time.Time {
	if v, ok := rec.Get(key); ok {
		switch t := v.(type) {
		case string:
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed
			}
		case time.Time:
			return t
		}
	}
	return time.Time{}
}

func stringSliceValue(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
