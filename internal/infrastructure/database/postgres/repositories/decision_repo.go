package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

// analysisColumns is the full column list in insert / scan order.
const analysisColumns = `
	id, entity_name, entity, task,
	factor_jurisdiction, factor_entity, factor_task,
	factor_data_sensitivity, factor_regulatory, factor_impact,
	overall_score, risk_level, decision, confidence,
	reasoning, recommendations, escalation_reason, regulations,
	category, jurisdictions, regulatory_deadline, analyzed_at`

// ─────────────────────────────────────────────────────────────────────────────
// DecisionRepository
// ─────────────────────────────────────────────────────────────────────────────

// DecisionRepository is the PostgreSQL store for completed decision analyses.
// It persists the full analysis for audit retrieval and serves the flattened
// history windows the proactive detectors consume.
type DecisionRepository struct {
	db     dbtx
	logger logging.Logger
}

// NewDecisionRepository constructs a ready-to-use DecisionRepository.
func NewDecisionRepository(pool *pgxpool.Pool, logger logging.Logger) *DecisionRepository {
	return &DecisionRepository{db: pool, logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

// Save persists one completed analysis.  The entity and task contexts are
// stored as jsonb; the factor scores and decision fields are flattened into
// columns so history queries never parse JSON.
func (r *DecisionRepository) Save(ctx context.Context, a *decision.DecisionAnalysis) error {
	r.logger.Debug("DecisionRepository.Save", logging.String("analysis_id", string(a.ID)))

	entityJSON, err := marshalJSONB(a.Entity)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode entity context")
	}
	taskJSON, err := marshalJSONB(a.Task)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to encode task context")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO decision_analyses (`+analysisColumns+`
		) VALUES (
			$1,$2,$3,$4,
			$5,$6,$7,
			$8,$9,$10,
			$11,$12,$13,$14,
			$15,$16,$17,$18,
			$19,$20,$21,$22
		)`,
		string(a.ID), a.Entity.Name, entityJSON, taskJSON,
		a.Factors.JurisdictionRisk, a.Factors.EntityRisk, a.Factors.TaskRisk,
		a.Factors.DataSensitivityRisk, a.Factors.RegulatoryRisk, a.Factors.ImpactRisk,
		a.OverallScore, string(a.RiskLevel), string(a.Decision), a.Confidence,
		a.Reasoning, a.Recommendations, a.EscalationReason, a.Regulations,
		string(a.Task.Category), jurisdictionStrings(a.Entity.Jurisdictions), a.Task.RegulatoryDeadline, time.Time(a.AnalyzedAt),
	)
	if err != nil {
		r.logger.Error("DecisionRepository.Save: insert", logging.Err(err))
		return appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to insert decision analysis")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FindByID
// ─────────────────────────────────────────────────────────────────────────────

// FindByID loads a stored analysis by its primary key.  A missing row maps to
// ErrCodeAnalysisNotFound so the what-if baseline lookup surfaces a 404.
func (r *DecisionRepository) FindByID(ctx context.Context, id common.ID) (*decision.DecisionAnalysis, error) {
	r.logger.Debug("DecisionRepository.FindByID", logging.String("analysis_id", string(id)))

	return r.scanAnalysis(r.db.QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM decision_analyses WHERE id = $1`, string(id)))
}

// ─────────────────────────────────────────────────────────────────────────────
// ListRecordsByEntity — detector feed
// ─────────────────────────────────────────────────────────────────────────────

// ListRecordsByEntity returns the most recent flattened decision records for
// one entity, newest first.  This is the history window the suggestion
// detectors operate on; limit caps the scan so unbounded histories stay cheap.
func (r *DecisionRepository) ListRecordsByEntity(ctx context.Context, entityName string, limit int) ([]compliance.DecisionRecord, error) {
	r.logger.Debug("DecisionRepository.ListRecordsByEntity",
		logging.String("entity_name", entityName), logging.Int("limit", limit))

	rows, err := r.db.Query(ctx, `
		SELECT id, entity_name, analyzed_at, category, decision, risk_level,
		       overall_score, confidence, task->>'description',
		       jurisdictions, regulatory_deadline
		FROM decision_analyses
		WHERE entity_name = $1
		ORDER BY analyzed_at DESC
		LIMIT $2`, entityName, limit)
	if err != nil {
		r.logger.Error("DecisionRepository.ListRecordsByEntity", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to query decision records")
	}
	defer rows.Close()

	var records []compliance.DecisionRecord
	for rows.Next() {
		var (
			rec           compliance.DecisionRecord
			id            string
			decisionStr   string
			riskLevelStr  string
			categoryStr   string
			jurisdictions []string
		)
		err := rows.Scan(
			&id, &rec.EntityName, &rec.Timestamp, &categoryStr, &decisionStr, &riskLevelStr,
			&rec.RiskScore, &rec.ConfidenceScore, &rec.TaskDescription,
			&jurisdictions, &rec.RegulatoryDeadline,
		)
		if err != nil {
			r.logger.Error("DecisionRepository.ListRecordsByEntity: scan", logging.Err(err))
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan decision record")
		}
		rec.ID = common.ID(id)
		rec.Category = compliance.TaskCategory(categoryStr)
		rec.Decision = common.ActionDecision(decisionStr)
		rec.RiskLevel = common.RiskLevel(riskLevelStr)
		rec.Jurisdictions = toJurisdictions(jurisdictions)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return records, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ActiveEntities — scan-loop feed
// ─────────────────────────────────────────────────────────────────────────────

// ActiveEntities returns the distinct names of entities with at least one
// decision recorded since the cutoff, most recently active first.  The
// worker's advisory scan loop uses it to decide which histories to re-check.
func (r *DecisionRepository) ActiveEntities(ctx context.Context, since time.Time, limit int) ([]string, error) {
	r.logger.Debug("DecisionRepository.ActiveEntities",
		logging.String("since", since.Format(time.RFC3339)), logging.Int("limit", limit))

	rows, err := r.db.Query(ctx, `
		SELECT entity_name
		FROM decision_analyses
		WHERE analyzed_at >= $1
		GROUP BY entity_name
		ORDER BY MAX(analyzed_at) DESC
		LIMIT $2`, since, limit)
	if err != nil {
		r.logger.Error("DecisionRepository.ActiveEntities", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to query active entities")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan entity name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return names, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// List — paginated retrieval
// ─────────────────────────────────────────────────────────────────────────────

// List returns stored analyses newest first, optionally filtered by entity
// name, along with the total matching count for pagination.
func (r *DecisionRepository) List(ctx context.Context, entityName string, page common.Pagination) ([]*decision.DecisionAnalysis, int64, error) {
	r.logger.Debug("DecisionRepository.List",
		logging.String("entity_name", entityName),
		logging.Int("page", page.Page), logging.Int("page_size", page.PageSize))

	var (
		conditions []string
		args       []interface{}
		argIdx     int
	)
	nextArg := func(v interface{}) string {
		argIdx++
		args = append(args, v)
		return fmt.Sprintf("$%d", argIdx)
	}

	if strings.TrimSpace(entityName) != "" {
		conditions = append(conditions, "entity_name = "+nextArg(entityName))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM decision_analyses"+where, args...).Scan(&total); err != nil {
		r.logger.Error("DecisionRepository.List: count", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to count decision analyses")
	}

	query := "SELECT " + analysisColumns + " FROM decision_analyses" + where +
		" ORDER BY analyzed_at DESC LIMIT " + nextArg(page.PageSize) + " OFFSET " + nextArg(page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("DecisionRepository.List: query", logging.Err(err))
		return nil, 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to query decision analyses")
	}
	defer rows.Close()

	analyses, err := r.scanAnalyses(rows)
	if err != nil {
		return nil, 0, err
	}
	return analyses, total, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteOlderThan — retention sweep
// ─────────────────────────────────────────────────────────────────────────────

// DeleteOlderThan removes analyses older than the cutoff and reports how many
// rows went away.  Used by the worker's retention sweep.
func (r *DecisionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM decision_analyses WHERE analyzed_at < $1`, cutoff)
	if err != nil {
		r.logger.Error("DecisionRepository.DeleteOlderThan", logging.Err(err))
		return 0, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to delete expired analyses")
	}
	deleted := tag.RowsAffected()
	if deleted > 0 {
		r.logger.Info("expired decision analyses removed",
			logging.Int64("count", deleted),
			logging.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return deleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanAnalysis scans a single row into a DecisionAnalysis.
func (r *DecisionRepository) scanAnalysis(row pgx.Row) (*decision.DecisionAnalysis, error) {
	var (
		a             decision.DecisionAnalysis
		id            string
		entityName    string
		entityJSON    []byte
		taskJSON      []byte
		riskLevelStr  string
		decisionStr   string
		categoryStr   string
		jurisdictions []string
		deadline      *time.Time
		analyzedAt    time.Time
	)

	// entity_name, category, jurisdictions, and the deadline are denormalized
	// copies of jsonb content; the decoded contexts are authoritative here.
	err := row.Scan(
		&id, &entityName, &entityJSON, &taskJSON,
		&a.Factors.JurisdictionRisk, &a.Factors.EntityRisk, &a.Factors.TaskRisk,
		&a.Factors.DataSensitivityRisk, &a.Factors.RegulatoryRisk, &a.Factors.ImpactRisk,
		&a.OverallScore, &riskLevelStr, &decisionStr, &a.Confidence,
		&a.Reasoning, &a.Recommendations, &a.EscalationReason, &a.Regulations,
		&categoryStr, &jurisdictions, &deadline, &analyzedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.ErrCodeAnalysisNotFound, "decision analysis not found")
		}
		r.logger.Error("scanAnalysis", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "failed to scan analysis row")
	}

	if err := json.Unmarshal(entityJSON, &a.Entity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode entity context")
	}
	if err := json.Unmarshal(taskJSON, &a.Task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "failed to decode task context")
	}

	a.ID = common.ID(id)
	a.RiskLevel = common.RiskLevel(riskLevelStr)
	a.Decision = common.ActionDecision(decisionStr)
	a.AnalyzedAt = common.Timestamp(analyzedAt)
	return &a, nil
}

// scanAnalyses scans multiple rows into an analysis slice.  pgx.Rows
// satisfies pgx.Row, so each positioned row reuses the single-row scanner.
func (r *DecisionRepository) scanAnalyses(rows pgx.Rows) ([]*decision.DecisionAnalysis, error) {
	var analyses []*decision.DecisionAnalysis
	for rows.Next() {
		a, err := r.scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeDBQueryError, "row iteration error")
	}
	return analyses, nil
}

// jurisdictionStrings converts the typed jurisdiction slice for a text[]
// column.
func jurisdictionStrings(js []compliance.Jurisdiction) []string {
	if len(js) == 0 {
		return nil
	}
	out := make([]string, len(js))
	for i, j := range js {
		out[i] = string(j)
	}
	return out
}

// toJurisdictions converts a text[] column back to the typed slice.
func toJurisdictions(ss []string) []compliance.Jurisdiction {
	if len(ss) == 0 {
		return nil
	}
	out := make([]compliance.Jurisdiction, len(ss))
	for i, s := range ss {
		out[i] = compliance.Jurisdiction(s)
	}
	return out
}
