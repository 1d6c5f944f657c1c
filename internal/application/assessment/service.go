// Package assessment provides the application-level service for running
// compliance risk assessments. It orchestrates the decision engine and the
// platform collaborators around it — similar-case retrieval, persistence,
// caching, and the decision event stream — and is the interface between
// HTTP/gRPC handlers and the domain logic.
package assessment

import (
	"context"
	"time"

	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/redis"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/milvus"
	"github.com/turtacn/CompliSense/pkg/errors"
	"github.com/turtacn/CompliSense/pkg/types/common"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

const (
	// eventSource identifies this service in event envelopes.
	eventSource = "assessment-service"

	// cacheKeyPrefix namespaces assessment DTOs in the shared cache.
	cacheKeyPrefix = "assessment:"

	// assessmentCacheTTL bounds how long a completed assessment is served
	// from cache before the store is consulted again.
	assessmentCacheTTL = 15 * time.Minute

	// defaultSimilarTopK is the number of historical cases attached to an
	// assessment when no explicit limit is configured.
	defaultSimilarTopK = 5
)

// AnalysisStore persists completed analyses and serves reads for the
// retrieval operations.
type AnalysisStore interface {
	Save(ctx context.Context, analysis *decision.DecisionAnalysis) error
	FindByID(ctx context.Context, id common.ID) (*decision.DecisionAnalysis, error)
	List(ctx context.Context, entityName string, page common.Pagination) ([]*decision.DecisionAnalysis, int64, error)
}

// SimilarityIndex retrieves historical analyses whose factor vectors sit
// closest to the one under assessment.
type SimilarityIndex interface {
	SearchSimilar(ctx context.Context, vector []float32, topK int, opts ...milvus.SearchOption) ([]milvus.SimilarAnalysis, error)
}

// EventPublisher posts messages to the platform event stream.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// Service exposes the assessment operations consumed by the interface layer.
type Service interface {
	// Assess runs the full pipeline for one entity/task pair and returns
	// the recorded analysis.
	Assess(ctx context.Context, req compliance.AssessmentRequest) (*compliance.AssessmentDTO, error)

	// Get returns a previously recorded analysis by ID.
	Get(ctx context.Context, id common.ID) (*compliance.AssessmentDTO, error)

	// List pages through the recorded analyses of one entity, newest first.
	List(ctx context.Context, req compliance.AssessmentListRequest) (*AssessmentPage, error)
}

// AssessmentPage is one page of recorded analyses.
type AssessmentPage struct {
	Assessments []compliance.AssessmentDTO `json:"assessments"`
	Total       int64                      `json:"total"`
	Page        int                        `json:"page"`
	PageSize    int                        `json:"page_size"`
	TotalPages  int                        `json:"total_pages"`
}

// Option configures optional collaborators on the service.
type Option func(*service)

// WithSimilarityIndex attaches the vector index used to enrich assessments
// with similar historical cases. A topK of zero falls back to the default.
func WithSimilarityIndex(index SimilarityIndex, topK int) Option {
	return func(s *service) {
		s.similar = index
		if topK > 0 {
			s.topK = topK
		}
	}
}

// WithCache attaches the cache that serves repeated reads of the same
// assessment.
func WithCache(cache redis.Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithPublisher attaches the producer that announces recorded decisions on
// the event stream.
func WithPublisher(pub EventPublisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

type service struct {
	engine    *decision.Engine
	store     AnalysisStore
	similar   SimilarityIndex
	cache     redis.Cache
	publisher EventPublisher
	topK      int
	logger    logging.Logger
}

// NewService creates an assessment service around the given engine and
// store. Similarity search, caching, and event publishing are optional;
// without them the assessment itself still completes.
func NewService(engine *decision.Engine, store AnalysisStore, logger logging.Logger, opts ...Option) Service {
	s := &service{
		engine: engine,
		store:  store,
		topK:   defaultSimilarTopK,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Assess
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Assess(ctx context.Context, req compliance.AssessmentRequest) (*compliance.AssessmentDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "assessment request rejected")
	}

	analysis, err := s.engine.AnalyzeAndDecide(req.Entity, req.Task)
	if err != nil {
		return nil, err
	}

	// Enrichment is best-effort: an unreachable index degrades the
	// assessment, it does not fail it.
	s.attachSimilarCases(ctx, analysis)

	if err := s.store.Save(ctx, analysis); err != nil {
		return nil, err
	}

	dto := analysis.ToDTO()
	s.cacheAssessment(ctx, dto)
	s.announceDecision(ctx, analysis)

	s.logger.Info("Assessment completed",
		logging.String("analysis_id", string(analysis.ID)),
		logging.String("entity", analysis.Entity.Name),
		logging.String("risk_level", string(analysis.RiskLevel)),
		logging.String("decision", string(analysis.Decision)),
		logging.Float64("risk_score", analysis.OverallScore))

	return &dto, nil
}

func (s *service) attachSimilarCases(ctx context.Context, analysis *decision.DecisionAnalysis) {
	if s.similar == nil {
		return
	}

	hits, err := s.similar.SearchSimilar(ctx, analysis.Factors.Vector(), s.topK,
		milvus.WithoutAnalysis(string(analysis.ID)))
	if err != nil {
		s.logger.Warn("Similar-case lookup failed",
			logging.String("analysis_id", string(analysis.ID)),
			logging.Err(err))
		return
	}
	if len(hits) == 0 {
		return
	}

	cases := make([]compliance.SimilarCaseDTO, len(hits))
	for i, hit := range hits {
		cases[i] = compliance.SimilarCaseDTO{
			AnalysisID: common.ID(hit.AnalysisID),
			EntityName: hit.EntityName,
			RiskScore:  hit.RiskScore,
			RiskLevel:  common.RiskLevel(hit.RiskLevel),
			Decision:   common.ActionDecision(hit.Decision),
			Similarity: hit.Similarity,
		}
	}
	analysis.SimilarCases = cases
}

func (s *service) cacheAssessment(ctx context.Context, dto compliance.AssessmentDTO) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(dto.ID), dto, assessmentCacheTTL); err != nil {
		s.logger.Warn("Failed to cache assessment",
			logging.String("analysis_id", string(dto.ID)),
			logging.Err(err))
	}
}

func (s *service) announceDecision(ctx context.Context, analysis *decision.DecisionAnalysis) {
	if s.publisher == nil {
		return
	}

	env, err := kafka.NewEventEnvelope(kafka.TopicDecisionRecorded, eventSource, decisionPayload(analysis))
	if err != nil {
		s.logger.Error("Failed to build decision event",
			logging.String("analysis_id", string(analysis.ID)),
			logging.Err(err))
		return
	}
	msg, err := env.ToMessage(kafka.TopicDecisionRecorded)
	if err != nil {
		s.logger.Error("Failed to encode decision event",
			logging.String("analysis_id", string(analysis.ID)),
			logging.Err(err))
		return
	}
	// Key by entity so one entity's decisions stay ordered on a partition.
	msg.Key = []byte(analysis.Entity.Name)

	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("Failed to publish decision event",
			logging.String("analysis_id", string(analysis.ID)),
			logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Retrieval
// ─────────────────────────────────────────────────────────────────────────────

func (s *service) Get(ctx context.Context, id common.ID) (*compliance.AssessmentDTO, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeValidation, "analysis id is required")
	}
	if s.cache == nil {
		return s.load(ctx, id)
	}

	var dto compliance.AssessmentDTO
	err := s.cache.GetOrSet(ctx, cacheKey(id), &dto, assessmentCacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) load(ctx context.Context, id common.ID) (*compliance.AssessmentDTO, error) {
	analysis, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := analysis.ToDTO()
	return &dto, nil
}

func (s *service) List(ctx context.Context, req compliance.AssessmentListRequest) (*AssessmentPage, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "list request rejected")
	}

	analyses, total, err := s.store.List(ctx, req.EntityName, req.Pagination)
	if err != nil {
		return nil, err
	}

	dtos := make([]compliance.AssessmentDTO, len(analyses))
	for i, analysis := range analyses {
		dtos[i] = analysis.ToDTO()
	}
	return &AssessmentPage{
		Assessments: dtos,
		Total:       total,
		Page:        req.Pagination.Page,
		PageSize:    req.Pagination.PageSize,
		TotalPages:  totalPages(total, req.Pagination.PageSize),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func cacheKey(id common.ID) string {
	return cacheKeyPrefix + string(id)
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func decisionPayload(analysis *decision.DecisionAnalysis) kafka.DecisionRecordedPayload {
	return kafka.DecisionRecordedPayload{
		AnalysisID:         string(analysis.ID),
		EntityName:         analysis.Entity.Name,
		Category:           string(analysis.Task.Category),
		TaskDescription:    analysis.Task.Description,
		Decision:           string(analysis.Decision),
		RiskLevel:          string(analysis.RiskLevel),
		RiskScore:          analysis.OverallScore,
		Confidence:         analysis.Confidence,
		FactorScores:       factorScores(analysis.Factors),
		Regulations:        analysis.Regulations,
		Jurisdictions:      jurisdictionStrings(analysis.Entity.Jurisdictions),
		RegulatoryDeadline: analysis.Task.RegulatoryDeadline,
		AnalyzedAt:         time.Time(analysis.AnalyzedAt),
	}
}

func factorScores(fs risk.FactorSet) []float64 {
	factors := risk.Factors()
	scores := make([]float64, len(factors))
	for i, factor := range factors {
		scores[i] = fs.Score(factor)
	}
	return scores
}

func jurisdictionStrings(jurisdictions []compliance.Jurisdiction) []string {
	if len(jurisdictions) == 0 {
		return nil
	}
	out := make([]string, len(jurisdictions))
	for i, j := range jurisdictions {
		out[i] = string(j)
	}
	return out
}
