package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

const (
	defaultSearchTimeout = 10 * time.Second
	defaultUpsertTimeout = 30 * time.Second
	defaultSearchEf      = 64
	defaultSearchNProbe  = 16
	maxSearchTopK        = 1000
)

// AnalysisVector is one row of the analysis-vector collection: the factor
// vector of a recorded analysis plus the scalar attributes stored alongside
// it.  Scalar values are plain strings so the store stays decoupled from the
// domain types.
type AnalysisVector struct {
	AnalysisID string
	EntityName string
	Category   string
	RiskLevel  string
	Decision   string
	RiskScore  float64
	AnalyzedAt time.Time
	Vector     []float32
}

// SimilarAnalysis is a search hit: a stored analysis together with its
// cosine similarity to the query vector.
type SimilarAnalysis struct {
	AnalysisID string
	EntityName string
	Category   string
	RiskLevel  string
	Decision   string
	RiskScore  float64
	AnalyzedAt time.Time
	Similarity float64
}

// SearchOption narrows a similarity search with a boolean filter.
type SearchOption func(*searchQuery)

type searchQuery struct {
	exprs []string
}

// WithEntity restricts hits to analyses of one entity.
func WithEntity(name string) SearchOption {
	return func(q *searchQuery) {
		if name != "" {
			q.exprs = append(q.exprs, fmt.Sprintf("%s == %s", FieldEntityName, strconv.Quote(name)))
		}
	}
}

// WithCategory restricts hits to one task category.
func WithCategory(category string) SearchOption {
	return func(q *searchQuery) {
		if category != "" {
			q.exprs = append(q.exprs, fmt.Sprintf("%s == %s", FieldCategory, strconv.Quote(category)))
		}
	}
}

// WithRiskLevel restricts hits to one risk level.
func WithRiskLevel(level string) SearchOption {
	return func(q *searchQuery) {
		if level != "" {
			q.exprs = append(q.exprs, fmt.Sprintf("%s == %s", FieldRiskLevel, strconv.Quote(level)))
		}
	}
}

// WithoutAnalysis drops one analysis from the hits, normally the analysis
// whose own vector is the query.
func WithoutAnalysis(analysisID string) SearchOption {
	return func(q *searchQuery) {
		if analysisID != "" {
			q.exprs = append(q.exprs, fmt.Sprintf("%s != %s", FieldAnalysisID, strconv.Quote(analysisID)))
		}
	}
}

// Searcher stores analysis vectors and retrieves the most similar historical
// cases for a query vector.
type Searcher struct {
	client *Client
	mgr    *CollectionManager
	logger logging.Logger

	defaultTopK   int
	searchEf      int
	searchNProbe  int
	searchTimeout time.Duration
	upsertTimeout time.Duration
}

// NewSearcher builds a Searcher over the analysis-vector collection.
func NewSearcher(client *Client, mgr *CollectionManager, cfg config.MilvusConfig, log logging.Logger) *Searcher {
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = config.DefaultMilvusTopK
	}
	return &Searcher{
		client:        client,
		mgr:           mgr,
		logger:        log,
		defaultTopK:   topK,
		searchEf:      defaultSearchEf,
		searchNProbe:  defaultSearchNProbe,
		searchTimeout: defaultSearchTimeout,
		upsertTimeout: defaultUpsertTimeout,
	}
}

// Upsert writes analysis vectors keyed by analysis ID.  Upserting keeps
// event redelivery idempotent: a replayed decision event overwrites its own
// row instead of duplicating it.
func (s *Searcher) Upsert(ctx context.Context, vectors ...AnalysisVector) (int64, error) {
	if len(vectors) == 0 {
		return 0, errors.New(errors.ErrCodeValidation, "no vectors to upsert")
	}

	dim := s.mgr.Dim()
	ids := make([]string, len(vectors))
	entities := make([]string, len(vectors))
	categories := make([]string, len(vectors))
	levels := make([]string, len(vectors))
	decisions := make([]string, len(vectors))
	scores := make([]float64, len(vectors))
	timestamps := make([]int64, len(vectors))
	factorVectors := make([][]float32, len(vectors))

	for i, v := range vectors {
		if v.AnalysisID == "" {
			return 0, errors.New(errors.ErrCodeValidation, "analysis id is required")
		}
		if len(v.Vector) != dim {
			return 0, errors.New(errors.ErrCodeValidation,
				fmt.Sprintf("vector for %s has dimension %d, expected %d", v.AnalysisID, len(v.Vector), dim))
		}
		ids[i] = v.AnalysisID
		entities[i] = v.EntityName
		categories[i] = v.Category
		levels[i] = v.RiskLevel
		decisions[i] = v.Decision
		scores[i] = v.RiskScore
		timestamps[i] = v.AnalyzedAt.UnixMilli()
		factorVectors[i] = v.Vector
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(FieldAnalysisID, ids),
		entity.NewColumnVarChar(FieldEntityName, entities),
		entity.NewColumnVarChar(FieldCategory, categories),
		entity.NewColumnVarChar(FieldRiskLevel, levels),
		entity.NewColumnVarChar(FieldDecision, decisions),
		entity.NewColumnDouble(FieldRiskScore, scores),
		entity.NewColumnInt64(FieldAnalyzedAt, timestamps),
		entity.NewColumnFloatVector(FieldFactorVector, dim, factorVectors),
	}

	upsertCtx, cancel := context.WithTimeout(ctx, s.upsertTimeout)
	defer cancel()

	if _, err := s.client.GetMilvusClient().Upsert(upsertCtx, s.mgr.CollectionName(), "", columns...); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeVectorStoreError, "vector upsert failed")
	}

	s.logger.Debug("Upserted analysis vectors",
		logging.String("collection", s.mgr.CollectionName()),
		logging.Int("count", len(vectors)))
	return int64(len(vectors)), nil
}

// SearchSimilar returns the topK stored analyses nearest to the query vector
// under cosine similarity, most similar first.  A topK of zero or less uses
// the configured default.
func (s *Searcher) SearchSimilar(ctx context.Context, vector []float32, topK int, opts ...SearchOption) ([]SimilarAnalysis, error) {
	if len(vector) != s.mgr.Dim() {
		return nil, errors.New(errors.ErrCodeValidation,
			fmt.Sprintf("query vector has dimension %d, expected %d", len(vector), s.mgr.Dim()))
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}

	var q searchQuery
	for _, opt := range opts {
		opt(&q)
	}
	expr := strings.Join(q.exprs, " and ")

	sp, err := s.buildSearchParam(topK)
	if err != nil {
		return nil, err
	}

	outputFields := []string{
		FieldEntityName, FieldCategory, FieldRiskLevel,
		FieldDecision, FieldRiskScore, FieldAnalyzedAt,
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.searchTimeout)
	defer cancel()

	start := time.Now()
	results, err := s.client.GetMilvusClient().Search(
		searchCtx,
		s.mgr.CollectionName(),
		nil,
		expr,
		outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldFactorVector,
		s.mgr.metricType,
		topK,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClBounded),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreError, "similarity search failed")
	}

	hits := s.convertHits(results)
	s.logger.Debug("Similar-case search executed",
		logging.String("collection", s.mgr.CollectionName()),
		logging.Int("hits", len(hits)),
		logging.Duration("took", time.Since(start)))
	return hits, nil
}

// buildSearchParam picks search parameters matching the collection's index
// type.  HNSW ef must be at least topK or the server rejects the query.
func (s *Searcher) buildSearchParam(topK int) (entity.SearchParam, error) {
	switch s.mgr.indexType {
	case IndexTypeHNSW:
		ef := s.searchEf
		if ef < topK {
			ef = topK
		}
		sp, err := entity.NewIndexHNSWSearchParam(ef)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid HNSW search parameters")
		}
		return sp, nil
	case IndexTypeIVFFlat:
		sp, err := entity.NewIndexIvfFlatSearchParam(s.searchNProbe)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid IVF_FLAT search parameters")
		}
		return sp, nil
	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid, "unsupported milvus index type: "+s.mgr.indexType)
	}
}

// convertHits flattens the SDK result of a single-vector query.  The primary
// key arrives in the IDs column; the remaining attributes in output fields.
func (s *Searcher) convertHits(results []client.SearchResult) []SimilarAnalysis {
	hits := make([]SimilarAnalysis, 0, s.defaultTopK)
	for _, res := range results {
		for i := 0; i < res.ResultCount; i++ {
			id, err := res.IDs.GetAsString(i)
			if err != nil {
				s.logger.Warn("Skipping hit with unreadable primary key", logging.Err(err))
				continue
			}
			hits = append(hits, SimilarAnalysis{
				AnalysisID: id,
				EntityName: stringField(res.Fields, FieldEntityName, i),
				Category:   stringField(res.Fields, FieldCategory, i),
				RiskLevel:  stringField(res.Fields, FieldRiskLevel, i),
				Decision:   stringField(res.Fields, FieldDecision, i),
				RiskScore:  doubleField(res.Fields, FieldRiskScore, i),
				AnalyzedAt: time.UnixMilli(int64Field(res.Fields, FieldAnalyzedAt, i)).UTC(),
				Similarity: float64(res.Scores[i]),
			})
		}
	}
	return hits
}

// DeleteByAnalysisIDs removes the rows of the given analyses.
func (s *Searcher) DeleteByAnalysisIDs(ctx context.Context, analysisIDs ...string) error {
	if len(analysisIDs) == 0 {
		return errors.New(errors.ErrCodeValidation, "no analysis ids to delete")
	}

	quoted := make([]string, len(analysisIDs))
	for i, id := range analysisIDs {
		quoted[i] = strconv.Quote(id)
	}
	expr := fmt.Sprintf("%s in [%s]", FieldAnalysisID, strings.Join(quoted, ","))

	if err := s.client.GetMilvusClient().Delete(ctx, s.mgr.CollectionName(), "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "vector delete failed")
	}

	s.logger.Debug("Deleted analysis vectors",
		logging.String("collection", s.mgr.CollectionName()),
		logging.Int("count", len(analysisIDs)))
	return nil
}

// DeleteOlderThan removes vectors of analyses recorded before the cutoff.
// The retention sweep in the worker calls this alongside the relational
// cleanup so the index does not outgrow the records it points at.
func (s *Searcher) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	expr := fmt.Sprintf("%s < %d", FieldAnalyzedAt, cutoff.UnixMilli())

	if err := s.client.GetMilvusClient().Delete(ctx, s.mgr.CollectionName(), "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "vector retention delete failed")
	}

	s.logger.Info("Swept aged analysis vectors",
		logging.String("collection", s.mgr.CollectionName()),
		logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)))
	return nil
}

// Count reports the number of stored vectors.
func (s *Searcher) Count(ctx context.Context) (int64, error) {
	return s.mgr.RowCount(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Field extraction helpers
// ─────────────────────────────────────────────────────────────────────────────

// The server returns every requested output field, so a missing column or an
// unreadable cell yields the zero value rather than failing the whole page.

func stringField(fields client.ResultSet, name string, idx int) string {
	col := fields.GetColumn(name)
	if col == nil {
		return ""
	}
	v, err := col.GetAsString(idx)
	if err != nil {
		return ""
	}
	return v
}

func doubleField(fields client.ResultSet, name string, idx int) float64 {
	col := fields.GetColumn(name)
	if col == nil {
		return 0
	}
	v, err := col.GetAsDouble(idx)
	if err != nil {
		return 0
	}
	return v
}

func int64Field(fields client.ResultSet, name string, idx int) int64 {
	col := fields.GetColumn(name)
	if col == nil {
		return 0
	}
	v, err := col.GetAsInt64(idx)
	if err != nil {
		return 0
	}
	return v
}
