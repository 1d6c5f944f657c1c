package milvus

import (
	"context"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

// ErrCollectionNotFound is returned when an operation targets a collection
// that has not been created.
var ErrCollectionNotFound = errors.New(errors.ErrCodeNotFound, "milvus collection not found")

// Field names of the analysis-vector collection.  The scalar fields mirror
// the recorded decision so search hits render without a second lookup.
const (
	analysisCollectionBase = "analysis_vectors"

	FieldAnalysisID   = "analysis_id"
	FieldEntityName   = "entity_name"
	FieldCategory     = "category"
	FieldRiskLevel    = "risk_level"
	FieldDecision     = "decision"
	FieldRiskScore    = "risk_score"
	FieldAnalyzedAt   = "analyzed_at"
	FieldFactorVector = "factor_vector"
)

// Supported vector index types.
const (
	IndexTypeHNSW    = "HNSW"
	IndexTypeIVFFlat = "IVF_FLAT"
)

const (
	defaultShardsNum     = int32(2)
	defaultHNSWM         = 16
	defaultHNSWEf        = 200
	defaultIVFNList      = 1024
	defaultLoadTimeout   = 2 * time.Minute
	defaultIndexTimeout  = 5 * time.Minute
	defaultEmbeddingDim  = 6
	maxEntityNameLength  = 256
	maxAnalysisIDLength  = 64
	maxScalarFieldLength = 64
)

// AnalysisVectorSchema describes the collection holding one row per recorded
// analysis: a string primary key (the analysis ID) plus the factor vector and
// the scalar attributes used for filtered search.
func AnalysisVectorSchema(name string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: name,
		Description:    "Risk factor vectors of recorded compliance analyses",
		Fields: []*entity.Field{
			{
				Name:       FieldAnalysisID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxAnalysisIDLength)},
			},
			{
				Name:       FieldEntityName,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxEntityNameLength)},
			},
			{
				Name:       FieldCategory,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxScalarFieldLength)},
			},
			{
				Name:       FieldRiskLevel,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxScalarFieldLength)},
			},
			{
				Name:       FieldDecision,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxScalarFieldLength)},
			},
			{
				Name:     FieldRiskScore,
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     FieldAnalyzedAt,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       FieldFactorVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}
}

// CollectionManager owns the lifecycle of the analysis-vector collection:
// schema creation, vector index build, and load state.
type CollectionManager struct {
	client *Client
	logger logging.Logger

	prefix    string
	dim       int
	indexType string
	hnswM     int
	hnswEf    int
	nlist     int
	shards    int32

	loadTimeout  time.Duration
	indexTimeout time.Duration
	metricType   entity.MetricType
}

// NewCollectionManager builds a manager from the platform configuration,
// filling index parameters that the configuration leaves unset.
func NewCollectionManager(client *Client, cfg config.MilvusConfig, log logging.Logger) *CollectionManager {
	m := &CollectionManager{
		client:       client,
		logger:       log,
		prefix:       cfg.CollectionPrefix,
		dim:          cfg.EmbeddingDim,
		indexType:    cfg.IndexType,
		hnswM:        cfg.HNSWM,
		hnswEf:       cfg.HNSWEfConstruction,
		nlist:        defaultIVFNList,
		shards:       defaultShardsNum,
		loadTimeout:  defaultLoadTimeout,
		indexTimeout: defaultIndexTimeout,
		metricType:   entity.COSINE,
	}
	if m.prefix == "" {
		m.prefix = config.DefaultMilvusCollectionPrefix
	}
	if m.dim <= 0 {
		m.dim = defaultEmbeddingDim
	}
	if m.indexType == "" {
		m.indexType = IndexTypeHNSW
	}
	if m.hnswM <= 0 {
		m.hnswM = defaultHNSWM
	}
	if m.hnswEf <= 0 {
		m.hnswEf = defaultHNSWEf
	}
	return m
}

// CollectionName returns the prefixed name of the analysis-vector collection.
func (m *CollectionManager) CollectionName() string {
	return m.prefix + analysisCollectionBase
}

// Dim returns the configured vector dimensionality.
func (m *CollectionManager) Dim() int {
	return m.dim
}

// EnsureCollection creates the collection, builds the vector index, and loads
// it into memory.  An existing collection is only loaded, so the call is safe
// at every startup.
func (m *CollectionManager) EnsureCollection(ctx context.Context) error {
	name := m.CollectionName()

	exists, err := m.client.GetMilvusClient().HasCollection(ctx, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection lookup failed")
	}

	if !exists {
		schema := AnalysisVectorSchema(name, m.dim)
		if err := m.client.GetMilvusClient().CreateCollection(ctx, schema, m.shards); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection create failed")
		}
		if err := m.createVectorIndex(ctx, name); err != nil {
			return err
		}
		m.logger.Info("Created Milvus collection",
			logging.String("collection", name),
			logging.Int("dim", m.dim),
			logging.String("index", m.indexType))
	}

	if err := m.Load(ctx); err != nil {
		return err
	}
	m.logger.Info("Milvus collection ready", logging.String("collection", name))
	return nil
}

// createVectorIndex builds the configured index on the factor-vector field
// and waits for the build to complete.
func (m *CollectionManager) createVectorIndex(ctx context.Context, name string) error {
	idx, err := m.buildIndex()
	if err != nil {
		return err
	}

	idxCtx, cancel := context.WithTimeout(ctx, m.indexTimeout)
	defer cancel()

	if err := m.client.GetMilvusClient().CreateIndex(idxCtx, name, FieldFactorVector, idx, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "index create failed")
	}
	return nil
}

func (m *CollectionManager) buildIndex() (entity.Index, error) {
	switch m.indexType {
	case IndexTypeHNSW:
		idx, err := entity.NewIndexHNSW(m.metricType, m.hnswM, m.hnswEf)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid HNSW index parameters")
		}
		return idx, nil
	case IndexTypeIVFFlat:
		idx, err := entity.NewIndexIvfFlat(m.metricType, m.nlist)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid IVF_FLAT index parameters")
		}
		return idx, nil
	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid, "unsupported milvus index type: "+m.indexType)
	}
}

// Load brings the collection into query-serving memory and blocks until the
// load completes.
func (m *CollectionManager) Load(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()

	if err := m.client.GetMilvusClient().LoadCollection(loadCtx, m.CollectionName(), false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection load failed")
	}
	return nil
}

// Release evicts the collection from query-serving memory.
func (m *CollectionManager) Release(ctx context.Context) error {
	if err := m.client.GetMilvusClient().ReleaseCollection(ctx, m.CollectionName()); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection release failed")
	}
	return nil
}

// Drop removes the collection and all stored vectors.
func (m *CollectionManager) Drop(ctx context.Context) error {
	name := m.CollectionName()

	exists, err := m.client.GetMilvusClient().HasCollection(ctx, name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection lookup failed")
	}
	if !exists {
		return ErrCollectionNotFound
	}

	if err := m.client.GetMilvusClient().DropCollection(ctx, name); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection drop failed")
	}
	m.logger.Info("Dropped Milvus collection", logging.String("collection", name))
	return nil
}

// RowCount reports the number of stored vectors.  A collection without the
// statistic yet reports zero.
func (m *CollectionManager) RowCount(ctx context.Context) (int64, error) {
	stats, err := m.client.GetMilvusClient().GetCollectionStatistics(ctx, m.CollectionName())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeVectorStoreError, "collection statistics failed")
	}

	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeVectorStoreError, "malformed row_count statistic")
	}
	return count, nil
}
