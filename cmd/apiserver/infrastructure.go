package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/CompliSense/internal/config"
	neo4jdriver "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j"
	neo4jrepos "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/postgres"
	pgrepos "github.com/turtacn/CompliSense/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/redis"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/milvus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CompliSense/internal/infrastructure/storage/minio"
	"github.com/turtacn/CompliSense/internal/interfaces/http/handlers"
)

// apiInfrastructure bundles every infrastructure client the API server needs,
// together with the repositories and helpers built on top of them.
type apiInfrastructure struct {
	pool       *pgxpool.Pool
	neo4j      *neo4jdriver.Driver
	redis      *redis.Client
	minio      *minio.Client
	opensearch *opensearch.Client
	milvus     *milvus.Client
	producer   *kafka.Producer

	decisions   *pgrepos.DecisionRepository
	suggestions *pgrepos.SuggestionRepository
	lineage     *neo4jrepos.LineageRepository
	cache       redis.Cache
	indexer     *opensearch.Indexer
	searcher    *opensearch.Searcher
	collections *milvus.CollectionManager
	vectors     *milvus.Searcher
	reports     *minio.ReportRepository
}

// initInfrastructure connects every backing store. A partial failure closes
// whatever already connected before the error is returned.
func initInfrastructure(cfg *config.Config, logger logging.Logger) (*apiInfrastructure, error) {
	infra := &apiInfrastructure{}

	if cfg.Database.MigrationPath != "" {
		if err := postgres.MigrateFromConfig(cfg.Database); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	pool, err := postgres.NewConnectionPool(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.pool = pool

	neo4jDrv, err := neo4jdriver.NewDriver(cfg.Neo4j, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("neo4j: %w", err)
	}
	infra.neo4j = neo4jDrv

	redisCli, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("redis: %w", err)
	}
	infra.redis = redisCli

	minioCli, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("minio: %w", err)
	}
	infra.minio = minioCli

	osCli, err := opensearch.NewClient(cfg.OpenSearch, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("opensearch: %w", err)
	}
	infra.opensearch = osCli

	milvusCli, err := milvus.NewClient(cfg.Milvus, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("milvus: %w", err)
	}
	infra.milvus = milvusCli

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Acks:       "all",
		MaxRetries: cfg.Kafka.ProducerRetries,
		BatchSize:  cfg.Kafka.BatchSize,
	}, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	infra.producer = producer

	infra.decisions = pgrepos.NewDecisionRepository(pool, logger)
	infra.suggestions = pgrepos.NewSuggestionRepository(pool, logger)
	infra.lineage = neo4jrepos.NewLineageRepository(neo4jDrv, logger)

	var cacheOpts []redis.CacheOption
	if cfg.Redis.KeyPrefix != "" {
		cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
	}
	if cfg.Redis.DefaultTTL > 0 {
		cacheOpts = append(cacheOpts, redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	}
	infra.cache = redis.NewCache(redisCli, logger, cacheOpts...)

	infra.indexer = opensearch.NewIndexer(osCli, cfg.OpenSearch, logger)
	infra.searcher = opensearch.NewSearcher(osCli, cfg.OpenSearch, logger)
	infra.collections = milvus.NewCollectionManager(milvusCli, cfg.Milvus, logger)
	infra.vectors = milvus.NewSearcher(milvusCli, infra.collections, cfg.Milvus, logger)
	infra.reports = minio.NewReportRepository(minioCli, logger)

	logger.Info("Infrastructure initialized")
	return infra, nil
}

// Bootstrap creates the schemas, indexes, and buckets the platform writes
// into. Every step is idempotent, so repeated startups are safe.
func (i *apiInfrastructure) Bootstrap(ctx context.Context) error {
	if err := i.lineage.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("lineage schema: %w", err)
	}
	if err := i.indexer.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("decision index: %w", err)
	}
	if err := i.collections.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("vector collection: %w", err)
	}
	if err := i.collections.Load(ctx); err != nil {
		return fmt.Errorf("vector collection load: %w", err)
	}
	if err := i.minio.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("report bucket: %w", err)
	}
	return nil
}

// Close releases every held connection in reverse initialization order.
func (i *apiInfrastructure) Close(logger logging.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			logger.Warn("Kafka producer close failed", logging.Err(err))
		}
	}
	if i.milvus != nil {
		if err := i.milvus.Close(); err != nil {
			logger.Warn("Milvus close failed", logging.Err(err))
		}
	}
	if i.opensearch != nil {
		i.opensearch.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.Warn("Redis close failed", logging.Err(err))
		}
	}
	if i.neo4j != nil {
		if err := i.neo4j.Close(); err != nil {
			logger.Warn("Neo4j close failed", logging.Err(err))
		}
	}
	if i.pool != nil {
		postgres.Close(i.pool)
	}
}

// HealthCheckers exposes one readiness probe per backing store.
func (i *apiInfrastructure) HealthCheckers(logger logging.Logger) []handlers.HealthChecker {
	return []handlers.HealthChecker{
		&postgresHealthAdapter{pool: i.pool, log: logger},
		&redisHealthAdapter{client: i.redis},
		&neo4jHealthAdapter{driver: i.neo4j},
		&opensearchHealthAdapter{client: i.opensearch},
		&milvusHealthAdapter{client: i.milvus},
		&minioHealthAdapter{client: i.minio},
	}
}
