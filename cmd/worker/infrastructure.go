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
)

// workerInfrastructure bundles every backing store the worker projects into
// or sweeps, plus the Kafka endpoints it consumes from and publishes to.
type workerInfrastructure struct {
	pool       *pgxpool.Pool
	neo4j      *neo4jdriver.Driver
	redis      *redis.Client
	minio      *minio.Client
	opensearch *opensearch.Client
	milvus     *milvus.Client
	producer   *kafka.Producer
	consumer   *kafka.Consumer

	decisions   *pgrepos.DecisionRepository
	suggestions *pgrepos.SuggestionRepository
	lineage     *neo4jrepos.LineageRepository
	indexer     *opensearch.Indexer
	collections *milvus.CollectionManager
	vectors     *milvus.Searcher
	reports     *minio.ReportRepository
}

// initWorkerInfrastructure connects every backing store. A partial failure
// closes whatever already connected before the error is returned.
func initWorkerInfrastructure(cfg *config.Config, logger logging.Logger) (*workerInfrastructure, error) {
	infra := &workerInfrastructure{}

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

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{kafka.TopicDecisionRecorded},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Worker.MaxRetries,
			RetryBackoff:    cfg.Worker.RetryBackoff,
			DeadLetterTopic: kafka.TopicDeadLetterDefault,
		},
	}, logger)
	if err != nil {
		infra.Close(logger)
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	infra.consumer = consumer

	infra.decisions = pgrepos.NewDecisionRepository(pool, logger)
	infra.suggestions = pgrepos.NewSuggestionRepository(pool, logger)
	infra.lineage = neo4jrepos.NewLineageRepository(neo4jDrv, logger)
	infra.indexer = opensearch.NewIndexer(osCli, cfg.OpenSearch, logger)
	infra.collections = milvus.NewCollectionManager(milvusCli, cfg.Milvus, logger)
	infra.vectors = milvus.NewSearcher(milvusCli, infra.collections, cfg.Milvus, logger)
	infra.reports = minio.NewReportRepository(minioCli, logger)

	logger.Info("Infrastructure initialized")
	return infra, nil
}

// Bootstrap creates the schemas, indexes, and buckets the worker writes into.
// Every step is idempotent, so it is safe to run on every start regardless of
// whether the API server already did.
func (i *workerInfrastructure) Bootstrap(ctx context.Context) error {
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

// Ready reports whether every backing store answers. It backs the /readyz
// endpoint so orchestrators stop routing to a worker that lost a store.
func (i *workerInfrastructure) Ready(ctx context.Context, logger logging.Logger) error {
	if err := postgres.HealthCheck(ctx, i.pool, logger); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := i.redis.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := i.neo4j.HealthCheck(ctx); err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	if err := i.opensearch.Ping(ctx); err != nil {
		return fmt.Errorf("opensearch: %w", err)
	}
	if err := i.milvus.CheckHealth(ctx); err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	if err := i.minio.HealthCheck(ctx); err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	return nil
}

// Close releases every held connection in reverse initialization order. The
// consumer goes first so its in-flight handler finishes before the stores it
// writes to disappear.
func (i *workerInfrastructure) Close(logger logging.Logger) {
	if i.consumer != nil {
		if err := i.consumer.Close(); err != nil {
			logger.Warn("Kafka consumer close failed", logging.Err(err))
		}
	}
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
