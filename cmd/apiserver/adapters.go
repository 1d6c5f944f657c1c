package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	neo4jdriver "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/postgres"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/redis"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/milvus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CompliSense/internal/infrastructure/storage/minio"
)

// Adapters for HealthHandler.

type postgresHealthAdapter struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

func (a *postgresHealthAdapter) Name() string {
	return "postgres"
}

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return postgres.HealthCheck(ctx, a.pool, a.log)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string {
	return "redis"
}

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type neo4jHealthAdapter struct {
	driver *neo4jdriver.Driver
}

func (a *neo4jHealthAdapter) Name() string {
	return "neo4j"
}

func (a *neo4jHealthAdapter) Check(ctx context.Context) error {
	return a.driver.HealthCheck(ctx)
}

type opensearchHealthAdapter struct {
	client *opensearch.Client
}

func (a *opensearchHealthAdapter) Name() string {
	return "opensearch"
}

func (a *opensearchHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type milvusHealthAdapter struct {
	client *milvus.Client
}

func (a *milvusHealthAdapter) Name() string {
	return "milvus"
}

func (a *milvusHealthAdapter) Check(ctx context.Context) error {
	return a.client.CheckHealth(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string {
	return "minio"
}

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	return a.client.HealthCheck(ctx)
}
