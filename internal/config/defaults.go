package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"
	DefaultGRPCPort   = 9090

	DefaultDBHost        = "localhost"
	DefaultDBPort        = 5432
	DefaultDBName        = "complisense"
	DefaultDBMaxConns    = 25
	DefaultMigrationPath = "migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisDB        = 0
	DefaultRedisKeyPrefix = "complisense:"
	DefaultRedisTTL       = 15 * time.Minute

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "complisense-workers"

	DefaultOpenSearchAddr        = "http://localhost:9200"
	DefaultOpenSearchIndexPrefix = "complisense"

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jDatabase = "neo4j"

	DefaultMilvusAddr             = "localhost:19530"
	DefaultMilvusEmbeddingDim     = 6
	DefaultMilvusTopK             = 5
	DefaultMilvusCollectionPrefix = "complisense_"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "complisense-reports"
	DefaultPresignExpiry = 15 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency    = 10
	DefaultWorkerQueueDepth     = 100
	DefaultWorkerHealthPort     = 8081
	DefaultSuggestionScanPeriod = time.Hour
	DefaultRetentionSweepPeriod = 24 * time.Hour

	DefaultViolationReviewThreshold = 2
	DefaultMinUpcomingDeadlines     = 3
	DefaultMinTrendRecords          = 3
	DefaultMinHighRiskEscalations   = 2
	DefaultMinIncidentRecords       = 2
	DefaultMinFilingRecords         = 3
	DefaultSimilarCasesTopK         = 5
	DefaultHistoryLimit             = 500
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must run after
// unmarshalling raw config data and before Validate() so that
// optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.GRPC.Port == 0 {
		cfg.Server.GRPC.Port = DefaultGRPCPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddr}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = DefaultOpenSearchIndexPrefix
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = DefaultNeo4jDatabase
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultMilvusEmbeddingDim
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultMilvusCollectionPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = DefaultPresignExpiry
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.QueueDepth == 0 {
		cfg.Worker.QueueDepth = DefaultWorkerQueueDepth
	}
	if cfg.Worker.Mode == "" {
		cfg.Worker.Mode = "local"
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
	if cfg.Worker.SuggestionScan == 0 {
		cfg.Worker.SuggestionScan = DefaultSuggestionScanPeriod
	}
	// RetentionWindow deliberately has no default: sweeping audit data away
	// is opt-in.
	if cfg.Worker.RetentionSweep == 0 {
		cfg.Worker.RetentionSweep = DefaultRetentionSweepPeriod
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.ViolationReviewThreshold == 0 {
		cfg.Engine.ViolationReviewThreshold = DefaultViolationReviewThreshold
	}
	if cfg.Engine.MinUpcomingDeadlines == 0 {
		cfg.Engine.MinUpcomingDeadlines = DefaultMinUpcomingDeadlines
	}
	if cfg.Engine.MinTrendRecords == 0 {
		cfg.Engine.MinTrendRecords = DefaultMinTrendRecords
	}
	if cfg.Engine.MinHighRiskEscalations == 0 {
		cfg.Engine.MinHighRiskEscalations = DefaultMinHighRiskEscalations
	}
	if cfg.Engine.MinIncidentRecords == 0 {
		cfg.Engine.MinIncidentRecords = DefaultMinIncidentRecords
	}
	if cfg.Engine.MinFilingRecords == 0 {
		cfg.Engine.MinFilingRecords = DefaultMinFilingRecords
	}
	if cfg.Engine.SimilarCasesTopK == 0 {
		cfg.Engine.SimilarCasesTopK = DefaultSimilarCasesTopK
	}
	if cfg.Engine.HistoryLimit == 0 {
		cfg.Engine.HistoryLimit = DefaultHistoryLimit
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
